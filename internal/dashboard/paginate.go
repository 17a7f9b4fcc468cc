package dashboard

import (
	"context"

	"github.com/simp-lee/pagination"
	"github.com/simp-lee/salesboard/internal/domain"
)

// PageSize is the fixed number of table rows per dashboard page.
const PageSize = 5

// pagesInRange is the width of the page-number strip under the table.
const pagesInRange = 5

// Paginate returns the 1-based page of view. Pages past the end, and pages
// below 1, yield an empty slice.
func Paginate(view []domain.Sale, pageSize, page int) []domain.Sale {
	if pageSize <= 0 || page < 1 || page-1 > len(view)/pageSize {
		return []domain.Sale{}
	}
	start := (page - 1) * pageSize
	if start >= len(view) {
		return []domain.Sale{}
	}
	end := min(start+pageSize, len(view))
	out := make([]domain.Sale, end-start)
	copy(out, view[start:end])
	return out
}

// TotalPages returns ceil(len(view)/pageSize), never less than 1.
func TotalPages(view []domain.Sale, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	return max(1, (len(view)+pageSize-1)/pageSize)
}

// Prev moves one page back, staying on page 1.
func Prev(page int) int {
	if page <= 1 {
		return 1
	}
	return page - 1
}

// Next moves one page forward, staying on the last page.
func Next(page, totalPages int) int {
	if page >= totalPages {
		return page
	}
	return page + 1
}

// PageOf builds navigable page metadata for view. Out-of-range pages are
// clamped to [1, TotalPages].
func PageOf(ctx context.Context, view []domain.Sale, pageSize, page int) (*pagination.Pagination[domain.Sale], error) {
	page = max(page, 1)
	p := pagination.NewPaginator(
		pagination.WithItemsPerPage[domain.Sale](pageSize),
		pagination.WithPagesInRange[domain.Sale](pagesInRange),
		pagination.WithKnownTotal[domain.Sale](int64(len(view))),
		pagination.WithSliceCallback(func(_ context.Context, offset, limit int) ([]domain.Sale, error) {
			return Paginate(view, limit, offset/limit+1), nil
		}),
	)
	return p.Paginate(ctx, page)
}
