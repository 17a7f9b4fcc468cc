package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simp-lee/salesboard/internal/domain"
)

// Gateway validates sale drafts and forwards them to the backend, one POST per
// submission. It never retries and never touches the Store.
type Gateway struct {
	repo domain.SaleRepository
}

// NewGateway creates a Gateway that submits through repo.
func NewGateway(repo domain.SaleRepository) *Gateway {
	return &Gateway{repo: repo}
}

// Submit validates draft and posts it. Invalid drafts fail with a validation
// error before any network call; transport and non-2xx failures surface as
// network and upstream errors.
func (g *Gateway) Submit(ctx context.Context, draft domain.SaleDraft) (domain.NewSale, error) {
	sale, err := ParseDraft(draft)
	if err != nil {
		return domain.NewSale{}, err
	}

	if err := g.repo.Create(ctx, sale); err != nil {
		slog.WarnContext(ctx, "sale submission failed",
			slog.String("course", sale.Course),
			slog.String("kind", domain.CodeOf(err).String()),
			slog.Any("error", err),
		)
		return domain.NewSale{}, fmt.Errorf("submit sale: %w", err)
	}

	slog.InfoContext(ctx, "sale submitted", slog.String("course", sale.Course), slog.String("saleDate", sale.SaleDate))
	return sale, nil
}

// ParseDraft trims and checks the form input and converts it to the POST body.
func ParseDraft(draft domain.SaleDraft) (domain.NewSale, error) {
	name := strings.TrimSpace(draft.Name)
	course := strings.TrimSpace(draft.Course)
	priceText := strings.TrimSpace(draft.Price)
	saleDate := strings.TrimSpace(draft.SaleDate)

	var missing []string
	for _, f := range []struct{ field, value string }{
		{"name", name},
		{"course", course},
		{"price", priceText},
		{"saleDate", saleDate},
	} {
		if f.value == "" {
			missing = append(missing, f.field)
		}
	}
	if len(missing) > 0 {
		return domain.NewSale{}, domain.NewAppError(domain.CodeValidation,
			"required: "+strings.Join(missing, ", "), nil)
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return domain.NewSale{}, domain.NewAppError(domain.CodeValidation, "price must be a number", err)
	}
	if price.IsNegative() {
		return domain.NewSale{}, domain.NewAppError(domain.CodeValidation, "price must not be negative", nil)
	}

	if _, err := time.Parse(time.DateOnly, saleDate); err != nil {
		return domain.NewSale{}, domain.NewAppError(domain.CodeValidation, "saleDate must be YYYY-MM-DD", err)
	}

	return domain.NewSale{
		Name:     name,
		Course:   course,
		Price:    price.InexactFloat64(),
		SaleDate: saleDate,
	}, nil
}
