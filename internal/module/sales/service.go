package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/salesboard/internal/dashboard"
	"github.com/simp-lee/salesboard/internal/domain"
)

// ExportFormat selects the file type produced by Service.Export.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// DashboardView is everything the dashboard renders for one view state.
type DashboardView struct {
	State         dashboard.State                     `json:"state"`
	Summary       dashboard.Summary                   `json:"summary"`
	MonthlySeries []dashboard.SeriesPoint             `json:"monthlySeries"`
	CourseSeries  []dashboard.SeriesPoint             `json:"courseSeries"`
	Page          *pagination.Pagination[domain.Sale] `json:"page"`
	CourseOptions []string                            `json:"courseOptions"`
	Loading       bool                                `json:"loading"`
}

// ExportFile is a rendered download.
type ExportFile struct {
	Name        string
	ContentType string
	Body        []byte
}

// Service composes the record store, the derivation functions, and the
// submission gateway.
type Service interface {
	Dashboard(ctx context.Context, st dashboard.State) (*DashboardView, error)
	Export(ctx context.Context, filter domain.FilterSpec, format ExportFormat) (*ExportFile, error)
	Submit(ctx context.Context, draft domain.SaleDraft) (domain.NewSale, error)
	Reload(ctx context.Context) (StoreStatus, error)
	Status() StoreStatus
	Courses() []string
}

// Options tunes the sales service.
type Options struct {
	PageSize           int
	Location           *time.Location
	RefreshAfterSubmit bool
	Courses            []string
}

type salesService struct {
	store   *Store
	gateway *Gateway
	opts    Options
	now     func() time.Time
}

// NewSaleService creates a Service over store and gateway.
func NewSaleService(store *Store, gateway *Gateway, opts Options) Service {
	if opts.PageSize <= 0 {
		opts.PageSize = dashboard.PageSize
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &salesService{store: store, gateway: gateway, opts: opts, now: time.Now}
}

// Dashboard derives the filtered view, KPIs, series, and the requested page.
// The page is clamped into range.
func (s *salesService) Dashboard(ctx context.Context, st dashboard.State) (*DashboardView, error) {
	snap := s.store.Snapshot()
	view := dashboard.ActiveView(snap.Records, st.Filter)

	page, err := dashboard.PageOf(ctx, view, s.opts.PageSize, st.Page)
	if err != nil {
		return nil, fmt.Errorf("paginate sales: %w", err)
	}
	st.Page = page.CurrentPage

	return &DashboardView{
		State:         st,
		Summary:       dashboard.Summarize(view, s.now().In(s.opts.Location)),
		MonthlySeries: dashboard.MonthlySeries(view),
		CourseSeries:  dashboard.CourseSeries(view),
		Page:          page,
		CourseOptions: dashboard.CourseOptions(snap.Records),
		Loading:       snap.Loading,
	}, nil
}

// Export renders the whole filtered view, not just the current page.
func (s *salesService) Export(_ context.Context, filter domain.FilterSpec, format ExportFormat) (*ExportFile, error) {
	view := dashboard.ActiveView(s.store.Snapshot().Records, filter)

	switch format {
	case FormatCSV:
		return &ExportFile{
			Name:        dashboard.CSVFileName,
			ContentType: dashboard.CSVContentType,
			Body:        []byte(dashboard.ToDelimitedText(view)),
		}, nil
	case FormatXLSX:
		body, err := dashboard.ToWorkbookBytes(view)
		if err != nil {
			return nil, domain.NewAppError(domain.CodeInternal, "build workbook", err)
		}
		return &ExportFile{
			Name:        dashboard.WorkbookFileName,
			ContentType: dashboard.WorkbookContentType,
			Body:        body,
		}, nil
	default:
		return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("unsupported export format %q", format), nil)
	}
}

// Submit forwards draft through the gateway. The dashboard is not refreshed
// unless RefreshAfterSubmit is set.
func (s *salesService) Submit(ctx context.Context, draft domain.SaleDraft) (domain.NewSale, error) {
	sale, err := s.gateway.Submit(ctx, draft)
	if err != nil {
		return domain.NewSale{}, err
	}
	if s.opts.RefreshAfterSubmit {
		if err := s.store.Load(ctx); err != nil {
			slog.WarnContext(ctx, "refresh after submit failed", slog.Any("error", err))
		}
	}
	return sale, nil
}

// Reload re-runs the store load and reports the resulting status.
func (s *salesService) Reload(ctx context.Context) (StoreStatus, error) {
	err := s.store.Load(ctx)
	return s.store.Status(), err
}

func (s *salesService) Status() StoreStatus {
	return s.store.Status()
}

// Courses returns the choices offered by the sale entry form.
func (s *salesService) Courses() []string {
	return append([]string(nil), s.opts.Courses...)
}
