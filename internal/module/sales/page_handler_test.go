package sales

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/salesboard/internal/dashboard"
	"github.com/simp-lee/salesboard/internal/domain"
)

// --- mock service for handler tests ---

type mockSaleService struct {
	view       *DashboardView
	lastState  dashboard.State
	lastFilter domain.FilterSpec
	drafts     []domain.SaleDraft
	status     StoreStatus

	dashboardErr error
	exportErr    error
	submitErr    error
	reloadErr    error
}

func newMockService() *mockSaleService {
	return &mockSaleService{status: StoreStatus{Status: StatusOK}}
}

func (m *mockSaleService) Dashboard(ctx context.Context, st dashboard.State) (*DashboardView, error) {
	m.lastState = st
	if m.dashboardErr != nil {
		return nil, m.dashboardErr
	}
	if m.view != nil {
		return m.view, nil
	}
	page, err := dashboard.PageOf(ctx, nil, dashboard.PageSize, st.Page)
	if err != nil {
		return nil, err
	}
	st.Page = page.CurrentPage
	return &DashboardView{State: st, Summary: dashboard.Summary{TopCourse: "-"}, Page: page, CourseOptions: []string{""}}, nil
}

func (m *mockSaleService) Export(_ context.Context, filter domain.FilterSpec, format ExportFormat) (*ExportFile, error) {
	m.lastFilter = filter
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	if format == FormatXLSX {
		return &ExportFile{Name: dashboard.WorkbookFileName, ContentType: dashboard.WorkbookContentType, Body: []byte("PK")}, nil
	}
	return &ExportFile{Name: dashboard.CSVFileName, ContentType: dashboard.CSVContentType, Body: []byte("ID,Name,Course,Price,Date")}, nil
}

func (m *mockSaleService) Submit(_ context.Context, draft domain.SaleDraft) (domain.NewSale, error) {
	m.drafts = append(m.drafts, draft)
	if m.submitErr != nil {
		return domain.NewSale{}, m.submitErr
	}
	return ParseDraft(draft)
}

func (m *mockSaleService) Reload(context.Context) (StoreStatus, error) {
	return m.status, m.reloadErr
}

func (m *mockSaleService) Status() StoreStatus { return m.status }

func (m *mockSaleService) Courses() []string { return []string{"Java", "React", "Spring"} }

// --- helper to set up gin test router with minimal templates ---

func setupPageRouter(h *SalePageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// Stub templates so c.HTML() calls don't panic.
	tmpl := template.Must(template.New("").Parse(
		`{{define "sales/dashboard.html"}}dashboard page={{.State.Page}} top={{.View.Summary.TopCourse}}{{end}}` +
			`{{define "sales/form.html"}}form{{range .Courses}} {{.}}{{end}}{{end}}` +
			`{{define "sales/form_fragment.html"}}fragment name={{.Sale.Name}}{{if .Error}} alert={{.Error}}{{end}}{{end}}` +
			`{{define "errors/500.html"}}500{{end}}`,
	))
	r.SetHTMLTemplate(tmpl)

	r.GET("/sales", h.DashboardPage)
	r.GET("/sales/new", h.NewPage)
	r.GET("/sales/export.csv", h.ExportCSV)
	r.GET("/sales/export.xlsx", h.ExportXLSX)
	r.POST("/sales", h.CreateHTMX)
	r.POST("/sales/reload", h.ReloadHTMX)

	return r
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func validForm() url.Values {
	return url.Values{
		"name":     {"Priya"},
		"course":   {"React"},
		"price":    {"999"},
		"saleDate": {"2024-06-01"},
	}
}

// --- tests ---

func TestDashboardPage_ParsesState(t *testing.T) {
	svc := newMockService()
	r := setupPageRouter(NewSalePageHandler(svc, "₹"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/sales?course=Java&from=2024-01-01&to=2024-01-31&page=3", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	want := dashboard.State{Filter: domain.FilterSpec{Course: "Java", FromDate: "2024-01-01", ToDate: "2024-01-31"}, Page: 3}
	if svc.lastState != want {
		t.Errorf("state = %+v, want %+v", svc.lastState, want)
	}
	if body := w.Body.String(); body != "dashboard page=1 top=-" {
		t.Errorf("body = %q", body)
	}
}

func TestDashboardPage_ServiceError(t *testing.T) {
	svc := newMockService()
	svc.dashboardErr = domain.ErrInternal
	r := setupPageRouter(NewSalePageHandler(svc, "₹"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/sales", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestNewPage_ListsCourses(t *testing.T) {
	r := setupPageRouter(NewSalePageHandler(newMockService(), "₹"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/sales/new", nil)
	r.ServeHTTP(w, req)

	if got := w.Body.String(); got != "form Java React Spring" {
		t.Errorf("body = %q", got)
	}
}

func TestCreateHTMX_Success(t *testing.T) {
	svc := newMockService()
	r := setupPageRouter(NewSalePageHandler(svc, "₹"))

	w := postForm(r, "/sales", validForm())

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if len(svc.drafts) != 1 || svc.drafts[0].Price != "999" {
		t.Fatalf("drafts = %+v", svc.drafts)
	}

	var trigger map[string]map[string]any
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &trigger); err != nil {
		t.Fatalf("failed to parse HX-Trigger: %v", err)
	}
	toast := trigger["showToast"]
	if toast["message"] != "Sale saved successfully!" || toast["type"] != "success" {
		t.Errorf("toast = %v", toast)
	}
	if toast["duration"] != float64(3000) {
		t.Errorf("toast duration = %v, want 3000", toast["duration"])
	}

	// Form is reset after a successful save.
	if body := w.Body.String(); body != "fragment name=" {
		t.Errorf("body = %q, want reset form", body)
	}
}

func TestCreateHTMX_MissingField(t *testing.T) {
	svc := newMockService()
	r := setupPageRouter(NewSalePageHandler(svc, "₹"))

	form := validForm()
	form.Del("course")
	w := postForm(r, "/sales", form)

	if len(svc.drafts) != 0 {
		t.Error("service should not be called when binding fails")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("no toast expected on failure")
	}
	body := w.Body.String()
	if !strings.Contains(body, "name=Priya") || !strings.Contains(body, "alert=Failed to save sale") {
		t.Errorf("body = %q, want kept values and alert", body)
	}
}

func TestCreateHTMX_BackendFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
		hidden   string
	}{
		{"network", domain.NewAppError(domain.CodeNetwork, "sales backend unreachable", nil), "unreachable", ""},
		{"upstream", domain.NewAppError(domain.CodeUpstream, "sales backend returned 500", nil), "rejected", "500"},
		{"validation", domain.NewAppError(domain.CodeValidation, "price must be a number", nil), "price must be a number", ""},
		{"internal", domain.NewAppError(domain.CodeInternal, "encode sale", nil), "Failed to save sale", "encode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			svc.submitErr = tt.err
			r := setupPageRouter(NewSalePageHandler(svc, "₹"))

			body := postForm(r, "/sales", validForm()).Body.String()
			if !strings.Contains(body, "alert=Failed to save sale") || !strings.Contains(body, tt.contains) {
				t.Errorf("body = %q, want alert containing %q", body, tt.contains)
			}
			if tt.hidden != "" && strings.Contains(body, tt.hidden) {
				t.Errorf("body = %q should not expose %q", body, tt.hidden)
			}
		})
	}
}

func TestReloadHTMX(t *testing.T) {
	svc := newMockService()
	svc.reloadErr = domain.ErrNetwork
	r := setupPageRouter(NewSalePageHandler(svc, "₹"))

	w := postForm(r, "/sales/reload", url.Values{})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), "error") {
		t.Errorf("HX-Trigger = %q, want error toast", w.Header().Get("HX-Trigger"))
	}
	if !strings.HasPrefix(w.Body.String(), "dashboard") {
		t.Errorf("body = %q, want dashboard re-render", w.Body.String())
	}
}

func TestPageExport(t *testing.T) {
	svc := newMockService()
	r := setupPageRouter(NewSalePageHandler(svc, "₹"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/sales/export.csv?course=React&page=2", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="sales.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if svc.lastFilter.Course != "React" {
		t.Errorf("filter = %+v", svc.lastFilter)
	}

	svc.exportErr = domain.ErrInternal
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/sales/export.xlsx", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}
