package sales

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/salesboard/internal/dashboard"
	"github.com/simp-lee/salesboard/internal/domain"
	"github.com/simp-lee/salesboard/internal/middleware"
	"github.com/simp-lee/salesboard/internal/pkg"
)

const (
	toastSaved         = "Sale saved successfully!"
	submitFailedAlert  = "Failed to save sale"
	reloadFailedNotice = "Could not reach the sales backend"
)

// SalePageHandler handles page rendering and htmx endpoints for the sales module.
type SalePageHandler struct {
	svc      Service
	currency string
}

// NewSalePageHandler creates a new SalePageHandler. currency prefixes every
// money amount on the dashboard.
func NewSalePageHandler(svc Service, currency string) *SalePageHandler {
	return &SalePageHandler{svc: svc, currency: currency}
}

// DashboardPage renders the dashboard for the state in the query string.
// GET /sales
func (h *SalePageHandler) DashboardPage(c *gin.Context) {
	st := dashboard.ParseState(c.Request.URL.Query())

	view, err := h.svc.Dashboard(c.Request.Context(), st)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "render dashboard", slog.Any("error", err))
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return
	}

	c.HTML(http.StatusOK, "sales/dashboard.html", h.dashboardData(c, view))
}

func (h *SalePageHandler) dashboardData(c *gin.Context, view *DashboardView) gin.H {
	return gin.H{
		"View":       view,
		"Pagination": view.Page,
		"State":      view.State,
		"BaseURL":    "/sales",
		"Currency":   h.currency,
		"CSRFToken":  middleware.GetCSRFToken(c),
	}
}

// NewPage renders the sale entry form.
// GET /sales/new
func (h *SalePageHandler) NewPage(c *gin.Context) {
	c.HTML(http.StatusOK, "sales/form.html", h.formData(c, CreateSaleRequest{}, ""))
}

func (h *SalePageHandler) formData(c *gin.Context, req CreateSaleRequest, alert string) gin.H {
	return gin.H{
		"Sale":      req,
		"Courses":   h.svc.Courses(),
		"Error":     alert,
		"CSRFToken": middleware.GetCSRFToken(c),
	}
}

// CreateHTMX handles sale submission via htmx. On success the form is reset
// and a toast is shown; on failure the entered values are kept and a blocking
// alert is shown.
// POST /sales
func (h *SalePageHandler) CreateHTMX(c *gin.Context) {
	var req CreateSaleRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Debug("create sale: bind error", "error", err)
		c.HTML(http.StatusOK, "sales/form_fragment.html", h.formData(c, req, submitFailedAlert+": please fill in every field"))
		return
	}

	if _, err := h.svc.Submit(c.Request.Context(), req.Draft()); err != nil {
		c.HTML(http.StatusOK, "sales/form_fragment.html", h.formData(c, req, safePageErrorMessage(err, submitFailedAlert)))
		return
	}

	pkg.ShowToast(c, toastSaved, pkg.ToastSuccess)
	c.HTML(http.StatusOK, "sales/form_fragment.html", h.formData(c, CreateSaleRequest{}, ""))
}

// ReloadHTMX re-runs the store load and re-renders the dashboard.
// POST /sales/reload
func (h *SalePageHandler) ReloadHTMX(c *gin.Context) {
	if _, err := h.svc.Reload(c.Request.Context()); err != nil {
		pkg.ShowToast(c, reloadFailedNotice, pkg.ToastError)
	}

	view, err := h.svc.Dashboard(c.Request.Context(), dashboard.ParseState(c.Request.URL.Query()))
	if err != nil {
		c.Header("HX-Reswap", "none")
		c.Status(http.StatusOK)
		return
	}
	c.HTML(http.StatusOK, "sales/dashboard.html", h.dashboardData(c, view))
}

// ExportCSV serves the current filtered view as sales.csv.
// GET /sales/export.csv
func (h *SalePageHandler) ExportCSV(c *gin.Context) {
	h.export(c, FormatCSV)
}

// ExportXLSX serves the current filtered view as sales.xlsx.
// GET /sales/export.xlsx
func (h *SalePageHandler) ExportXLSX(c *gin.Context) {
	h.export(c, FormatXLSX)
}

func (h *SalePageHandler) export(c *gin.Context, format ExportFormat) {
	st := dashboard.ParseState(c.Request.URL.Query())
	file, err := h.svc.Export(c.Request.Context(), st.Filter, format)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "export sales", slog.String("format", string(format)), slog.Any("error", err))
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return
	}
	pkg.Attachment(c, file.Name, file.ContentType, file.Body)
}

// safePageErrorMessage builds the alert text for a failed submission.
// Validation messages are shown as-is; backend failures get the fallback with
// a short reason so technical details stay in the logs.
func safePageErrorMessage(err error, fallback string) string {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		return fallback
	}
	switch appErr.Code {
	case domain.CodeValidation:
		return fallback + ": " + appErr.Message
	case domain.CodeNetwork:
		return fallback + ": the sales backend is unreachable"
	case domain.CodeUpstream:
		return fallback + ": the sales backend rejected the sale"
	}
	return fallback
}
