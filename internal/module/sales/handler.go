package sales

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/salesboard/internal/dashboard"
	"github.com/simp-lee/salesboard/internal/pkg"
)

// SaleHandler handles REST API requests for the sales resource.
type SaleHandler struct {
	svc Service
}

// NewSaleHandler creates a new SaleHandler with the given service.
func NewSaleHandler(svc Service) *SaleHandler {
	return &SaleHandler{svc: svc}
}

// Dashboard handles GET /api/v1/sales.
func (h *SaleHandler) Dashboard(c *gin.Context) {
	st := dashboard.ParseState(c.Request.URL.Query())

	view, err := h.svc.Dashboard(c.Request.Context(), st)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, view)
}

// ExportCSV handles GET /api/v1/sales/export.csv.
func (h *SaleHandler) ExportCSV(c *gin.Context) {
	h.export(c, FormatCSV)
}

// ExportXLSX handles GET /api/v1/sales/export.xlsx.
func (h *SaleHandler) ExportXLSX(c *gin.Context) {
	h.export(c, FormatXLSX)
}

func (h *SaleHandler) export(c *gin.Context, format ExportFormat) {
	st := dashboard.ParseState(c.Request.URL.Query())

	file, err := h.svc.Export(c.Request.Context(), st.Filter, format)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Attachment(c, file.Name, file.ContentType, file.Body)
}

// Create handles POST /api/v1/sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req CreateSaleRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	sale, err := h.svc.Submit(c.Request.Context(), req.Draft())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, sale)
}

// Reload handles POST /api/v1/sales/reload.
func (h *SaleHandler) Reload(c *gin.Context) {
	status, err := h.svc.Reload(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, pkg.Response{
			Code:    http.StatusBadGateway,
			Message: "reload failed",
			Data:    status,
		})
		return
	}

	pkg.Success(c, status)
}
