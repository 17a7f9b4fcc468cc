package sales

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// SaleModule implements the app.Module interface for the sales domain.
type SaleModule struct {
	handler     *SaleHandler
	pageHandler *SalePageHandler
	submit      []gin.HandlerFunc
}

// NewModule creates a new SaleModule with the given handlers. submit is
// middleware applied to both submit routes, e.g. a rate limiter.
// Panics if h or ph is nil.
func NewModule(h *SaleHandler, ph *SalePageHandler, submit ...gin.HandlerFunc) *SaleModule {
	if h == nil {
		panic("sales.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("sales.NewModule: pageHandler must not be nil")
	}
	return &SaleModule{handler: h, pageHandler: ph, submit: submit}
}

// RegisterRoutes registers sales API and page routes.
func (m *SaleModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	// API routes
	api.GET("/sales", m.handler.Dashboard)
	api.GET("/sales/export.csv", m.handler.ExportCSV)
	api.GET("/sales/export.xlsx", m.handler.ExportXLSX)
	api.POST("/sales", m.withSubmit(m.handler.Create)...)
	api.POST("/sales/reload", m.handler.Reload)

	// Page routes
	pages.GET("/sales", m.pageHandler.DashboardPage)
	pages.GET("/sales/new", m.pageHandler.NewPage)
	pages.GET("/sales/export.csv", m.pageHandler.ExportCSV)
	pages.GET("/sales/export.xlsx", m.pageHandler.ExportXLSX)
	pages.POST("/sales", m.withSubmit(m.pageHandler.CreateHTMX)...)
	pages.POST("/sales/reload", m.pageHandler.ReloadHTMX)
}

func (m *SaleModule) withSubmit(h gin.HandlerFunc) []gin.HandlerFunc {
	return append(slices.Clone(m.submit), h)
}
