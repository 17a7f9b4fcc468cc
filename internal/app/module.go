package app

import "github.com/gin-gonic/gin"

// Module is a feature that mounts itself on the router: JSON endpoints on the
// /api/v1 group and HTML pages (CSRF protected) on the root group.
type Module interface {
	RegisterRoutes(api, pages *gin.RouterGroup)
}
