package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/salesboard/internal/middleware"
	"github.com/simp-lee/salesboard/internal/module/sales"
	"github.com/simp-lee/salesboard/internal/pkg"
	"github.com/simp-lee/salesboard/web"
)

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	// API is applied to the /api/v1 group, e.g. timeout and response cache.
	API []gin.HandlerFunc
	// Status reports the record store state for /health.
	Status     func() sales.StoreStatus
	Mode       string
	CSRFSecret string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if deps.Status == nil {
		return errors.New("store status func is required")
	}
	if strings.TrimSpace(deps.CSRFSecret) == "" {
		return errors.New("csrf secret is required")
	}

	if err := registerStaticRoutes(r, deps.Mode); err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}

	r.GET("/health", healthHandler(deps.Status))

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/sales")
	})

	// API routes carry no CSRF.
	api := r.Group("/api/v1", deps.API...)

	pages := r.Group("/")
	pages.Use(middleware.CSRF(deps.CSRFSecret))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api, pages)
	}

	r.NoRoute(noRouteHandler(deps.CSRFSecret))

	return nil
}

// healthHandler reports the record store state. A failed last load is
// degraded and answers 503; a first load still in flight is healthy.
func healthHandler(status func() sales.StoreStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := status()
		code := http.StatusOK
		if st.Status == sales.StatusDegraded {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status": st.Status,
			"components": gin.H{
				"sales_backend": st,
			},
		})
	}
}

// noRouteHandler renders a 404 page for browsers and a JSON envelope for API
// clients.
func noRouteHandler(csrfSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, pkg.Response{Code: http.StatusNotFound, Message: "not found"})
			return
		}

		middleware.SetCSRFTokenWithSecret(c, csrfSecret)
		renderError(c, http.StatusNotFound, "not found")
	}
}

func registerStaticRoutes(r *gin.Engine, mode string) error {
	if mode == gin.DebugMode {
		debugStaticFS, err := resolveDebugStaticFS()
		if err != nil {
			return fmt.Errorf("resolve debug static filesystem: %w", err)
		}
		fileServer := http.StripPrefix("/static", http.FileServer(http.FS(debugStaticFS)))
		r.GET("/static/*filepath", func(c *gin.Context) {
			fileServer.ServeHTTP(c.Writer, c.Request)
		})
		return nil
	}

	staticFS, err := fs.Sub(web.EmbeddedFS, "static")
	if err != nil {
		return fmt.Errorf("create sub filesystem for static assets: %w", err)
	}
	r.GET("/static/*filepath", cacheStaticHandler(http.FS(staticFS)))
	return nil
}

func resolveDebugStaticFS() (fs.FS, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("resolve current file path")
	}

	projectRoot := filepath.Clean(filepath.Join(filepath.Dir(currentFile), "..", ".."))
	staticDir := filepath.Join(projectRoot, "web", "static")
	if _, err := os.Stat(staticDir); err != nil {
		return nil, fmt.Errorf("stat static directory %q: %w", staticDir, err)
	}

	return os.DirFS(staticDir), nil
}

// cacheStaticHandler serves embedded assets with a one-day Cache-Control.
func cacheStaticHandler(fsys http.FileSystem) gin.HandlerFunc {
	fileServer := http.StripPrefix("/static", http.FileServer(fsys))
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
