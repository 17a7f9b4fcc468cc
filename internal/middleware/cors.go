package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/ginx"
)

// CORSConfig holds the configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to make cross-origin requests.
	// ["*"] allows any origin; an empty list denies all.
	AllowOrigins []string

	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool

	// MaxAge is how long browsers may cache a preflight result.
	MaxAge time.Duration
}

// DefaultCORSConfig returns a permissive configuration suitable for development.
// Only the verbs the sales API serves are allowed.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With", "X-CSRF-Token", "X-Request-ID", "HX-Request", "HX-Current-URL", "HX-Target", "HX-Trigger"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}
}

// ResolveCORSConfig applies the configured allowlist to the defaults. In
// release mode an empty allowlist denies every cross-origin request.
func ResolveCORSConfig(mode string, allowOrigins []string) CORSConfig {
	cfg := DefaultCORSConfig()
	if len(allowOrigins) > 0 {
		cfg.AllowOrigins = allowOrigins
		return cfg
	}
	if mode == gin.ReleaseMode {
		cfg.AllowOrigins = []string{}
	}
	return cfg
}

// CORS returns the ginx CORS middleware for cfg, for use inside a ginx.Chain.
func CORS(cfg CORSConfig) ginx.Middleware {
	return ginx.CORS(
		ginx.WithAllowOrigins(cfg.AllowOrigins...),
		ginx.WithAllowMethods(cfg.AllowMethods...),
		ginx.WithAllowHeaders(cfg.AllowHeaders...),
		ginx.WithExposeHeaders(requestIDHeader),
		ginx.WithAllowCredentials(cfg.AllowCredentials),
		ginx.WithMaxAge(cfg.MaxAge),
	)
}

// CORSWithConfig returns CORS(cfg) as a plain gin middleware.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	return ginx.NewChain().Use(CORS(cfg)).Build()
}
