package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/salesboard/internal/pkg"
)

// LoggerConfig controls the request logger.
type LoggerConfig struct {
	// QuietPrefixes lists path prefixes whose successful requests are logged
	// at Debug instead of Info. Failures are always logged at Warn or Error.
	QuietPrefixes []string
}

// DefaultLoggerConfig keeps static assets and health probes out of Info logs.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{QuietPrefixes: []string{"/static/", "/health"}}
}

// Logger returns a gin middleware that logs each HTTP request using the
// provided slog.Logger and DefaultLoggerConfig.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return LoggerWithConfig(logger, DefaultLoggerConfig())
}

// LoggerWithConfig logs method, path, status, latency, response size and
// client IP for each request. The level follows the status code:
//   - 2xx/3xx: Info (Debug for quiet paths)
//   - 4xx: Warn
//   - 5xx: Error
//
// Records are emitted with the request context so the request_id attached by
// RequestID ends up on every line.
func LoggerWithConfig(logger *slog.Logger, cfg LoggerConfig) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	quiet := append([]string(nil), cfg.QuietPrefixes...)

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", max(c.Writer.Size(), 0)),
			slog.String("client_ip", c.ClientIP()),
		}
		if query != "" {
			attrs = append(attrs, slog.String("query", query))
		}
		if pkg.IsHTMX(c) {
			attrs = append(attrs, slog.Bool("htmx", true))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case hasAnyPrefix(path, quiet):
			level = slog.LevelDebug
		}
		logger.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
