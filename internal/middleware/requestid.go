package middleware

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/ginx"
	"github.com/simp-lee/logger"
)

const requestIDHeader = "X-Request-ID"

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// RequestIDConfig controls request-id reuse behavior.
type RequestIDConfig struct {
	TrustUpstream bool
}

// RequestID returns a gin middleware that assigns a fresh request ID to every request.
// See RequestIDWithConfig.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig returns a gin middleware built on ginx.RequestID.
//
// The request ID is echoed in the X-Request-ID response header, stored in
// gin.Context, and attached to the Go context through logger.WithContextAttrs
// so every slog *Context call made while serving the request carries it.
//
// With TrustUpstream, a well-formed incoming X-Request-ID is reused; malformed
// values are replaced.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	return ginx.NewChain().Use(RequestIDMiddleware(cfg)).Build()
}

// RequestIDMiddleware is the ginx form of RequestIDWithConfig, for use inside a ginx.Chain.
func RequestIDMiddleware(cfg RequestIDConfig) ginx.Middleware {
	opts := []ginx.RequestIDOption{
		ginx.WithRequestIDHeader(requestIDHeader),
		ginx.WithContextInjector(injectRequestID),
	}
	if !cfg.TrustUpstream {
		opts = append(opts, ginx.WithIgnoreIncoming())
	}
	assign := ginx.RequestID(opts...)

	return func(next gin.HandlerFunc) gin.HandlerFunc {
		inner := assign(next)
		return func(c *gin.Context) {
			if id := c.GetHeader(requestIDHeader); id != "" && !requestIDPattern.MatchString(id) {
				c.Request.Header.Del(requestIDHeader)
			}
			inner(c)
		}
	}
}

func injectRequestID(ctx context.Context, id string) context.Context {
	return logger.WithContextAttrs(ctx, slog.String("request_id", id))
}

// GetRequestID extracts the request ID from the gin.Context.
// Returns an empty string if no request ID is set.
func GetRequestID(c *gin.Context) string {
	id, _ := ginx.GetRequestID(c)
	return id
}
