package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/salesboard/internal/pkg"
)

const panicToast = "Something went wrong, please try again"

// Recovery returns a gin middleware that recovers from panics, logs the value
// and stack trace, and answers in the shape the caller expects:
//   - htmx requests get an empty 500 with an error toast and no swap
//   - browsers (Accept contains text/html) get errors/500.html
//   - everything else gets the JSON envelope
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", err),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				c.Abort()

				switch {
				case pkg.IsHTMX(c):
					pkg.ShowToast(c, panicToast, pkg.ToastError)
					c.Header("HX-Reswap", "none")
					c.Status(http.StatusInternalServerError)
				case acceptsHTML(c):
					renderHTMLError(c)
				default:
					c.JSON(http.StatusInternalServerError, pkg.Response{
						Code:    http.StatusInternalServerError,
						Message: "internal server error",
					})
				}
			}
		}()
		c.Next()
	}
}

// renderHTMLError renders errors/500.html, falling back to plain text when no
// HTML renderer is configured.
func renderHTMLError(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("500 Internal Server Error"))
		}
	}()
	c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
}

func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}
