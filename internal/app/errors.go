package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/salesboard/internal/middleware"
	"github.com/simp-lee/salesboard/internal/pkg"
)

type errorFormat int

const (
	errorJSON errorFormat = iota
	errorPage
	errorToast
)

// negotiateError picks how an error reaches the client. Browsers send */*
// alongside text/html, so an Accept naming JSON without HTML wins first.
func negotiateError(c *gin.Context) errorFormat {
	if pkg.IsHTMX(c) {
		return errorToast
	}
	accept := strings.ToLower(strings.TrimSpace(c.GetHeader("Accept")))
	switch {
	case strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html"):
		return errorJSON
	case accept == "", strings.Contains(accept, "text/html"), strings.Contains(accept, "*/*"):
		return errorPage
	default:
		return errorJSON
	}
}

// renderError answers with an error page, a JSON envelope, or an htmx toast.
func renderError(c *gin.Context, code int, message string) {
	switch negotiateError(c) {
	case errorToast:
		pkg.ShowToast(c, message, pkg.ToastError)
		c.Header("HX-Reswap", "none")
		c.Status(code)
	case errorPage:
		renderErrorPage(c, code)
	default:
		c.JSON(code, pkg.Response{Code: code, Message: message})
	}
}

// errorPageName returns the template for code; unknown codes share the 500 page.
func errorPageName(code int) string {
	switch code {
	case http.StatusBadRequest, http.StatusNotFound:
		return fmt.Sprintf("errors/%d.html", code)
	default:
		return "errors/500.html"
	}
}

// renderErrorPage falls back to plain text when no renderer or template is
// available.
func renderErrorPage(c *gin.Context, code int) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(code, "text/plain; charset=utf-8", []byte(fmt.Sprintf("%d %s", code, statusText(code))))
		}
	}()

	c.HTML(code, errorPageName(code), gin.H{
		"CSRFToken": middleware.GetCSRFToken(c),
		"Code":      code,
	})
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Error"
}
