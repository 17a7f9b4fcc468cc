package pkg

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// ToastDuration is how long, in milliseconds, a toast stays on screen.
const ToastDuration = 3000

// Toast types understood by the client-side showToast handler.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("HX-Request"), "true")
}

// ShowToast sets the HX-Trigger response header so the page raises a
// showToast event with the given message.
func ShowToast(c *gin.Context, message, toastType string) {
	trigger, err := json.Marshal(map[string]any{
		"showToast": map[string]any{
			"message":  message,
			"type":     toastType,
			"duration": ToastDuration,
		},
	})
	if err != nil {
		return
	}
	c.Header("HX-Trigger", string(trigger))
}
