package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

// statusFor maps an error kind to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch domain.Kind(err) {
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrAlreadyExists:
		return http.StatusConflict
	case domain.ErrUnauthorized:
		return http.StatusForbidden
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrPaymentUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is what a client may see. Validation messages are shown as
// is; everything else gets the status text.
func publicMessage(err error, status int) string {
	if errors.Is(err, domain.ErrValidation) {
		msg := err.Error()
		if i := strings.LastIndex(msg, domain.ErrValidation.Error()+": "); i >= 0 {
			msg = msg[i+len(domain.ErrValidation.Error())+2:]
		}
		return msg
	}
	return http.StatusText(status)
}

func (h *handlers) renderError(c *gin.Context, err error) {
	status := statusFor(err)
	h.logError(c, status, err)
	c.HTML(status, "error", view(c, c.Request.URL.Path, "Error", gin.H{
		"status":     status,
		"statusText": http.StatusText(status),
		"message":    publicMessage(err, status),
	}))
}

func (h *handlers) jsonError(c *gin.Context, err error) {
	status := statusFor(err)
	h.logError(c, status, err)
	c.JSON(status, gin.H{"error": publicMessage(err, status)})
}

func (h *handlers) logError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Printf("http: %s %s request_id=%s status=%d error=%v", c.Request.Method, c.Request.URL.Path, c.GetString(requestIDKey), status, err)
	}
}
