package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vsbridge/internal/domain"
)

// envelope is the body of every /vsbridge response. Status mirrors the HTTP status.
type envelope struct {
	Status  int    `json:"status"`
	Result  any    `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

func ok(c *gin.Context, result any) {
	c.JSON(http.StatusOK, envelope{Status: http.StatusOK, Result: result})
}

func okWithMeta(c *gin.Context, result, meta any) {
	c.JSON(http.StatusOK, envelope{Status: http.StatusOK, Result: result, Meta: meta})
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Status: status, Message: message})
}

// fail writes err with the status of its kind. Unclassified errors are logged and
// reported without detail.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if domain.Kind(err) == nil {
		requestLogger(c).WithError(err).WithField("route", c.FullPath()).Error("request failed")
		abort(c, status, "internal server error")
		return
	}
	abort(c, status, domain.Message(err))
}

func statusFor(err error) int {
	switch domain.Kind(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrNotAuthorized:
		return http.StatusUnauthorized
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrAlreadyExists:
		return http.StatusConflict
	case domain.ErrExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
