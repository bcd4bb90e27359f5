package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ImArvindRaj/virtual-event-platform/internal/errs"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// statusFor maps failure kinds to HTTP status codes.
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindUnauthenticated:
		return http.StatusUnauthorized
	case errs.KindConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the structured error body every API failure uses. The
// kind is what clients branch on; the message is for humans.
func respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	msg := errs.MessageOf(err)
	if kind == errs.KindInternal {
		msg = "internal error"
	}
	c.JSON(statusFor(kind), model.ErrorResponse{Error: string(kind), Message: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "bad_request", Message: msg})
}
