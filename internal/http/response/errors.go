package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
)

// StatusFor maps an aggregate error code to its HTTP status.
func StatusFor(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusUnprocessableEntity
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict, domainagg.CodeInvariantViolation:
		return http.StatusConflict
	case domainagg.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	case domainagg.CodeUnimplemented:
		return http.StatusNotImplemented
	case domainagg.CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes the envelope for a service error. 4xx answers carry the
// error's message; 5xx answers stay generic unless debug is on.
func FromError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = domainagg.CodeRetryable
		}
	}
	status := StatusFor(code)

	msg := defaultMessage(status)
	switch {
	case status < 500, status == http.StatusNotImplemented:
		msg = domainagg.MessageOf(err)
	case c.GetBool(DebugKey):
		msg = err.Error()
	case code == domainagg.CodeUpstream:
		msg = "inference backend error"
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: string(code)}})
}

// BadRequest answers malformed input that never reached a service.
func BadRequest(c *gin.Context, err error) {
	RespondError(c, http.StatusBadRequest, "invalid_request", err)
}

// Invalid answers input that parsed but failed field validation.
func Invalid(c *gin.Context, err error) {
	RespondError(c, http.StatusUnprocessableEntity, string(domainagg.CodeValidation), err)
}
