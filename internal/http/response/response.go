package response

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DebugKey is the gin context key that, when true, lets internal error
// detail through to the client.
const DebugKey = "localai.debug"

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := defaultMessage(status)
	if err != nil && (status < 500 || c.GetBool(DebugKey)) {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Debug marks every request as eligible for detailed error messages.
func Debug(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DebugKey, enabled)
		c.Next()
	}
}

func defaultMessage(status int) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "unknown error"
}
