package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/localai-backend/internal/http/response"
	"github.com/yungbote/localai-backend/internal/platform/ctxutil"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

// Recovery turns a handler panic into the standard 500 envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if log != nil {
			log.Error("panic recovered",
				"path", c.Request.URL.Path,
				"request_id", ctxutil.RequestID(c.Request.Context()),
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
		}
		if c.Writer.Written() {
			c.Abort()
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "internal", nil)
		c.Abort()
	})
}
