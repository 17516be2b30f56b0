package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/localai-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	maxRequestIDLen = 128
)

// AttachRequestContext stores the request and trace ids on the request
// context and echoes them as response headers. An inbound X-Request-Id is
// kept when it is short printable ASCII, otherwise a fresh uuid is issued.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerRequestID)
		if !validRequestID(reqID) {
			reqID = uuid.NewString()
		}
		info := &ctxutil.RequestInfo{RequestID: reqID}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			info.TraceID = sc.TraceID().String()
			c.Header(headerTraceID, info.TraceID)
		}
		c.Header(headerRequestID, reqID)
		c.Set("request_id", reqID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestInfo(c.Request.Context(), info))
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if b := id[i]; b <= ' ' || b > '~' {
			return false
		}
	}
	return true
}
