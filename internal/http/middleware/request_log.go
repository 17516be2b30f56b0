package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/localai-backend/internal/platform/ctxutil"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

// Probe and scrape traffic is logged at debug so it does not drown chat turns.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLogger writes one access line per request once the handler returns.
// For streamed completions that is when the stream closes, so duration_ms is
// the whole generation.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, "resource_id", id)
		}
		if ri := ctxutil.GetRequestInfo(c.Request.Context()); ri != nil {
			if ri.RequestID != "" {
				fields = append(fields, "request_id", ri.RequestID)
			}
			if ri.TraceID != "" {
				fields = append(fields, "trace_id", ri.TraceID)
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case quietPaths[c.Request.URL.Path]:
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
