package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SSEWriter writes `data: <json>\n\n` events. Headers go out with the first
// event, so a handler can still answer with a plain JSON error before that.
type SSEWriter struct {
	c       *gin.Context
	started bool
}

func NewSSEWriter(c *gin.Context) *SSEWriter {
	return &SSEWriter{c: c}
}

func (w *SSEWriter) Started() bool { return w.started }

func (w *SSEWriter) start() {
	h := w.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.c.Status(http.StatusOK)
	w.c.Writer.WriteHeaderNow()
	w.started = true
}

// Send encodes v as one event and flushes it. It fails once the client has
// gone away.
func (w *SSEWriter) Send(v any) error {
	if err := w.c.Request.Context().Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !w.started {
		w.start()
	}
	if _, err := fmt.Fprintf(w.c.Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}
