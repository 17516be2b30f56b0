package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DBPinger reports database health; *db.HealthChecker satisfies it.
type DBPinger interface {
	Check(ctx context.Context) error
}

type InferenceProbe interface {
	Reachable(ctx context.Context) bool
	EngineName() string
	DefaultModel() string
}

type HealthHandler struct {
	version    string
	backendURL string
	db         DBPinger
	inference  InferenceProbe
}

func NewHealthHandler(version, backendURL string, db DBPinger, inference InferenceProbe) *HealthHandler {
	return &HealthHandler{version: version, backendURL: backendURL, db: db, inference: inference}
}

// GET /health
//
// An unreachable inference backend only degrades the answer since the
// fallback engine keeps chat working; a failed database ping answers 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	dbState := "ok"
	if h.db != nil {
		if err := h.db.Check(ctx); err != nil {
			dbState = "unavailable"
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}
	out := gin.H{
		"status":   status,
		"version":  h.version,
		"database": dbState,
	}
	if h.inference != nil {
		reachable := h.inference.Reachable(ctx)
		if !reachable && status == "healthy" {
			out["status"] = "degraded"
		}
		out["inference"] = gin.H{
			"engine":    h.inference.EngineName(),
			"url":       h.backendURL,
			"reachable": reachable,
		}
		out["default_model"] = h.inference.DefaultModel()
	}
	c.JSON(code, out)
}
