package db

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/yungbote/localai-backend/internal/platform/logger"
)

// HealthChecker pings the database and remembers the last outcome.
type HealthChecker struct {
	db      *sql.DB
	log     *logger.Logger
	timeout time.Duration

	mu        sync.RWMutex
	healthy   bool
	lastErr   error
	lastCheck time.Time
}

func NewHealthChecker(db *sql.DB, log *logger.Logger) *HealthChecker {
	return &HealthChecker{
		db:      db,
		log:     log.With("component", "DBHealthChecker"),
		timeout: 2 * time.Second,
	}
}

func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	err := h.db.PingContext(ctx)

	h.mu.Lock()
	wasHealthy := h.healthy
	h.healthy = err == nil
	h.lastErr = err
	h.lastCheck = time.Now().UTC()
	h.mu.Unlock()

	switch {
	case err != nil && wasHealthy:
		h.log.Warn("database became unhealthy", "error", err)
	case err == nil && !wasHealthy:
		h.log.Info("database healthy")
	}
	return err
}

func (h *HealthChecker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.healthy
}

func (h *HealthChecker) LastError() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastErr
}
