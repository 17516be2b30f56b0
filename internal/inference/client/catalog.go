package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/localai-backend/internal/inference/engine"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

// CatalogCache stores the last successful model listing. Implementations
// treat every storage problem as a miss.
type CatalogCache interface {
	Get(ctx context.Context) ([]engine.ModelInfo, bool)
	Set(ctx context.Context, models []engine.ModelInfo, ttl time.Duration)
}

type memoryCatalog struct {
	mu      sync.RWMutex
	models  []engine.ModelInfo
	expires time.Time
	now     func() time.Time
}

func NewMemoryCatalog() CatalogCache {
	return &memoryCatalog{now: time.Now}
}

func (m *memoryCatalog) Get(context.Context) ([]engine.ModelInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.models == nil || !m.now().Before(m.expires) {
		return nil, false
	}
	out := make([]engine.ModelInfo, len(m.models))
	copy(out, m.models)
	return out, true
}

func (m *memoryCatalog) Set(_ context.Context, models []engine.ModelInfo, ttl time.Duration) {
	cp := make([]engine.ModelInfo, len(models))
	copy(cp, models)
	m.mu.Lock()
	m.models = cp
	m.expires = m.now().Add(ttl)
	m.mu.Unlock()
}

const DefaultRedisCatalogKey = "localai:inference:models"

type redisCatalog struct {
	rdb *redis.Client
	key string
	log *logger.Logger
}

// NewRedisCatalog shares the model listing between instances.
func NewRedisCatalog(rdb *redis.Client, key string, log *logger.Logger) CatalogCache {
	if key == "" {
		key = DefaultRedisCatalogKey
	}
	if log == nil {
		log = logger.Nop()
	}
	return &redisCatalog{rdb: rdb, key: key, log: log.With("cache", "redis_catalog")}
}

func (r *redisCatalog) Get(ctx context.Context) ([]engine.ModelInfo, bool) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("catalog cache read failed", "key", r.key, "error", err)
		}
		return nil, false
	}
	var models []engine.ModelInfo
	if err := json.Unmarshal(raw, &models); err != nil {
		r.log.Warn("catalog cache entry undecodable", "key", r.key, "error", err)
		return nil, false
	}
	return models, true
}

func (r *redisCatalog) Set(ctx context.Context, models []engine.ModelInfo, ttl time.Duration) {
	raw, err := json.Marshal(models)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, r.key, raw, ttl).Err(); err != nil {
		r.log.Warn("catalog cache write failed", "key", r.key, "error", err)
	}
}
