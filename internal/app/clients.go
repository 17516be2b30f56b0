package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/localai-backend/internal/inference/client"
	"github.com/yungbote/localai-backend/internal/inference/engine"
	"github.com/yungbote/localai-backend/internal/inference/engine/fallback"
	"github.com/yungbote/localai-backend/internal/inference/engine/ollama"
	"github.com/yungbote/localai-backend/internal/inference/engine/openaicompat"
	"github.com/yungbote/localai-backend/internal/observability"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

type Clients struct {
	// Redis is nil unless REDIS_ADDR is set.
	Redis     *goredis.Client
	Inference *client.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	rdb, err := openRedis(ctx, log, cfg)
	if err != nil {
		return Clients{}, err
	}
	if rdb != nil {
		metrics.StartRedisCollector(ctx, log, rdb, cfg.RedisProbeInterval)
	}

	primary, err := newPrimaryEngine(cfg)
	if err != nil {
		closeRedis(rdb)
		return Clients{}, err
	}

	var fb engine.Engine
	if cfg.FallbackEnabled {
		e, err := fallback.New(cfg.FallbackWordDelay)
		if err != nil {
			closeRedis(rdb)
			return Clients{}, fmt.Errorf("init fallback engine: %w", err)
		}
		fb = e
	}

	var catalog client.CatalogCache
	if rdb != nil {
		catalog = client.NewRedisCatalog(rdb, cfg.RedisCatalogKey, log)
	} else {
		catalog = client.NewMemoryCatalog()
	}

	inf, err := client.New(client.Options{
		Primary:      primary,
		Fallback:     fb,
		DefaultModel: cfg.DefaultModel,
		Catalog:      catalog,
		CatalogTTL:   cfg.ModelCacheTTL,
		Metrics:      metrics,
		Log:          log,
	})
	if err != nil {
		closeRedis(rdb)
		return Clients{}, fmt.Errorf("init inference client: %w", err)
	}
	log.Info("Inference client ready",
		"engine", inf.EngineName(),
		"base_url", cfg.BackendURL(),
		"fallback", cfg.FallbackEnabled,
		"default_model", cfg.DefaultModel,
	)
	return Clients{Redis: rdb, Inference: inf}, nil
}

func newPrimaryEngine(cfg Config) (engine.Engine, error) {
	switch cfg.InferenceProvider {
	case "openai":
		e, err := openaicompat.New(openaicompat.Config{
			BaseURL:        cfg.OpenAIBaseURL,
			APIKey:         cfg.OpenAIAPIKey,
			Timeout:        cfg.InferenceTimeout,
			ConnectTimeout: cfg.InferenceConnectTimeout,
			StreamTimeout:  cfg.InferenceStreamTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai engine: %w", err)
		}
		return e, nil
	default:
		e, err := ollama.New(ollama.Config{
			BaseURL:        cfg.OllamaBaseURL,
			Timeout:        cfg.InferenceTimeout,
			ConnectTimeout: cfg.InferenceConnectTimeout,
			StreamTimeout:  cfg.InferenceStreamTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init ollama engine: %w", err)
		}
		return e, nil
	}
}

func openRedis(ctx context.Context, log *logger.Logger, cfg Config) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Info("Connected to redis", "addr", addr, "db", cfg.RedisDB)
	return rdb, nil
}

func closeRedis(rdb *goredis.Client) {
	if rdb != nil {
		_ = rdb.Close()
	}
}
