package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/localai-backend/internal/data/db"
	"github.com/yungbote/localai-backend/internal/http"
	"github.com/yungbote/localai-backend/internal/observability"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *http.Server

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New builds the whole object graph. ctx bounds startup probes and the
// lifetime of background collectors.
func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode, os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	bgCtx, cancel := context.WithCancel(ctx)
	a := &App{Log: log, Cfg: cfg, cancel: cancel}
	if err := a.wire(bgCtx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	log, cfg := a.Log, a.Cfg

	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.OtelEnvironment,
		Version:     cfg.AppVersion,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		Headers:     cfg.OtelHeaderMap(),
		SampleRatio: cfg.OtelSampleRatio,
	})

	if cfg.MetricsEnabled {
		a.Metrics = observability.NewMetrics()
	}

	dbService, err := db.NewService(db.Config{
		Driver:          cfg.DBDriver,
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, log)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.dbService = dbService
	if err := dbService.AutoMigrateAll(); err != nil {
		return fmt.Errorf("database automigrate: %w", err)
	}
	a.DB = dbService.DB()
	a.Metrics.RegisterDBStats(dbService.SQL(), cfg.DBDriver)

	clients, err := wireClients(ctx, log, cfg, a.Metrics)
	if err != nil {
		return err
	}
	a.Clients = clients

	a.Repos = wireRepos(a.DB, log, a.Metrics)

	serviceset, err := wireServices(a.DB, log, cfg, a.Repos, clients)
	if err != nil {
		return err
	}
	a.Services = serviceset

	handlers := wireHandlers(log, cfg, db.NewHealthChecker(dbService.SQL(), log), clients, serviceset)
	a.Server = wireServer(log, cfg, a.Metrics, handlers)
	return nil
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// ShutdownTimeout. Streams see their request context cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr())
		errCh <- a.Server.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Log.Info("Shutting down...", "timeout", a.Cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// Close releases everything New acquired. It is safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.Redis != nil {
		if err := a.Clients.Redis.Close(); err != nil {
			a.Log.Warn("redis close failed", "error", err)
		}
		a.Clients.Redis = nil
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
		a.dbService = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("tracer flush failed", "error", err)
		}
		cancel()
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
