package app

import (
	"github.com/yungbote/localai-backend/internal/http"
	"github.com/yungbote/localai-backend/internal/observability"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) *http.Server {
	log.Info("Wiring router...")
	return http.NewServer(cfg.Addr(), http.RouterConfig{
		ServiceName:         cfg.OtelServiceName,
		Debug:               cfg.Debug,
		CORSOrigins:         cfg.CORSOrigins,
		Tracing:             cfg.OtelEnabled,
		Log:                 log,
		Metrics:             metrics,
		MetaHandler:         handlers.Meta,
		HealthHandler:       handlers.Health,
		ChatHandler:         handlers.Chat,
		ConversationHandler: handlers.Conversation,
		ModelHandler:        handlers.Model,
		PromptHandler:       handlers.Prompt,
	})
}
