package app

import (
	"github.com/yungbote/localai-backend/internal/data/db"
	httpH "github.com/yungbote/localai-backend/internal/http/handlers"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

const appDescription = "Local AI chat assistant backed by Ollama or any OpenAI-compatible server"

type Handlers struct {
	Meta         *httpH.MetaHandler
	Health       *httpH.HealthHandler
	Chat         *httpH.ChatHandler
	Conversation *httpH.ConversationHandler
	Model        *httpH.ModelHandler
	Prompt       *httpH.PromptHandler
}

func wireHandlers(log *logger.Logger, cfg Config, health *db.HealthChecker, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Meta:         httpH.NewMetaHandler(cfg.AppName, cfg.AppVersion, appDescription),
		Health:       httpH.NewHealthHandler(cfg.AppVersion, cfg.BackendURL(), health, clients.Inference),
		Chat:         httpH.NewChatHandler(log, services.Chat),
		Conversation: httpH.NewConversationHandler(services.Conversations, services.Analytics),
		Model:        httpH.NewModelHandler(services.Models),
		Prompt:       httpH.NewPromptHandler(services.Prompts),
	}
}
