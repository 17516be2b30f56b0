package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/localai-backend/internal/platform/keylock"
	"github.com/yungbote/localai-backend/internal/platform/logger"
	"github.com/yungbote/localai-backend/internal/services"
)

type Services struct {
	Prompts       services.PromptService
	Models        services.ModelService
	Conversations services.ConversationService
	Chat          services.ChatOrchestrator
	Analytics     services.AnalyticsService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	prompts, err := services.NewPromptService(db, log, repos.Prompts)
	if err != nil {
		return Services{}, fmt.Errorf("init prompt service: %w", err)
	}
	models, err := services.NewModelService(log, clients.Inference)
	if err != nil {
		return Services{}, fmt.Errorf("init model service: %w", err)
	}

	conversations := services.NewConversationService(
		db,
		log,
		repos.Conversations,
		repos.Messages,
		repos.Conversation,
		prompts,
		services.ConversationDefaults{
			Model:    cfg.DefaultModel,
			Sampling: cfg.Sampling(),
		},
	)

	// A nil locker lets turns on one conversation interleave.
	var locker services.ConversationLocker
	if cfg.SerializeConversations {
		locker = keylock.New()
	}

	chat := services.NewChatOrchestrator(
		log,
		conversations,
		repos.Conversations,
		repos.Messages,
		repos.Conversation,
		clients.Inference,
		locker,
	)

	return Services{
		Prompts:       prompts,
		Models:        models,
		Conversations: conversations,
		Chat:          chat,
		Analytics:     services.NewAnalyticsService(log, repos.Conversations, repos.Messages, cfg.DefaultModel),
	}, nil
}
