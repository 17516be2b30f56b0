package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/localai-backend/internal/data/aggregates"
	"github.com/yungbote/localai-backend/internal/data/repos"
	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/observability"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

type Repos struct {
	repos.Set
	Conversation domainagg.ConversationAggregate
}

func wireRepos(db *gorm.DB, log *logger.Logger, metrics *observability.Metrics) Repos {
	log.Info("Wiring repos...")
	set := repos.NewSet(db, log)
	return Repos{
		Set: set,
		Conversation: aggregates.NewConversationAggregate(aggregates.ConversationAggregateDeps{
			Base: aggregates.BaseDeps{
				DB:    db,
				Log:   log,
				Hooks: aggregates.NewObservabilityHooks(metrics),
			},
			Conversations: set.Conversations,
			Messages:      set.Messages,
		}),
	}
}
