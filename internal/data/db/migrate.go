package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/localai-backend/internal/domain/chat"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&chat.Conversation{},
		&chat.Message{},
		&chat.SystemPrompt{},
	)
}
