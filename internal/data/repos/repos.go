package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/localai-backend/internal/data/repos/chat"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

type ConversationRepo = chat.ConversationRepo
type MessageRepo = chat.MessageRepo
type SystemPromptRepo = chat.SystemPromptRepo

type ListConversationsQuery = chat.ListConversationsQuery

// Set groups every table repository the app wires.
type Set struct {
	Conversations ConversationRepo
	Messages      MessageRepo
	Prompts       SystemPromptRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Conversations: chat.NewConversationRepo(db, log),
		Messages:      chat.NewMessageRepo(db, log),
		Prompts:       chat.NewSystemPromptRepo(db, log),
	}
}
