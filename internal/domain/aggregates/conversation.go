package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/localai-backend/internal/domain/chat"
)

// ConversationAggregate owns the counter invariants of a conversation: each
// message write and its counter adjustment commit in the same transaction.
//
// Failures are *aggregates.Error with CodeValidation, CodeNotFound,
// CodeConflict, CodeRetryable or CodeInternal.
type ConversationAggregate interface {
	AddMessage(ctx context.Context, in AddMessageInput) (*chat.Message, error)
	// EditMessage returns (nil, nil) when the message does not exist.
	EditMessage(ctx context.Context, messageID uuid.UUID, content string) (*chat.Message, error)
	DeleteMessage(ctx context.Context, messageID uuid.UUID) (bool, error)
	DeleteConversation(ctx context.Context, conversationID uuid.UUID) (bool, error)
}

type AddMessageInput struct {
	ConversationID uint
	Role           chat.Role
	Content        string
	Model          *string
	Tokens         int
	GenerationTime *float64
}
