package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/localai-backend/internal/data/repos"
	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
)

type ConversationAggregateDeps struct {
	Base BaseDeps

	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
}

type conversationAggregate struct {
	deps ConversationAggregateDeps
}

func NewConversationAggregate(deps ConversationAggregateDeps) domainagg.ConversationAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "ConversationAggregate")
	return &conversationAggregate{deps: deps}
}

func (a *conversationAggregate) configured(op string) error {
	if a.deps.Conversations == nil || a.deps.Messages == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "conversation aggregate repos not configured", nil)
	}
	return nil
}

func (a *conversationAggregate) AddMessage(ctx context.Context, in domainagg.AddMessageInput) (*chat.Message, error) {
	const op = "Chat.Conversation.AddMessage"
	if in.ConversationID == 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing conversation_id", nil)
	}
	if !in.Role.Valid() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "invalid role "+string(in.Role), nil)
	}
	if in.Tokens < 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "tokens must be non-negative", nil)
	}
	if err := a.configured(op); err != nil {
		return nil, err
	}

	var out *chat.Message
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		conv, err := a.deps.Conversations.GetByID(dbc, in.ConversationID)
		if err != nil {
			return err
		}
		if conv == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "conversation not found", nil)
		}
		msg, err := a.deps.Messages.Create(dbc, &chat.Message{
			UUID:           uuid.New(),
			ConversationID: conv.ID,
			Role:           in.Role,
			Content:        in.Content,
			Model:          in.Model,
			Tokens:         in.Tokens,
			GenerationTime: in.GenerationTime,
		})
		if err != nil {
			return err
		}
		if err := a.deps.Conversations.AdjustCounters(dbc, conv.ID, 1, in.Tokens); err != nil {
			return err
		}
		out = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *conversationAggregate) EditMessage(ctx context.Context, messageID uuid.UUID, content string) (*chat.Message, error) {
	const op = "Chat.Conversation.EditMessage"
	if messageID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing message_id", nil)
	}
	if err := a.configured(op); err != nil {
		return nil, err
	}

	var out *chat.Message
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		msg, err := a.deps.Messages.GetByUUID(dbc, messageID)
		if err != nil || msg == nil {
			return err
		}

		tokens := chat.EstimateTokens(content)
		updates := map[string]interface{}{
			"content":    content,
			"is_edited":  true,
			"tokens":     tokens,
			"updated_at": time.Now().UTC(),
		}
		// The pre-edit snapshot is taken exactly once.
		if msg.OriginalContent == nil {
			updates["original_content"] = msg.Content
		}
		if err := a.deps.Messages.UpdateFields(dbc, msg.ID, updates); err != nil {
			return err
		}
		if err := a.deps.Conversations.AdjustCounters(dbc, msg.ConversationID, 0, tokens-msg.Tokens); err != nil {
			return err
		}
		out, err = a.deps.Messages.GetByUUID(dbc, messageID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *conversationAggregate) DeleteMessage(ctx context.Context, messageID uuid.UUID) (bool, error) {
	const op = "Chat.Conversation.DeleteMessage"
	if messageID == uuid.Nil {
		return false, domainagg.NewError(domainagg.CodeValidation, op, "missing message_id", nil)
	}
	if err := a.configured(op); err != nil {
		return false, err
	}

	deleted := false
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		msg, err := a.deps.Messages.GetByUUID(dbc, messageID)
		if err != nil || msg == nil {
			return err
		}
		ok, err := a.deps.Messages.Delete(dbc, msg.ID)
		if err != nil || !ok {
			return err
		}
		if err := a.deps.Conversations.AdjustCounters(dbc, msg.ConversationID, -1, -msg.Tokens); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (a *conversationAggregate) DeleteConversation(ctx context.Context, conversationID uuid.UUID) (bool, error) {
	const op = "Chat.Conversation.Delete"
	if conversationID == uuid.Nil {
		return false, domainagg.NewError(domainagg.CodeValidation, op, "missing conversation_id", nil)
	}
	if err := a.configured(op); err != nil {
		return false, err
	}

	deleted := false
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		conv, err := a.deps.Conversations.GetByUUID(dbc, conversationID)
		if err != nil || conv == nil {
			return err
		}
		if _, err := a.deps.Messages.DeleteByConversation(dbc, conv.ID); err != nil {
			return err
		}
		ok, err := a.deps.Conversations.Delete(dbc, conv.ID)
		if err != nil {
			return err
		}
		deleted = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
