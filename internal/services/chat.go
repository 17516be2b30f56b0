package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/localai-backend/internal/data/repos"
	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/inference/client"
	"github.com/yungbote/localai-backend/internal/inference/engine"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

// Inference is the slice of the inference client the orchestrator drives.
type Inference interface {
	Chat(ctx context.Context, req engine.ChatRequest) (client.Result, error)
	ChatStream(ctx context.Context, req engine.ChatRequest, onChunk func(engine.Chunk) error) error
	DefaultModel() string
}

// ConversationLocker serializes work on one conversation. *keylock.Locker
// satisfies it.
type ConversationLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type ChatInput struct {
	// ConversationID selects an existing conversation. Nil starts a new one.
	ConversationID *uuid.UUID
	Message        string
	Model          *string
	// SystemPrompt and SystemPromptID only apply to new conversations.
	SystemPrompt   *string
	SystemPromptID *uint
	Sampling       chat.SamplingOverrides
}

type ChatOutput struct {
	ConversationID uuid.UUID     `json:"conversation_id"`
	Message        *chat.Message `json:"message"`
	Model          string        `json:"model"`
	Tokens         int           `json:"tokens"`
	GenerationTime float64       `json:"generation_time"`
}

// StreamEvent is one server-sent event. Fragments carry Content with Done
// false; the stream ends with exactly one Done event.
type StreamEvent struct {
	Content        string     `json:"content,omitempty"`
	Done           bool       `json:"done"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	MessageID      *uuid.UUID `json:"message_id,omitempty"`
	Error          string     `json:"error,omitempty"`
}

type ChatOrchestrator interface {
	Complete(ctx context.Context, in ChatInput) (*ChatOutput, error)
	// Stream returns without calling emit when the request fails before the
	// inference stream opens. After that, every call ends with a Done event
	// unless ctx was cancelled or emit itself failed.
	Stream(ctx context.Context, in ChatInput, emit func(StreamEvent) error) error
	Regenerate(ctx context.Context, messageID uuid.UUID) (*ChatOutput, error)
}

type chatOrchestrator struct {
	log           *logger.Logger
	conversations ConversationService
	convRepo      repos.ConversationRepo
	messages      repos.MessageRepo
	aggregate     domainagg.ConversationAggregate
	inference     Inference
	locker        ConversationLocker
	now           func() time.Time
}

func NewChatOrchestrator(
	baseLog *logger.Logger,
	conversations ConversationService,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	aggregate domainagg.ConversationAggregate,
	inference Inference,
	locker ConversationLocker,
) ChatOrchestrator {
	return &chatOrchestrator{
		log:           baseLog.With("service", "ChatOrchestrator"),
		conversations: conversations,
		convRepo:      conversationRepo,
		messages:      messageRepo,
		aggregate:     aggregate,
		inference:     inference,
		locker:        locker,
		now:           time.Now,
	}
}

// turn is a prepared exchange: the user message is stored, the lock is held
// and the request for the backend is assembled.
type turn struct {
	conv        *chat.Conversation
	userMessage string
	firstTurn   bool
	req         engine.ChatRequest
	release     func()
}

func (o *chatOrchestrator) prepare(ctx context.Context, op string, in ChatInput) (*turn, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, validationError(op, "message must not be empty")
	}
	if err := in.Sampling.Validate(); err != nil {
		return nil, validationError(op, err.Error())
	}
	dbc := dbctx.Context{Ctx: ctx}

	var (
		conv    *chat.Conversation
		release = func() {}
		err     error
	)
	if in.ConversationID != nil {
		release, err = o.lock(ctx, in.ConversationID.String())
		if err != nil {
			return nil, err
		}
		conv, err = o.convRepo.GetByUUID(dbc, *in.ConversationID)
		if err != nil {
			release()
			return nil, storeError(op, err)
		}
		if conv == nil {
			release()
			return nil, notFoundError(op, "conversation")
		}
	} else {
		conv, err = o.conversations.Create(dbc, CreateConversationInput{
			Model:          in.Model,
			SystemPrompt:   in.SystemPrompt,
			SystemPromptID: in.SystemPromptID,
			Sampling:       in.Sampling,
		})
		if err != nil {
			return nil, err
		}
		release, err = o.lock(ctx, conv.UUID.String())
		if err != nil {
			return nil, err
		}
	}

	t := &turn{
		conv:        conv,
		userMessage: in.Message,
		firstTurn:   conv.MessageCount <= 1,
		release:     release,
	}
	if _, err := o.aggregate.AddMessage(ctx, domainagg.AddMessageInput{
		ConversationID: conv.ID,
		Role:           chat.RoleUser,
		Content:        in.Message,
		Tokens:         chat.EstimateTokens(in.Message),
	}); err != nil {
		release()
		return nil, err
	}

	history, err := o.messages.ListHistory(dbc, conv.ID)
	if err != nil {
		release()
		return nil, storeError(op, err)
	}
	msgs := make([]engine.Message, 0, len(history)+1)
	if conv.SystemPrompt != nil && strings.TrimSpace(*conv.SystemPrompt) != "" {
		msgs = append(msgs, engine.Message{Role: string(chat.RoleSystem), Content: *conv.SystemPrompt})
	}
	for _, m := range history {
		msgs = append(msgs, engine.Message{Role: string(m.Role), Content: m.Content})
	}

	model := conv.Model
	if in.Model != nil && strings.TrimSpace(*in.Model) != "" {
		model = strings.TrimSpace(*in.Model)
	}
	if model == "" {
		model = o.inference.DefaultModel()
	}
	sampling := in.Sampling.Resolve(conv.Sampling())
	t.req = engine.ChatRequest{
		Model:    model,
		Messages: msgs,
		Options: engine.Options{
			Temperature: sampling.Temperature,
			TopP:        sampling.TopP,
			TopK:        sampling.TopK,
			MaxTokens:   sampling.MaxTokens,
		},
	}
	return t, nil
}

func (o *chatOrchestrator) lock(ctx context.Context, key string) (func(), error) {
	if o.locker == nil {
		return func() {}, nil
	}
	return o.locker.Lock(ctx, key)
}

// finish stores the assistant reply and, on the first exchange, the title.
func (o *chatOrchestrator) finish(ctx context.Context, op string, t *turn, content string, tokens int, genTime float64) (*chat.Message, error) {
	if tokens <= 0 {
		tokens = chat.EstimateTokens(content)
	}
	model := t.req.Model
	msg, err := o.aggregate.AddMessage(ctx, domainagg.AddMessageInput{
		ConversationID: t.conv.ID,
		Role:           chat.RoleAssistant,
		Content:        content,
		Model:          &model,
		Tokens:         tokens,
		GenerationTime: &genTime,
	})
	if err != nil {
		return nil, err
	}
	if t.firstTurn {
		title := chat.DeriveTitle(t.userMessage)
		if _, err := o.conversations.Update(dbctx.Context{Ctx: ctx}, t.conv.UUID, UpdateConversationInput{Title: &title}); err != nil {
			return nil, err
		}
	}
	o.log.Debug("assistant turn stored",
		"op", op,
		"conversation_id", t.conv.UUID,
		"model", model,
		"tokens", tokens,
		"generation_time", genTime,
	)
	return msg, nil
}

func (o *chatOrchestrator) Complete(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	const op = "Chat.Orchestrator.Complete"
	t, err := o.prepare(ctx, op, in)
	if err != nil {
		return nil, err
	}
	defer t.release()

	res, err := o.inference.Chat(ctx, t.req)
	if err != nil {
		o.log.Warn("inference failed", "op", op, "conversation_id", t.conv.UUID, "model", t.req.Model, "error", err)
		return nil, inferenceError(op, err)
	}
	msg, err := o.finish(ctx, op, t, res.Content, res.TokenCount, res.GenerationTime)
	if err != nil {
		return nil, err
	}
	return &ChatOutput{
		ConversationID: t.conv.UUID,
		Message:        msg,
		Model:          t.req.Model,
		Tokens:         msg.Tokens,
		GenerationTime: res.GenerationTime,
	}, nil
}

func (o *chatOrchestrator) Stream(ctx context.Context, in ChatInput, emit func(StreamEvent) error) error {
	const op = "Chat.Orchestrator.Stream"
	t, err := o.prepare(ctx, op, in)
	if err != nil {
		return err
	}
	defer t.release()

	convID := t.conv.UUID
	var (
		full     strings.Builder
		tokens   int
		finished bool
		emitErr  error
	)
	start := o.now()
	err = o.inference.ChatStream(ctx, t.req, func(ch engine.Chunk) error {
		if ch.Done {
			tokens = ch.TokenCount
			finished = true
			return nil
		}
		if ch.Delta == "" {
			return nil
		}
		full.WriteString(ch.Delta)
		if err := emit(StreamEvent{Content: ch.Delta, ConversationID: convID}); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	genTime := o.now().Sub(start).Seconds()
	if err == nil && !finished {
		err = engine.ErrStreamTruncated
	}

	switch {
	case emitErr != nil:
		o.log.Debug("stream consumer went away", "conversation_id", convID, "error", emitErr)
		return emitErr
	case err != nil && ctx.Err() != nil:
		o.log.Debug("stream cancelled", "conversation_id", convID)
		return ctx.Err()
	case err != nil:
		o.log.Warn("stream failed", "op", op, "conversation_id", convID, "model", t.req.Model, "error", err)
		_ = emit(StreamEvent{Done: true, ConversationID: convID, Error: "generation failed"})
		return inferenceError(op, err)
	}

	msg, err := o.finish(ctx, op, t, full.String(), tokens, genTime)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			_ = emit(StreamEvent{Done: true, ConversationID: convID, Error: "could not store reply"})
		}
		return err
	}
	id := msg.UUID
	return emit(StreamEvent{Done: true, ConversationID: convID, MessageID: &id})
}

func (o *chatOrchestrator) Regenerate(ctx context.Context, messageID uuid.UUID) (*ChatOutput, error) {
	return nil, domainagg.NewError(domainagg.CodeUnimplemented, "Chat.Orchestrator.Regenerate", "regeneration is not implemented", nil)
}
