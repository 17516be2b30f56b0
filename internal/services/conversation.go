package services

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/localai-backend/internal/data/repos"
	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

// CreateConversationInput leaves every field optional; unset fields take the
// configured defaults.
type CreateConversationInput struct {
	Title          *string
	Model          *string
	SystemPrompt   *string
	SystemPromptID *uint
	Sampling       chat.SamplingOverrides
	Tags           map[string]interface{}
}

// UpdateConversationInput applies only the non-nil fields.
type UpdateConversationInput struct {
	Title        *string
	Model        *string
	SystemPrompt *string
	Sampling     chat.SamplingOverrides
	IsPinned     *bool
	IsArchived   *bool
	Tags         *map[string]interface{}
}

type ConversationDefaults struct {
	Model    string
	Sampling chat.SamplingParams
}

// PromptResolver looks up a system prompt by id, including built-in defaults.
type PromptResolver interface {
	Get(dbc dbctx.Context, id uint) (*chat.SystemPrompt, error)
}

type ConversationService interface {
	Create(dbc dbctx.Context, in CreateConversationInput) (*chat.Conversation, error)
	// Get returns the conversation with its ordered messages, or nil when absent.
	Get(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error)
	List(dbc dbctx.Context, skip, limit int, includeArchived bool) ([]*chat.Conversation, error)
	// Update returns nil when the conversation does not exist.
	Update(dbc dbctx.Context, id uuid.UUID, in UpdateConversationInput) (*chat.Conversation, error)
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
	Pin(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error)
	Unpin(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error)
	Archive(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error)
	Unarchive(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error)
	Search(dbc dbctx.Context, query string, limit int) ([]*chat.Conversation, error)

	ListMessages(dbc dbctx.Context, id uuid.UUID, skip, limit int) ([]*chat.Message, error)
	AddMessage(dbc dbctx.Context, in domainagg.AddMessageInput) (*chat.Message, error)
	// EditMessage returns nil when the message does not exist.
	EditMessage(dbc dbctx.Context, messageID uuid.UUID, content string) (*chat.Message, error)
	DeleteMessage(dbc dbctx.Context, messageID uuid.UUID) (bool, error)
}

type conversationService struct {
	db            *gorm.DB
	log           *logger.Logger
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	aggregate     domainagg.ConversationAggregate
	prompts       PromptResolver
	defaults      ConversationDefaults
}

func NewConversationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	aggregate domainagg.ConversationAggregate,
	prompts PromptResolver,
	defaults ConversationDefaults,
) ConversationService {
	if defaults.Sampling == (chat.SamplingParams{}) {
		defaults.Sampling = chat.DefaultSampling
	}
	return &conversationService{
		db:            db,
		log:           baseLog.With("service", "ConversationService"),
		conversations: conversationRepo,
		messages:      messageRepo,
		aggregate:     aggregate,
		prompts:       prompts,
		defaults:      defaults,
	}
}

func (s *conversationService) Create(dbc dbctx.Context, in CreateConversationInput) (*chat.Conversation, error) {
	const op = "Chat.Conversation.Create"
	if err := in.Sampling.Validate(); err != nil {
		return nil, validationError(op, err.Error())
	}

	title := chat.DefaultConversationTitle
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		title = *in.Title
	}
	if len([]rune(title)) > 255 {
		return nil, validationError(op, "title must be at most 255 characters")
	}
	model := s.defaults.Model
	if in.Model != nil && strings.TrimSpace(*in.Model) != "" {
		model = strings.TrimSpace(*in.Model)
	}

	systemPrompt := in.SystemPrompt
	if systemPrompt == nil && in.SystemPromptID != nil && s.prompts != nil {
		p, err := s.prompts.Get(dbc, *in.SystemPromptID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, notFoundError(op, "system prompt")
		}
		content := p.Content
		systemPrompt = &content
	}

	sampling := in.Sampling.Resolve(s.defaults.Sampling)
	row := &chat.Conversation{
		UUID:         uuid.New(),
		Title:        title,
		Model:        model,
		SystemPrompt: systemPrompt,
		Temperature:  sampling.Temperature,
		TopP:         sampling.TopP,
		TopK:         sampling.TopK,
		MaxTokens:    sampling.MaxTokens,
	}
	if in.Tags != nil {
		row.Tags = datatypes.JSONMap(in.Tags)
	}

	out, err := s.conversations.Create(dbc, row)
	if err != nil {
		return nil, storeError(op, err)
	}
	s.log.Debug("conversation created", "conversation_id", out.UUID, "model", out.Model)
	return out, nil
}

func (s *conversationService) Get(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error) {
	out, err := s.conversations.GetByUUIDWithMessages(dbc, id)
	if err != nil {
		return nil, storeError("Chat.Conversation.Get", err)
	}
	if out != nil && out.Messages == nil {
		out.Messages = []*chat.Message{}
	}
	return out, nil
}

func (s *conversationService) List(dbc dbctx.Context, skip, limit int, includeArchived bool) ([]*chat.Conversation, error) {
	out, err := s.conversations.List(dbc, repos.ListConversationsQuery{Skip: skip, Limit: limit, IncludeArchived: includeArchived})
	if err != nil {
		return nil, storeError("Chat.Conversation.List", err)
	}
	return out, nil
}

func (s *conversationService) Update(dbc dbctx.Context, id uuid.UUID, in UpdateConversationInput) (*chat.Conversation, error) {
	const op = "Chat.Conversation.Update"
	if err := in.Sampling.Validate(); err != nil {
		return nil, validationError(op, err.Error())
	}
	if in.Title != nil && len([]rune(*in.Title)) > 255 {
		return nil, validationError(op, "title must be at most 255 characters")
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Model != nil {
		updates["model"] = strings.TrimSpace(*in.Model)
	}
	if in.SystemPrompt != nil {
		updates["system_prompt"] = *in.SystemPrompt
	}
	if v := in.Sampling.Temperature; v != nil {
		updates["temperature"] = *v
	}
	if v := in.Sampling.TopP; v != nil {
		updates["top_p"] = *v
	}
	if v := in.Sampling.TopK; v != nil {
		updates["top_k"] = *v
	}
	if v := in.Sampling.MaxTokens; v != nil {
		updates["max_tokens"] = *v
	}
	if in.IsPinned != nil {
		updates["is_pinned"] = *in.IsPinned
	}
	if in.IsArchived != nil {
		updates["is_archived"] = *in.IsArchived
	}
	if in.Tags != nil {
		updates["tags"] = datatypes.JSONMap(*in.Tags)
	}

	var out *chat.Conversation
	err := inTx(dbc, s.db, func(dbc dbctx.Context) error {
		conv, err := s.conversations.GetByUUID(dbc, id)
		if err != nil || conv == nil {
			return err
		}
		// An empty patch still bumps updated_at.
		if len(updates) == 0 {
			updates["updated_at"] = nowUTC()
		}
		if err := s.conversations.UpdateFields(dbc, conv.ID, updates); err != nil {
			return err
		}
		out, err = s.conversations.GetByID(dbc, conv.ID)
		return err
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

func (s *conversationService) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	return s.aggregate.DeleteConversation(dbc.Ctx, id)
}

func (s *conversationService) Pin(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error) {
	v := true
	return s.Update(dbc, id, UpdateConversationInput{IsPinned: &v})
}

func (s *conversationService) Unpin(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error) {
	v := false
	return s.Update(dbc, id, UpdateConversationInput{IsPinned: &v})
}

func (s *conversationService) Archive(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error) {
	v := true
	return s.Update(dbc, id, UpdateConversationInput{IsArchived: &v})
}

func (s *conversationService) Unarchive(dbc dbctx.Context, id uuid.UUID) (*chat.Conversation, error) {
	v := false
	return s.Update(dbc, id, UpdateConversationInput{IsArchived: &v})
}

func (s *conversationService) Search(dbc dbctx.Context, query string, limit int) ([]*chat.Conversation, error) {
	const op = "Chat.Conversation.Search"
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError(op, "search query must not be empty")
	}
	out, err := s.conversations.SearchByTitle(dbc, query, limit)
	if err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

func (s *conversationService) ListMessages(dbc dbctx.Context, id uuid.UUID, skip, limit int) ([]*chat.Message, error) {
	const op = "Chat.Conversation.ListMessages"
	conv, err := s.conversations.GetByUUID(dbc, id)
	if err != nil {
		return nil, storeError(op, err)
	}
	if conv == nil {
		return nil, notFoundError(op, "conversation")
	}
	out, err := s.messages.ListByConversation(dbc, conv.ID, skip, limit)
	if err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

func (s *conversationService) AddMessage(dbc dbctx.Context, in domainagg.AddMessageInput) (*chat.Message, error) {
	return s.aggregate.AddMessage(dbc.Ctx, in)
}

func (s *conversationService) EditMessage(dbc dbctx.Context, messageID uuid.UUID, content string) (*chat.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationError("Chat.Conversation.EditMessage", "content must not be empty")
	}
	return s.aggregate.EditMessage(dbc.Ctx, messageID, content)
}

func (s *conversationService) DeleteMessage(dbc dbctx.Context, messageID uuid.UUID) (bool, error) {
	return s.aggregate.DeleteMessage(dbc.Ctx, messageID)
}
