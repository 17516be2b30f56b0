package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/localai-backend/internal/data/repos"
	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/logger"
	"github.com/yungbote/localai-backend/internal/services/defaults"
)

type CreatePromptInput struct {
	Name        string
	Description *string
	Content     string
	IsDefault   bool
}

type UpdatePromptInput struct {
	Name        *string
	Description *string
	Content     *string
	IsDefault   *bool
}

type PromptService interface {
	// List returns stored prompts, or the built-in set when none are stored.
	List(dbc dbctx.Context) ([]*chat.SystemPrompt, error)
	Create(dbc dbctx.Context, in CreatePromptInput) (*chat.SystemPrompt, error)
	// Get falls back to the built-in prompt at position id when no row exists.
	Get(dbc dbctx.Context, id uint) (*chat.SystemPrompt, error)
	Update(dbc dbctx.Context, id uint, in UpdatePromptInput) (*chat.SystemPrompt, error)
	Delete(dbc dbctx.Context, id uint) (bool, error)
	Defaults() []*chat.SystemPrompt
}

type promptService struct {
	db       *gorm.DB
	log      *logger.Logger
	prompts  repos.SystemPromptRepo
	builtins []defaults.Prompt
}

func NewPromptService(db *gorm.DB, baseLog *logger.Logger, promptRepo repos.SystemPromptRepo) (PromptService, error) {
	builtins, err := defaults.Prompts()
	if err != nil {
		return nil, err
	}
	return &promptService{
		db:       db,
		log:      baseLog.With("service", "PromptService"),
		prompts:  promptRepo,
		builtins: builtins,
	}, nil
}

// Defaults numbers the built-in prompts 1..N in file order.
func (s *promptService) Defaults() []*chat.SystemPrompt {
	out := make([]*chat.SystemPrompt, 0, len(s.builtins))
	for i := range s.builtins {
		out = append(out, s.builtin(i))
	}
	return out
}

func (s *promptService) builtin(i int) *chat.SystemPrompt {
	p := s.builtins[i]
	out := &chat.SystemPrompt{
		ID:        uint(i + 1),
		Name:      p.Name,
		Content:   p.Content,
		IsDefault: p.IsDefault,
	}
	if p.Description != "" {
		d := p.Description
		out.Description = &d
	}
	return out
}

func (s *promptService) List(dbc dbctx.Context) ([]*chat.SystemPrompt, error) {
	rows, err := s.prompts.List(dbc)
	if err != nil {
		return nil, storeError("Chat.Prompt.List", err)
	}
	if len(rows) == 0 {
		return s.Defaults(), nil
	}
	return rows, nil
}

func (s *promptService) Create(dbc dbctx.Context, in CreatePromptInput) (*chat.SystemPrompt, error) {
	const op = "Chat.Prompt.Create"
	if err := validatePromptFields(op, &in.Name, &in.Content); err != nil {
		return nil, err
	}
	out, err := s.prompts.Create(dbc, &chat.SystemPrompt{
		Name:        in.Name,
		Description: in.Description,
		Content:     in.Content,
		IsDefault:   in.IsDefault,
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

func (s *promptService) Get(dbc dbctx.Context, id uint) (*chat.SystemPrompt, error) {
	row, err := s.prompts.GetByID(dbc, id)
	if err != nil {
		return nil, storeError("Chat.Prompt.Get", err)
	}
	if row != nil {
		return row, nil
	}
	if id >= 1 && int(id) <= len(s.builtins) {
		return s.builtin(int(id) - 1), nil
	}
	return nil, nil
}

func (s *promptService) Update(dbc dbctx.Context, id uint, in UpdatePromptInput) (*chat.SystemPrompt, error) {
	const op = "Chat.Prompt.Update"
	if err := validatePromptFields(op, in.Name, in.Content); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.IsDefault != nil {
		updates["is_default"] = *in.IsDefault
	}

	var out *chat.SystemPrompt
	err := inTx(dbc, s.db, func(dbc dbctx.Context) error {
		row, err := s.prompts.GetByID(dbc, id)
		if err != nil || row == nil {
			return err
		}
		if err := s.prompts.UpdateFields(dbc, id, updates); err != nil {
			return err
		}
		out, err = s.prompts.GetByID(dbc, id)
		return err
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

func (s *promptService) Delete(dbc dbctx.Context, id uint) (bool, error) {
	ok, err := s.prompts.Delete(dbc, id)
	if err != nil {
		return false, storeError("Chat.Prompt.Delete", err)
	}
	return ok, nil
}

// validatePromptFields checks the fields that are present; nil means "not set".
func validatePromptFields(op string, name, content *string) error {
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return validationError(op, "name must not be empty")
		}
		if len([]rune(*name)) > 100 {
			return validationError(op, "name must be at most 100 characters")
		}
	}
	if content != nil && strings.TrimSpace(*content) == "" {
		return validationError(op, "content must not be empty")
	}
	return nil
}
