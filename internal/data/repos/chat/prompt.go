package chat

import (
	"errors"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

type SystemPromptRepo interface {
	Create(dbc dbctx.Context, row *types.SystemPrompt) (*types.SystemPrompt, error)
	GetByID(dbc dbctx.Context, id uint) (*types.SystemPrompt, error)
	List(dbc dbctx.Context) ([]*types.SystemPrompt, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uint) (bool, error)
}

type systemPromptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSystemPromptRepo(db *gorm.DB, log *logger.Logger) SystemPromptRepo {
	return &systemPromptRepo{db: db, log: log.With("repo", "SystemPromptRepo")}
}

func (r *systemPromptRepo) Create(dbc dbctx.Context, row *types.SystemPrompt) (*types.SystemPrompt, error) {
	if row == nil {
		return nil, errors.New("nil system prompt")
	}
	now := time.Now().UTC()
	row.CreatedAt = &now
	row.UpdatedAt = &now
	if err := dbc.Conn(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *systemPromptRepo) GetByID(dbc dbctx.Context, id uint) (*types.SystemPrompt, error) {
	var out types.SystemPrompt
	err := dbc.Conn(r.db).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *systemPromptRepo) List(dbc dbctx.Context) ([]*types.SystemPrompt, error) {
	var out []*types.SystemPrompt
	if err := dbc.Conn(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *systemPromptRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Model(&types.SystemPrompt{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}

func (r *systemPromptRepo) Delete(dbc dbctx.Context, id uint) (bool, error) {
	res := dbc.Conn(r.db).Where("id = ?", id).Delete(&types.SystemPrompt{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
