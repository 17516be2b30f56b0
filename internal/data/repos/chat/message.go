package chat

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, row *types.Message) (*types.Message, error)
	GetByUUID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error)
	// ListByConversation returns messages oldest first.
	ListByConversation(dbc dbctx.Context, conversationID uint, skip, limit int) ([]*types.Message, error)
	// ListHistory returns every message of the conversation oldest first.
	ListHistory(dbc dbctx.Context, conversationID uint) ([]*types.Message, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uint) (bool, error)
	DeleteByConversation(dbc dbctx.Context, conversationID uint) (int64, error)
	Count(dbc dbctx.Context, since *time.Time) (int64, error)
	SumTokens(dbc dbctx.Context, since *time.Time) (int64, error)
	// AvgGenerationTime averages non-null generation_time over role.
	// It reports 0 when no such message exists.
	AvgGenerationTime(dbc dbctx.Context, role types.Role) (float64, error)
}

const (
	DefaultMessageLimit = 100
	MaxMessageLimit     = 500
)

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, row *types.Message) (*types.Message, error) {
	if row == nil {
		return nil, errors.New("nil message")
	}
	if row.UUID == uuid.Nil {
		row.UUID = uuid.New()
	}
	if err := dbc.Conn(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *messageRepo) GetByUUID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Message
	err := dbc.Conn(r.db).Where("uuid = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messageRepo) ListByConversation(dbc dbctx.Context, conversationID uint, skip, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}
	if skip < 0 {
		skip = 0
	}
	var out []*types.Message
	if err := dbc.Conn(r.db).
		Model(&types.Message{}).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) ListHistory(dbc dbctx.Context, conversationID uint) ([]*types.Message, error) {
	var out []*types.Message
	if err := dbc.Conn(r.db).
		Model(&types.Message{}).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Model(&types.Message{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}

func (r *messageRepo) Delete(dbc dbctx.Context, id uint) (bool, error) {
	res := dbc.Conn(r.db).Where("id = ?", id).Delete(&types.Message{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *messageRepo) DeleteByConversation(dbc dbctx.Context, conversationID uint) (int64, error) {
	res := dbc.Conn(r.db).Where("conversation_id = ?", conversationID).Delete(&types.Message{})
	return res.RowsAffected, res.Error
}

func (r *messageRepo) Count(dbc dbctx.Context, since *time.Time) (int64, error) {
	tx := dbc.Conn(r.db).Model(&types.Message{})
	if since != nil {
		tx = tx.Where("created_at >= ?", since.UTC())
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *messageRepo) SumTokens(dbc dbctx.Context, since *time.Time) (int64, error) {
	tx := dbc.Conn(r.db).Model(&types.Message{}).Select("COALESCE(SUM(tokens), 0)")
	if since != nil {
		tx = tx.Where("created_at >= ?", since.UTC())
	}
	var total int64
	if err := tx.Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *messageRepo) AvgGenerationTime(dbc dbctx.Context, role types.Role) (float64, error) {
	var avg sql.NullFloat64
	if err := dbc.Conn(r.db).
		Model(&types.Message{}).
		Select("AVG(generation_time)").
		Where("role = ? AND generation_time IS NOT NULL", role).
		Scan(&avg).Error; err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}
