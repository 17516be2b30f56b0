package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

type ConversationRepo interface {
	Create(dbc dbctx.Context, row *types.Conversation) (*types.Conversation, error)
	GetByID(dbc dbctx.Context, id uint) (*types.Conversation, error)
	GetByUUID(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error)
	GetByUUIDWithMessages(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error)
	List(dbc dbctx.Context, q ListConversationsQuery) ([]*types.Conversation, error)
	SearchByTitle(dbc dbctx.Context, query string, limit int) ([]*types.Conversation, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
	// AdjustCounters shifts message_count and total_tokens by the given deltas
	// and bumps updated_at. Callers run it in the transaction of the message write.
	AdjustCounters(dbc dbctx.Context, id uint, messageDelta, tokenDelta int) error
	Delete(dbc dbctx.Context, id uint) (bool, error)
	Count(dbc dbctx.Context, since *time.Time) (int64, error)
	SumTotalTokens(dbc dbctx.Context) (int64, error)
}

type ListConversationsQuery struct {
	Skip            int
	Limit           int
	IncludeArchived bool
}

const (
	DefaultListLimit   = 50
	MaxListLimit       = 100
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
)

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: log.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(dbc dbctx.Context, row *types.Conversation) (*types.Conversation, error) {
	if row == nil {
		return nil, errors.New("nil conversation")
	}
	if row.UUID == uuid.Nil {
		row.UUID = uuid.New()
	}
	if err := dbc.Conn(r.db).Omit("Messages").Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *conversationRepo) GetByID(dbc dbctx.Context, id uint) (*types.Conversation, error) {
	var out types.Conversation
	err := dbc.Conn(r.db).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conversationRepo) GetByUUID(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Conversation
	err := dbc.Conn(r.db).Where("uuid = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conversationRepo) GetByUUIDWithMessages(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Conversation
	err := dbc.Conn(r.db).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC").Order("id ASC")
		}).
		Where("uuid = ?", id).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conversationRepo) List(dbc dbctx.Context, q ListConversationsQuery) ([]*types.Conversation, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	tx := dbc.Conn(r.db).Model(&types.Conversation{})
	if !q.IncludeArchived {
		tx = tx.Where("is_archived = ?", false)
	}
	var out []*types.Conversation
	if err := tx.
		Order("updated_at DESC").
		Order("id DESC").
		Offset(q.Skip).
		Limit(q.Limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) SearchByTitle(dbc dbctx.Context, query string, limit int) ([]*types.Conversation, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var out []*types.Conversation
	if err := dbc.Conn(r.db).
		Model(&types.Conversation{}).
		Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern).
		Order("updated_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Model(&types.Conversation{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}

func (r *conversationRepo) AdjustCounters(dbc dbctx.Context, id uint, messageDelta, tokenDelta int) error {
	res := dbc.Conn(r.db).
		Model(&types.Conversation{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"message_count": gorm.Expr("message_count + ?", messageDelta),
			"total_tokens":  gorm.Expr("total_tokens + ?", tokenDelta),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *conversationRepo) Delete(dbc dbctx.Context, id uint) (bool, error) {
	res := dbc.Conn(r.db).Where("id = ?", id).Delete(&types.Conversation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *conversationRepo) Count(dbc dbctx.Context, since *time.Time) (int64, error) {
	tx := dbc.Conn(r.db).Model(&types.Conversation{})
	if since != nil {
		tx = tx.Where("created_at >= ?", since.UTC())
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *conversationRepo) SumTotalTokens(dbc dbctx.Context) (int64, error) {
	var total int64
	if err := dbc.Conn(r.db).
		Model(&types.Conversation{}).
		Select("COALESCE(SUM(total_tokens), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
