package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const DefaultConversationTitle = "New Conversation"

// Conversation is a persisted chat session. ID is the storage key, UUID is the
// identifier handed to clients. MessageCount and TotalTokens are maintained
// incrementally by the conversation aggregate and never recomputed on read.
type Conversation struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;column:uuid;not null;uniqueIndex" json:"uuid"`

	Title        string  `gorm:"column:title;size:255;not null;default:'New Conversation'" json:"title"`
	Model        string  `gorm:"column:model;size:100;not null" json:"model"`
	SystemPrompt *string `gorm:"column:system_prompt;type:text" json:"system_prompt"`

	// Sampling columns carry no column default: gorm skips zero values for
	// defaulted fields on insert, and 0 is a valid temperature and top_p.
	Temperature float64 `gorm:"column:temperature;not null" json:"temperature"`
	TopP        float64 `gorm:"column:top_p;not null" json:"top_p"`
	TopK        int     `gorm:"column:top_k;not null" json:"top_k"`
	MaxTokens   int     `gorm:"column:max_tokens;not null" json:"max_tokens"`

	IsPinned   bool              `gorm:"column:is_pinned;not null;default:false;index" json:"is_pinned"`
	IsArchived bool              `gorm:"column:is_archived;not null;default:false;index" json:"is_archived"`
	Tags       datatypes.JSONMap `gorm:"column:tags" json:"tags"`

	MessageCount int `gorm:"column:message_count;not null;default:0" json:"message_count"`
	TotalTokens  int `gorm:"column:total_tokens;not null;default:0" json:"total_tokens"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;index" json:"updated_at"`

	Messages []*Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (Conversation) TableName() string { return "conversations" }

// Sampling returns the conversation's stored sampling defaults.
func (c *Conversation) Sampling() SamplingParams {
	return SamplingParams{
		Temperature: c.Temperature,
		TopP:        c.TopP,
		TopK:        c.TopK,
		MaxTokens:   c.MaxTokens,
	}
}
