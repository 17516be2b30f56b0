package chat

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is one turn in a conversation. OriginalContent is written once, on
// the first edit, and never overwritten afterwards.
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID           uuid.UUID `gorm:"type:uuid;column:uuid;not null;uniqueIndex" json:"uuid"`
	ConversationID uint      `gorm:"column:conversation_id;not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`

	Role            Role     `gorm:"column:role;size:20;not null" json:"role"`
	Content         string   `gorm:"column:content;type:text;not null" json:"content"`
	Model           *string  `gorm:"column:model;size:100" json:"model"`
	Tokens          int      `gorm:"column:tokens;not null;default:0" json:"tokens"`
	GenerationTime  *float64 `gorm:"column:generation_time" json:"generation_time"`
	IsEdited        bool     `gorm:"column:is_edited;not null;default:false" json:"is_edited"`
	OriginalContent *string  `gorm:"column:original_content;type:text" json:"original_content"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_messages_conversation_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Message) TableName() string { return "messages" }
