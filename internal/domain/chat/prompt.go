package chat

import "time"

// SystemPrompt is a reusable prompt template. Its content is copied into a
// conversation at use time; there is no foreign relation.
type SystemPrompt struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
	Description *string `gorm:"column:description;type:text" json:"description"`
	Content     string  `gorm:"column:content;type:text;not null" json:"content"`
	IsDefault   bool    `gorm:"column:is_default;not null;default:false" json:"is_default"`

	CreatedAt *time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (SystemPrompt) TableName() string { return "system_prompts" }
