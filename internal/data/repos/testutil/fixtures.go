package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/localai-backend/internal/domain/chat"
)

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Conversation {
	tb.Helper()
	c := &types.Conversation{
		UUID:        uuid.New(),
		Title:       title,
		Model:       "dolphin-mistral",
		Temperature: types.DefaultSampling.Temperature,
		TopP:        types.DefaultSampling.TopP,
		TopK:        types.DefaultSampling.TopK,
		MaxTokens:   types.DefaultSampling.MaxTokens,
	}
	if err := tx.WithContext(ctx).Omit("Messages").Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

// SeedMessage inserts a message without touching parent counters.
func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID uint, role types.Role, content string, tokens int) *types.Message {
	tb.Helper()
	m := &types.Message{
		UUID:           uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Tokens:         tokens,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

// Backdate moves created_at/updated_at of a conversation, for ordering tests.
func Backdate(tb testing.TB, ctx context.Context, tx *gorm.DB, c *types.Conversation, at time.Time) {
	tb.Helper()
	if err := tx.WithContext(ctx).
		Model(&types.Conversation{}).
		Where("id = ?", c.ID).
		UpdateColumns(map[string]interface{}{"created_at": at.UTC(), "updated_at": at.UTC()}).Error; err != nil {
		tb.Fatalf("backdate conversation: %v", err)
	}
}
