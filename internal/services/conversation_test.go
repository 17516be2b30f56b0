package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/pointers"
)

func TestConversationCreateDefaults(t *testing.T) {
	f := newFixture(t)
	conv, err := f.conversations.Create(dbctx.Background(), CreateConversationInput{
		Sampling: chat.SamplingOverrides{MaxTokens: pointers.Ptr(512)},
		Tags:     map[string]interface{}{"project": "demo"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, conv.UUID)
	assert.Equal(t, chat.DefaultConversationTitle, conv.Title)
	assert.Equal(t, testModel, conv.Model)
	assert.Equal(t, chat.DefaultSampling.Temperature, conv.Temperature)
	assert.Equal(t, 512, conv.MaxTokens)
	assert.Equal(t, "demo", conv.Tags["project"])

	_, err = f.conversations.Create(dbctx.Background(), CreateConversationInput{
		Sampling: chat.SamplingOverrides{Temperature: pointers.Ptr(2.5)},
	})
	requireCode(t, err, domainagg.CodeValidation)
}

func TestConversationCreateKeepsZeroSampling(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.Background()
	conv, err := f.conversations.Create(dbc, CreateConversationInput{
		Sampling: chat.SamplingOverrides{Temperature: pointers.Ptr(0.0), TopP: pointers.Ptr(0.0)},
	})
	require.NoError(t, err)

	stored, err := f.conversations.Get(dbc, conv.UUID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0.0, stored.Temperature)
	assert.Equal(t, 0.0, stored.TopP)
	assert.Equal(t, chat.DefaultSampling.TopK, stored.TopK)
	assert.Equal(t, chat.DefaultSampling.MaxTokens, stored.MaxTokens)
}

func TestConversationUpdatePartial(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.Background()
	conv, err := f.conversations.Create(dbc, CreateConversationInput{Title: pointers.Ptr("keep me")})
	require.NoError(t, err)

	out, err := f.conversations.Update(dbc, conv.UUID, UpdateConversationInput{
		Sampling: chat.SamplingOverrides{TopK: pointers.Ptr(5)},
	})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "keep me", out.Title)
	assert.Equal(t, 5, out.TopK)
	assert.Equal(t, chat.DefaultSampling.TopP, out.TopP)
	assert.False(t, out.UpdatedAt.Before(conv.UpdatedAt))

	pinned, err := f.conversations.Pin(dbc, conv.UUID)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	archived, err := f.conversations.Archive(dbc, conv.UUID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	assert.True(t, archived.IsPinned)

	list, err := f.conversations.List(dbc, 0, 0, false)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.conversations.List(dbc, 0, 0, true)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	missing, err := f.conversations.Update(dbc, uuid.New(), UpdateConversationInput{Title: pointers.Ptr("x")})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = f.conversations.Update(dbc, conv.UUID, UpdateConversationInput{
		Sampling: chat.SamplingOverrides{TopK: pointers.Ptr(0)},
	})
	requireCode(t, err, domainagg.CodeValidation)
}

func TestConversationSearchAndMessages(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.Background()
	a, err := f.conversations.Create(dbc, CreateConversationInput{Title: pointers.Ptr("Go Generics")})
	require.NoError(t, err)
	_, err = f.conversations.Create(dbc, CreateConversationInput{Title: pointers.Ptr("Rust lifetimes")})
	require.NoError(t, err)

	found, err := f.conversations.Search(dbc, "  generics ", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.UUID, found[0].UUID)

	_, err = f.conversations.Search(dbc, "   ", 0)
	requireCode(t, err, domainagg.CodeValidation)

	_, err = f.conversations.ListMessages(dbc, uuid.New(), 0, 0)
	requireCode(t, err, domainagg.CodeNotFound)

	msg, err := f.conversations.AddMessage(dbc, domainagg.AddMessageInput{
		ConversationID: a.ID, Role: chat.RoleUser, Content: "one two", Tokens: 2,
	})
	require.NoError(t, err)
	_, err = f.conversations.EditMessage(dbc, msg.UUID, "")
	requireCode(t, err, domainagg.CodeValidation)

	edited, err := f.conversations.EditMessage(dbc, msg.UUID, "one two three")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)

	msgs, err := f.conversations.ListMessages(dbc, a.UUID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "one two three", msgs[0].Content)

	ok, err := f.conversations.Delete(dbc, a.UUID)
	require.NoError(t, err)
	assert.True(t, ok)
	gone, err := f.conversations.Get(dbc, a.UUID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
