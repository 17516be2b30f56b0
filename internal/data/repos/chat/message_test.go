package chat

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/localai-backend/internal/data/repos/testutil"
	types "github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/pointers"
)

func TestMessageRepoListAndAggregates(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewMessageRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	c := testutil.SeedConversation(t, ctx, db, "c")
	for i, content := range []string{"one", "two", "three"} {
		m := &types.Message{ConversationID: c.ID, Role: types.RoleUser, Content: content, Tokens: i + 1}
		if _, err := repo.Create(dbc, m); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := repo.Create(dbc, &types.Message{
		ConversationID: c.ID,
		Role:           types.RoleAssistant,
		Content:        "reply",
		Tokens:         4,
		GenerationTime: pointers.Ptr(1.5),
	}); err != nil {
		t.Fatalf("Create assistant: %v", err)
	}
	if _, err := repo.Create(dbc, &types.Message{
		ConversationID: c.ID,
		Role:           types.RoleAssistant,
		Content:        "reply2",
		Tokens:         0,
		GenerationTime: pointers.Ptr(2.5),
	}); err != nil {
		t.Fatalf("Create assistant: %v", err)
	}

	page, err := repo.ListByConversation(dbc, c.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(page) != 2 || page[0].Content != "two" || page[1].Content != "three" {
		t.Fatalf("unexpected page")
	}
	history, err := repo.ListHistory(dbc, c.ID)
	if err != nil || len(history) != 5 {
		t.Fatalf("ListHistory: %d %v", len(history), err)
	}

	sum, err := repo.SumTokens(dbc, nil)
	if err != nil || sum != 10 {
		t.Fatalf("SumTokens=%d err=%v", sum, err)
	}
	future := time.Now().UTC().Add(time.Hour)
	none, err := repo.SumTokens(dbc, &future)
	if err != nil || none != 0 {
		t.Fatalf("SumTokens(future)=%d err=%v", none, err)
	}
	avg, err := repo.AvgGenerationTime(dbc, types.RoleAssistant)
	if err != nil || avg != 2.0 {
		t.Fatalf("AvgGenerationTime=%v err=%v", avg, err)
	}
	n, err := repo.Count(dbc, nil)
	if err != nil || n != 5 {
		t.Fatalf("Count=%d err=%v", n, err)
	}
}

func TestMessageRepoAvgGenerationTimeEmpty(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMessageRepo(db, testutil.Logger(t))
	avg, err := repo.AvgGenerationTime(dbctx.Context{Ctx: context.Background()}, types.RoleAssistant)
	if err != nil || avg != 0 {
		t.Fatalf("expected 0,nil got %v,%v", avg, err)
	}
}

func TestMessageRepoDeleteByConversation(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewMessageRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	a := testutil.SeedConversation(t, ctx, db, "a")
	b := testutil.SeedConversation(t, ctx, db, "b")
	testutil.SeedMessage(t, ctx, db, a.ID, types.RoleUser, "x", 1)
	testutil.SeedMessage(t, ctx, db, a.ID, types.RoleUser, "y", 1)
	keep := testutil.SeedMessage(t, ctx, db, b.ID, types.RoleUser, "z", 1)

	n, err := repo.DeleteByConversation(dbc, a.ID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteByConversation=%d err=%v", n, err)
	}
	got, err := repo.GetByUUID(dbc, keep.UUID)
	if err != nil || got == nil {
		t.Fatalf("other conversation's message removed: %v", err)
	}
}
