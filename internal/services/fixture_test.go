package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/localai-backend/internal/data/aggregates"
	"github.com/yungbote/localai-backend/internal/data/repos"
	repotest "github.com/yungbote/localai-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/inference/client"
	"github.com/yungbote/localai-backend/internal/inference/engine"
	"github.com/yungbote/localai-backend/internal/platform/keylock"
)

const testModel = "dolphin-mistral"

// stubInference answers with fixed content and records the requests it saw.
type stubInference struct {
	mu       sync.Mutex
	reqs     []engine.ChatRequest
	content  string
	tokens   int
	chunks   []engine.Chunk
	chatErr  error
	streamFn func(ctx context.Context, onChunk func(engine.Chunk) error) error
}

func (s *stubInference) DefaultModel() string { return testModel }

func (s *stubInference) record(req engine.ChatRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
}

func (s *stubInference) lastRequest(t *testing.T) engine.ChatRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reqs) == 0 {
		t.Fatalf("inference was not called")
	}
	return s.reqs[len(s.reqs)-1]
}

func (s *stubInference) Chat(ctx context.Context, req engine.ChatRequest) (client.Result, error) {
	s.record(req)
	if s.chatErr != nil {
		return client.Result{}, s.chatErr
	}
	return client.Result{Content: s.content, TokenCount: s.tokens, GenerationTime: 0.25, Model: req.Model}, nil
}

func (s *stubInference) ChatStream(ctx context.Context, req engine.ChatRequest, onChunk func(engine.Chunk) error) error {
	s.record(req)
	if s.streamFn != nil {
		return s.streamFn(ctx, onChunk)
	}
	for _, ch := range s.chunks {
		if err := onChunk(ch); err != nil {
			return err
		}
	}
	return nil
}

type fixture struct {
	db            *gorm.DB
	repos         repos.Set
	conversations ConversationService
	prompts       PromptService
	orchestrator  ChatOrchestrator
	analytics     AnalyticsService
	inference     *stubInference
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := repotest.DB(t)
	log := repotest.Logger(t)
	set := repos.NewSet(gdb, log)
	agg := aggregates.NewConversationAggregate(aggregates.ConversationAggregateDeps{
		Base:          aggregates.BaseDeps{DB: gdb, Log: log},
		Conversations: set.Conversations,
		Messages:      set.Messages,
	})
	prompts, err := NewPromptService(gdb, log, set.Prompts)
	if err != nil {
		t.Fatalf("NewPromptService: %v", err)
	}
	convs := NewConversationService(gdb, log, set.Conversations, set.Messages, agg, prompts, ConversationDefaults{
		Model:    testModel,
		Sampling: chat.DefaultSampling,
	})
	inf := &stubInference{content: "I am fine, thanks for asking.", tokens: 7}
	return &fixture{
		db:            gdb,
		repos:         set,
		conversations: convs,
		prompts:       prompts,
		orchestrator:  NewChatOrchestrator(log, convs, set.Conversations, set.Messages, agg, inf, keylock.New()),
		analytics:     NewAnalyticsService(log, set.Conversations, set.Messages, testModel),
		inference:     inf,
	}
}

func requireCode(t *testing.T, err error, code domainagg.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := domainagg.CodeOf(err); got != code {
		t.Fatalf("code=%q want %q (err=%v)", got, code, err)
	}
}
