package aggregates

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/localai-backend/internal/observability"
)

func TestOperationLabel(t *testing.T) {
	cases := map[string]string{
		"Chat.Conversation.AddMessage":         "add_message",
		"Chat.Conversation.DeleteConversation": "delete_conversation",
		"edit":                                 "edit",
		"  ":                                   "",
	}
	for in, want := range cases {
		if got := operationLabel(in); got != want {
			t.Fatalf("operationLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewObservabilityHooksNilMetrics(t *testing.T) {
	h := NewObservabilityHooks(nil)
	if _, ok := h.(noopHooks); !ok {
		t.Fatalf("expected noop hooks, got %T", h)
	}
	h.ObserveOperation("x", "success", time.Millisecond)
}

func TestObservabilityHooksRecordRetries(t *testing.T) {
	m := observability.NewMetrics()
	h := NewObservabilityHooks(m)
	h.IncRetry("Chat.Conversation.AddMessage")
	h.IncRetry("Chat.Conversation.AddMessage")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `localai_aggregate_retries_total{op="add_message"} 2`) {
		t.Fatalf("unexpected metrics output:\n%s", rec.Body.String())
	}
}
