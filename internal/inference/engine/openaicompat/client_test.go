package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"

	"github.com/yungbote/localai-backend/internal/inference/engine"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func newTestEngine(t *testing.T, fn roundTripperFunc) *Engine {
	t.Helper()
	e, err := NewWithHTTPClient(Config{BaseURL: "http://upstream/v1"}, &http.Client{Transport: fn})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return e
}

func respond(status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestChat(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var in map[string]any
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in["model"] != "qwen" || in["max_tokens"] != float64(64) {
			t.Fatalf("payload=%v", in)
		}
		return respond(http.StatusOK, "application/json",
			`{"id":"x","model":"qwen","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"}}],"usage":{"completion_tokens":3}}`), nil
	})

	res, err := e.Chat(context.Background(), engine.ChatRequest{
		Model:    "qwen",
		Messages: []engine.Message{{Role: "user", Content: "hi"}},
		Options:  engine.Options{Temperature: 0.5, TopP: 0.9, MaxTokens: 64},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Content != "hi there" || res.TokenCount != 3 {
		t.Fatalf("res=%+v", res)
	}
}

func TestChatStream(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		sse := strings.Join([]string{
			`data: {"choices":[{"index":0,"delta":{"content":"hel"}}]}`,
			"",
			`data: {"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
			"",
			`data: {"choices":[],"usage":{"completion_tokens":2}}`,
			"",
			"data: [DONE]",
			"",
		}, "\n")
		return respond(http.StatusOK, "text/event-stream", sse), nil
	})

	var deltas strings.Builder
	var final engine.Chunk
	err := e.ChatStream(context.Background(), engine.ChatRequest{Model: "qwen"}, func(c engine.Chunk) error {
		if c.Done {
			final = c
			return nil
		}
		deltas.WriteString(c.Delta)
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if deltas.String() != "hello" {
		t.Fatalf("deltas=%q", deltas.String())
	}
	if !final.Done || final.TokenCount != 2 {
		t.Fatalf("final=%+v", final)
	}
}

func TestChatBackendError(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusBadRequest, "application/json", `{"error":{"message":"bad model","type":"invalid_request_error"}}`), nil
	})
	_, err := e.Chat(context.Background(), engine.ChatRequest{Model: "nope"})
	var be *engine.BackendError
	if !errors.As(err, &be) || be.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected BackendError 400, got %v", err)
	}
}

func TestChatUnreachable(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	})
	_, err := e.Chat(context.Background(), engine.ChatRequest{Model: "qwen"})
	if !engine.IsUnreachable(err) {
		t.Fatalf("expected unreachable, got %v", err)
	}
}

func TestChatKeepsZeroSampling(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		var in map[string]any
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		for _, key := range []string{"temperature", "top_p"} {
			v, ok := in[key].(float64)
			if !ok || v <= 0 || v > 1e-3 {
				t.Fatalf("%s=%v, want a near-zero value on the wire", key, in[key])
			}
		}
		return respond(http.StatusOK, "application/json",
			`{"model":"qwen","choices":[{"index":0,"message":{"role":"assistant","content":"deterministic"}}]}`), nil
	})

	_, err := e.Chat(context.Background(), engine.ChatRequest{
		Model:    "qwen",
		Messages: []engine.Message{{Role: "user", Content: "hi"}},
		Options:  engine.Options{Temperature: 0, TopP: 0, MaxTokens: 16},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
}

func TestGenerateSendsOneTurn(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var in struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if len(in.Messages) != 2 || in.Messages[0].Role != "system" || in.Messages[1].Role != "user" || in.Messages[1].Content != "name a color" {
			t.Fatalf("messages=%+v", in.Messages)
		}
		return respond(http.StatusOK, "application/json",
			`{"model":"qwen","choices":[{"index":0,"message":{"role":"assistant","content":"teal"}}],"usage":{"completion_tokens":1}}`), nil
	})

	res, err := e.Generate(context.Background(), engine.GenerateRequest{Model: "qwen", Prompt: "name a color", System: "One word."})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Content != "teal" || res.TokenCount != 1 {
		t.Fatalf("res=%+v", res)
	}
}
