package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/yungbote/localai-backend/internal/inference/engine"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestEngine(t *testing.T, fn roundTripperFunc) *Engine {
	t.Helper()
	e, err := NewWithHTTPClient(Config{BaseURL: "http://ollama:11434/", Timeout: 2 * time.Second}, &http.Client{Transport: fn})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return e
}

func TestListModels(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet || req.URL.Path != "/api/tags" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"models":[{"name":"codellama","size":3800000000,"digest":"abc","modified_at":"2024-01-01T00:00:00Z","details":{"family":"llama","parameter_size":"7B"}}]}`), nil
	})

	models, err := e.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0].Name != "codellama" || models[0].Details.ParameterSize != "7B" {
		t.Fatalf("models=%+v", models)
	}
}

func TestChatSendsOptions(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var in map[string]any
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in["stream"] != false {
			t.Fatalf("stream=%v", in["stream"])
		}
		opts, _ := in["options"].(map[string]any)
		if opts["num_predict"] != float64(256) || opts["top_k"] != float64(40) {
			t.Fatalf("options=%v", opts)
		}
		msgs, _ := in["messages"].([]any)
		if len(msgs) != 2 {
			t.Fatalf("messages=%v", msgs)
		}
		return jsonResponse(http.StatusOK, `{"model":"dolphin-mistral","message":{"role":"assistant","content":"hello back"},"done":true,"eval_count":7}`), nil
	})

	res, err := e.Chat(context.Background(), engine.ChatRequest{
		Model: "dolphin-mistral",
		Messages: []engine.Message{
			{Role: "system", Content: "be nice"},
			{Role: "user", Content: "hello"},
		},
		Options: engine.Options{Temperature: 0.7, TopP: 0.9, TopK: 40, MaxTokens: 256},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Content != "hello back" || res.TokenCount != 7 || res.Model != "dolphin-mistral" {
		t.Fatalf("res=%+v", res)
	}
}

func TestChatBackendError(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"error":"model not found"}`), nil
	})
	_, err := e.Chat(context.Background(), engine.ChatRequest{Model: "missing"})
	var be *engine.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.StatusCode != http.StatusNotFound || !strings.Contains(be.Body, "model not found") {
		t.Fatalf("be=%+v", be)
	}
	if engine.IsUnreachable(err) {
		t.Fatalf("backend error must not be unreachable")
	}
}

func TestChatUnreachable(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	})
	_, err := e.Chat(context.Background(), engine.ChatRequest{Model: "dolphin-mistral"})
	if !engine.IsUnreachable(err) {
		t.Fatalf("expected unreachable, got %v", err)
	}
}

func TestChatStream(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		var in chatRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if !in.Stream {
			t.Fatalf("expected stream=true")
		}
		body := strings.Join([]string{
			`{"message":{"role":"assistant","content":"hel"},"done":false}`,
			`not json`,
			``,
			`{"message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"message":{"role":"assistant","content":""},"done":true,"eval_count":2}`,
			``,
		}, "\n")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
		}, nil
	})

	var chunks []engine.Chunk
	err := e.ChatStream(context.Background(), engine.ChatRequest{Model: "m"}, func(c engine.Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("chunks=%+v", chunks)
	}
	if chunks[0].Delta+chunks[1].Delta != "hello" {
		t.Fatalf("deltas=%q %q", chunks[0].Delta, chunks[1].Delta)
	}
	if !chunks[2].Done || chunks[2].TokenCount != 2 || chunks[2].Delta != "" {
		t.Fatalf("final=%+v", chunks[2])
	}
}

func TestChatStreamTruncated(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"message":{"content":"partial"},"done":false}` + "\n")),
		}, nil
	})
	err := e.ChatStream(context.Background(), engine.ChatRequest{Model: "m"}, func(engine.Chunk) error { return nil })
	if !errors.Is(err, engine.ErrStreamTruncated) {
		t.Fatalf("expected truncated stream, got %v", err)
	}
}

func TestChatStreamStopsOnCallbackError(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		body := `{"message":{"content":"a"}}` + "\n" + `{"message":{"content":"b"}}` + "\n" + `{"done":true}` + "\n"
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
	})
	stop := errors.New("client gone")
	calls := 0
	err := e.ChatStream(context.Background(), engine.ChatRequest{Model: "m"}, func(engine.Chunk) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestNewRejectsBadScheme(t *testing.T) {
	if _, err := New(Config{BaseURL: "ftp://nope"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGenerateSendsPromptAndSystem(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var in map[string]any
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in["prompt"] != "Write a haiku" || in["system"] != "Be brief." || in["stream"] != false {
			t.Fatalf("req=%v", in)
		}
		opts, _ := in["options"].(map[string]any)
		if opts["temperature"] != float64(0) || opts["num_predict"] != float64(64) {
			t.Fatalf("options=%v", opts)
		}
		return jsonResponse(http.StatusOK, `{"model":"codellama","response":"Leaves fall quietly","done":true,"eval_count":3}`), nil
	})

	res, err := e.Generate(context.Background(), engine.GenerateRequest{
		Model:   "codellama",
		Prompt:  "Write a haiku",
		System:  "Be brief.",
		Options: engine.Options{Temperature: 0, TopP: 0.9, TopK: 40, MaxTokens: 64},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Content != "Leaves fall quietly" || res.TokenCount != 3 || res.Model != "codellama" {
		t.Fatalf("res=%+v", res)
	}
}

func TestGenerateOmitsEmptySystem(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		var in map[string]any
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if _, ok := in["system"]; ok {
			t.Fatalf("system should be omitted: %v", in)
		}
		return jsonResponse(http.StatusOK, `{"response":"ok","done":true}`), nil
	})
	res, err := e.Generate(context.Background(), engine.GenerateRequest{Model: "m", Prompt: "p"})
	if err != nil || res.Content != "ok" || res.Model != "m" {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestGenerateStream(t *testing.T) {
	e := newTestEngine(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var in generateRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if !in.Stream || in.Prompt != "count" {
			t.Fatalf("req=%+v", in)
		}
		body := `{"response":"one ","done":false}` + "\n" + `{"response":"two","done":false}` + "\n" + `{"response":"","done":true,"eval_count":2}` + "\n"
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
	})

	var text string
	var final engine.Chunk
	err := e.GenerateStream(context.Background(), engine.GenerateRequest{Model: "m", Prompt: "count"}, func(c engine.Chunk) error {
		if c.Done {
			final = c
			return nil
		}
		text += c.Delta
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if text != "one two" || !final.Done || final.TokenCount != 2 {
		t.Fatalf("text=%q final=%+v", text, final)
	}
}

// stalledBody delivers its prefix and then blocks until the request context ends.
type stalledBody struct {
	ctx    context.Context
	prefix *strings.Reader
}

func (b *stalledBody) Read(p []byte) (int, error) {
	if b.prefix.Len() > 0 {
		return b.prefix.Read(p)
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *stalledBody) Close() error { return nil }

func TestChatStreamBoundedWhenBackendStalls(t *testing.T) {
	e, err := NewWithHTTPClient(Config{BaseURL: "http://ollama:11434", StreamTimeout: 50 * time.Millisecond}, &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       &stalledBody{ctx: req.Context(), prefix: strings.NewReader(`{"message":{"content":"hel"},"done":false}` + "\n")},
			}, nil
		}),
	})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}

	start := time.Now()
	var deltas string
	err = e.ChatStream(context.Background(), engine.ChatRequest{Model: "m"}, func(c engine.Chunk) error {
		deltas += c.Delta
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if deltas != "hel" {
		t.Fatalf("deltas=%q", deltas)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("stream not bounded: %s", elapsed)
	}
}

func TestStreamTimeoutDefaultsToTimeout(t *testing.T) {
	e, err := New(Config{Timeout: 45 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.streamTimeout != 45*time.Second {
		t.Fatalf("streamTimeout=%s", e.streamTimeout)
	}
}
