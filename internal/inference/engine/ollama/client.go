package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/localai-backend/internal/inference/engine"
)

const engineName = "ollama"

const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultTimeout        = 120 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

type Config struct {
	BaseURL        string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// StreamTimeout bounds a whole streaming call, body included. Zero means
	// Timeout.
	StreamTimeout time.Duration
}

type Engine struct {
	baseURL       string
	timeout       time.Duration
	streamTimeout time.Duration
	httpClient    *http.Client
}

var _ engine.Engine = (*Engine)(nil)

func New(cfg Config) (*Engine, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("ollama: base_url must be http(s), got %q", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	streamTimeout := cfg.StreamTimeout
	if streamTimeout <= 0 {
		streamTimeout = timeout
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Engine{
		baseURL:       baseURL,
		timeout:       timeout,
		streamTimeout: streamTimeout,
		httpClient:    &http.Client{Transport: tr},
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) (*Engine, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		e.httpClient = httpClient
	}
	return e, nil
}

func (e *Engine) Name() string { return engineName }

// ---------------- Models ----------------

type tagsResponse struct {
	Models []engine.ModelInfo `json:"models"`
}

func (e *Engine) ListModels(ctx context.Context) ([]engine.ModelInfo, error) {
	var resp tagsResponse
	if err := e.doJSON(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Models == nil {
		return []engine.ModelInfo{}, nil
	}
	return resp.Models, nil
}

// ---------------- Chat ----------------

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []engine.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	Options  chatOptions      `json:"options"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	// Response carries the text on /api/generate.
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
	Error     string `json:"error"`
}

func (r chatResponse) content() string {
	if r.Message.Content != "" {
		return r.Message.Content
	}
	return r.Response
}

func buildChatRequest(req engine.ChatRequest, stream bool) chatRequest {
	msgs := req.Messages
	if msgs == nil {
		msgs = []engine.Message{}
	}
	return chatRequest{
		Model:    req.Model,
		Messages: msgs,
		Stream:   stream,
		Options: chatOptions{
			Temperature: req.Options.Temperature,
			TopP:        req.Options.TopP,
			TopK:        req.Options.TopK,
			NumPredict:  req.Options.MaxTokens,
		},
	}
}

func (e *Engine) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResult, error) {
	if strings.TrimSpace(req.Model) == "" {
		return engine.ChatResult{}, errors.New("ollama: model required")
	}
	var resp chatResponse
	if err := e.doJSON(ctx, http.MethodPost, "/api/chat", buildChatRequest(req, false), &resp); err != nil {
		return engine.ChatResult{}, err
	}
	if resp.Error != "" {
		return engine.ChatResult{}, fmt.Errorf("ollama: %s", resp.Error)
	}
	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return engine.ChatResult{
		Content:    resp.content(),
		TokenCount: resp.EvalCount,
		Model:      model,
	}, nil
}

func (e *Engine) ChatStream(ctx context.Context, req engine.ChatRequest, onChunk func(engine.Chunk) error) error {
	if strings.TrimSpace(req.Model) == "" {
		return errors.New("ollama: model required")
	}
	return e.stream(ctx, "/api/chat", buildChatRequest(req, true), onChunk)
}

// ---------------- Generate ----------------

type generateRequest struct {
	Model   string      `json:"model"`
	Prompt  string      `json:"prompt"`
	System  string      `json:"system,omitempty"`
	Stream  bool        `json:"stream"`
	Options chatOptions `json:"options"`
}

func buildGenerateRequest(req engine.GenerateRequest, stream bool) generateRequest {
	return generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		System: strings.TrimSpace(req.System),
		Stream: stream,
		Options: chatOptions{
			Temperature: req.Options.Temperature,
			TopP:        req.Options.TopP,
			TopK:        req.Options.TopK,
			NumPredict:  req.Options.MaxTokens,
		},
	}
}

func (e *Engine) Generate(ctx context.Context, req engine.GenerateRequest) (engine.ChatResult, error) {
	if strings.TrimSpace(req.Model) == "" {
		return engine.ChatResult{}, errors.New("ollama: model required")
	}
	var resp chatResponse
	if err := e.doJSON(ctx, http.MethodPost, "/api/generate", buildGenerateRequest(req, false), &resp); err != nil {
		return engine.ChatResult{}, err
	}
	if resp.Error != "" {
		return engine.ChatResult{}, fmt.Errorf("ollama: %s", resp.Error)
	}
	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return engine.ChatResult{
		Content:    resp.content(),
		TokenCount: resp.EvalCount,
		Model:      model,
	}, nil
}

func (e *Engine) GenerateStream(ctx context.Context, req engine.GenerateRequest, onChunk func(engine.Chunk) error) error {
	if strings.TrimSpace(req.Model) == "" {
		return errors.New("ollama: model required")
	}
	return e.stream(ctx, "/api/generate", buildGenerateRequest(req, true), onChunk)
}

// ---------------- HTTP helpers ----------------

// stream posts body and decodes the NDJSON answer. The whole call, body
// included, is bounded by streamTimeout.
func (e *Engine) stream(ctx context.Context, path string, body any, onChunk func(engine.Chunk) error) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, e.streamTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, &buf)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return engine.ClassifyTransport(engineName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &engine.BackendError{Engine: engineName, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	return readStream(resp.Body, onChunk)
}

func (e *Engine) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		rdr = &buf
	}

	ctx2, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, method, e.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return engine.ClassifyTransport(engineName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &engine.BackendError{Engine: engineName, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
