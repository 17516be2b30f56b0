package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/localai-backend/internal/inference/engine"
)

const engineName = "openai"

type Config struct {
	// BaseURL includes the version prefix, e.g. http://localhost:8080/v1.
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// StreamTimeout bounds a whole streaming call. Zero means Timeout.
	StreamTimeout time.Duration
}

// Engine talks to any server that exposes the OpenAI chat completions API
// (vLLM, llama.cpp server, LM Studio, ollama's /v1 shim).
type Engine struct {
	client        *openai.Client
	timeout       time.Duration
	streamTimeout time.Duration
}

var _ engine.Engine = (*Engine)(nil)

func New(cfg Config) (*Engine, error) {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: timeout,
	}
	return NewWithHTTPClient(cfg, &http.Client{Transport: tr})
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) (*Engine, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("openaicompat: base_url required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		// Local servers ignore the key but the client always sends the header.
		apiKey = "local"
	}
	oc := openai.DefaultConfig(apiKey)
	oc.BaseURL = baseURL
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	streamTimeout := cfg.StreamTimeout
	if streamTimeout <= 0 {
		streamTimeout = timeout
	}
	return &Engine{client: openai.NewClientWithConfig(oc), timeout: timeout, streamTimeout: streamTimeout}, nil
}

func (e *Engine) Name() string { return engineName }

func (e *Engine) ListModels(ctx context.Context) ([]engine.ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	list, err := e.client.ListModels(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]engine.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		info := engine.ModelInfo{Name: m.ID}
		if m.CreatedAt > 0 {
			info.ModifiedAt = time.Unix(m.CreatedAt, 0).UTC().Format(time.RFC3339)
		}
		if m.OwnedBy != "" {
			info.Details.Family = m.OwnedBy
		}
		out = append(out, info)
	}
	return out, nil
}

// zeroSampling stands in for an explicit 0. go-openai drops zero temperature
// and top_p from the payload, which lets the server substitute its own
// default.
const zeroSampling = 1e-6

func samplingValue(v float64) float32 {
	if v == 0 {
		return zeroSampling
	}
	return float32(v)
}

func toRequest(req engine.ChatRequest, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	out := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: samplingValue(req.Options.Temperature),
		TopP:        samplingValue(req.Options.TopP),
		MaxTokens:   req.Options.MaxTokens,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

func (e *Engine) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, toRequest(req, false))
	if err != nil {
		return engine.ChatResult{}, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return engine.ChatResult{}, errors.New("openaicompat: empty completion")
	}
	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return engine.ChatResult{
		Content:    resp.Choices[0].Message.Content,
		TokenCount: resp.Usage.CompletionTokens,
		Model:      model,
	}, nil
}

func (e *Engine) ChatStream(ctx context.Context, req engine.ChatRequest, onChunk func(engine.Chunk) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.streamTimeout)
	defer cancel()

	stream, err := e.client.CreateChatCompletionStream(ctx, toRequest(req, true))
	if err != nil {
		return mapError(err)
	}
	defer stream.Close()

	tokens := 0
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return mapError(err)
		}
		if resp.Usage != nil && resp.Usage.CompletionTokens > 0 {
			tokens = resp.Usage.CompletionTokens
		}
		for _, c := range resp.Choices {
			if c.Delta.Content == "" || onChunk == nil {
				continue
			}
			if err := onChunk(engine.Chunk{Delta: c.Delta.Content}); err != nil {
				return err
			}
		}
	}
	if onChunk == nil {
		return nil
	}
	return onChunk(engine.Chunk{Done: true, TokenCount: tokens})
}

// Generate sends the prompt as a one-turn chat; the /v1 completions endpoint
// is legacy on most local servers.
func (e *Engine) Generate(ctx context.Context, req engine.GenerateRequest) (engine.ChatResult, error) {
	return e.Chat(ctx, req.AsChat())
}

func (e *Engine) GenerateStream(ctx context.Context, req engine.GenerateRequest, onChunk func(engine.Chunk) error) error {
	return e.ChatStream(ctx, req.AsChat(), onChunk)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &engine.BackendError{Engine: engineName, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &engine.BackendError{Engine: engineName, StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	classified := engine.ClassifyTransport(engineName, err)
	if classified != err {
		return classified
	}
	return fmt.Errorf("openaicompat: %w", err)
}
