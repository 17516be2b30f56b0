package engine

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the sampling knobs forwarded to the backend. MaxTokens maps
// to the backend's output cap (num_predict for ollama).
type Options struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
}

type ChatRequest struct {
	Model    string
	Messages []Message
	Options  Options
}

// GenerateRequest is a single-prompt completion with an optional system
// prompt and no history.
type GenerateRequest struct {
	Model   string
	Prompt  string
	System  string
	Options Options
}

// AsChat expresses r as a one-turn chat for backends without a raw
// completion endpoint.
func (r GenerateRequest) AsChat() ChatRequest {
	msgs := make([]Message, 0, 2)
	if r.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: r.System})
	}
	msgs = append(msgs, Message{Role: "user", Content: r.Prompt})
	return ChatRequest{Model: r.Model, Messages: msgs, Options: r.Options}
}

// ChatResult is one blocking completion. TokenCount is zero when the backend
// did not report one.
type ChatResult struct {
	Content    string
	TokenCount int
	Model      string
}

// Chunk is one element of a chat stream. A stream ends with exactly one
// chunk where Done is true; only that chunk carries TokenCount.
type Chunk struct {
	Delta      string
	Done       bool
	TokenCount int
}

type ModelDetails struct {
	Format            string `json:"format,omitempty" yaml:"format,omitempty"`
	Family            string `json:"family,omitempty" yaml:"family,omitempty"`
	ParameterSize     string `json:"parameter_size,omitempty" yaml:"parameter_size,omitempty"`
	QuantizationLevel string `json:"quantization_level,omitempty" yaml:"quantization_level,omitempty"`
}

type ModelInfo struct {
	Name       string       `json:"name" yaml:"name"`
	Size       int64        `json:"size" yaml:"size"`
	Digest     string       `json:"digest,omitempty" yaml:"digest,omitempty"`
	ModifiedAt string       `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
	Details    ModelDetails `json:"details" yaml:"details"`
}

type Engine interface {
	Name() string
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Chat(ctx context.Context, req ChatRequest) (ChatResult, error)
	// ChatStream calls onChunk for every fragment in order. An error from
	// onChunk stops the stream and is returned unchanged.
	ChatStream(ctx context.Context, req ChatRequest, onChunk func(Chunk) error) error
	Generate(ctx context.Context, req GenerateRequest) (ChatResult, error)
	// GenerateStream follows the ChatStream chunk contract.
	GenerateStream(ctx context.Context, req GenerateRequest, onChunk func(Chunk) error) error
}
