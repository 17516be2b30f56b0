// Package fallback is the demo engine used while the real inference backend
// is down. Its output is deterministic for a given prompt and model.
package fallback

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/localai-backend/internal/inference/engine"
)

const engineName = "fallback"

// DefaultWordDelay is the pause between streamed words.
const DefaultWordDelay = 20 * time.Millisecond

const promptPreviewChars = 100

//go:embed catalog.yaml
var catalogYAML []byte

type reply struct {
	Keywords []string `yaml:"keywords"`
	Text     string   `yaml:"text"`
}

type catalog struct {
	Models       []engine.ModelInfo `yaml:"models"`
	Replies      []reply            `yaml:"replies"`
	DefaultReply string             `yaml:"default_reply"`
}

type Engine struct {
	cat       catalog
	wordDelay time.Duration
	now       func() time.Time
}

var _ engine.Engine = (*Engine)(nil)

// New loads the embedded catalog. A negative wordDelay disables the pause.
func New(wordDelay time.Duration) (*Engine, error) {
	var cat catalog
	if err := yaml.Unmarshal(catalogYAML, &cat); err != nil {
		return nil, fmt.Errorf("fallback: decode catalog: %w", err)
	}
	if wordDelay == 0 {
		wordDelay = DefaultWordDelay
	}
	if wordDelay < 0 {
		wordDelay = 0
	}
	return &Engine{cat: cat, wordDelay: wordDelay, now: time.Now}, nil
}

func (e *Engine) Name() string { return engineName }

func (e *Engine) ListModels(ctx context.Context) ([]engine.ModelInfo, error) {
	stamp := e.now().UTC().Format(time.RFC3339)
	out := make([]engine.ModelInfo, len(e.cat.Models))
	for i, m := range e.cat.Models {
		m.ModifiedAt = stamp
		out[i] = m
	}
	return out, nil
}

func (e *Engine) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResult, error) {
	text := e.Reply(lastUserContent(req.Messages), req.Model)
	return engine.ChatResult{
		Content:    text,
		TokenCount: len(strings.Fields(text)),
		Model:      req.Model,
	}, nil
}

// ChatStream emits the reply one space-separated word at a time.
func (e *Engine) ChatStream(ctx context.Context, req engine.ChatRequest, onChunk func(engine.Chunk) error) error {
	return e.streamWords(ctx, e.Reply(lastUserContent(req.Messages), req.Model), onChunk)
}

func (e *Engine) Generate(ctx context.Context, req engine.GenerateRequest) (engine.ChatResult, error) {
	text := e.Reply(req.Prompt, req.Model)
	return engine.ChatResult{
		Content:    text,
		TokenCount: len(strings.Fields(text)),
		Model:      req.Model,
	}, nil
}

func (e *Engine) GenerateStream(ctx context.Context, req engine.GenerateRequest, onChunk func(engine.Chunk) error) error {
	return e.streamWords(ctx, e.Reply(req.Prompt, req.Model), onChunk)
}

func (e *Engine) streamWords(ctx context.Context, text string, onChunk func(engine.Chunk) error) error {
	words := strings.Split(text, " ")
	for i, w := range words {
		if i > 0 && e.wordDelay > 0 {
			t := time.NewTimer(e.wordDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if onChunk == nil {
			continue
		}
		if err := onChunk(engine.Chunk{Delta: w + " "}); err != nil {
			return err
		}
	}
	if onChunk == nil {
		return nil
	}
	return onChunk(engine.Chunk{Done: true, TokenCount: len(strings.Fields(text))})
}

// Reply picks the canned text for prompt. Keyword matching is on lowercase
// whole-prompt substrings; the first matching entry wins.
func (e *Engine) Reply(prompt, model string) string {
	lower := strings.ToLower(prompt)
	for _, r := range e.cat.Replies {
		for _, kw := range r.Keywords {
			if kw != "" && containsWord(lower, strings.ToLower(kw)) {
				return r.Text
			}
		}
	}
	return strings.NewReplacer(
		"{prompt}", preview(prompt),
		"{model}", model,
	).Replace(e.cat.DefaultReply)
}

func lastUserContent(msgs []engine.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	if len(msgs) > 0 {
		return msgs[len(msgs)-1].Content
	}
	return ""
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= promptPreviewChars {
		return s
	}
	return string([]rune(s)[:promptPreviewChars]) + "..."
}

// containsWord matches kw only at word boundaries so "hi" does not fire on "this".
func containsWord(s, kw string) bool {
	for start := 0; ; {
		idx := strings.Index(s[start:], kw)
		if idx < 0 {
			return false
		}
		i := start + idx
		j := i + len(kw)
		if (i == 0 || !isWordByte(s[i-1])) && (j == len(s) || !isWordByte(s[j])) {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
