// Package client is the inference entry point used by the services. It owns
// the degraded-mode policy: when the primary backend cannot be reached, the
// fallback engine answers instead and callers see an ordinary success.
package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/localai-backend/internal/inference/engine"
	"github.com/yungbote/localai-backend/internal/observability"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

const DefaultCatalogTTL = 30 * time.Second

// catalogFetchTimeout bounds one shared model listing when the backend never
// answers.
const catalogFetchTimeout = 30 * time.Second

type Options struct {
	Primary engine.Engine
	// Fallback answers when Primary is unreachable. Nil disables degraded mode.
	Fallback     engine.Engine
	DefaultModel string

	// Catalog caches the primary's model list. Nil means an in-process cache.
	Catalog    CatalogCache
	CatalogTTL time.Duration

	Metrics *observability.Metrics
	Log     *logger.Logger
}

type Client struct {
	primary      engine.Engine
	fallback     engine.Engine
	defaultModel string

	catalog    CatalogCache
	catalogTTL time.Duration
	sf         singleflight.Group

	metrics *observability.Metrics
	tracer  trace.Tracer
	log     *logger.Logger
	now     func() time.Time
}

// Result is a completed blocking chat or generate call.
type Result struct {
	Content    string
	TokenCount int
	// GenerationTime is wall-clock seconds around the call.
	GenerationTime float64
	Model          string
	Fallback       bool
}

func New(opts Options) (*Client, error) {
	if opts.Primary == nil {
		return nil, errors.New("inference client: primary engine required")
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	ttl := opts.CatalogTTL
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	cat := opts.Catalog
	if cat == nil {
		cat = NewMemoryCatalog()
	}
	return &Client{
		primary:      opts.Primary,
		fallback:     opts.Fallback,
		defaultModel: strings.TrimSpace(opts.DefaultModel),
		catalog:      cat,
		catalogTTL:   ttl,
		metrics:      opts.Metrics,
		tracer:       observability.Tracer(),
		log:          log.With("component", "InferenceClient", "engine", opts.Primary.Name()),
		now:          time.Now,
	}, nil
}

func (c *Client) DefaultModel() string { return c.defaultModel }

func (c *Client) EngineName() string { return c.primary.Name() }

func (c *Client) resolveModel(model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return c.defaultModel
}

func (c *Client) canFallback(err error) bool {
	return c.fallback != nil && engine.IsUnreachable(err)
}

// Chat runs one blocking completion. Unreachable backends are answered by
// the fallback engine; every other failure is returned.
func (c *Client) Chat(ctx context.Context, req engine.ChatRequest) (Result, error) {
	req.Model = c.resolveModel(req.Model)
	return c.complete(ctx, "chat", req.Model, attribute.Int("inference.messages", len(req.Messages)),
		func(ctx context.Context, e engine.Engine) (engine.ChatResult, error) {
			return e.Chat(ctx, req)
		})
}

// Generate is Chat for a single prompt with an optional system prompt.
func (c *Client) Generate(ctx context.Context, req engine.GenerateRequest) (Result, error) {
	req.Model = c.resolveModel(req.Model)
	return c.complete(ctx, "generate", req.Model, attribute.Int("inference.prompt_chars", len(req.Prompt)),
		func(ctx context.Context, e engine.Engine) (engine.ChatResult, error) {
			return e.Generate(ctx, req)
		})
}

// ChatStream forwards fragments from the primary engine, or from the fallback
// when the primary could not be reached before anything was delivered.
func (c *Client) ChatStream(ctx context.Context, req engine.ChatRequest, onChunk func(engine.Chunk) error) error {
	req.Model = c.resolveModel(req.Model)
	return c.stream(ctx, "chat_stream", req.Model, attribute.Int("inference.messages", len(req.Messages)), onChunk,
		func(ctx context.Context, e engine.Engine, forward func(engine.Chunk) error) error {
			return e.ChatStream(ctx, req, forward)
		})
}

// GenerateStream follows the ChatStream fallback policy.
func (c *Client) GenerateStream(ctx context.Context, req engine.GenerateRequest, onChunk func(engine.Chunk) error) error {
	req.Model = c.resolveModel(req.Model)
	return c.stream(ctx, "generate_stream", req.Model, attribute.Int("inference.prompt_chars", len(req.Prompt)), onChunk,
		func(ctx context.Context, e engine.Engine, forward func(engine.Chunk) error) error {
			return e.GenerateStream(ctx, req, forward)
		})
}

func (c *Client) complete(
	ctx context.Context,
	op, model string,
	size attribute.KeyValue,
	call func(context.Context, engine.Engine) (engine.ChatResult, error),
) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "inference."+op, trace.WithAttributes(
		attribute.String("inference.engine", c.primary.Name()),
		attribute.String("inference.model", model),
		size,
	))
	defer span.End()

	start := c.now()
	used := c.primary
	res, err := call(ctx, c.primary)
	if err != nil && c.canFallback(err) {
		c.log.Warn("inference backend unreachable, serving fallback reply", "op", op, "model", model, "error", err)
		c.metrics.IncFallback(op)
		span.AddEvent("fallback")
		used = c.fallback
		res, err = call(ctx, c.fallback)
	}
	dur := c.now().Sub(start)

	if err != nil {
		c.metrics.ObserveLLMRequest(used.Name(), op, "error", model, dur, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	c.metrics.ObserveLLMRequest(used.Name(), op, "success", model, dur, res.TokenCount)
	span.SetAttributes(attribute.Int("inference.output_tokens", res.TokenCount), attribute.Bool("inference.fallback", used != c.primary))

	if res.Model != "" {
		model = res.Model
	}
	return Result{
		Content:        res.Content,
		TokenCount:     res.TokenCount,
		GenerationTime: dur.Seconds(),
		Model:          model,
		Fallback:       used != c.primary,
	}, nil
}

func (c *Client) stream(
	ctx context.Context,
	op, model string,
	size attribute.KeyValue,
	onChunk func(engine.Chunk) error,
	call func(context.Context, engine.Engine, func(engine.Chunk) error) error,
) error {
	ctx, span := c.tracer.Start(ctx, "inference."+op, trace.WithAttributes(
		attribute.String("inference.engine", c.primary.Name()),
		attribute.String("inference.model", model),
		size,
	))
	defer span.End()

	start := c.now()
	used := c.primary
	delivered := 0
	tokens := 0
	forward := func(ch engine.Chunk) error {
		delivered++
		if ch.Done {
			tokens = ch.TokenCount
		} else {
			c.metrics.IncStreamChunk(used.Name())
		}
		if onChunk == nil {
			return nil
		}
		return onChunk(ch)
	}

	err := call(ctx, c.primary, forward)
	if err != nil && delivered == 0 && c.canFallback(err) {
		c.log.Warn("inference backend unreachable, streaming fallback reply", "op", op, "model", model, "error", err)
		c.metrics.IncFallback(op)
		span.AddEvent("fallback")
		used = c.fallback
		err = call(ctx, c.fallback, forward)
	}
	dur := c.now().Sub(start)

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	default:
		outcome = "error"
	}
	c.metrics.ObserveLLMRequest(used.Name(), op, outcome, model, dur, tokens)
	span.SetAttributes(attribute.Int("inference.chunks", delivered), attribute.Bool("inference.fallback", used != c.primary))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// ListModels returns the backend catalog. It does not fail because of the
// backend: an unreachable or broken backend yields the fallback catalog and
// a non-2xx answer yields an empty list.
func (c *Client) ListModels(ctx context.Context) ([]engine.ModelInfo, error) {
	if models, ok := c.catalog.Get(ctx); ok {
		return models, nil
	}

	// The shared fetch is detached from any one caller so a cancelled leader
	// does not fail the callers waiting on it.
	ch := c.sf.DoChan("models", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogFetchTimeout)
		defer cancel()
		if models, ok := c.catalog.Get(fetchCtx); ok {
			return models, nil
		}
		start := c.now()
		models, err := c.primary.ListModels(fetchCtx)
		dur := c.now().Sub(start)
		if err != nil {
			c.metrics.ObserveLLMRequest(c.primary.Name(), "list_models", "error", "", dur, 0)
			return nil, err
		}
		c.metrics.ObserveLLMRequest(c.primary.Name(), "list_models", "success", "", dur, 0)
		c.catalog.Set(fetchCtx, models, c.catalogTTL)
		return models, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err == nil {
		return res.Val.([]engine.ModelInfo), nil
	}
	err := res.Err

	var be *engine.BackendError
	if errors.As(err, &be) {
		c.log.Warn("model listing rejected by backend", "status", be.StatusCode, "error", err)
		return []engine.ModelInfo{}, nil
	}
	if c.fallback == nil {
		return nil, err
	}
	c.log.Warn("model listing failed, serving fallback catalog", "error", err)
	c.metrics.IncFallback("list_models")
	return c.fallback.ListModels(ctx)
}

// FindModel looks name up in the current catalog.
func (c *Client) FindModel(ctx context.Context, name string) (*engine.ModelInfo, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	for i := range models {
		if models[i].Name == name {
			return &models[i], nil
		}
	}
	return nil, nil
}

// Reachable probes the primary backend directly, bypassing the cache.
func (c *Client) Reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := c.primary.ListModels(ctx)
	return err == nil
}
