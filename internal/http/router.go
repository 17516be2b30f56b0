package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/localai-backend/internal/http/handlers"
	httpMW "github.com/yungbote/localai-backend/internal/http/middleware"
	"github.com/yungbote/localai-backend/internal/http/response"
	"github.com/yungbote/localai-backend/internal/observability"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	Debug       bool
	CORSOrigins []string
	Tracing     bool

	Log     *logger.Logger
	Metrics *observability.Metrics

	MetaHandler         *httpH.MetaHandler
	HealthHandler       *httpH.HealthHandler
	ChatHandler         *httpH.ChatHandler
	ConversationHandler *httpH.ConversationHandler
	ModelHandler        *httpH.ModelHandler
	PromptHandler       *httpH.PromptHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(httpMW.Recovery(cfg.Log))
	if cfg.Tracing {
		name := cfg.ServiceName
		if name == "" {
			name = "localai-backend"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(response.Debug(cfg.Debug))

	if cfg.MetaHandler != nil {
		r.GET("/", cfg.MetaHandler.Root)
	}
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	{
		if cfg.MetaHandler != nil {
			api.GET("", cfg.MetaHandler.APIInfo)
		}

		// Chat
		if cfg.ChatHandler != nil {
			api.POST("/chat/completions", cfg.ChatHandler.Complete)
			api.POST("/chat/completions/stream", cfg.ChatHandler.Stream)
			api.POST("/chat/regenerate/:message_id", cfg.ChatHandler.Regenerate)
		}

		// Conversations
		if h := cfg.ConversationHandler; h != nil {
			api.GET("/conversations", h.List)
			api.POST("/conversations", h.Create)
			api.GET("/conversations/stats", h.Stats)
			api.GET("/conversations/search", h.Search)
			api.GET("/conversations/:id", h.Get)
			api.PATCH("/conversations/:id", h.Update)
			api.DELETE("/conversations/:id", h.Delete)
			api.GET("/conversations/:id/messages", h.ListMessages)
			api.POST("/conversations/:id/pin", h.Pin)
			api.POST("/conversations/:id/unpin", h.Unpin)
			api.POST("/conversations/:id/archive", h.Archive)
			api.POST("/conversations/:id/unarchive", h.Unarchive)
			api.PATCH("/conversations/messages/:message_id", h.EditMessage)
			api.DELETE("/conversations/messages/:message_id", h.DeleteMessage)
		}

		// Models
		if cfg.ModelHandler != nil {
			api.GET("/models", cfg.ModelHandler.List)
			api.GET("/models/recommended", cfg.ModelHandler.Recommended)
			api.GET("/models/:name", cfg.ModelHandler.Get)
		}

		// Prompts
		if h := cfg.PromptHandler; h != nil {
			api.GET("/prompts", h.List)
			api.POST("/prompts", h.Create)
			api.GET("/prompts/defaults/list", h.Defaults)
			api.GET("/prompts/:id", h.Get)
			api.PATCH("/prompts/:id", h.Update)
			api.DELETE("/prompts/:id", h.Delete)
		}
	}

	return r
}
