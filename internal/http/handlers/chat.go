package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/localai-backend/internal/http/response"
	"github.com/yungbote/localai-backend/internal/platform/logger"
	"github.com/yungbote/localai-backend/internal/services"
)

type ChatHandler struct {
	log  *logger.Logger
	chat services.ChatOrchestrator
}

func NewChatHandler(log *logger.Logger, chat services.ChatOrchestrator) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chat}
}

type chatReq struct {
	ConversationID *string `json:"conversation_id"`
	Message        string  `json:"message" binding:"required,min=1"`
	Model          *string `json:"model"`
	SystemPrompt   *string `json:"system_prompt"`
	SystemPromptID *uint   `json:"system_prompt_id"`
	samplingFields
	Stream bool `json:"stream"`
}

func (r chatReq) input(c *gin.Context) (services.ChatInput, bool) {
	in := services.ChatInput{
		Message:        r.Message,
		Model:          r.Model,
		SystemPrompt:   r.SystemPrompt,
		SystemPromptID: r.SystemPromptID,
		Sampling:       r.overrides(),
	}
	if r.ConversationID != nil && strings.TrimSpace(*r.ConversationID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*r.ConversationID))
		if err != nil {
			response.Invalid(c, errInvalidConversationID)
			return in, false
		}
		in.ConversationID = &id
	}
	return in, true
}

// POST /api/v1/chat/completions
func (h *ChatHandler) Complete(c *gin.Context) {
	var req chatReq
	if !bindJSON(c, &req) {
		return
	}
	in, ok := req.input(c)
	if !ok {
		return
	}
	if req.Stream {
		h.stream(c, in)
		return
	}
	out, err := h.chat.Complete(c.Request.Context(), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/v1/chat/completions/stream
func (h *ChatHandler) Stream(c *gin.Context) {
	var req chatReq
	if !bindJSON(c, &req) {
		return
	}
	in, ok := req.input(c)
	if !ok {
		return
	}
	h.stream(c, in)
}

func (h *ChatHandler) stream(c *gin.Context, in services.ChatInput) {
	w := response.NewSSEWriter(c)
	err := h.chat.Stream(c.Request.Context(), in, func(ev services.StreamEvent) error {
		return w.Send(ev)
	})
	if err == nil {
		return
	}
	if !w.Started() {
		response.FromError(c, err)
		return
	}
	// The stream already carried the error event, or the client is gone.
	_ = c.Error(err)
	h.log.Debug("stream ended with error", "error", err)
}

// POST /api/v1/chat/regenerate/:message_id
func (h *ChatHandler) Regenerate(c *gin.Context) {
	id, ok := uuidParam(c, "message_id")
	if !ok {
		return
	}
	out, err := h.chat.Regenerate(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, out)
}
