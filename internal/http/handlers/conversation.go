package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/http/response"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/services"
)

var (
	errInvalidConversationID = errors.New("conversation_id must be a UUID")
	errConversationNotFound  = domainagg.NewError(domainagg.CodeNotFound, "", "conversation not found", nil)
	errMessageNotFound       = domainagg.NewError(domainagg.CodeNotFound, "", "message not found", nil)
)

type ConversationHandler struct {
	conversations services.ConversationService
	analytics     services.AnalyticsService
}

func NewConversationHandler(conversations services.ConversationService, analytics services.AnalyticsService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, analytics: analytics}
}

type createConversationReq struct {
	Title          *string `json:"title" binding:"omitempty,max=255"`
	Model          *string `json:"model" binding:"omitempty,max=100"`
	SystemPrompt   *string `json:"system_prompt"`
	SystemPromptID *uint   `json:"system_prompt_id"`
	samplingFields
	Tags map[string]interface{} `json:"tags"`
}

type updateConversationReq struct {
	Title        *string `json:"title" binding:"omitempty,max=255"`
	Model        *string `json:"model" binding:"omitempty,max=100"`
	SystemPrompt *string `json:"system_prompt"`
	samplingFields
	IsPinned   *bool                   `json:"is_pinned"`
	IsArchived *bool                   `json:"is_archived"`
	Tags       *map[string]interface{} `json:"tags"`
}

type editMessageReq struct {
	Content string `json:"content" binding:"required,min=1"`
}

// POST /api/v1/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	var req createConversationReq
	if !bindJSON(c, &req) {
		return
	}
	conv, err := h.conversations.Create(dbctx.Context{Ctx: c.Request.Context()}, services.CreateConversationInput{
		Title:          req.Title,
		Model:          req.Model,
		SystemPrompt:   req.SystemPrompt,
		SystemPromptID: req.SystemPromptID,
		Sampling:       req.overrides(),
		Tags:           req.Tags,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, conv)
}

// GET /api/v1/conversations?skip=0&limit=50&include_archived=false
func (h *ConversationHandler) List(c *gin.Context) {
	skip, ok := queryInt(c, "skip", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	includeArchived, ok := queryBool(c, "include_archived")
	if !ok {
		return
	}
	convs, err := h.conversations.List(dbctx.Context{Ctx: c.Request.Context()}, skip, limit, includeArchived)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, convs)
}

// GET /api/v1/conversations/stats
func (h *ConversationHandler) Stats(c *gin.Context) {
	stats, err := h.analytics.DashboardStats(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/v1/conversations/search?q=...&limit=20
func (h *ConversationHandler) Search(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	convs, err := h.conversations.Search(dbctx.Context{Ctx: c.Request.Context()}, c.Query("q"), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, convs)
}

// GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	conv, err := h.conversations.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if conv == nil {
		response.FromError(c, errConversationNotFound)
		return
	}
	response.RespondOK(c, conv)
}

// PATCH /api/v1/conversations/:id
func (h *ConversationHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateConversationReq
	if !bindJSON(c, &req) {
		return
	}
	conv, err := h.conversations.Update(dbctx.Context{Ctx: c.Request.Context()}, id, services.UpdateConversationInput{
		Title:        req.Title,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		Sampling:     req.overrides(),
		IsPinned:     req.IsPinned,
		IsArchived:   req.IsArchived,
		Tags:         req.Tags,
	})
	h.respondConversation(c, conv, err)
}

// DELETE /api/v1/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	deleted, err := h.conversations.Delete(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if !deleted {
		response.FromError(c, errConversationNotFound)
		return
	}
	response.RespondNoContent(c)
}

// GET /api/v1/conversations/:id/messages?skip=0&limit=100
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	skip, ok := queryInt(c, "skip", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		return
	}
	msgs, err := h.conversations.ListMessages(dbctx.Context{Ctx: c.Request.Context()}, id, skip, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, msgs)
}

// PATCH /api/v1/conversations/messages/:message_id
func (h *ConversationHandler) EditMessage(c *gin.Context) {
	id, ok := uuidParam(c, "message_id")
	if !ok {
		return
	}
	var req editMessageReq
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.conversations.EditMessage(dbctx.Context{Ctx: c.Request.Context()}, id, req.Content)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if msg == nil {
		response.FromError(c, errMessageNotFound)
		return
	}
	response.RespondOK(c, msg)
}

// DELETE /api/v1/conversations/messages/:message_id
func (h *ConversationHandler) DeleteMessage(c *gin.Context) {
	id, ok := uuidParam(c, "message_id")
	if !ok {
		return
	}
	deleted, err := h.conversations.DeleteMessage(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if !deleted {
		response.FromError(c, errMessageNotFound)
		return
	}
	response.RespondNoContent(c)
}

// POST /api/v1/conversations/:id/pin
func (h *ConversationHandler) Pin(c *gin.Context) { h.toggle(c, h.conversations.Pin) }

// POST /api/v1/conversations/:id/unpin
func (h *ConversationHandler) Unpin(c *gin.Context) { h.toggle(c, h.conversations.Unpin) }

// POST /api/v1/conversations/:id/archive
func (h *ConversationHandler) Archive(c *gin.Context) { h.toggle(c, h.conversations.Archive) }

// POST /api/v1/conversations/:id/unarchive
func (h *ConversationHandler) Unarchive(c *gin.Context) { h.toggle(c, h.conversations.Unarchive) }

func (h *ConversationHandler) toggle(c *gin.Context, fn func(dbctx.Context, uuid.UUID) (*chat.Conversation, error)) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	conv, err := fn(dbctx.Context{Ctx: c.Request.Context()}, id)
	h.respondConversation(c, conv, err)
}

func (h *ConversationHandler) respondConversation(c *gin.Context, conv *chat.Conversation, err error) {
	if err != nil {
		response.FromError(c, err)
		return
	}
	if conv == nil {
		response.FromError(c, errConversationNotFound)
		return
	}
	response.RespondOK(c, conv)
}
