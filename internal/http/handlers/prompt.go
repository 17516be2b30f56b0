package handlers

import (
	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/http/response"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/services"
)

var errPromptNotFound = domainagg.NewError(domainagg.CodeNotFound, "", "system prompt not found", nil)

type PromptHandler struct {
	prompts services.PromptService
}

func NewPromptHandler(prompts services.PromptService) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

type createPromptReq struct {
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Description *string `json:"description"`
	Content     string  `json:"content" binding:"required,min=1"`
	IsDefault   bool    `json:"is_default"`
}

type updatePromptReq struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Content     *string `json:"content" binding:"omitempty,min=1"`
	IsDefault   *bool   `json:"is_default"`
}

// GET /api/v1/prompts
func (h *PromptHandler) List(c *gin.Context) {
	prompts, err := h.prompts.List(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, prompts)
}

// GET /api/v1/prompts/defaults/list
func (h *PromptHandler) Defaults(c *gin.Context) {
	response.RespondOK(c, h.prompts.Defaults())
}

// POST /api/v1/prompts
func (h *PromptHandler) Create(c *gin.Context) {
	var req createPromptReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.prompts.Create(dbctx.Context{Ctx: c.Request.Context()}, services.CreatePromptInput{
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, p)
}

// GET /api/v1/prompts/:id
func (h *PromptHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	p, err := h.prompts.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if p == nil {
		response.FromError(c, errPromptNotFound)
		return
	}
	response.RespondOK(c, p)
}

// PATCH /api/v1/prompts/:id
func (h *PromptHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req updatePromptReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.prompts.Update(dbctx.Context{Ctx: c.Request.Context()}, id, services.UpdatePromptInput{
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	if p == nil {
		response.FromError(c, errPromptNotFound)
		return
	}
	response.RespondOK(c, p)
}

// DELETE /api/v1/prompts/:id
func (h *PromptHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	deleted, err := h.prompts.Delete(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if !deleted {
		response.FromError(c, errPromptNotFound)
		return
	}
	response.RespondNoContent(c)
}
