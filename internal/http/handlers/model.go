package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/localai-backend/internal/http/response"
	"github.com/yungbote/localai-backend/internal/services"
)

type ModelHandler struct {
	models services.ModelService
}

func NewModelHandler(models services.ModelService) *ModelHandler {
	return &ModelHandler{models: models}
}

// GET /api/v1/models
func (h *ModelHandler) List(c *gin.Context) {
	models, err := h.models.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"models": models})
}

// GET /api/v1/models/recommended
func (h *ModelHandler) Recommended(c *gin.Context) {
	response.RespondOK(c, h.models.Recommended())
}

// GET /api/v1/models/:name
func (h *ModelHandler) Get(c *gin.Context) {
	m, err := h.models.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, m)
}
