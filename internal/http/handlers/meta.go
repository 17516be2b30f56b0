package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/localai-backend/internal/http/response"
)

type MetaHandler struct {
	name        string
	version     string
	description string
}

func NewMetaHandler(name, version, description string) *MetaHandler {
	return &MetaHandler{name: name, version: version, description: description}
}

// GET /
func (h *MetaHandler) Root(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"name":        h.name,
		"version":     h.version,
		"description": h.description,
		"health":      "/health",
		"metrics":     "/metrics",
		"api":         "/api/v1",
	})
}

// GET /api/v1
func (h *MetaHandler) APIInfo(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"version": "v1",
		"endpoints": gin.H{
			"chat":          "/api/v1/chat",
			"conversations": "/api/v1/conversations",
			"models":        "/api/v1/models",
			"prompts":       "/api/v1/prompts",
		},
	})
}
