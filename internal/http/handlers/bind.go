package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/http/response"
)

// bindJSON decodes the body into dst. Field validation failures answer 422,
// anything else (malformed JSON, wrong types) answers 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.Invalid(c, validationMessage(verrs))
			return false
		}
		response.BadRequest(c, err)
		return false
	}
	return true
}

func validationMessage(verrs validator.ValidationErrors) error {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		response.BadRequest(c, fmt.Errorf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 32)
	if err != nil {
		response.BadRequest(c, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(n), true
}

// queryInt reads a non-negative integer query value, def when absent.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		response.Invalid(c, fmt.Errorf("%s must be a non-negative integer", name))
		return 0, false
	}
	return n, true
}

func queryBool(c *gin.Context, name string) (bool, bool) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return false, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		response.Invalid(c, fmt.Errorf("%s must be a boolean", name))
		return false, false
	}
	return b, true
}

// samplingFields is embedded by request bodies that carry generation knobs.
type samplingFields struct {
	Temperature *float64 `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	TopP        *float64 `json:"top_p" binding:"omitempty,gte=0,lte=1"`
	TopK        *int     `json:"top_k" binding:"omitempty,gte=1,lte=100"`
	MaxTokens   *int     `json:"max_tokens" binding:"omitempty,gte=1,lte=32768"`
}

func (s samplingFields) overrides() chat.SamplingOverrides {
	return chat.SamplingOverrides{
		Temperature: s.Temperature,
		TopP:        s.TopP,
		TopK:        s.TopK,
		MaxTokens:   s.MaxTokens,
	}
}
