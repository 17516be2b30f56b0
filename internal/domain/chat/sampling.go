package chat

import (
	"fmt"
	"strings"
)

// SamplingParams are the generation knobs stored per conversation.
type SamplingParams struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	MaxTokens   int     `json:"max_tokens"`
}

var DefaultSampling = SamplingParams{
	Temperature: 0.7,
	TopP:        0.9,
	TopK:        40,
	MaxTokens:   2048,
}

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
	MinTopK        = 1
	MaxTopK        = 100
	MinMaxTokens   = 1
	MaxMaxTokens   = 32768
)

// SamplingOverrides holds per-request values. Nil means "use the stored value".
type SamplingOverrides struct {
	Temperature *float64
	TopP        *float64
	TopK        *int
	MaxTokens   *int
}

// Resolve applies overrides on top of base without mutating either.
func (o SamplingOverrides) Resolve(base SamplingParams) SamplingParams {
	out := base
	if o.Temperature != nil {
		out.Temperature = *o.Temperature
	}
	if o.TopP != nil {
		out.TopP = *o.TopP
	}
	if o.TopK != nil {
		out.TopK = *o.TopK
	}
	if o.MaxTokens != nil {
		out.MaxTokens = *o.MaxTokens
	}
	return out
}

// Validate reports the first out-of-range override.
func (o SamplingOverrides) Validate() error {
	var problems []string
	if o.Temperature != nil && (*o.Temperature < MinTemperature || *o.Temperature > MaxTemperature) {
		problems = append(problems, fmt.Sprintf("temperature must be within [%v, %v]", MinTemperature, MaxTemperature))
	}
	if o.TopP != nil && (*o.TopP < MinTopP || *o.TopP > MaxTopP) {
		problems = append(problems, fmt.Sprintf("top_p must be within [%v, %v]", MinTopP, MaxTopP))
	}
	if o.TopK != nil && (*o.TopK < MinTopK || *o.TopK > MaxTopK) {
		problems = append(problems, fmt.Sprintf("top_k must be within [%d, %d]", MinTopK, MaxTopK))
	}
	if o.MaxTokens != nil && (*o.MaxTokens < MinMaxTokens || *o.MaxTokens > MaxMaxTokens) {
		problems = append(problems, fmt.Sprintf("max_tokens must be within [%d, %d]", MinMaxTokens, MaxMaxTokens))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(problems, "; "))
}
