// Package defaults holds the built-in prompt templates and the curated model
// list shipped with the binary.
package defaults

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

//go:embed models.yaml
var modelsYAML []byte

type Prompt struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
	IsDefault   bool   `yaml:"is_default"`
}

type RecommendedModel struct {
	Name           string   `yaml:"name" json:"name"`
	Family         string   `yaml:"family" json:"family"`
	ParameterSize  string   `yaml:"parameter_size" json:"parameter_size"`
	Description    string   `yaml:"description" json:"description"`
	RecommendedFor []string `yaml:"recommended_for" json:"recommended_for"`
}

func Prompts() ([]Prompt, error) {
	var doc struct {
		Prompts []Prompt `yaml:"prompts"`
	}
	if err := yaml.Unmarshal(promptsYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode default prompts: %w", err)
	}
	return doc.Prompts, nil
}

func RecommendedModels() ([]RecommendedModel, error) {
	var doc struct {
		Models []RecommendedModel `yaml:"models"`
	}
	if err := yaml.Unmarshal(modelsYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode recommended models: %w", err)
	}
	return doc.Models, nil
}
