package services

import (
	"context"

	"github.com/yungbote/localai-backend/internal/inference/engine"
	"github.com/yungbote/localai-backend/internal/platform/logger"
	"github.com/yungbote/localai-backend/internal/services/defaults"
)

// ModelCatalog is the part of the inference client the model endpoints use.
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]engine.ModelInfo, error)
	FindModel(ctx context.Context, name string) (*engine.ModelInfo, error)
}

type ModelService interface {
	List(ctx context.Context) ([]engine.ModelInfo, error)
	Get(ctx context.Context, name string) (*engine.ModelInfo, error)
	Recommended() []defaults.RecommendedModel
}

type modelService struct {
	log         *logger.Logger
	catalog     ModelCatalog
	recommended []defaults.RecommendedModel
}

func NewModelService(baseLog *logger.Logger, catalog ModelCatalog) (ModelService, error) {
	rec, err := defaults.RecommendedModels()
	if err != nil {
		return nil, err
	}
	return &modelService{
		log:         baseLog.With("service", "ModelService"),
		catalog:     catalog,
		recommended: rec,
	}, nil
}

func (s *modelService) List(ctx context.Context) ([]engine.ModelInfo, error) {
	models, err := s.catalog.ListModels(ctx)
	if err != nil {
		return nil, inferenceError("Inference.Models.List", err)
	}
	return models, nil
}

func (s *modelService) Get(ctx context.Context, name string) (*engine.ModelInfo, error) {
	const op = "Inference.Models.Get"
	m, err := s.catalog.FindModel(ctx, name)
	if err != nil {
		return nil, inferenceError(op, err)
	}
	if m == nil {
		return nil, notFoundError(op, "model")
	}
	return m, nil
}

func (s *modelService) Recommended() []defaults.RecommendedModel {
	out := make([]defaults.RecommendedModel, len(s.recommended))
	copy(out, s.recommended)
	return out
}
