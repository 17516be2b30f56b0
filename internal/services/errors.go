package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/localai-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/inference/engine"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
)

func validationError(op, msg string) error {
	return domainagg.NewError(domainagg.CodeValidation, op, msg, nil)
}

func notFoundError(op, what string) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, what+" not found", nil)
}

// storeError classifies a raw repository failure.
func storeError(op string, err error) error {
	return aggregates.MapError(op, err)
}

// inferenceError keeps context errors as they are and marks backend failures
// as upstream so the transport can answer 502.
func inferenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	var be *engine.BackendError
	if errors.As(err, &be) || engine.IsUnreachable(err) {
		return domainagg.Wrap(domainagg.CodeUpstream, op, err)
	}
	return aggregates.MapError(op, err)
}

// inTx runs fn in dbc's transaction if it has one, otherwise in a new one.
func inTx(dbc dbctx.Context, db *gorm.DB, fn func(dbc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
