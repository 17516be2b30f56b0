package aggregates

import (
	"context"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
)

// TxRunner opens the transaction a conversation write commits in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// SQLite answers a second concurrent writer with "database is locked" instead
// of waiting, so retryable failures get a few more attempts. The body must be
// safe to re-run; every attempt starts from a rolled back transaction.
const (
	maxWriteAttempts = 3
	writeRetryDelay  = 25 * time.Millisecond
)

func runWithRetry(ctx context.Context, runner TxRunner, hooks Hooks, op string, fn func(dbc dbctx.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := MapError(op, runner.InTx(ctx, fn))
		if err == nil || attempt >= maxWriteAttempts || ctx.Err() != nil || !domainagg.Retryable(err) {
			return err
		}
		hooks.IncRetry(op)

		timer := time.NewTimer(time.Duration(attempt) * writeRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return MapError(op, ctx.Err())
		case <-timer.C:
		}
	}
}
