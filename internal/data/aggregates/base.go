package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

// BaseDeps is what every conversation write needs besides the repos. Zero
// fields get working defaults.
type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// expected codes are caller mistakes or lookups, not store trouble.
var quietCodes = map[domainagg.ErrorCode]bool{
	domainagg.CodeNotFound:   true,
	domainagg.CodeValidation: true,
}

// executeWrite runs fn in one transaction, re-running it on retryable store
// errors, and reports the outcome to the hooks. The returned error always
// carries a code.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	if op = strings.TrimSpace(op); op == "" {
		op = "aggregate.write"
	}

	start := time.Now()
	err := runWithRetry(ctx, deps.Runner, deps.Hooks, op, fn)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		code := domainagg.CodeOf(err)
		status = string(code)
		if code == domainagg.CodeConflict {
			deps.Hooks.IncConflict(op)
		}
		if !quietCodes[code] {
			deps.Log.Warn("conversation write failed",
				"op", op,
				"code", status,
				"duration_ms", elapsed.Milliseconds(),
				"error", err,
			)
		}
	}
	deps.Hooks.ObserveOperation(op, status, elapsed)
	return err
}
