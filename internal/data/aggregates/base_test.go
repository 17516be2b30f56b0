package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/localai-backend/internal/platform/dbctx"
)

type stubRunner struct {
	err error
	// failures is how many leading calls return err; zero means every call.
	failures int
	calls    *int
}

func (r stubRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	n := 0
	if r.calls != nil {
		*r.calls++
		n = *r.calls
	}
	if r.err != nil && (r.failures == 0 || n <= r.failures) {
		return r.err
	}
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type recordingHooks struct {
	mu        sync.Mutex
	statuses  []string
	conflicts int
	retries   int
}

func (h *recordingHooks) ObserveOperation(_ string, status string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}
func (h *recordingHooks) IncConflict(string) { h.mu.Lock(); h.conflicts++; h.mu.Unlock() }
func (h *recordingHooks) IncRetry(string)    { h.mu.Lock(); h.retries++; h.mu.Unlock() }

func TestExecuteWriteReportsStatus(t *testing.T) {
	hooks := &recordingHooks{}
	ctx := context.Background()

	if err := executeWrite(ctx, BaseDeps{Runner: stubRunner{}, Hooks: hooks}, "ok", func(dbctx.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = executeWrite(ctx, BaseDeps{Runner: stubRunner{}, Hooks: hooks}, "dup", func(dbctx.Context) error {
		return errors.New("UNIQUE constraint failed: messages.uuid")
	})
	_ = executeWrite(ctx, BaseDeps{Runner: stubRunner{err: errors.New("database is locked")}, Hooks: hooks}, "locked", nil)

	want := []string{"success", "conflict", "retryable"}
	if len(hooks.statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", hooks.statuses, want)
	}
	for i := range want {
		if hooks.statuses[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", hooks.statuses, want)
		}
	}
	if hooks.conflicts != 1 || hooks.retries != maxWriteAttempts-1 {
		t.Fatalf("conflicts=%d retries=%d", hooks.conflicts, hooks.retries)
	}
}

func TestExecuteWriteRetriesLockedDatabase(t *testing.T) {
	hooks := &recordingHooks{}
	calls := 0
	runner := stubRunner{err: errors.New("database is locked"), failures: 1, calls: &calls}

	ran := false
	err := executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "locked_once", func(dbctx.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran || calls != 2 || hooks.retries != 1 {
		t.Fatalf("ran=%v calls=%d retries=%d", ran, calls, hooks.retries)
	}
	if len(hooks.statuses) != 1 || hooks.statuses[0] != "success" {
		t.Fatalf("statuses = %v", hooks.statuses)
	}
}

func TestExecuteWriteDoesNotRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hooks := &recordingHooks{}
	calls := 0
	runner := stubRunner{err: context.Canceled, calls: &calls}

	if err := executeWrite(ctx, BaseDeps{Runner: runner, Hooks: hooks}, "cancelled", nil); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 || hooks.retries != 0 {
		t.Fatalf("calls=%d retries=%d", calls, hooks.retries)
	}
}

func TestExecuteWriteDoesNotRetryConflicts(t *testing.T) {
	hooks := &recordingHooks{}
	calls := 0
	runner := stubRunner{err: errors.New("UNIQUE constraint failed: messages.uuid"), calls: &calls}

	_ = executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "dup", nil)
	if calls != 1 || hooks.retries != 0 || hooks.conflicts != 1 {
		t.Fatalf("calls=%d retries=%d conflicts=%d", calls, hooks.retries, hooks.conflicts)
	}
}

func TestGormTxRunnerNilDB(t *testing.T) {
	err := NewGormTxRunner(nil).InTx(context.Background(), func(dbctx.Context) error { return nil })
	if err == nil {
		t.Fatalf("expected error for nil db")
	}
}
