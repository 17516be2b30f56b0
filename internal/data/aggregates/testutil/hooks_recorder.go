package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/localai-backend/internal/data/aggregates"
)

// HooksRecorder keeps every hook call so tests can assert on the write
// outcomes a scenario produced.
type HooksRecorder struct {
	mu     sync.Mutex
	events []hookEvent
}

type hookEvent struct {
	kind   string // "op", "conflict" or "retry"
	name   string
	status string
	dur    time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) record(ev hookEvent) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.record(hookEvent{kind: "op", name: name, status: status, dur: dur})
}

func (h *HooksRecorder) IncConflict(name string) { h.record(hookEvent{kind: "conflict", name: name}) }
func (h *HooksRecorder) IncRetry(name string)    { h.record(hookEvent{kind: "retry", name: name}) }

// Statuses returns the status of each finished operation, in order.
func (h *HooksRecorder) Statuses() []string {
	return h.collect("op", func(ev hookEvent) string { return ev.status })
}

// Operations returns the names of finished operations, in order.
func (h *HooksRecorder) Operations() []string {
	return h.collect("op", func(ev hookEvent) string { return ev.name })
}

func (h *HooksRecorder) Conflicts() int { return len(h.collect("conflict", nil)) }
func (h *HooksRecorder) Retries() int   { return len(h.collect("retry", nil)) }

func (h *HooksRecorder) collect(kind string, pick func(hookEvent) string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []string{}
	for _, ev := range h.events {
		if ev.kind != kind {
			continue
		}
		if pick == nil {
			out = append(out, ev.name)
		} else {
			out = append(out, pick(ev))
		}
	}
	return out
}
