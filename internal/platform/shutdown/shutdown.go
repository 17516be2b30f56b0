package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitCode is used when a second signal arrives during a graceful drain.
const ExitCode = 130

// NotifyContext returns a context cancelled on the first SIGINT or SIGTERM.
// A second signal exits the process at once so a hung stream cannot hold
// shutdown open until the drain timeout.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return notify(parent, func() { os.Exit(ExitCode) })
}

func notify(parent context.Context, force func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
		})
		cancel()
	}

	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		case <-done:
			return
		}
		select {
		case <-sigs:
			force()
		case <-done:
		}
	}()
	return ctx, stop
}
