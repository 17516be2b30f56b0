package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestSecondSignalForcesExit(t *testing.T) {
	forced := make(chan struct{})
	ctx, stop := notify(context.Background(), func() { close(forced) })
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("context not cancelled by first signal")
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case <-forced:
	case <-time.After(2 * time.Second):
		t.Fatalf("second signal did not force exit")
	}
}

func TestStopCancelsWithoutForcing(t *testing.T) {
	ctx, stop := notify(context.Background(), func() { t.Errorf("force called") })
	stop()
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("stop did not cancel")
	}
}
