package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrUnreachable marks failures where no connection to the backend could be
// established. Callers may substitute a fallback engine for these.
var ErrUnreachable = errors.New("inference backend unreachable")

// ErrStreamTruncated is returned when a stream ends without a final chunk.
var ErrStreamTruncated = errors.New("inference stream ended before completion")

// BackendError is a non-2xx answer from a live backend.
type BackendError struct {
	Engine     string
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Engine, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Engine, e.StatusCode, e.Body)
}

type unreachableError struct {
	engine string
	err    error
}

func (e *unreachableError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.engine, ErrUnreachable, e.err)
}

func (e *unreachableError) Unwrap() []error { return []error{ErrUnreachable, e.err} }

// Unreachable wraps err so that IsUnreachable reports true.
func Unreachable(engineName string, err error) error {
	if err == nil {
		return nil
	}
	return &unreachableError{engine: engineName, err: err}
}

// ClassifyTransport wraps dial-level failures as unreachable and leaves
// everything else (including read timeouts on a live connection) untouched.
func ClassifyTransport(engineName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if isDialFailure(err) {
		return Unreachable(engineName, err)
	}
	return err
}

// IsUnreachable reports whether err means the backend could not be contacted.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnreachable) {
		return true
	}
	return isDialFailure(err)
}

func isDialFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH)
}
