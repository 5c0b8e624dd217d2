package fmailer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SendCallback receives the outcome of one async send. It runs on the worker
// goroutine that performed the send, exactly once, before the task's handle
// reports completion.
type SendCallback func(success bool, err error)

// TaskHandle represents one in-flight or completed asynchronous send. Handles
// are created by the client at submission time; the worker that runs the send
// writes the outcome exactly once, after which the handle is immutable and any
// number of goroutines may poll or wait on it.
type TaskHandle struct {
	done    chan struct{}
	success bool
	err     error
}

func newTaskHandle() *TaskHandle {
	return &TaskHandle{done: make(chan struct{})}
}

// complete records the outcome and releases waiters. Called exactly once, by
// the worker, after any callback has returned.
func (h *TaskHandle) complete(success bool, err error) {
	h.success = success
	h.err = err
	close(h.done)
}

// IsDone reports whether the send has finished. It never blocks.
func (h *TaskHandle) IsDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Result blocks until the send completes or ctx expires, then returns the
// recorded outcome. A failed send returns the same error the callback saw.
// On ctx expiry the call returns an error wrapping ErrResultTimeout and the
// underlying send keeps running; calling Result again later still works.
// Result is idempotent after completion and safe for concurrent waiters.
func (h *TaskHandle) Result(ctx context.Context) (bool, error) {
	// A completed handle answers immediately even when ctx has already
	// expired; the timeout error is reserved for sends that genuinely did
	// not finish in time.
	select {
	case <-h.done:
		return h.success, h.err
	default:
	}

	select {
	case <-h.done:
		return h.success, h.err
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %w", ErrResultTimeout, ctx.Err())
	}
}

// ResultWithin is a convenience wrapper around Result with a deadline of d
// from now.
func (h *TaskHandle) ResultWithin(d time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return h.Result(ctx)
}

// IsResultTimeout reports whether err came from a bounded wait that elapsed
// before the send completed.
func IsResultTimeout(err error) bool {
	return errors.Is(err, ErrResultTimeout)
}
