package llm

import (
	"context"
	"fmt"
	"time"
)

type callResult[T any] struct {
	value T
	err   error
}

// CallWithTimeout runs fn with a bounded timeout. When the timer fires first the
// call is abandoned: its context is canceled and any late result is discarded.
// The timer is stopped on every return path.
func CallWithTimeout[T any](ctx context.Context, provider string, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// Buffered so an abandoned call can always deliver and exit.
	done := make(chan callResult[T], 1)
	go func() {
		v, err := fn(callCtx)
		done <- callResult[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-timer.C:
		return zero, NewError(ErrorTypeTimeout, provider, fmt.Sprintf("no response within %s", timeout), context.DeadlineExceeded)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
