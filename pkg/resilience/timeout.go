package resilience

import (
	"context"
	"fmt"
	"time"
)

// Within runs fn and waits at most timeout for its result. fn keeps running
// in the background after a timeout; its late result is dropped. Callers
// that can stop early should watch the context fn receives. A zero
// timeout waits for as long as ctx allows.
func Within[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if timeout > 0 && ctx.Err() == context.DeadlineExceeded {
			return zero, fmt.Errorf("%s: no result within %v: %w", name, timeout, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w", name, ctx.Err())
	}
}

// WithTimeout is Within for functions that only report an error.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(context.Context) error) error {
	_, err := Within(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
