// Package deadline bounds calls to collaborators that may not honor their
// context. The caller stops waiting when the deadline passes; the call keeps
// its goroutine until it returns on its own and its late result is dropped.
package deadline

import (
	"context"
	"fmt"
	"time"
)

type outcome[T any] struct {
	value     T
	err       error
	panicked  bool
	recovered any
}

// Call runs fn with a context that expires after d and returns no later than
// that. On expiry the error wraps the context error, so errors.Is reports
// context.DeadlineExceeded. A panic in fn is raised again in the caller.
// d <= 0 means no deadline beyond ctx's own.
func Call[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if d > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		var o outcome[T]
		defer func() {
			if r := recover(); r != nil {
				o.panicked = true
				o.recovered = r
			}
			done <- o
		}()
		o.value, o.err = fn(callCtx)
	}()

	select {
	case o := <-done:
		if o.panicked {
			panic(o.recovered)
		}
		return o.value, o.err
	case <-callCtx.Done():
		var zero T
		if d > 0 {
			return zero, fmt.Errorf("no result within %s: %w", d, callCtx.Err())
		}
		return zero, callCtx.Err()
	}
}

// Do is Call for functions that only report an error.
func Do(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	_, err := Call(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
