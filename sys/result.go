// Package sys provides small generic helpers for running blocking calls
// asynchronously.
package sys

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Result carries either a value (Ok) or an error (Err) from an asynchronous call.
type Result[T any] struct {
	Ok  T
	Err error
}

// IsOk returns true if the Result contains a successful value (no error).
func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

// IsErr returns true if the Result contains an error. With checks, it reports
// whether the error matches any of them via errors.Is.
func (r Result[T]) IsErr(checks ...error) bool {
	if len(checks) == 0 {
		return r.Err != nil
	}
	for _, err := range checks {
		if errors.Is(r.Err, err) {
			return true
		}
	}
	return false
}

// Unwrap returns the value and error in the conventional Go order.
func (r Result[T]) Unwrap() (T, error) {
	return r.Ok, r.Err
}

// Ok creates a new Result with a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{Ok: value}
}

// Err creates a new Result with an error.
func Err[T any](err error) Result[T] {
	var zero T
	return Result[T]{Ok: zero, Err: err}
}

// Go runs fn on a new goroutine and delivers its outcome on the returned
// channel, which is buffered so the goroutine never blocks on a receiver that
// went away. A panic inside fn is converted into an error Result.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		defer func() {
			if r := recover(); r != nil {
				ch <- Err[T](errors.Newf("panic: %v", r))
			}
		}()
		val, err := fn(ctx)
		if err != nil {
			ch <- Err[T](err)
			return
		}
		ch <- Ok(val)
	}()
	return ch
}

// Await blocks until ch yields a Result or ctx is done.
func Await[T any](ctx context.Context, ch <-chan Result[T]) (T, error) {
	select {
	case r, ok := <-ch:
		if !ok {
			var zero T
			return zero, errors.New("result channel closed without a value")
		}
		return r.Unwrap()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
