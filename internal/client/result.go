package client

import (
	"context"
	"time"
)

// Result is the outcome of one fetch. A failed result carries the reason
// and no value; the caller keeps whatever it had before.
type Result[T any] struct {
	Value     T
	Err       error
	FetchedAt time.Time
}

// OK reports whether the fetch succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Reason returns the failure text, or "" on success
func (r Result[T]) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Success wraps a fetched value
func Success[T any](v T, at time.Time) Result[T] {
	return Result[T]{Value: v, FetchedAt: at}
}

// TransientError wraps a failed fetch
func TransientError[T any](err error, at time.Time) Result[T] {
	return Result[T]{Err: err, FetchedAt: at}
}

// Do runs fn and folds its return values into a Result
func Do[T any](ctx context.Context, now func() time.Time, fn func(context.Context) (T, error)) Result[T] {
	v, err := fn(ctx)
	if err != nil {
		return TransientError[T](err, now())
	}
	return Success(v, now())
}
