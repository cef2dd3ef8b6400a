// Package view ties asynchronous work to the lifetime of the view that
// started it.  A view's lifetime is its context: once the context is done,
// results that arrive afterwards are discarded instead of applied.
package view

import (
	"context"
	"errors"
)

// ErrDiscarded is returned when a result arrived after its view ended.
var ErrDiscarded = errors.New("view: result discarded, view no longer alive")

// Await runs fn with the view's context and returns its result only if the
// view is still alive when fn returns.
func Await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	res, err := fn(ctx)
	if ctx.Err() != nil {
		var zero T
		return zero, ErrDiscarded
	}
	return res, err
}
