package view

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitReturnsResultWhileAlive(t *testing.T) {
	got, err := Await(context.Background(), func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestResultAfterUnmountIsDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	got, err := Await(ctx, func(context.Context) (string, error) {
		cancel() // the view goes away while the call is in flight
		return "late", nil
	})

	assert.Empty(t, got)
	assert.ErrorIs(t, err, ErrDiscarded)
}

func TestAwaitPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Await(context.Background(), func(context.Context) (struct{}, error) { return struct{}{}, boom })
	assert.ErrorIs(t, err, boom)
}

func TestLateErrorIsDiscardedToo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Await(ctx, func(context.Context) (int, error) {
		cancel()
		return 0, errors.New("boom")
	})
	assert.ErrorIs(t, err, ErrDiscarded)
}
