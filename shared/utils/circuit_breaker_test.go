package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("identity", 2, 30*time.Second)
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.Equal(t, StateOpen, cb.GetState())

	assert.ErrorIs(t, cb.Call(ok), ErrCircuitOpen)

	now = now.Add(31 * time.Second)
	assert.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("store", 1, time.Second)
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	_ = cb.Call(func() error { return boom })
	assert.Equal(t, StateOpen, cb.GetState())

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)
}

func TestCircuitBreaker_IgnoredAndCancelledErrors(t *testing.T) {
	missing := errors.New("missing")
	cb := NewCircuitBreaker("store", 1, time.Minute).IgnoreErrors(func(err error) bool {
		return errors.Is(err, missing)
	})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return missing }), missing)
	}
	assert.Equal(t, StateClosed, cb.GetState())

	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.GetState())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	_ = cb.Call(func() error { return errors.New("boom") })
	assert.Equal(t, StateOpen, cb.GetState())
	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_CancelledCallKeepsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("store", 3, time.Minute)
	boom := errors.New("boom")
	cancelled := func(context.Context) error { return context.Canceled }

	_ = cb.Call(func() error { return boom })
	_ = cb.Call(func() error { return boom })
	assert.ErrorIs(t, cb.Execute(context.Background(), cancelled), context.Canceled)
	assert.Equal(t, StateClosed, cb.GetState())

	_ = cb.Call(func() error { return boom })
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_CancelledCallInHalfOpenFreesSlot(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("store", 1, time.Second)
	cb.now = func() time.Time { return now }

	_ = cb.Call(func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.GetState())

	now = now.Add(2 * time.Second)
	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateHalfOpen, cb.GetState(), "a cancelled trial call does not close the breaker")

	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}
