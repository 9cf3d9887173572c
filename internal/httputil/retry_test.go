// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps test sleeps negligible.
var fastPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2.0}

func TestPolicy_ImmediateSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := fastPolicy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("backend down")
	calls := 0
	err := fastPolicy.Do(context.Background(), func() error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// The sentinel must survive wrapping for taxonomy checks upstream.
	assert.True(t, errors.Is(err, sentinel))
}

func TestPolicy_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := Policy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2.0}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- slow.Do(ctx, func() error {
			calls++
			return errors.New("always fails")
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestPolicy_ZeroValueUsesDefaults(t *testing.T) {
	p := Policy{}.normalized()
	assert.Equal(t, DefaultPolicy.MaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultPolicy.BaseDelay, p.BaseDelay)
	assert.Equal(t, DefaultPolicy.Multiplier, p.Multiplier)
}
