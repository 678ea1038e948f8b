//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second},
		"op", func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second},
		"op", func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoPropagatesLastErrorUnchanged(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second},
		"op", func(ctx context.Context) (struct{}, error) {
			calls++
			return struct{}{}, sentinel
		})
	assert.Equal(t, 3, calls)
	// The final failure must surface the original error, not a wrapped copy.
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "boom", err.Error())
}

func TestDelayIsDeterministicAndCapped(t *testing.T) {
	p := Policy{Attempts: 10, BaseDelay: time.Second, MaxDelay: 4 * time.Second}
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 4*time.Second, p.Delay(40))
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, Policy{Attempts: 3, BaseDelay: time.Minute, MaxDelay: time.Minute},
			"op", func(ctx context.Context) (struct{}, error) {
				calls++
				return struct{}{}, errors.New("transient")
			})
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}
