//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package retry provides bounded retry with exponential backoff for
// fallible operations.
package retry

import (
	"context"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-sqlchat-go/log"
)

// Default policy values, matching the service-wide retry configuration.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 60 * time.Second
)

// Policy describes how an operation is retried. Delays are deterministic
// given the attempt index: min(BaseDelay * 2^attempt, MaxDelay). No jitter
// is applied.
type Policy struct {
	// Attempts is the total number of executions, including the first one.
	Attempts int
	// BaseDelay is the delay before the second execution.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth of the delay.
	MaxDelay time.Duration
}

// DefaultPolicy returns the service-wide default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  DefaultAttempts,
		BaseDelay: DefaultBaseDelay,
		MaxDelay:  DefaultMaxDelay,
	}
}

// Delay returns the backoff delay applied after the given zero-based
// failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay << attempt
	if delay > p.MaxDelay || delay <= 0 {
		return p.MaxDelay
	}
	return delay
}

// Do executes op up to p.Attempts times. On each failure except the last,
// it sleeps for the backoff delay and retries; on the final failure, the
// error is propagated unchanged. The sleep honors ctx cancellation.
func Do[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				log.Debugf("operation %s succeeded after %d attempts", name, attempt+1)
			}
			return result, nil
		}
		lastErr = err
		if attempt == p.Attempts-1 {
			break
		}
		delay := p.Delay(attempt)
		log.Warnf("operation %s attempt %d failed, retrying in %s: %v", name, attempt+1, delay, err)
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("operation %s cancelled during retry backoff: %w", name, ctx.Err())
		case <-time.After(delay):
		}
	}
	log.Errorf("operation %s exhausted %d attempts: %v", name, p.Attempts, lastErr)
	return zero, lastErr
}
