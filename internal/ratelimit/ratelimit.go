//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package ratelimit provides sliding-window admission control per client
// identity. State is process-local; multi-instance deployments that must
// share one limit need an externally coordinated window instead.
package ratelimit

import (
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-sqlchat-go/log"
)

// Window is the trailing period over which requests are counted.
const Window = 60 * time.Second

// sweepInterval bounds how often empty per-client entries are removed.
const sweepInterval = 60 * time.Second

// Limiter admits at most limit requests per client within the trailing
// window. Timestamps older than the window are evicted lazily on each
// check; an opportunistic sweep removes empty client entries to bound
// memory.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	windows   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiter creates a limiter admitting limit requests per client per
// window.
func NewLimiter(limit int) *Limiter {
	return &Limiter{
		limit:     limit,
		windows:   make(map[string][]time.Time),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Admit reports whether the client may proceed, recording the request
// timestamp on admission.
func (l *Limiter) Admit(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-Window)

	window := l.windows[clientID]
	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.windows[clientID] = kept
		l.maybeSweep(now)
		log.Debugf("rate limit exceeded for client %s: %d requests in window", clientID, len(kept))
		return false
	}

	l.windows[clientID] = append(kept, now)
	l.maybeSweep(now)
	return true
}

// maybeSweep removes empty per-client windows. It piggybacks on Admit
// calls rather than running on its own clock. Caller holds l.mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	cutoff := now.Add(-Window)
	removed := 0
	for id, window := range l.windows {
		live := false
		for _, ts := range window {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.windows, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("rate limiter sweep removed %d idle clients", removed)
	}
}

// ClientCount returns the number of tracked clients.
func (l *Limiter) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
