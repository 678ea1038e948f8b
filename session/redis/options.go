//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package redis

import (
	"time"

	"trpc.group/trpc-go/trpc-sqlchat-go/session"
)

const (
	defaultSessionTTL   = 24 * time.Hour
	defaultHistoryLimit = 10
)

// ServiceOpts is the options for the redis session service.
type ServiceOpts struct {
	url          string
	sessionTTL   time.Duration
	historyLimit int
	policy       session.FailurePolicy
}

// ServiceOpt is the option for the redis session service.
type ServiceOpt func(*ServiceOpts)

var defaultOptions = ServiceOpts{
	sessionTTL:   defaultSessionTTL,
	historyLimit: defaultHistoryLimit,
	policy:       session.Degrade,
}

// WithRedisClientURL creates a redis client from URL and sets it to the service.
func WithRedisClientURL(url string) ServiceOpt {
	return func(opts *ServiceOpts) {
		opts.url = url
	}
}

// WithSessionTTL sets the lifetime of sessions and their history.
func WithSessionTTL(ttl time.Duration) ServiceOpt {
	return func(opts *ServiceOpts) {
		opts.sessionTTL = ttl
	}
}

// WithHistoryLimit bounds the number of retained history entries per session.
func WithHistoryLimit(limit int) ServiceOpt {
	return func(opts *ServiceOpts) {
		opts.historyLimit = limit
	}
}

// WithFailurePolicy selects degrade-to-default or fail-fast behavior for
// store-backed reads.
func WithFailurePolicy(policy session.FailurePolicy) ServiceOpt {
	return func(opts *ServiceOpts) {
		opts.policy = policy
	}
}
