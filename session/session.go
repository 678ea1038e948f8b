//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package session provides conversation session lifecycle and bounded
// history tracking.
package session

import (
	"context"
	"time"
)

// Session is the stored state of one conversation.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	QueryCount   int       `json:"queryCount"`
}

// HistoryEntry is one query/answer turn within a session.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	SQL       string    `json:"sqlQuery"`
}

// Stats summarizes a session for inspection endpoints.
type Stats struct {
	SessionID    string        `json:"sessionId"`
	TotalQueries int           `json:"totalQueries"`
	CreatedAt    *time.Time    `json:"createdAt,omitempty"`
	LastActivity *time.Time    `json:"lastActivity,omitempty"`
	TTL          time.Duration `json:"ttl"`
}

// FailurePolicy controls how store errors surface from read operations.
type FailurePolicy int

const (
	// Degrade swallows store errors and returns empty defaults, keeping
	// the primary query path alive when the backing store is unreachable.
	Degrade FailurePolicy = iota
	// FailFast propagates store errors to the caller.
	FailFast
)

// Service is the session store contract.
//
// CreateSession always returns a usable identifier: when the backing
// store is unreachable the record is simply not persisted and later
// history reads for that id behave as an empty history. AddToHistory is
// best-effort and never aborts the caller's response path.
type Service interface {
	// CreateSession generates a fresh session id and persists its record.
	CreateSession(ctx context.Context) (string, error)
	// AddToHistory prepends a turn, trims history to the configured
	// limit, refreshes TTLs and updates session activity counters.
	AddToHistory(ctx context.Context, sessionID, query, answer, sql string) error
	// GetConversationHistory returns the session's turns oldest first.
	// Unknown sessions and unreachable stores yield an empty slice.
	GetConversationHistory(ctx context.Context, sessionID string) ([]HistoryEntry, error)
	// ExtendSession refreshes the TTL of the session and its history.
	ExtendSession(ctx context.Context, sessionID string) error
	// ClearSession deletes the session, its history and any cached query
	// results scoped to it.
	ClearSession(ctx context.Context, sessionID string) error
	// CleanupExpiredSessions scans known sessions, assigns the default
	// TTL to keys missing one and clears sessions whose TTL ran out. It
	// returns the number of sessions cleared.
	CleanupExpiredSessions(ctx context.Context) (int, error)
	// Stats reports per-session counters.
	Stats(ctx context.Context, sessionID string) (*Stats, error)
	// HealthCheck reports whether the backing store is reachable.
	HealthCheck(ctx context.Context) bool
}
