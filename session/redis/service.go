//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides the redis session service.
//
// storage structure:
// Session: session:<id> -> Session(json) (sessionTTL)
// History: history:<id> -> list [HistoryEntry(json), newest first] (sessionTTL)
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-sqlchat-go/cache"
	"trpc.group/trpc-go/trpc-sqlchat-go/log"
	"trpc.group/trpc-go/trpc-sqlchat-go/session"
	storage "trpc.group/trpc-go/trpc-sqlchat-go/storage/redis"
)

var _ session.Service = (*Service)(nil)

const (
	sessionKeyPrefix = "session:"
	historyKeyPrefix = "history:"
	scanBatch        = 200
)

// Service is the redis session service.
type Service struct {
	opts        ServiceOpts
	redisClient redis.UniversalClient
}

// NewService creates a new redis session service.
func NewService(options ...ServiceOpt) (*Service, error) {
	opts := defaultOptions
	for _, option := range options {
		option(&opts)
	}
	redisClient, err := storage.NewClient(opts.url)
	if err != nil {
		return nil, fmt.Errorf("create redis client failed: %w", err)
	}
	return &Service{opts: opts, redisClient: redisClient}, nil
}

// NewServiceWithClient creates a redis session service on an existing client.
func NewServiceWithClient(client redis.UniversalClient, options ...ServiceOpt) *Service {
	opts := defaultOptions
	for _, option := range options {
		option(&opts)
	}
	return &Service{opts: opts, redisClient: client}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func historyKey(id string) string { return historyKeyPrefix + id }

// CreateSession generates a fresh session id and persists its record.
// When the store is unreachable the id is still returned; the session is
// simply not durable and later reads behave as an empty history.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	id := uuid.New().String()
	sess := session.Session{
		ID:           id,
		CreatedAt:    time.Now().UTC(),
		LastActivity: time.Now().UTC(),
		QueryCount:   0,
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return id, fmt.Errorf("marshal session failed: %w", err)
	}
	if err := s.redisClient.Set(ctx, sessionKey(id), payload, s.opts.sessionTTL).Err(); err != nil {
		if s.opts.policy == session.FailFast {
			return id, fmt.Errorf("persist session failed: %w", err)
		}
		log.Errorf("persist session %s failed, continuing without durable record: %v", id, err)
	}
	log.Infof("created session %s", id)
	return id, nil
}

// AddToHistory prepends a turn, trims history to the configured limit,
// refreshes both TTLs and updates the session's activity counters.
// Recording is best-effort; failures never abort the response path.
func (s *Service) AddToHistory(ctx context.Context, sessionID, query, answer, sql string) error {
	entry := session.HistoryEntry{
		Timestamp: time.Now().UTC(),
		Query:     query,
		Answer:    answer,
		SQL:       sql,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return s.degrade(fmt.Errorf("marshal history entry failed: %w", err))
	}

	key := historyKey(sessionID)
	pipe := s.redisClient.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(s.opts.historyLimit-1))
	pipe.Expire(ctx, key, s.opts.sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return s.degrade(fmt.Errorf("append history for %s failed: %w", sessionID, err))
	}

	if err := s.touchSession(ctx, sessionID); err != nil {
		return s.degrade(err)
	}
	return nil
}

// touchSession bumps last_activity and query_count, keeping the TTL fresh.
func (s *Service) touchSession(ctx context.Context, sessionID string) error {
	key := sessionKey(sessionID)
	payload, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("read session %s failed: %w", sessionID, err)
	}
	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return fmt.Errorf("decode session %s failed: %w", sessionID, err)
	}
	sess.LastActivity = time.Now().UTC()
	sess.QueryCount++
	updated, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s failed: %w", sessionID, err)
	}
	if err := s.redisClient.Set(ctx, key, updated, s.opts.sessionTTL).Err(); err != nil {
		return fmt.Errorf("update session %s failed: %w", sessionID, err)
	}
	return nil
}

// GetConversationHistory returns the session's turns oldest first. The
// store keeps them newest first, so the order is reversed on read.
func (s *Service) GetConversationHistory(ctx context.Context, sessionID string) ([]session.HistoryEntry, error) {
	exists, err := s.redisClient.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return []session.HistoryEntry{}, s.degrade(fmt.Errorf("check session %s failed: %w", sessionID, err))
	}
	if exists == 0 {
		log.Debugf("session %s does not exist", sessionID)
		return []session.HistoryEntry{}, nil
	}

	raw, err := s.redisClient.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return []session.HistoryEntry{}, s.degrade(fmt.Errorf("read history for %s failed: %w", sessionID, err))
	}

	history := make([]session.HistoryEntry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var entry session.HistoryEntry
		if err := json.Unmarshal([]byte(raw[i]), &entry); err != nil {
			log.Warnf("skipping undecodable history entry in %s: %v", sessionID, err)
			continue
		}
		history = append(history, entry)
	}
	return history, nil
}

// ExtendSession refreshes the TTL on both the session and its history.
// Extending an unknown session is a logged no-op.
func (s *Service) ExtendSession(ctx context.Context, sessionID string) error {
	key := sessionKey(sessionID)
	payload, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			log.Warnf("attempted to extend non-existent session %s", sessionID)
			return nil
		}
		return s.degrade(fmt.Errorf("read session %s failed: %w", sessionID, err))
	}
	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return s.degrade(fmt.Errorf("decode session %s failed: %w", sessionID, err))
	}
	sess.LastActivity = time.Now().UTC()
	updated, err := json.Marshal(sess)
	if err != nil {
		return s.degrade(fmt.Errorf("marshal session %s failed: %w", sessionID, err))
	}

	pipe := s.redisClient.Pipeline()
	pipe.Set(ctx, key, updated, s.opts.sessionTTL)
	pipe.Expire(ctx, historyKey(sessionID), s.opts.sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return s.degrade(fmt.Errorf("extend session %s failed: %w", sessionID, err))
	}
	log.Debugf("extended session %s", sessionID)
	return nil
}

// ClearSession deletes the session, its history and every cached query
// result scoped to it.
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	if err := s.redisClient.Del(ctx, sessionKey(sessionID), historyKey(sessionID)).Err(); err != nil {
		return s.degrade(fmt.Errorf("delete session %s failed: %w", sessionID, err))
	}

	var cursor uint64
	for {
		keys, next, err := s.redisClient.Scan(ctx, cursor, cache.SessionPattern(sessionID), scanBatch).Result()
		if err != nil {
			return s.degrade(fmt.Errorf("scan cached results for %s failed: %w", sessionID, err))
		}
		if len(keys) > 0 {
			if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
				return s.degrade(fmt.Errorf("delete cached results for %s failed: %w", sessionID, err))
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	log.Infof("cleared session %s", sessionID)
	return nil
}

// CleanupExpiredSessions scans all session keys, assigns the default TTL
// to keys missing one and clears sessions whose TTL ran out.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int, error) {
	cleaned := 0
	var cursor uint64
	for {
		keys, next, err := s.redisClient.Scan(ctx, cursor, sessionKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return cleaned, s.degrade(fmt.Errorf("scan sessions failed: %w", err))
		}
		for _, key := range keys {
			ttl, err := s.redisClient.TTL(ctx, key).Result()
			if err != nil {
				log.Warnf("ttl check for %s failed: %v", key, err)
				continue
			}
			if s.reapSession(ctx, key, ttl) {
				cleaned++
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if cleaned > 0 {
		log.Infof("cleaned up %d expired sessions", cleaned)
	}
	return cleaned, nil
}

// reapSession applies the cleanup policy to one scanned session key and
// reports whether the session was cleared. go-redis reports the redis
// sentinels -2 (missing) and -1 (no expiry) as raw negative durations;
// a live store otherwise returns positive TTLs, so the expired branch
// guards the zero boundary for a key caught exactly at expiry.
func (s *Service) reapSession(ctx context.Context, key string, ttl time.Duration) bool {
	switch {
	case ttl == -2:
		// Key vanished between SCAN and TTL.
	case ttl == -1:
		if err := s.redisClient.Expire(ctx, key, s.opts.sessionTTL).Err(); err != nil {
			log.Warnf("assign ttl to %s failed: %v", key, err)
		}
	case ttl <= 0:
		sessionID := key[len(sessionKeyPrefix):]
		if err := s.ClearSession(ctx, sessionID); err != nil {
			log.Warnf("clear expired session %s failed: %v", sessionID, err)
			return false
		}
		return true
	}
	return false
}

// Stats reports per-session counters.
func (s *Service) Stats(ctx context.Context, sessionID string) (*session.Stats, error) {
	stats := &session.Stats{SessionID: sessionID, TTL: -1}

	total, err := s.redisClient.LLen(ctx, historyKey(sessionID)).Result()
	if err != nil {
		return stats, s.degrade(fmt.Errorf("history length for %s failed: %w", sessionID, err))
	}
	stats.TotalQueries = int(total)

	payload, err := s.redisClient.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == nil {
		var sess session.Session
		if err := json.Unmarshal(payload, &sess); err == nil {
			stats.CreatedAt = &sess.CreatedAt
			stats.LastActivity = &sess.LastActivity
		}
	}
	if ttl, err := s.redisClient.TTL(ctx, sessionKey(sessionID)).Result(); err == nil {
		stats.TTL = ttl
	}
	return stats, nil
}

// HealthCheck reports whether the backing store answers a ping.
func (s *Service) HealthCheck(ctx context.Context) bool {
	return s.redisClient.Ping(ctx).Err() == nil
}

// degrade converts a store error into a logged nil under the Degrade
// policy and propagates it under FailFast.
func (s *Service) degrade(err error) error {
	if err == nil {
		return nil
	}
	if s.opts.policy == session.FailFast {
		return err
	}
	log.Errorf("session store degraded: %v", err)
	return nil
}
