//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package cache provides the dual-keyed query result cache. Results are
// stored under a session-scoped key and a global key derived from the
// normalized query text, so identical questions hit the cache regardless
// of casing, spacing or originating session.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-sqlchat-go/log"
)

// KeyPrefix is the namespace for cached query results.
const KeyPrefix = "query_result:"

// DefaultTTL is the default lifetime of a cached result.
const DefaultTTL = 300 * time.Second

// scanBatch is the SCAN page size for bulk deletes.
const scanBatch = 200

// ResultCache caches computed query results in redis. All failures are
// logged and degrade to cache misses; the cache never fails the caller's
// primary path.
type ResultCache struct {
	client  redis.UniversalClient
	ttl     time.Duration
	enabled bool
}

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *ResultCache) {
		c.ttl = ttl
	}
}

// WithEnabled toggles the cache. When disabled, Get always misses and
// Put is a no-op.
func WithEnabled(enabled bool) Option {
	return func(c *ResultCache) {
		c.enabled = enabled
	}
}

// New creates a ResultCache on the given redis client.
func New(client redis.UniversalClient, opts ...Option) *ResultCache {
	c := &ResultCache{
		client:  client,
		ttl:     DefaultTTL,
		enabled: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize lowercases the query text and collapses runs of whitespace
// into single spaces. Identical normalized text always yields identical
// cache keys.
func Normalize(queryText string) string {
	return strings.Join(strings.Fields(strings.ToLower(queryText)), " ")
}

// GlobalKey derives the session-independent cache key for a query.
func GlobalKey(queryText string) string {
	return KeyPrefix + hashText(Normalize(queryText))
}

// SessionKey derives the session-scoped cache key for a query.
func SessionKey(sessionID, queryText string) string {
	return KeyPrefix + sessionID + ":" + hashText(Normalize(queryText))
}

// SessionPattern matches every cached result scoped to a session.
func SessionPattern(sessionID string) string {
	return KeyPrefix + sessionID + ":*"
}

// Hash returns the hex digest of the normalized query text, the building
// block of every derived cache key.
func Hash(queryText string) string {
	return hashText(Normalize(queryText))
}

func hashText(normalized string) string {
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get looks up a cached result, trying the session-scoped key first when
// sessionID is non-empty, then the global key. The payload is unmarshaled
// into dst on a hit.
func (c *ResultCache) Get(ctx context.Context, queryText, sessionID string, dst any) bool {
	if !c.enabled {
		return false
	}
	keys := make([]string, 0, 2)
	if sessionID != "" {
		keys = append(keys, SessionKey(sessionID, queryText))
	}
	keys = append(keys, GlobalKey(queryText))

	for _, key := range keys {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Warnf("cache read failed for %s: %v", key, err)
			}
			continue
		}
		if err := json.Unmarshal(payload, dst); err != nil {
			log.Warnf("cache entry %s is not decodable: %v", key, err)
			continue
		}
		log.Debugf("cache hit on %s (%d bytes)", key, len(payload))
		return true
	}
	return false
}

// Put writes the result under the global key and, when sessionID is
// non-empty, the session-scoped key, both with the configured TTL.
// Failures are logged and swallowed.
func (c *ResultCache) Put(ctx context.Context, queryText, sessionID string, payload any) {
	if !c.enabled {
		return
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		log.Warnf("cache payload not serializable: %v", err)
		return
	}
	pipe := c.client.Pipeline()
	pipe.Set(ctx, GlobalKey(queryText), encoded, c.ttl)
	if sessionID != "" {
		pipe.Set(ctx, SessionKey(sessionID, queryText), encoded, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warnf("cache write failed: %v", err)
	}
}

// ClearAll deletes every entry under the cache namespace and returns the
// number of keys removed.
func (c *ResultCache) ClearAll(ctx context.Context) (int, error) {
	var cursor uint64
	removed := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return removed, err
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
