//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-sqlchat-go/internal/retry"
	"trpc.group/trpc-go/trpc-sqlchat-go/log"
)

// ErrUnavailable marks schema retrieval that failed after retries.
var ErrUnavailable = errors.New("schema unavailable")

// Introspector reads column layouts from the database.
type Introspector interface {
	// Columns returns the column layout of one table.
	Columns(ctx context.Context, table string) ([]Column, error)
}

// Provider serves schema snapshots, cached in redis under CacheKey with
// an independent TTL. Introspection is retried with backoff.
type Provider struct {
	client       redis.UniversalClient
	introspector Introspector
	tables       []string
	ttl          time.Duration
	policy       retry.Policy
}

// Option configures a Provider.
type Option func(*Provider)

// WithCacheTTL sets the snapshot cache lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		p.ttl = ttl
	}
}

// WithRetryPolicy sets the introspection retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Provider) {
		p.policy = policy
	}
}

// WithTables overrides the set of introspected tables.
func WithTables(tables []string) Option {
	return func(p *Provider) {
		p.tables = tables
	}
}

// NewProvider creates a Provider over the given store and introspector.
func NewProvider(client redis.UniversalClient, introspector Introspector, opts ...Option) *Provider {
	p := &Provider{
		client:       client,
		introspector: introspector,
		tables: []string{
			"hyb_nps_dtl",
			"dm_empmast",
			"hyb_order_detail",
			"hyb_product_data",
		},
		ttl:    DefaultCacheTTL,
		policy: retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetSchema returns the schema snapshot, serving from cache when
// possible. A cache read failure degrades to introspection; an
// introspection failure after retries surfaces as ErrUnavailable.
func (p *Provider) GetSchema(ctx context.Context) (*Snapshot, error) {
	if cached := p.readCache(ctx); cached != nil {
		return cached, nil
	}

	snapshot, err := retry.Do(ctx, p.policy, "schema introspection", func(ctx context.Context) (*Snapshot, error) {
		return p.introspect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.writeCache(ctx, snapshot)
	return snapshot, nil
}

// Refresh re-introspects and overwrites the cached snapshot. Used by the
// periodic schema warm loop.
func (p *Provider) Refresh(ctx context.Context) error {
	snapshot, err := retry.Do(ctx, p.policy, "schema introspection", func(ctx context.Context) (*Snapshot, error) {
		return p.introspect(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	p.writeCache(ctx, snapshot)
	return nil
}

func (p *Provider) readCache(ctx context.Context) *Snapshot {
	payload, err := p.client.Get(ctx, CacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("schema cache read failed: %v", err)
		}
		return nil
	}
	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		log.Warnf("failed to parse cached schema: %v", err)
		return nil
	}
	return &snapshot
}

func (p *Provider) writeCache(ctx context.Context, snapshot *Snapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Warnf("schema snapshot not serializable: %v", err)
		return
	}
	if err := p.client.Set(ctx, CacheKey, payload, p.ttl).Err(); err != nil {
		log.Warnf("schema cache write failed: %v", err)
	}
}

func (p *Provider) introspect(ctx context.Context) (*Snapshot, error) {
	snapshot := &Snapshot{
		Database: DatabaseName,
		Tables:   make(map[string][]Column, len(p.tables)),
	}
	for _, table := range p.tables {
		columns, err := p.introspector.Columns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("introspect table %s: %w", table, err)
		}
		snapshot.Tables[table] = columns
	}
	return snapshot, nil
}
