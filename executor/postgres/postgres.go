//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package postgres provides the pgx-backed SQL executor.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"trpc.group/trpc-go/trpc-sqlchat-go/executor"
	"trpc.group/trpc-go/trpc-sqlchat-go/log"
)

var _ executor.Executor = (*Executor)(nil)

// Executor runs statements on a pgx connection pool.
type Executor struct {
	pool *pgxpool.Pool
}

// New creates an executor from a postgres URL.
func New(ctx context.Context, url string, maxConns int) (*Executor, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Executor{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *Executor {
	return &Executor{pool: pool}
}

// Pool returns the underlying connection pool so other components can
// share it.
func (e *Executor) Pool() *pgxpool.Pool {
	return e.pool
}

// Close releases the underlying pool.
func (e *Executor) Close() {
	e.pool.Close()
}

// Ping reports database reachability.
func (e *Executor) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

// Execute runs the statement. SQL failures are reported in the result
// value so the caller can route them into the correction loop.
func (e *Executor) Execute(ctx context.Context, sql string) *executor.QueryResult {
	start := time.Now()

	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		log.Errorf("sql execution error: %v", err)
		return executor.Failure(err, time.Since(start))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name
	}

	results := make([][]any, 0, 64)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			log.Errorf("sql row decode error: %v", err)
			return executor.Failure(err, time.Since(start))
		}
		results = append(results, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		log.Errorf("sql execution error: %v", err)
		return executor.Failure(err, time.Since(start))
	}

	return &executor.QueryResult{
		Success:       true,
		Columns:       columns,
		Rows:          results,
		RowCount:      len(results),
		ExecutionTime: time.Since(start).Seconds(),
	}
}

// normalizeRow converts pgx values into JSON-friendly lossless forms;
// numeric columns keep their full precision as decimal strings.
func normalizeRow(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch value := v.(type) {
		case pgtype.Numeric:
			if text, err := value.Value(); err == nil {
				out[i] = text
			} else {
				out[i] = executor.NormalizeValue(v)
			}
		default:
			out[i] = executor.NormalizeValue(v)
		}
	}
	return out
}
