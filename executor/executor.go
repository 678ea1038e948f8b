//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package executor defines the SQL execution contract. Execution failures
// are represented in the result value, never as a returned error, so the
// orchestrator can route them into the correction loop.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// QueryResult is the outcome of executing one SQL statement.
type QueryResult struct {
	Success       bool     `json:"success"`
	Columns       []string `json:"columns,omitempty"`
	Rows          [][]any  `json:"results,omitempty"`
	RowCount      int      `json:"rowCount"`
	Error         string   `json:"error,omitempty"`
	ExecutionTime float64  `json:"executionTime"`
}

// Executor runs SQL against the analytics database.
type Executor interface {
	// Execute runs the statement and reports the outcome in the result
	// value. Implementations never return a Go error for SQL failures.
	Execute(ctx context.Context, sql string) *QueryResult
}

// Failure builds a failed result.
func Failure(err error, elapsed time.Duration) *QueryResult {
	return &QueryResult{
		Success:       false,
		Error:         err.Error(),
		ExecutionTime: elapsed.Seconds(),
	}
}

// NormalizeValue converts a driver value into a JSON-friendly, lossless
// textual form: timestamps become RFC 3339 strings, arbitrary-precision
// numerics become decimal strings, byte slices become strings.
func NormalizeValue(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case time.Time:
		return value.Format(time.RFC3339Nano)
	case []byte:
		return string(value)
	case *big.Int:
		return value.String()
	case *big.Float:
		return value.Text('f', -1)
	case json.Number:
		return value.String()
	case fmt.Stringer:
		return value.String()
	default:
		return value
	}
}

// NormalizeRow applies NormalizeValue to every column of a row.
func NormalizeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = NormalizeValue(v)
	}
	return out
}
