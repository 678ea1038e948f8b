//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package schema provides the cached database schema snapshot consumed by
// SQL generation and correction.
package schema

import (
	"encoding/json"
	"time"
)

// CacheKey is the fixed redis key the snapshot is cached under,
// independent of per-query result caching.
const CacheKey = "db_schema"

// DefaultCacheTTL is the snapshot cache lifetime.
const DefaultCacheTTL = time.Hour

// DatabaseName is the logical database the snapshot describes.
const DatabaseName = "nps_db"

// Column describes one table column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Snapshot is the schema context handed to the model: column layouts for
// every whitelisted table.
type Snapshot struct {
	Database string              `json:"database"`
	Tables   map[string][]Column `json:"tables"`
}

// JSON renders the snapshot for embedding into prompts.
func (s *Snapshot) JSON() string {
	encoded, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
