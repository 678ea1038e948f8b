//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 24*time.Hour, cfg.Memory.SessionTTL)
	assert.Equal(t, 10, cfg.Memory.HistoryLimit)
	assert.Equal(t, 300*time.Second, cfg.Cache.QueryCacheTTL)
	assert.Equal(t, time.Hour, cfg.Cache.SchemaCacheTTL)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30, cfg.API.RateLimitPerMinute)
	assert.Equal(t, 30*time.Second, cfg.API.JobTimeout)
	assert.Equal(t, 8, cfg.Worker.PoolSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6380/1")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("QUERY_CACHE_TTL", "600")
	t.Setenv("ENABLE_QUERY_CACHE", "false")
	t.Setenv("API_RATE_LIMIT", "5")
	t.Setenv("GENERATION_TEMPERATURE", "0.7")

	cfg := Load()

	assert.Equal(t, "redis://cache:6380/1", cfg.Redis.URL)
	assert.Equal(t, time.Hour, cfg.Memory.SessionTTL)
	// Plain numbers are read as seconds.
	assert.Equal(t, 600*time.Second, cfg.Cache.QueryCacheTTL)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5, cfg.API.RateLimitPerMinute)
	assert.Equal(t, 0.7, cfg.LLM.GenerationTemperature)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("API_RATE_LIMIT", "plenty")
	t.Setenv("SESSION_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 30, cfg.API.RateLimitPerMinute)
	assert.Equal(t, 24*time.Hour, cfg.Memory.SessionTTL)
}
