//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads application settings from environment variables
// with sensible defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Redis holds key-value store settings.
type Redis struct {
	URL string
}

// Database holds the analytics database settings.
type Database struct {
	URL          string
	MaxConns     int
	ConnTimeout  time.Duration
	QueryTimeout time.Duration
}

// LLM holds generative model settings.
type LLM struct {
	APIKey                string
	BaseURL               string
	Model                 string
	GenerationTemperature float64
	SummaryTemperature    float64
	SuggestionTemperature float64
}

// Cache holds result and schema cache settings.
type Cache struct {
	Enabled        bool
	QueryCacheTTL  time.Duration
	SchemaCacheTTL time.Duration
}

// Memory holds session store settings.
type Memory struct {
	SessionTTL   time.Duration
	HistoryLimit int
}

// API holds HTTP front end settings.
type API struct {
	Addr               string
	RateLimitPerMinute int
	JobTimeout         time.Duration
}

// Worker holds orchestrator pool settings.
type Worker struct {
	PoolSize int
}

// Config is the root configuration object.
type Config struct {
	Redis    Redis
	Database Database
	LLM      LLM
	Cache    Cache
	Memory   Memory
	API      API
	Worker   Worker
	LogLevel string
}

// Load builds a Config from the process environment.
func Load() *Config {
	return &Config{
		Redis: Redis{
			URL: getenv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Database: Database{
			URL:          getenv("DATABASE_URL", "postgres://postgres@localhost:5432/nps_db"),
			MaxConns:     getenvInt("DB_MAX_CONNS", 20),
			ConnTimeout:  getenvDuration("DB_CONN_TIMEOUT", 5*time.Second),
			QueryTimeout: getenvDuration("DB_QUERY_TIMEOUT", 30*time.Second),
		},
		LLM: LLM{
			APIKey:                getenv("OPENAI_API_KEY", ""),
			BaseURL:               getenv("LLM_BASE_URL", ""),
			Model:                 getenv("LLM_MODEL", "gpt-4.1-mini"),
			GenerationTemperature: getenvFloat("GENERATION_TEMPERATURE", 0.0),
			SummaryTemperature:    getenvFloat("SUMMARY_TEMPERATURE", 0.3),
			SuggestionTemperature: getenvFloat("SUGGESTION_TEMPERATURE", 0.5),
		},
		Cache: Cache{
			Enabled:        getenvBool("ENABLE_QUERY_CACHE", true),
			QueryCacheTTL:  getenvDuration("QUERY_CACHE_TTL", 300*time.Second),
			SchemaCacheTTL: getenvDuration("SCHEMA_CACHE_TTL", time.Hour),
		},
		Memory: Memory{
			SessionTTL:   getenvDuration("SESSION_TTL", 24*time.Hour),
			HistoryLimit: getenvInt("HISTORY_LIMIT", 10),
		},
		API: API{
			Addr:               getenv("API_ADDR", ":8080"),
			RateLimitPerMinute: getenvInt("API_RATE_LIMIT", 30),
			JobTimeout:         getenvDuration("JOB_TIMEOUT", 30*time.Second),
		},
		Worker: Worker{
			PoolSize: getenvInt("WORKER_POOL_SIZE", 8),
		},
		LogLevel: getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvDuration reads a duration expressed either as a Go duration string
// or as a plain number of seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
