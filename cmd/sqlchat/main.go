//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Command sqlchat runs the natural-language SQL chat service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trpc.group/trpc-go/trpc-sqlchat-go/agent"
	"trpc.group/trpc-go/trpc-sqlchat-go/cache"
	"trpc.group/trpc-go/trpc-sqlchat-go/config"
	"trpc.group/trpc-go/trpc-sqlchat-go/correction"
	executorpg "trpc.group/trpc-go/trpc-sqlchat-go/executor/postgres"
	"trpc.group/trpc-go/trpc-sqlchat-go/log"
	modelopenai "trpc.group/trpc-go/trpc-sqlchat-go/model/openai"
	"trpc.group/trpc-go/trpc-sqlchat-go/orchestrator"
	"trpc.group/trpc-go/trpc-sqlchat-go/schema"
	"trpc.group/trpc-go/trpc-sqlchat-go/server"
	"trpc.group/trpc-go/trpc-sqlchat-go/session"
	sessionredis "trpc.group/trpc-go/trpc-sqlchat-go/session/redis"
	storageredis "trpc.group/trpc-go/trpc-sqlchat-go/storage/redis"
)

const (
	sessionCleanupInterval = time.Hour
	schemaRefreshInterval  = time.Hour
	shutdownTimeout        = 10 * time.Second
)

func main() {
	// Absent .env is fine; the environment still applies.
	_ = godotenv.Load()
	cfg := config.Load()
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := storageredis.NewClient(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	exec, err := executorpg.New(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres pool: %v", err)
	}
	defer exec.Close()

	sessions := sessionredis.NewServiceWithClient(redisClient,
		sessionredis.WithSessionTTL(cfg.Memory.SessionTTL),
		sessionredis.WithHistoryLimit(cfg.Memory.HistoryLimit),
	)
	resultCache := cache.New(redisClient,
		cache.WithTTL(cfg.Cache.QueryCacheTTL),
		cache.WithEnabled(cfg.Cache.Enabled),
	)
	schemaProvider := schema.NewProvider(redisClient, schema.NewPostgresIntrospector(exec.Pool()),
		schema.WithCacheTTL(cfg.Cache.SchemaCacheTTL),
	)

	var modelOpts []modelopenai.Option
	if cfg.LLM.APIKey != "" {
		modelOpts = append(modelOpts, modelopenai.WithAPIKey(cfg.LLM.APIKey))
	}
	if cfg.LLM.BaseURL != "" {
		modelOpts = append(modelOpts, modelopenai.WithBaseURL(cfg.LLM.BaseURL))
	}
	gen := modelopenai.New(cfg.LLM.Model, modelOpts...)

	analyzer := agent.NewAnalyzer(gen, cfg.LLM.GenerationTemperature)
	orch, err := orchestrator.New(orchestrator.Dependencies{
		Cache:      resultCache,
		Sessions:   sessions,
		Schema:     schemaProvider,
		Translator: agent.NewTranslator(gen, cfg.LLM.GenerationTemperature, 0),
		Executor:   exec,
		Summarizer: agent.NewSummarizer(gen, cfg.LLM.SummaryTemperature),
		Suggester:  agent.NewSuggester(gen, redisClient, cfg.LLM.SuggestionTemperature),
		Corrector:  correction.NewMachine(analyzer),
	},
		orchestrator.WithPoolSize(cfg.Worker.PoolSize),
		orchestrator.WithRateLimit(cfg.API.RateLimitPerMinute),
	)
	if err != nil {
		log.Fatalf("orchestrator: %v", err)
	}
	defer orch.Close()

	go maintenanceLoop(ctx, sessions, schemaProvider)

	srv := &http.Server{
		Addr:    cfg.API.Addr,
		Handler: server.New(orch, sessions, schemaProvider, server.WithAwaitTimeout(cfg.API.JobTimeout)).Handler(),
	}
	go func() {
		log.Infof("listening on %s", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
		os.Exit(1)
	}
}

// maintenanceLoop runs the periodic background chores: clearing expired
// sessions and keeping the schema cache warm.
func maintenanceLoop(ctx context.Context, sessions session.Service, provider *schema.Provider) {
	if err := provider.Refresh(ctx); err != nil {
		log.Warnf("initial schema warmup failed: %v", err)
	}

	cleanupTicker := time.NewTicker(sessionCleanupInterval)
	refreshTicker := time.NewTicker(schemaRefreshInterval)
	defer cleanupTicker.Stop()
	defer refreshTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupTicker.C:
			cleared, err := sessions.CleanupExpiredSessions(ctx)
			if err != nil {
				log.Warnf("session cleanup failed: %v", err)
				continue
			}
			log.Infof("session cleanup cleared %d sessions", cleared)
		case <-refreshTicker.C:
			if err := provider.Refresh(ctx); err != nil {
				log.Warnf("schema refresh failed: %v", err)
			}
		}
	}
}
