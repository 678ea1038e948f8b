//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-sqlchat-go/cache"
	"trpc.group/trpc-go/trpc-sqlchat-go/correction"
	"trpc.group/trpc-go/trpc-sqlchat-go/executor"
	"trpc.group/trpc-go/trpc-sqlchat-go/internal/retry"
	"trpc.group/trpc-go/trpc-sqlchat-go/orchestrator"
	"trpc.group/trpc-go/trpc-sqlchat-go/schema"
	"trpc.group/trpc-go/trpc-sqlchat-go/session"
	sessionredis "trpc.group/trpc-go/trpc-sqlchat-go/session/redis"
)

const testSQL = "SELECT COUNT(*) AS count FROM public.hyb_nps_dtl LIMIT 100"

type stubSchema struct{}

func (stubSchema) GetSchema(context.Context) (*schema.Snapshot, error) {
	return &schema.Snapshot{
		Database: schema.DatabaseName,
		Tables: map[string][]schema.Column{
			"hyb_nps_dtl": {{Name: "p_rating", Type: "character varying", Nullable: true}},
		},
	}, nil
}

type stubTranslator struct{ sql string }

func (s stubTranslator) Translate(context.Context, string, *schema.Snapshot, []session.HistoryEntry) (string, error) {
	return s.sql, nil
}

type stubExecutor struct{}

func (stubExecutor) Execute(context.Context, string) *executor.QueryResult {
	return &executor.QueryResult{Success: true, Columns: []string{"count"}, Rows: [][]any{{float64(42)}}, RowCount: 1}
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, string, string, *executor.QueryResult) (string, error) {
	return "There are 42 surveys.", nil
}

type stubCorrector struct{}

func (stubCorrector) Run(context.Context, *correction.Request) *correction.Outcome {
	return &correction.Outcome{Success: false, Err: "not needed"}
}

type testEnv struct {
	server   *Server
	sessions session.Service
	mr       *miniredis.Miniredis
}

func newTestEnv(t *testing.T, opts ...orchestrator.Option) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sessions := sessionredis.NewServiceWithClient(client)
	deps := orchestrator.Dependencies{
		Cache:      cache.New(client),
		Sessions:   sessions,
		Schema:     stubSchema{},
		Translator: stubTranslator{sql: testSQL},
		Executor:   stubExecutor{},
		Summarizer: stubSummarizer{},
		Corrector:  stubCorrector{},
	}
	opts = append([]orchestrator.Option{
		orchestrator.WithRetryPolicy(retry.Policy{Attempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	}, opts...)
	orch, err := orchestrator.New(deps, opts...)
	require.NoError(t, err)
	t.Cleanup(orch.Close)

	return &testEnv{
		server:   New(orch, sessions, stubSchema{}, WithAwaitTimeout(2*time.Second)),
		sessions: sessions,
		mr:       mr,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestQueryCreatesSessionAndAnswers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/query", map[string]string{"query": "how many surveys"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string `json:"sessionId"`
		Success   bool   `json:"success"`
		Answer    string `json:"answer"`
		SQLQuery  string `json:"sqlQuery"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "There are 42 surveys.", resp.Answer)
	assert.Equal(t, testSQL, resp.SQLQuery)

	// The turn landed in the session history.
	history, err := env.sessions.GetConversationHistory(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "how many surveys", history[0].Query)
}

func TestQueryRejectsEmptyBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/query", map[string]string{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRateLimited(t *testing.T) {
	env := newTestEnv(t, orchestrator.WithRateLimit(1))

	rec := env.do(t, http.MethodPost, "/api/query", map[string]string{"query": "q1", "sessionId": "fixed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/query", map[string]string{"query": "q2", "sessionId": "fixed"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sid, err := env.sessions.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, env.sessions.AddToHistory(ctx, sid, "q", "a", testSQL))

	rec := env.do(t, http.MethodGet, "/api/history/"+sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string                 `json:"sessionId"`
		History   []session.HistoryEntry `json:"history"`
		Count     int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, sid, resp.SessionID)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.History, 1)
	assert.Equal(t, "q", resp.History[0].Query)
}

func TestClearSessionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sid, err := env.sessions.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, env.sessions.AddToHistory(ctx, sid, "q", "a", testSQL))

	rec := env.do(t, http.MethodDelete, "/api/session/"+sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	history, err := env.sessions.GetConversationHistory(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSchemaEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot schema.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, schema.DatabaseName, snapshot.Database)
	assert.Contains(t, snapshot.Tables, "hyb_nps_dtl")
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	env.mr.Close()
	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
