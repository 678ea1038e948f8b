//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package orchestrator

import (
	"context"
	"time"

	"trpc.group/trpc-go/trpc-sqlchat-go/correction"
	"trpc.group/trpc-go/trpc-sqlchat-go/executor"
	"trpc.group/trpc-go/trpc-sqlchat-go/internal/retry"
	"trpc.group/trpc-go/trpc-sqlchat-go/log"
	"trpc.group/trpc-go/trpc-sqlchat-go/schema"
	"trpc.group/trpc-go/trpc-sqlchat-go/session"
)

// User-facing messages for degraded outcomes.
const (
	apologyAnswer = "I'm sorry, I couldn't process your query. " +
		"Please try rephrasing your question or ask something else."
	summaryFallbackAnswer = "I retrieved the data successfully but couldn't " +
		"generate a summary. Please review the results directly."
)

// process runs one query job end to end. It never returns an error;
// failures are carried in the Result. The write-through at the end is
// best-effort per key, no multi-key transaction ties the cache entry
// to the history entry.
func (o *Orchestrator) process(ctx context.Context, query, sessionID string, history []session.HistoryEntry) *Result {
	start := time.Now()

	var cached Result
	if o.deps.Cache.Get(ctx, query, sessionID, &cached) {
		log.Infof("cache hit for session %s", sessionID)
		return &cached
	}

	snapshot, err := o.deps.Schema.GetSchema(ctx)
	if err != nil {
		log.Errorf("schema retrieval failed: %v", err)
		return o.failure(start, "failed to retrieve database schema: "+err.Error())
	}

	sql, err := retry.Do(ctx, o.policy, "sql translation", func(ctx context.Context) (string, error) {
		return o.deps.Translator.Translate(ctx, query, snapshot, history)
	})
	if err != nil {
		log.Errorf("translation failed: %v", err)
		return o.failure(start, "failed to generate SQL: "+err.Error())
	}

	result := o.deps.Executor.Execute(ctx, sql)
	if !result.Success {
		sql, result = o.correct(ctx, query, sql, result, snapshot)
		if !result.Success {
			return o.failure(start, result.Error)
		}
	}

	answer, err := retry.Do(ctx, o.policy, "result summarization", func(ctx context.Context) (string, error) {
		return o.deps.Summarizer.Summarize(ctx, query, sql, result)
	})
	if err != nil {
		log.Warnf("summarization failed, returning results without narration: %v", err)
		answer = summaryFallbackAnswer
	}

	res := &Result{
		Success:       true,
		Answer:        answer,
		SQLQuery:      sql,
		Results:       result,
		ExecutionTime: time.Since(start).Seconds(),
	}
	if o.deps.Suggester != nil {
		res.Suggestions = o.deps.Suggester.Suggest(ctx, query, answer, history)
	}

	o.deps.Cache.Put(ctx, query, sessionID, res)
	if err := o.deps.Sessions.AddToHistory(ctx, sessionID, query, answer, sql); err != nil {
		log.Warnf("history write failed for session %s: %v", sessionID, err)
	}
	return res
}

// correct runs the correction machine over a failed statement and, on
// machine success, re-executes the corrected statement exactly once.
// The re-execution is not subject to further correction.
func (o *Orchestrator) correct(ctx context.Context, query, sql string, failed *executor.QueryResult, snapshot *schema.Snapshot) (string, *executor.QueryResult) {
	log.Warnf("sql execution failed, entering correction: %s", failed.Error)
	outcome := o.deps.Corrector.Run(ctx, &correction.Request{
		Query:        query,
		FailingSQL:   sql,
		ErrorMessage: failed.Error,
		Schema:       snapshot,
	})
	if !outcome.Success {
		failed.Error = outcome.Err
		return sql, failed
	}
	return outcome.SQL, o.deps.Executor.Execute(ctx, outcome.SQL)
}

func (o *Orchestrator) failure(start time.Time, errMsg string) *Result {
	return &Result{
		Success:       false,
		Answer:        apologyAnswer,
		Error:         errMsg,
		ExecutionTime: time.Since(start).Seconds(),
	}
}
