//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package orchestrator binds the query pipeline together: result cache
// lookup, schema retrieval, translation, execution, bounded correction,
// summarization and write-through. Jobs run on a worker pool; callers
// submit and block on the job handle with a timeout. A caller that
// times out abandons the wait only, the worker completes and still
// writes its cache and history entries.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-sqlchat-go/cache"
	"trpc.group/trpc-go/trpc-sqlchat-go/correction"
	"trpc.group/trpc-go/trpc-sqlchat-go/executor"
	"trpc.group/trpc-go/trpc-sqlchat-go/internal/ratelimit"
	"trpc.group/trpc-go/trpc-sqlchat-go/internal/retry"
	"trpc.group/trpc-go/trpc-sqlchat-go/schema"
	"trpc.group/trpc-go/trpc-sqlchat-go/session"
)

// Defaults for pool sizing and caller waits.
const (
	DefaultPoolSize     = 8
	DefaultRateLimit    = 30
	DefaultAwaitTimeout = 30 * time.Second
)

var (
	// ErrRateLimited is returned by Submit when the client exceeded its
	// per-minute budget.
	ErrRateLimited = errors.New("rate limit exceeded, please try again later")
	// ErrJobTimeout is returned by Await when the job did not finish in
	// time. The job itself keeps running.
	ErrJobTimeout = errors.New("timed out waiting for query result")
)

// Result is the terminal outcome of one query job.
type Result struct {
	Success       bool                  `json:"success"`
	Answer        string                `json:"answer,omitempty"`
	SQLQuery      string                `json:"sqlQuery,omitempty"`
	Results       *executor.QueryResult `json:"results,omitempty"`
	Suggestions   []string              `json:"suggestions,omitempty"`
	Error         string                `json:"error,omitempty"`
	ExecutionTime float64               `json:"executionTime"`
}

// Job is the caller's handle on an in-flight query.
type Job struct {
	done   chan struct{}
	result *Result
}

// Await blocks until the job finishes or the timeout elapses. On
// timeout the worker is not cancelled; its result is simply discarded
// by this caller.
func (j *Job) Await(timeout time.Duration) (*Result, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-j.done:
		return j.result, nil
	case <-timer.C:
		return nil, ErrJobTimeout
	}
}

func (j *Job) complete(result *Result) {
	j.result = result
	close(j.done)
}

// SchemaProvider supplies the database schema snapshot.
type SchemaProvider interface {
	GetSchema(ctx context.Context) (*schema.Snapshot, error)
}

// Translator turns a question into a post-processed SQL statement.
type Translator interface {
	Translate(ctx context.Context, query string, snapshot *schema.Snapshot, history []session.HistoryEntry) (string, error)
}

// Summarizer narrates query results.
type Summarizer interface {
	Summarize(ctx context.Context, query, sql string, result *executor.QueryResult) (string, error)
}

// Suggester proposes follow-up questions. Optional.
type Suggester interface {
	Suggest(ctx context.Context, query, answer string, history []session.HistoryEntry) []string
}

// Corrector repairs a failing statement.
type Corrector interface {
	Run(ctx context.Context, req *correction.Request) *correction.Outcome
}

// Dependencies are the collaborators a job pipeline needs. Suggester
// may be nil; everything else is required.
type Dependencies struct {
	Cache      *cache.ResultCache
	Sessions   session.Service
	Schema     SchemaProvider
	Translator Translator
	Executor   executor.Executor
	Summarizer Summarizer
	Suggester  Suggester
	Corrector  Corrector
}

func (d Dependencies) validate() error {
	switch {
	case d.Cache == nil:
		return errors.New("orchestrator: nil result cache")
	case d.Sessions == nil:
		return errors.New("orchestrator: nil session service")
	case d.Schema == nil:
		return errors.New("orchestrator: nil schema provider")
	case d.Translator == nil:
		return errors.New("orchestrator: nil translator")
	case d.Executor == nil:
		return errors.New("orchestrator: nil executor")
	case d.Summarizer == nil:
		return errors.New("orchestrator: nil summarizer")
	case d.Corrector == nil:
		return errors.New("orchestrator: nil corrector")
	}
	return nil
}

// Orchestrator schedules query jobs onto a bounded worker pool.
type Orchestrator struct {
	deps    Dependencies
	pool    *pool
	limiter *ratelimit.Limiter
	policy  retry.Policy
}

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	poolSize  int
	rateLimit int
	policy    retry.Policy
}

// WithPoolSize sets the number of concurrent workers.
func WithPoolSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithRateLimit sets the per-client requests-per-minute budget.
func WithRateLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.rateLimit = n
		}
	}
}

// WithRetryPolicy sets the retry policy wrapped around translator and
// summarizer calls.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// New creates an Orchestrator over the given collaborators.
func New(deps Dependencies, opts ...Option) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	o := &options{
		poolSize:  DefaultPoolSize,
		rateLimit: DefaultRateLimit,
		policy:    retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	orch := &Orchestrator{
		deps:    deps,
		limiter: ratelimit.NewLimiter(o.rateLimit),
		policy:  o.policy,
	}
	p, err := newJobPool(o.poolSize)
	if err != nil {
		return nil, err
	}
	orch.pool = p
	return orch, nil
}

// Submit schedules a query job for the session. The session id is also
// the rate-limit client id. The returned Job is completed by a pool
// worker; wait on it with Await.
func (o *Orchestrator) Submit(ctx context.Context, query, sessionID string, history []session.HistoryEntry) (*Job, error) {
	if !o.limiter.Admit(sessionID) {
		return nil, ErrRateLimited
	}
	job := &Job{done: make(chan struct{})}
	// The worker must outlive the caller's wait, so it runs on a
	// context detached from the caller's cancellation.
	if err := o.pool.invoke(context.WithoutCancel(ctx), o, job, query, sessionID, history); err != nil {
		return nil, fmt.Errorf("submit query job: %w", err)
	}
	return job, nil
}

// Close releases the worker pool. In-flight jobs finish first.
func (o *Orchestrator) Close() {
	o.pool.release()
}
