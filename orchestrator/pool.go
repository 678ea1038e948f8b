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
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-sqlchat-go/session"
)

type jobParam struct {
	ctx       context.Context
	orch      *Orchestrator
	job       *Job
	query     string
	sessionID string
	history   []session.HistoryEntry
}

func (p *jobParam) reset() {
	p.ctx = nil
	p.orch = nil
	p.job = nil
	p.query = ""
	p.sessionID = ""
	p.history = nil
}

var jobParamPool = &sync.Pool{
	New: func() any { return new(jobParam) },
}

// pool wraps the ants worker pool behind typed job submission.
type pool struct {
	inner *ants.PoolWithFunc
}

func newJobPool(size int) (*pool, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	inner, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*jobParam)
		if !ok {
			panic("query job pool args type error")
		}
		job := param.job
		result := param.orch.process(param.ctx, param.query, param.sessionID, param.history)
		param.reset()
		jobParamPool.Put(param)
		job.complete(result)
	})
	if err != nil {
		return nil, fmt.Errorf("create query job pool: %w", err)
	}
	return &pool{inner: inner}, nil
}

func (p *pool) invoke(ctx context.Context, orch *Orchestrator, job *Job, query, sessionID string, history []session.HistoryEntry) error {
	param := jobParamPool.Get().(*jobParam)
	param.ctx = ctx
	param.orch = orch
	param.job = job
	param.query = query
	param.sessionID = sessionID
	param.history = history
	if err := p.inner.Invoke(param); err != nil {
		param.reset()
		jobParamPool.Put(param)
		return err
	}
	return nil
}

func (p *pool) release() {
	p.inner.Release()
}
