//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package correction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trpc.group/trpc-go/trpc-sqlchat-go/internal/retry"
)

// scriptedAdvisor returns canned corrections round by round.
type scriptedAdvisor struct {
	corrections  []string
	analyzeCalls int
	correctCalls int
	analyzeErr   error
}

func (a *scriptedAdvisor) AnalyzeError(ctx context.Context, req *Request) (string, error) {
	a.analyzeCalls++
	if a.analyzeErr != nil {
		return "", a.analyzeErr
	}
	return "use nps_date instead of survey_date", nil
}

func (a *scriptedAdvisor) CorrectSQL(ctx context.Context, req *Request, strategy string) (string, error) {
	idx := a.correctCalls
	a.correctCalls++
	if idx >= len(a.corrections) {
		idx = len(a.corrections) - 1
	}
	return a.corrections[idx], nil
}

func fastPolicy() Option {
	return WithRetryPolicy(retry.Policy{Attempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
}

var req = &Request{
	Query:        "average rating by region",
	FailingSQL:   "SELECT survey_date FROM public.hyb_nps_dtl",
	ErrorMessage: `column "survey_date" does not exist`,
}

func TestRunSucceedsFirstRound(t *testing.T) {
	advisor := &scriptedAdvisor{corrections: []string{
		"```sql\nSELECT nps_date FROM public.hyb_nps_dtl LIMIT 100;\n```",
	}}
	m := NewMachine(advisor, fastPolicy())

	outcome := m.Run(context.Background(), req)
	assert.True(t, outcome.Success)
	assert.Equal(t, "SELECT nps_date FROM public.hyb_nps_dtl LIMIT 100", outcome.SQL)
	assert.Equal(t, 1, outcome.Attempts)
}

func TestRunSucceedsOnLaterRound(t *testing.T) {
	advisor := &scriptedAdvisor{corrections: []string{
		"",                          // round 1: empty, fails validation
		"SELECT 1 FROM nowhere",     // round 2: unknown table
		"SELECT nps_date FROM public.hyb_nps_dtl LIMIT 100", // round 3: valid
	}}
	m := NewMachine(advisor, fastPolicy())

	outcome := m.Run(context.Background(), req)
	assert.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, advisor.analyzeCalls)
}

func TestRunNeverValidatesTerminatesAtMaxAttempts(t *testing.T) {
	advisor := &scriptedAdvisor{corrections: []string{"SELECT * FROM unknown_table"}}
	m := NewMachine(advisor, fastPolicy())

	outcome := m.Run(context.Background(), req)
	assert.False(t, outcome.Success)
	assert.Equal(t, DefaultMaxAttempts, outcome.Attempts)
	assert.Equal(t, "missing proper table references", outcome.Err)
	// Strategy is recomputed fresh each round.
	assert.Equal(t, DefaultMaxAttempts, advisor.analyzeCalls)
	assert.Equal(t, DefaultMaxAttempts, advisor.correctCalls)
}

func TestRunRejectsUnqualifiedTableNames(t *testing.T) {
	advisor := &scriptedAdvisor{corrections: []string{
		"SELECT nps_date FROM hyb_nps_dtl LIMIT 100",        // round 1: missing schema prefix
		"SELECT nps_date FROM public.hyb_nps_dtl LIMIT 100", // round 2: qualified
	}}
	m := NewMachine(advisor, fastPolicy())

	outcome := m.Run(context.Background(), req)
	assert.True(t, outcome.Success)
	assert.Equal(t, "SELECT nps_date FROM public.hyb_nps_dtl LIMIT 100", outcome.SQL)
	assert.Equal(t, 2, outcome.Attempts)
}

func TestRunRejectsSemicolons(t *testing.T) {
	advisor := &scriptedAdvisor{corrections: []string{"SELECT 1 FROM public.hyb_nps_dtl; DROP TABLE x"}}
	m := NewMachine(advisor, WithMaxAttempts(1), fastPolicy())

	outcome := m.Run(context.Background(), req)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Err, "semicolons")
	assert.Equal(t, 1, outcome.Attempts)
}

func TestRunCustomMaxAttempts(t *testing.T) {
	advisor := &scriptedAdvisor{corrections: []string{"SELECT * FROM unknown_table"}}
	m := NewMachine(advisor, WithMaxAttempts(5), fastPolicy())

	outcome := m.Run(context.Background(), req)
	assert.False(t, outcome.Success)
	assert.Equal(t, 5, outcome.Attempts)
}

func TestRunAdvisorFailureSurfaces(t *testing.T) {
	advisor := &scriptedAdvisor{analyzeErr: errors.New("model service unavailable")}
	m := NewMachine(advisor, fastPolicy())

	outcome := m.Run(context.Background(), req)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Err, "unavailable")
	assert.Equal(t, 0, outcome.Attempts)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "analyze_error", StateAnalyzeError.String())
	assert.Equal(t, "failure", StateFailure.String())
}
