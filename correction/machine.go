//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package correction provides the bounded-iteration state machine that
// repairs a failing SQL statement given its error and schema context.
package correction

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-sqlchat-go/internal/retry"
	"trpc.group/trpc-go/trpc-sqlchat-go/internal/sqlutil"
	"trpc.group/trpc-go/trpc-sqlchat-go/log"
	"trpc.group/trpc-go/trpc-sqlchat-go/schema"
)

// DefaultMaxAttempts bounds the number of correction rounds.
const DefaultMaxAttempts = 3

// State identifies a node of the correction machine.
type State int

const (
	// StateAnalyzeError produces a diagnostic strategy for the failure.
	StateAnalyzeError State = iota
	// StateCorrectSQL produces a corrected statement from the strategy.
	StateCorrectSQL
	// StateValidate applies structural checks to the corrected statement.
	StateValidate
	// StateSuccess is the terminal success state.
	StateSuccess
	// StateFailure is the terminal failure state.
	StateFailure
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAnalyzeError:
		return "analyze_error"
	case StateCorrectSQL:
		return "correct_sql"
	case StateValidate:
		return "validate"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// linearTransitions is the static edge table for the non-conditional
// states. StateValidate branches through shouldRetry instead.
var linearTransitions = map[State]State{
	StateAnalyzeError: StateCorrectSQL,
	StateCorrectSQL:   StateValidate,
}

// Advisor produces the diagnostic strategy and the corrected statement.
// From the machine's perspective it is opaque: text in, text out.
type Advisor interface {
	// AnalyzeError diagnoses why the statement failed.
	AnalyzeError(ctx context.Context, req *Request) (string, error)
	// CorrectSQL rewrites the statement following the strategy.
	CorrectSQL(ctx context.Context, req *Request, strategy string) (string, error)
}

// Request is the immutable input of one correction sequence.
type Request struct {
	Query        string
	FailingSQL   string
	ErrorMessage string
	Schema       *schema.Snapshot
}

// Outcome is the terminal result of a correction sequence.
type Outcome struct {
	Success  bool   `json:"success"`
	SQL      string `json:"sqlQuery,omitempty"`
	Err      string `json:"error,omitempty"`
	Attempts int    `json:"attempts"`
}

// Machine drives analyze -> correct -> validate rounds to termination.
// Attempts increment monotonically every round and the retry branch
// requires attempts < maxAttempts, so the machine always terminates
// within maxAttempts rounds.
type Machine struct {
	advisor     Advisor
	maxAttempts int
	policy      retry.Policy
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxAttempts bounds the number of correction rounds.
func WithMaxAttempts(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithRetryPolicy sets the retry policy wrapped around advisor calls.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(m *Machine) {
		m.policy = policy
	}
}

// NewMachine creates a correction machine over the given advisor.
func NewMachine(advisor Advisor, opts ...Option) *Machine {
	m := &Machine{
		advisor:     advisor,
		maxAttempts: DefaultMaxAttempts,
		policy:      retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// runState is the mutable per-sequence state. It is created per Run call
// and discarded on termination.
type runState struct {
	strategy      string
	correctedSQL  string
	validationErr string
	passed        bool
	attempts      int
}

// Run drives the machine to a terminal state.
func (m *Machine) Run(ctx context.Context, req *Request) *Outcome {
	rs := &runState{}
	state := StateAnalyzeError
	for {
		switch state {
		case StateAnalyzeError:
			strategy, err := retry.Do(ctx, m.policy, "error analysis", func(ctx context.Context) (string, error) {
				return m.advisor.AnalyzeError(ctx, req)
			})
			if err != nil {
				return &Outcome{Success: false, Err: err.Error(), Attempts: rs.attempts}
			}
			rs.strategy = strategy
			state = linearTransitions[state]

		case StateCorrectSQL:
			corrected, err := retry.Do(ctx, m.policy, "sql correction", func(ctx context.Context) (string, error) {
				return m.advisor.CorrectSQL(ctx, req, rs.strategy)
			})
			if err != nil {
				return &Outcome{Success: false, Err: err.Error(), Attempts: rs.attempts}
			}
			rs.correctedSQL = sqlutil.TrimTerminator(sqlutil.StripFences(corrected))
			rs.attempts++
			state = linearTransitions[state]

		case StateValidate:
			rs.passed, rs.validationErr = validate(rs.correctedSQL)
			state = m.shouldRetry(rs)

		case StateSuccess:
			log.Infof("sql corrected after %d attempts", rs.attempts)
			return &Outcome{Success: true, SQL: rs.correctedSQL, Attempts: rs.attempts}

		case StateFailure:
			errMsg := rs.validationErr
			if errMsg == "" {
				errMsg = "failed to correct SQL after multiple attempts"
			}
			log.Warnf("sql correction failed after %d attempts: %s", rs.attempts, errMsg)
			return &Outcome{Success: false, Err: errMsg, Attempts: rs.attempts}
		}
	}
}

// shouldRetry is the conditional edge out of StateValidate. Strategy and
// corrected SQL are recomputed fresh on the retry branch.
func (m *Machine) shouldRetry(rs *runState) State {
	if rs.passed {
		return StateSuccess
	}
	if rs.attempts >= m.maxAttempts {
		return StateFailure
	}
	return StateAnalyzeError
}

// validate applies structural checks: non-empty, no statement terminator
// and at least one schema-qualified whitelisted table reference. Unlike
// the translator's fallback check, bare table names do not pass here;
// a correction that drops the public. prefix goes back for another round.
func validate(sql string) (bool, string) {
	if sql == "" {
		return false, "empty SQL query"
	}
	if strings.Contains(sql, ";") {
		return false, "query contains semicolons which should be removed"
	}
	if !sqlutil.ReferencesQualifiedTable(sql) {
		return false, "missing proper table references"
	}
	return true, ""
}
