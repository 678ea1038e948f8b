//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-sqlchat-go/executor"
	"trpc.group/trpc-go/trpc-sqlchat-go/model"
)

// summaryRowContext is how many leading rows are embedded in the
// summarization prompt.
const summaryRowContext = 5

// NoDataAnswer is returned when there is nothing to summarize.
const NoDataAnswer = "I couldn't retrieve any data for your query."

// Summarizer narrates query results as natural language.
type Summarizer struct {
	gen         model.Generator
	temperature float64
}

// NewSummarizer creates a Summarizer with the given sampling temperature.
func NewSummarizer(gen model.Generator, temperature float64) *Summarizer {
	return &Summarizer{gen: gen, temperature: temperature}
}

// Summarize produces a natural-language answer for the results of one
// query. Failed or absent results yield the canned no-data answer
// without a model call.
func (s *Summarizer) Summarize(ctx context.Context, query, sql string, result *executor.QueryResult) (string, error) {
	if result == nil || !result.Success {
		return NoDataAnswer, nil
	}

	rows := result.Rows
	if len(rows) > summaryRowContext {
		rows = rows[:summaryRowContext]
	}
	sample, err := json.MarshalIndent(map[string]any{
		"columns": result.Columns,
		"rows":    rows,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result sample: %w", err)
	}

	var b strings.Builder
	b.WriteString(summarizePromptHeader)
	fmt.Fprintf(&b, "\n\nUser Question: %s\nSQL Query: %s\n", query, sql)
	fmt.Fprintf(&b, "Results (first %d rows shown, total %d rows):\n%s\n", len(rows), result.RowCount, sample)

	answer, err := s.gen.GenerateText(ctx, b.String(), s.temperature)
	if err != nil {
		return "", fmt.Errorf("summarize results: %w", err)
	}
	return answer, nil
}
