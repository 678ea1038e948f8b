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
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-sqlchat-go/correction"
	"trpc.group/trpc-go/trpc-sqlchat-go/model"
)

var _ correction.Advisor = (*Analyzer)(nil)

// Analyzer implements the correction machine's advisor: it diagnoses SQL
// failures and proposes corrected statements.
type Analyzer struct {
	gen         model.Generator
	temperature float64
}

// NewAnalyzer creates an Analyzer with the given sampling temperature.
func NewAnalyzer(gen model.Generator, temperature float64) *Analyzer {
	return &Analyzer{gen: gen, temperature: temperature}
}

// AnalyzeError produces the natural-language correction strategy for a
// failed statement.
func (a *Analyzer) AnalyzeError(ctx context.Context, req *correction.Request) (string, error) {
	var b strings.Builder
	b.WriteString(analyzePromptHeader)
	fmt.Fprintf(&b, "\n\nOriginal query: %s\nSQL: %s\nError: %s\n", req.Query, req.FailingSQL, req.ErrorMessage)
	if req.Schema != nil {
		b.WriteString("Schema: " + req.Schema.JSON() + "\n")
	}
	strategy, err := a.gen.GenerateText(ctx, b.String(), a.temperature)
	if err != nil {
		return "", fmt.Errorf("analyze sql error: %w", err)
	}
	return strategy, nil
}

// CorrectSQL rewrites the failed statement following the strategy.
func (a *Analyzer) CorrectSQL(ctx context.Context, req *correction.Request, strategy string) (string, error) {
	var b strings.Builder
	b.WriteString(correctPromptHeader)
	fmt.Fprintf(&b, "\n\nOriginal query: %s\nFailed SQL: %s\nError: %s\nCorrection strategy: %s\n",
		req.Query, req.FailingSQL, req.ErrorMessage, strategy)
	if req.Schema != nil {
		b.WriteString("Schema: " + req.Schema.JSON() + "\n")
	}
	b.WriteString("\nProvide the corrected SQL query:")
	corrected, err := a.gen.GenerateText(ctx, b.String(), a.temperature)
	if err != nil {
		return "", fmt.Errorf("correct sql: %w", err)
	}
	return corrected, nil
}
