//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package model defines the generative model contract consumed by the
// prompt-template collaborators.
package model

import (
	"context"
	"errors"
)

// ErrServiceUnavailable marks a generative model call that failed at the
// service level. Callers surface it as an AI service error after retries
// are exhausted.
var ErrServiceUnavailable = errors.New("model service unavailable")

// Generator produces text given text. Implementations are opaque to the
// rest of the system; the orchestrator only cares that prompts go in and
// completions come out.
type Generator interface {
	// GenerateText returns the completion for prompt at the given
	// sampling temperature.
	GenerateText(ctx context.Context, prompt string, temperature float64) (string, error)
}
