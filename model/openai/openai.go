//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides an OpenAI-compatible model.Generator.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"trpc.group/trpc-go/trpc-sqlchat-go/model"
)

var _ model.Generator = (*Generator)(nil)

// Generator calls an OpenAI-compatible chat completions endpoint.
type Generator struct {
	client    openai.Client
	modelName string
}

// New creates a Generator for the named model.
func New(modelName string, opt ...Option) *Generator {
	var o options
	for _, apply := range opt {
		apply(&o)
	}
	clientOpts := []openaiopt.RequestOption{}
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	for key, value := range o.extraHeaders {
		clientOpts = append(clientOpts, openaiopt.WithHeader(key, value))
	}
	return &Generator{
		client:    openai.NewClient(clientOpts...),
		modelName: modelName,
	}
}

// GenerateText returns the completion for prompt at the given sampling
// temperature.
func (g *Generator) GenerateText(ctx context.Context, prompt string, temperature float64) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrServiceUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
