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
	"time"

	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-sqlchat-go/cache"
	"trpc.group/trpc-go/trpc-sqlchat-go/log"
	"trpc.group/trpc-go/trpc-sqlchat-go/model"
	"trpc.group/trpc-go/trpc-sqlchat-go/session"
)

const (
	suggestionKeyPrefix = "suggestions:"
	suggestionCacheTTL  = 300 * time.Second
	suggestionCount     = 3
)

// Suggester generates follow-up questions for the current conversation
// turn. Suggestions are cached in redis keyed by the query/answer pair;
// failures degrade to an empty list.
type Suggester struct {
	gen         model.Generator
	client      redis.UniversalClient
	temperature float64
}

// NewSuggester creates a Suggester. client may be nil to disable caching.
func NewSuggester(gen model.Generator, client redis.UniversalClient, temperature float64) *Suggester {
	return &Suggester{gen: gen, client: client, temperature: temperature}
}

// Suggest returns up to three follow-up questions for the turn.
func (s *Suggester) Suggest(ctx context.Context, query, answer string, history []session.HistoryEntry) []string {
	key := suggestionKeyPrefix + cache.Hash(query+answer)
	if cached := s.readCache(ctx, key); cached != nil {
		return cached
	}

	var b strings.Builder
	b.WriteString(suggestPromptHeader)
	fmt.Fprintf(&b, "\n\nCurrent query: %s\nAnswer: %s\n", query, truncate(answer, 500))
	if len(history) > 0 {
		b.WriteString("Recent conversation context:\n")
		recent := history
		if len(recent) > historyContextTurns {
			recent = recent[len(recent)-historyContextTurns:]
		}
		for _, turn := range recent {
			fmt.Fprintf(&b, "- %s\n", turn.Query)
		}
	}
	fmt.Fprintf(&b, "\nGenerate %d follow-up questions:", suggestionCount)

	text, err := s.gen.GenerateText(ctx, b.String(), s.temperature)
	if err != nil {
		log.Warnf("suggestion generation failed: %v", err)
		return []string{}
	}

	suggestions := parseSuggestions(text)
	s.writeCache(ctx, key, suggestions)
	return suggestions
}

// parseSuggestions splits model output into individual questions.
func parseSuggestions(text string) []string {
	lines := strings.Split(text, "\n")
	suggestions := make([]string, 0, suggestionCount)
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "0123456789.-) "))
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == suggestionCount {
			break
		}
	}
	return suggestions
}

func (s *Suggester) readCache(ctx context.Context, key string) []string {
	if s.client == nil {
		return nil
	}
	members, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil || len(members) == 0 {
		return nil
	}
	return members
}

func (s *Suggester) writeCache(ctx context.Context, key string, suggestions []string) {
	if s.client == nil || len(suggestions) == 0 {
		return
	}
	values := make([]any, len(suggestions))
	for i, suggestion := range suggestions {
		values[i] = suggestion
	}
	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, suggestionCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warnf("suggestion cache write failed: %v", err)
	}
}
