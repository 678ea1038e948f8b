//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package agent provides the prompt-template collaborators: natural
// language to SQL translation, result summarization, SQL error analysis
// and follow-up suggestion generation. They are thin shells over a
// model.Generator; the engineering weight lives in the deterministic
// post-processing they apply.
package agent

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-sqlchat-go/internal/sqlutil"
	"trpc.group/trpc-go/trpc-sqlchat-go/log"
	"trpc.group/trpc-go/trpc-sqlchat-go/model"
	"trpc.group/trpc-go/trpc-sqlchat-go/schema"
	"trpc.group/trpc-go/trpc-sqlchat-go/session"
)

// historyContextTurns is how many recent turns are included in the
// translation prompt.
const historyContextTurns = 5

// Translator turns natural-language questions into sanitized SQL.
type Translator struct {
	gen         model.Generator
	temperature float64
	rowLimit    int
}

// NewTranslator creates a Translator. temperature is the sampling
// temperature for generation; rowLimit is injected into statements that
// carry no LIMIT.
func NewTranslator(gen model.Generator, temperature float64, rowLimit int) *Translator {
	if rowLimit <= 0 {
		rowLimit = sqlutil.DefaultRowLimit
	}
	return &Translator{gen: gen, temperature: temperature, rowLimit: rowLimit}
}

// Translate produces a post-processed SQL statement for the question.
// Statements referencing no whitelisted table are replaced by the safe
// fallback query.
func (t *Translator) Translate(ctx context.Context, query string, snapshot *schema.Snapshot, history []session.HistoryEntry) (string, error) {
	prompt := t.buildPrompt(query, snapshot, history)
	raw, err := t.gen.GenerateText(ctx, prompt, t.temperature)
	if err != nil {
		return "", fmt.Errorf("translate query: %w", err)
	}

	sql, usedFallback := sqlutil.Sanitize(raw, t.rowLimit)
	if usedFallback {
		log.Warnf("generated SQL had no valid table references, using fallback: %s", raw)
	}
	log.Infof("translated query to SQL: %s", sql)
	return sql, nil
}

func (t *Translator) buildPrompt(query string, snapshot *schema.Snapshot, history []session.HistoryEntry) string {
	var b strings.Builder
	b.WriteString(translatePromptHeader)

	if len(history) > 0 {
		b.WriteString("\nPrevious conversation:\n")
		recent := history
		if len(recent) > historyContextTurns {
			recent = recent[len(recent)-historyContextTurns:]
		}
		for i, turn := range recent {
			fmt.Fprintf(&b, "User question %d: %s\n", i+1, turn.Query)
			fmt.Fprintf(&b, "System response %d: %s\n", i+1, truncate(turn.Answer, 200))
		}
	}

	b.WriteString("\nCurrent schema information for " + schema.DatabaseName + ":\n")
	b.WriteString(snapshot.JSON())
	b.WriteString("\n\nQuestion to convert to SQL: " + query + "\n\n")
	b.WriteString(translatePromptFooter)
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
