//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package sqlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"sql fence", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"bare fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"no fence", "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestTrimTerminator(t *testing.T) {
	assert.Equal(t, "SELECT 1", TrimTerminator("SELECT 1;"))
	assert.Equal(t, "SELECT 1", TrimTerminator("  SELECT 1 ;  "))
	assert.Equal(t, "SELECT 1", TrimTerminator("SELECT 1"))
}

func TestEnsureLimitAppendsDefault(t *testing.T) {
	got := EnsureLimit("SELECT region FROM public.hyb_nps_dtl", 100)
	assert.Equal(t, "SELECT region FROM public.hyb_nps_dtl LIMIT 100", got)
}

func TestEnsureLimitKeepsExistingLimit(t *testing.T) {
	in := "SELECT region FROM public.hyb_nps_dtl ORDER BY avg_rating DESC LIMIT 5"
	assert.Equal(t, in, EnsureLimit(in, 100))
}

func TestEnsureLimitCTE(t *testing.T) {
	in := "WITH t AS (SELECT region FROM public.hyb_nps_dtl LIMIT 50) SELECT region FROM t"
	got := EnsureLimit(in, 100)
	// The inner LIMIT belongs to the CTE body; the final SELECT still needs one.
	assert.True(t, strings.HasSuffix(got, "LIMIT 100"), got)
}

func TestEnsureLimitCTEFinalSelectAlreadyLimited(t *testing.T) {
	in := "WITH t AS (SELECT region FROM public.hyb_nps_dtl) SELECT region FROM t LIMIT 10"
	assert.Equal(t, in, EnsureLimit(in, 100))
}

func TestReferencesWhitelistedTable(t *testing.T) {
	assert.True(t, ReferencesWhitelistedTable("SELECT * FROM public.hyb_nps_dtl"))
	assert.True(t, ReferencesWhitelistedTable("select * from HYB_ORDER_DETAIL"))
	assert.False(t, ReferencesWhitelistedTable("SELECT * FROM users"))
}

func TestReferencesQualifiedTable(t *testing.T) {
	assert.True(t, ReferencesQualifiedTable("SELECT * FROM public.hyb_nps_dtl"))
	assert.True(t, ReferencesQualifiedTable("select * from PUBLIC.DM_EMPMAST"))
	// Bare names pass the wide whitelist but not the qualified one.
	assert.False(t, ReferencesQualifiedTable("SELECT * FROM hyb_nps_dtl"))
	assert.False(t, ReferencesQualifiedTable("SELECT * FROM users"))
}

func TestFixRound(t *testing.T) {
	got := FixRound("SELECT ROUND(AVG(p_rating), 2) FROM public.hyb_nps_dtl")
	assert.Contains(t, got, "ROUND(CAST(AVG(p_rating) AS NUMERIC), 2)")

	already := "SELECT ROUND(CAST(x AS NUMERIC), 2) FROM public.hyb_nps_dtl"
	assert.Equal(t, already, FixRound(already))
}

func TestGuardDivision(t *testing.T) {
	got := GuardDivision("SELECT promoters / total FROM t")
	assert.Contains(t, got, "NULLIF(total, 0)")

	guarded := "SELECT promoters / NULLIF(total, 0) FROM t"
	assert.Equal(t, guarded, GuardDivision(guarded))
}

func TestSanitizeFallbackOnUnknownTables(t *testing.T) {
	sql, usedFallback := Sanitize("SELECT * FROM secret_table", 100)
	assert.True(t, usedFallback)
	assert.Equal(t, FallbackQuery, sql)
}

func TestSanitizePipeline(t *testing.T) {
	raw := "```sql\nSELECT region FROM public.hyb_nps_dtl;\n```"
	sql, usedFallback := Sanitize(raw, 100)
	assert.False(t, usedFallback)
	assert.Equal(t, "SELECT region FROM public.hyb_nps_dtl LIMIT 100", sql)
}
