//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlutil applies deterministic post-processing to generated SQL:
// markdown fence stripping, statement-terminator removal, row-limit
// injection, table whitelist validation and PostgreSQL type fixups.
package sqlutil

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultRowLimit is appended when a generated statement carries no LIMIT.
const DefaultRowLimit = 100

// FallbackQuery is substituted when generated SQL references none of the
// whitelisted tables.
const FallbackQuery = `SELECT COUNT(*) AS count FROM public.hyb_nps_dtl LIMIT 100`

// PrimaryTable is the table the fallback query targets.
const PrimaryTable = "public.hyb_nps_dtl"

// WhitelistedTables are the only tables generated SQL may reference.
var WhitelistedTables = []string{
	"public.hyb_nps_dtl",
	"public.dm_empmast",
	"public.hyb_order_detail",
	"public.hyb_product_data",
	"hyb_nps_dtl",
	"dm_empmast",
	"hyb_order_detail",
	"hyb_product_data",
}

// QualifiedTables are the schema-qualified forms only. Corrected SQL is
// held to this stricter list; an unqualified reference means the
// correction did not follow the public.table_name rule.
var QualifiedTables = []string{
	"public.hyb_nps_dtl",
	"public.dm_empmast",
	"public.hyb_order_detail",
	"public.hyb_product_data",
}

// StripFences removes surrounding markdown code fences from model output.
func StripFences(sql string) string {
	sql = strings.TrimSpace(sql)
	if strings.HasPrefix(sql, "```sql") {
		sql = strings.ReplaceAll(sql, "```sql", "")
		sql = strings.ReplaceAll(sql, "```", "")
	} else if strings.HasPrefix(sql, "```") {
		sql = strings.ReplaceAll(sql, "```", "")
	}
	return strings.TrimSpace(sql)
}

// TrimTerminator drops a trailing statement terminator.
func TrimTerminator(sql string) string {
	sql = strings.TrimSpace(sql)
	if strings.HasSuffix(sql, ";") {
		sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	}
	return sql
}

// EnsureLimit appends a LIMIT clause when the statement has none. An
// existing LIMIT, whatever its value, is never overridden. For statements
// opening with a WITH clause the limit applies to the final
// result-producing SELECT, not an intermediate one.
func EnsureLimit(sql string, limit int) string {
	lower := strings.ToLower(sql)
	if !strings.HasPrefix(strings.TrimSpace(lower), "with") {
		if !strings.Contains(lower, "limit") {
			return sql + " LIMIT " + itoa(limit)
		}
		return sql
	}
	// CTE: only the text after the last closing parenthesis belongs to the
	// final SELECT.
	lastParen := strings.LastIndex(sql, ")")
	if lastParen == -1 {
		if !strings.Contains(lower, "limit") {
			return sql + " LIMIT " + itoa(limit)
		}
		return sql
	}
	tail := strings.ToLower(sql[lastParen+1:])
	if !strings.Contains(tail, "limit") {
		return sql + " LIMIT " + itoa(limit)
	}
	return sql
}

// ReferencesWhitelistedTable reports whether the statement mentions at
// least one known table.
func ReferencesWhitelistedTable(sql string) bool {
	return referencesAny(sql, WhitelistedTables)
}

// ReferencesQualifiedTable reports whether the statement mentions at
// least one known table in its schema-qualified form.
func ReferencesQualifiedTable(sql string) bool {
	return referencesAny(sql, QualifiedTables)
}

func referencesAny(sql string, tables []string) bool {
	lower := strings.ToLower(sql)
	for _, table := range tables {
		if strings.Contains(lower, table) {
			return true
		}
	}
	return false
}

var (
	roundPattern    = regexp.MustCompile(`(?i)ROUND\s*\(\s*(.*?)\s*,\s*(\d+)\s*\)`)
	floatCastSuffix = regexp.MustCompile(`(?i)::FLOAT`)
	floatCastAs     = regexp.MustCompile(`(?i)AS FLOAT`)
	// A denominator is either a NULLIF call, a function call such as
	// COUNT(*), or a bare identifier/number, optionally NUMERIC-cast.
	divisionPattern = regexp.MustCompile(`(?i)/\s*((?:NULLIF|[\w\.]+)\s*\([^()]*\)(?:::NUMERIC)?|[\w\.]+(?:::NUMERIC)?)`)
)

// FixRound rewrites ROUND(expr, n) to ROUND(CAST(expr AS NUMERIC), n) and
// replaces FLOAT casts with NUMERIC. PostgreSQL's two-argument ROUND only
// accepts numeric input.
func FixRound(sql string) string {
	if !strings.Contains(strings.ToLower(sql), "round(") {
		return sql
	}
	sql = roundPattern.ReplaceAllStringFunc(sql, func(match string) string {
		groups := roundPattern.FindStringSubmatch(match)
		expr, digits := groups[1], groups[2]
		lower := strings.ToLower(expr)
		if strings.Contains(lower, "::numeric") || strings.Contains(lower, "as numeric") {
			return match
		}
		return "ROUND(CAST(" + expr + " AS NUMERIC), " + digits + ")"
	})
	sql = floatCastSuffix.ReplaceAllString(sql, "::NUMERIC")
	sql = floatCastAs.ReplaceAllString(sql, "AS NUMERIC")
	return sql
}

// GuardDivision wraps division denominators in NULLIF(x, 0), applied
// repeatedly until the statement stops changing.
func GuardDivision(sql string) string {
	for {
		next := divisionPattern.ReplaceAllStringFunc(sql, func(match string) string {
			groups := divisionPattern.FindStringSubmatch(match)
			denominator := strings.TrimSpace(groups[1])
			if strings.HasPrefix(strings.ToLower(denominator), "nullif") {
				return match
			}
			return "/ NULLIF(" + denominator + ", 0)"
		})
		if next == sql {
			return next
		}
		sql = next
	}
}

// Sanitize runs the full post-processing pipeline over model output and
// reports whether the result passed the table whitelist. A statement with
// no whitelisted table reference is replaced by FallbackQuery.
func Sanitize(raw string, limit int) (sql string, usedFallback bool) {
	sql = TrimTerminator(StripFences(raw))
	sql = EnsureLimit(sql, limit)
	if !ReferencesWhitelistedTable(sql) {
		return FallbackQuery, true
	}
	sql = FixRound(sql)
	sql = GuardDivision(sql)
	return sql, false
}

func itoa(n int) string {
	if n <= 0 {
		n = DefaultRowLimit
	}
	return strconv.Itoa(n)
}
