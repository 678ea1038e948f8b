//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const columnsQuery = `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = $1
ORDER BY ordinal_position`

// PostgresIntrospector reads column layouts from information_schema.
type PostgresIntrospector struct {
	pool *pgxpool.Pool
}

// NewPostgresIntrospector wraps a pgx pool.
func NewPostgresIntrospector(pool *pgxpool.Pool) *PostgresIntrospector {
	return &PostgresIntrospector{pool: pool}
}

// Columns returns the column layout of one table in the public schema.
func (i *PostgresIntrospector) Columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := i.pool.Query(ctx, columnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, Column{
			Name:     name,
			Type:     dataType,
			Nullable: nullable == "YES",
		})
	}
	return columns, rows.Err()
}
