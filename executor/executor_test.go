//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package executor

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	bigInt, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"time", ts, "2025-06-01T10:30:00Z"},
		{"bytes", []byte("hello"), "hello"},
		{"big int", bigInt, "123456789012345678901234567890"},
		{"json number", json.Number("8.42"), "8.42"},
		{"plain int", int64(7), int64(7)},
		{"plain string", "Gulf", "Gulf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.in))
		})
	}
}

func TestNormalizedRowsSurviveJSONRoundTrip(t *testing.T) {
	row := NormalizeRow([]any{
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		[]byte("comment"),
		int64(10),
	})
	result := &QueryResult{
		Success:  true,
		Columns:  []string{"nps_date", "p_comment", "p_rating"},
		Rows:     [][]any{row},
		RowCount: 1,
	}
	encoded, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded QueryResult
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, "2025-06-01T00:00:00Z", decoded.Rows[0][0])
	assert.Equal(t, "comment", decoded.Rows[0][1])
	assert.Equal(t, float64(10), decoded.Rows[0][2])
}

func TestFailure(t *testing.T) {
	res := Failure(errors.New("column does not exist"), 1500*time.Millisecond)
	assert.False(t, res.Success)
	assert.Equal(t, "column does not exist", res.Error)
	assert.InDelta(t, 1.5, res.ExecutionTime, 0.001)
}
