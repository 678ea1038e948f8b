//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t testing.TB) (redis.UniversalClient, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	opts, err := redis.ParseURL("redis://" + mr.Addr())
	require.NoError(t, err)
	return redis.NewClient(opts), mr
}

type fakeResult struct {
	Answer  string     `json:"answer"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	At      time.Time  `json:"at"`
	Amount  string     `json:"amount"`
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "select *", Normalize("Select * "))
	assert.Equal(t, "select *", Normalize("select\t\n *"))
	assert.Equal(t, GlobalKey("Select * "), GlobalKey("select *"))
}

func TestPutGetRoundTrip(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := New(client)
	ctx := context.Background()

	want := fakeResult{
		Answer:  "the average rating is 8.42",
		Columns: []string{"region", "avg_rating"},
		Rows:    [][]string{{"Gulf", "8.42"}},
		At:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Amount:  "12345678901234567890.123456789",
	}
	c.Put(ctx, "average rating by region", "sess-1", want)

	var got fakeResult
	assert.True(t, c.Get(ctx, "average rating by region", "sess-1", &got))
	assert.Equal(t, want, got)

	// Global key serves other sessions and anonymous lookups.
	got = fakeResult{}
	assert.True(t, c.Get(ctx, "Average  Rating by REGION", "", &got))
	assert.Equal(t, want, got)
}

func TestGetPrefersSessionKey(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := New(client)
	ctx := context.Background()

	c.Put(ctx, "q", "", fakeResult{Answer: "global"})
	c.Put(ctx, "q", "sess-1", fakeResult{Answer: "scoped"})

	var got fakeResult
	assert.True(t, c.Get(ctx, "q", "sess-1", &got))
	assert.Equal(t, "scoped", got.Answer)
}

func TestDisabledCacheMisses(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := New(client, WithEnabled(false))
	ctx := context.Background()

	c.Put(ctx, "q", "s", fakeResult{Answer: "x"})
	var got fakeResult
	assert.False(t, c.Get(ctx, "q", "s", &got))
}

func TestTTLExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client, WithTTL(time.Second))
	ctx := context.Background()

	c.Put(ctx, "q", "", fakeResult{Answer: "x"})
	var got fakeResult
	assert.True(t, c.Get(ctx, "q", "", &got))

	mr.FastForward(2 * time.Second)
	assert.False(t, c.Get(ctx, "q", "", &got))
}

func TestClearAll(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := New(client)
	ctx := context.Background()

	c.Put(ctx, "q1", "s1", fakeResult{Answer: "a"})
	c.Put(ctx, "q2", "", fakeResult{Answer: "b"})

	removed, err := c.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	var got fakeResult
	assert.False(t, c.Get(ctx, "q1", "s1", &got))
}

func TestUnreachableStoreDegradesToMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client)
	ctx := context.Background()

	mr.Close()
	var got fakeResult
	assert.False(t, c.Get(ctx, "q", "s", &got))
	c.Put(ctx, "q", "s", fakeResult{Answer: "x"}) // must not panic or error
}
