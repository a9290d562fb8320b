//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package source

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	schema     Schema
	schemaErr  error
	getCalls   atomic.Int32
	execResult QueryResult
	execErr    error
}

func (f *fakeAdapter) TestConnection(ctx context.Context) ConnectionStatus {
	return ConnectionStatus{Success: true}
}

func (f *fakeAdapter) GetSchema(ctx context.Context) (Schema, error) {
	f.getCalls.Add(1)
	if f.schemaErr != nil {
		return Schema{}, f.schemaErr
	}
	return f.schema, nil
}

func (f *fakeAdapter) ExecuteQuery(ctx context.Context, sql string, params ...any) (QueryResult, error) {
	if f.execErr != nil {
		return QueryResult{}, f.execErr
	}
	return f.execResult, nil
}

func (f *fakeAdapter) Disconnect(ctx context.Context) error { return nil }

func testSchema() Schema {
	return Schema{Tables: []Table{
		{Name: "devices", Columns: []Column{
			{Name: "id", Type: "bigint"},
			{Name: "hostname", Type: "text"},
			{Name: "last_seen", Type: "timestamptz", Nullable: true},
		}},
		{Name: "alerts", Columns: []Column{
			{Name: "id", Type: "bigint"},
			{Name: "severity", Type: "text"},
		}},
	}}
}

func TestSummarize(t *testing.T) {
	out := Summarize(testSchema(), 0)
	require.Contains(t, out, "devices (id bigint, hostname text, last_seen timestamptz null)")
	require.Contains(t, out, "alerts (id bigint, severity text)")
}

func TestSummarizeBounded(t *testing.T) {
	schema := Schema{}
	for i := 0; i < 100; i++ {
		schema.Tables = append(schema.Tables, Table{
			Name:    "table_with_a_rather_long_name_" + strings.Repeat("x", 40),
			Columns: []Column{{Name: "id", Type: "bigint"}},
		})
	}
	out := Summarize(schema, 500)
	require.LessOrEqual(t, len(out), 600)
	require.Contains(t, out, "more tables")
}

func TestCacheGetSchema(t *testing.T) {
	adapter := &fakeAdapter{schema: testSchema()}
	now := time.Now()
	cache := NewCache(withCacheClock(func() time.Time { return now }))

	s1, err := cache.GetSchema(context.Background(), "src-1", adapter)
	require.NoError(t, err)
	require.Len(t, s1.Tables, 2)
	require.EqualValues(t, 1, adapter.getCalls.Load())

	// Fresh snapshot: no adapter call.
	_, err = cache.GetSchema(context.Background(), "src-1", adapter)
	require.NoError(t, err)
	require.EqualValues(t, 1, adapter.getCalls.Load())

	// Stale snapshot: one refresh.
	now = now.Add(DefaultSchemaTTL + time.Minute)
	_, err = cache.GetSchema(context.Background(), "src-1", adapter)
	require.NoError(t, err)
	require.EqualValues(t, 2, adapter.getCalls.Load())
}

func TestCacheGetSchemaError(t *testing.T) {
	adapter := &fakeAdapter{schemaErr: errors.New("connection refused")}
	cache := NewCache()
	_, err := cache.GetSchema(context.Background(), "src-1", adapter)
	require.Error(t, err)
}

func TestWarmAll(t *testing.T) {
	good := &fakeAdapter{schema: testSchema()}
	bad := &fakeAdapter{schemaErr: errors.New("down")}
	cache := NewCache(WithWarmPoolSize(2))

	err := cache.WarmAll(context.Background(), map[string]Adapter{
		"src-1": good,
		"src-2": good,
		"src-3": bad,
	})
	require.Error(t, err)

	// Warmed sources serve from cache without touching the adapter again.
	before := good.getCalls.Load()
	_, err = cache.GetSchema(context.Background(), "src-1", good)
	require.NoError(t, err)
	_, err = cache.GetSchema(context.Background(), "src-2", good)
	require.NoError(t, err)
	require.Equal(t, before, good.getCalls.Load())
}
