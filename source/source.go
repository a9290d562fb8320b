//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package source defines the data source adapter contract and the cached
// schema model consumed by the query pipeline.
//
// Concrete adapters (Postgres, BigQuery, Sheets) live outside the core;
// source/postgres ships as the reference implementation.
package source

import "context"

// Column describes one column of a source table.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Table describes one table of a source schema.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Schema is the table/column catalog of one data source.
type Schema struct {
	Tables []Table `json:"tables"`
}

// ConnectionStatus is the result of a connection test.
type ConnectionStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// QueryResult is the outcome of one executed statement.
type QueryResult struct {
	// Columns are the result column names in adapter order.
	Columns []string `json:"columns"`
	// Rows are the result rows in the adapter's native order.
	Rows [][]any `json:"rows"`
	// RowCount is the total number of rows the statement produced.
	RowCount int `json:"row_count"`
	// ExecutionTimeMs is the adapter-measured execution time.
	ExecutionTimeMs int64 `json:"execution_time_ms"`
}

// Adapter is the uniform surface over one connected data source.
type Adapter interface {
	// TestConnection verifies the source is reachable.
	TestConnection(ctx context.Context) ConnectionStatus

	// GetSchema returns the source's table/column catalog.
	GetSchema(ctx context.Context) (Schema, error)

	// ExecuteQuery runs one statement and returns its result. Row order is
	// the adapter's native order; callers must not re-sort.
	ExecuteQuery(ctx context.Context, sql string, params ...any) (QueryResult, error)

	// Disconnect releases the underlying connection.
	Disconnect(ctx context.Context) error
}

// QueryValidator is optionally implemented by adapters that can check a
// statement without executing it.
type QueryValidator interface {
	ValidateQuery(ctx context.Context, sql string) error
}
