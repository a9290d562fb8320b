//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package postgres provides the reference source.Adapter implementation over
// a PostgreSQL connection pool.
//
// Production deployments should point the pool at a read-only role; the
// pipeline's keyword gate is advisory, the database role is authoritative.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"trpc.group/trpc-go/trpc-dataagent-go/source"
)

const schemaQuery = `
SELECT c.table_name, c.column_name, c.data_type, c.is_nullable = 'YES'
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`

// Adapter implements source.Adapter over pgx.
type Adapter struct {
	pool       *pgxpool.Pool
	schemaName string
}

var (
	_ source.Adapter        = (*Adapter)(nil)
	_ source.QueryValidator = (*Adapter)(nil)
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithSchemaName selects the database schema to catalog. Defaults to public.
func WithSchemaName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.schemaName = name
		}
	}
}

// New connects a pool for the given DSN.
func New(ctx context.Context, dsn string, opts ...Option) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	a := &Adapter{pool: pool, schemaName: "public"}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewFromPool wraps an existing pool. The caller keeps ownership of the pool
// lifecycle only until Disconnect is called.
func NewFromPool(pool *pgxpool.Pool, opts ...Option) *Adapter {
	a := &Adapter{pool: pool, schemaName: "public"}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TestConnection implements source.Adapter.
func (a *Adapter) TestConnection(ctx context.Context) source.ConnectionStatus {
	if err := a.pool.Ping(ctx); err != nil {
		return source.ConnectionStatus{Success: false, Error: err.Error()}
	}
	return source.ConnectionStatus{Success: true}
}

// GetSchema implements source.Adapter.
func (a *Adapter) GetSchema(ctx context.Context) (source.Schema, error) {
	rows, err := a.pool.Query(ctx, schemaQuery, a.schemaName)
	if err != nil {
		return source.Schema{}, fmt.Errorf("postgres: load schema: %w", err)
	}
	defer rows.Close()

	var schema source.Schema
	var current *source.Table
	for rows.Next() {
		var tableName, columnName, dataType string
		var nullable bool
		if err := rows.Scan(&tableName, &columnName, &dataType, &nullable); err != nil {
			return source.Schema{}, fmt.Errorf("postgres: scan schema row: %w", err)
		}
		if current == nil || current.Name != tableName {
			schema.Tables = append(schema.Tables, source.Table{Name: tableName})
			current = &schema.Tables[len(schema.Tables)-1]
		}
		current.Columns = append(current.Columns, source.Column{
			Name:     columnName,
			Type:     dataType,
			Nullable: nullable,
		})
	}
	if err := rows.Err(); err != nil {
		return source.Schema{}, fmt.Errorf("postgres: read schema rows: %w", err)
	}
	return schema, nil
}

// ExecuteQuery implements source.Adapter.
func (a *Adapter) ExecuteQuery(ctx context.Context, sql string, params ...any) (source.QueryResult, error) {
	start := time.Now()
	rows, err := a.pool.Query(ctx, sql, params...)
	if err != nil {
		return source.QueryResult{}, fmt.Errorf("postgres: execute query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	var result source.QueryResult
	result.Columns = columns
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return source.QueryResult{}, fmt.Errorf("postgres: read row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return source.QueryResult{}, fmt.Errorf("postgres: read rows: %w", err)
	}
	result.RowCount = len(result.Rows)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// ValidateQuery implements source.QueryValidator by planning the statement
// without executing it.
func (a *Adapter) ValidateQuery(ctx context.Context, sql string) error {
	rows, err := a.pool.Query(ctx, "EXPLAIN "+sql)
	if err != nil {
		return fmt.Errorf("postgres: validate query: %w", err)
	}
	rows.Close()
	return rows.Err()
}

// Disconnect implements source.Adapter.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.pool.Close()
	return nil
}
