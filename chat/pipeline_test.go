//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-dataagent-go/credential"
	"trpc.group/trpc-go/trpc-dataagent-go/model"
	"trpc.group/trpc-go/trpc-dataagent-go/source"
	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

type fakeModel struct {
	response string
	err      error
}

func (m *fakeModel) Generate(ctx context.Context, messages []model.Message, opts model.Options) (string, error) {
	return m.response, m.err
}

func (m *fakeModel) Name() string { return "fake-model" }

type fakeAdapter struct {
	schema   source.Schema
	result   source.QueryResult
	execErr  error
	executed []string
}

func (a *fakeAdapter) TestConnection(ctx context.Context) source.ConnectionStatus {
	return source.ConnectionStatus{Success: true}
}

func (a *fakeAdapter) GetSchema(ctx context.Context) (source.Schema, error) {
	return a.schema, nil
}

func (a *fakeAdapter) ExecuteQuery(ctx context.Context, sql string, params ...any) (source.QueryResult, error) {
	a.executed = append(a.executed, sql)
	if a.execErr != nil {
		return source.QueryResult{}, a.execErr
	}
	return a.result, nil
}

func (a *fakeAdapter) Disconnect(ctx context.Context) error { return nil }

type fakeAdapterResolver struct {
	adapter source.Adapter
	err     error
}

func (r *fakeAdapterResolver) AdapterFor(ctx context.Context, ec tool.ExecutionContext) (source.Adapter, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.adapter, nil
}

const modelReply = "Here is the revenue breakdown.\n\n```sql\nSELECT region, SUM(amount) FROM orders GROUP BY region\n```\n\nConfidence: 0.9"

func newTestPipeline(adapter source.Adapter, reply string, opts ...Option) *Pipeline {
	return New(
		&fakeModel{response: reply},
		&fakeAdapterResolver{adapter: adapter},
		opts...,
	)
}

func TestRunSuccessfulTurn(t *testing.T) {
	adapter := &fakeAdapter{result: source.QueryResult{
		Columns:         []string{"region", "sum"},
		Rows:            [][]any{{"emea", 10}, {"apac", 7}},
		RowCount:        2,
		ExecutionTimeMs: 12,
	}}
	p := newTestPipeline(adapter, modelReply)

	rsp, err := p.Run(context.Background(), Request{
		OrganizationID: "org-1",
		SourceID:       "src-1",
		Message:        "revenue by region",
	})
	require.NoError(t, err)
	require.Empty(t, rsp.Error)
	require.Equal(t, "SELECT region, SUM(amount) FROM orders GROUP BY region", rsp.Trust.SQL)
	require.Equal(t, 2, rsp.Trust.RowCount)
	require.Equal(t, []string{"region", "sum"}, rsp.Trust.Columns)
	require.Equal(t, "fake-model", rsp.Trust.Model)
	require.NotNil(t, rsp.Trust.Confidence)
	require.InDelta(t, 0.9, *rsp.Trust.Confidence, 1e-9)
	require.NotEmpty(t, rsp.ArtifactActions)

	// Uncapped SELECT gets the row limit appended before execution.
	require.Len(t, adapter.executed, 1)
	require.Equal(t, "SELECT region, SUM(amount) FROM orders GROUP BY region LIMIT 100", adapter.executed[0])
}

func TestRunPreservesExistingLimit(t *testing.T) {
	adapter := &fakeAdapter{result: source.QueryResult{RowCount: 5}}
	reply := "```sql\nSELECT * FROM orders LIMIT 5\n```"
	p := newTestPipeline(adapter, reply)

	_, err := p.Run(context.Background(), Request{
		OrganizationID: "org-1", SourceID: "src-1", Message: "first five orders",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"SELECT * FROM orders LIMIT 5"}, adapter.executed)
}

func TestRunRejectsMutations(t *testing.T) {
	for _, stmt := range []string{
		"DROP TABLE orders",
		"DELETE FROM orders WHERE id = 1",
		"UPDATE orders SET amount = 0",
		"ALTER TABLE orders ADD COLUMN x int",
		"TRUNCATE orders",
		"CREATE TABLE copy AS SELECT * FROM orders",
	} {
		t.Run(stmt, func(t *testing.T) {
			adapter := &fakeAdapter{}
			p := newTestPipeline(adapter, fmt.Sprintf("```sql\n%s\n```", stmt))

			rsp, err := p.Run(context.Background(), Request{
				OrganizationID: "org-1", SourceID: "src-1", Message: "do it",
			})
			require.NoError(t, err)
			require.NotEmpty(t, rsp.Error)
			// The offending statement stays visible in the trust record but
			// never reaches the adapter.
			require.Equal(t, stmt, rsp.Trust.SQL)
			require.Empty(t, adapter.executed)
		})
	}
}

func TestRunColumnNamesContainingKeywordsPass(t *testing.T) {
	adapter := &fakeAdapter{result: source.QueryResult{RowCount: 1}}
	reply := "```sql\nSELECT update_time FROM events\n```"
	p := newTestPipeline(adapter, reply)

	rsp, err := p.Run(context.Background(), Request{
		OrganizationID: "org-1", SourceID: "src-1", Message: "latest update times",
	})
	require.NoError(t, err)
	require.Empty(t, rsp.Error)
	require.Len(t, adapter.executed, 1)
}

func TestRunNoSQLIsTerminal(t *testing.T) {
	adapter := &fakeAdapter{}
	p := newTestPipeline(adapter, "I don't have enough information to answer that.")

	rsp, err := p.Run(context.Background(), Request{
		OrganizationID: "org-1", SourceID: "src-1", Message: "something vague",
	})
	require.NoError(t, err)
	require.Empty(t, rsp.Trust.SQL)
	require.Empty(t, adapter.executed)
	require.Contains(t, rsp.Answer, "enough information")
}

type emptyCredentialStore struct {
	lookups int
}

func (s *emptyCredentialStore) GetSourceCredentials(ctx context.Context, req credential.Request) (credential.Credentials, error) {
	s.lookups++
	return credential.Credentials{}, credential.ErrNoCredentials
}

func TestRunWithoutStoredCredentials(t *testing.T) {
	store := &emptyCredentialStore{}
	factoryCalls := 0
	resolver := credential.NewResolver("postgres", store, func(ctx context.Context, creds credential.Credentials) (any, error) {
		factoryCalls++
		return &fakeAdapter{}, nil
	})
	p := New(&fakeModel{response: modelReply}, NewCredentialAdapterResolver(resolver))

	rsp, err := p.Run(context.Background(), Request{
		OrganizationID: "org-1", SourceID: "src-1", Message: "revenue by region",
	})
	require.NoError(t, err)
	require.Contains(t, rsp.Error, "no credentials")
	require.Contains(t, rsp.Error, "src-1")
	require.Equal(t, tool.ErrorClassFatal, rsp.ErrorClass)
	require.Equal(t, 1, store.lookups)
	require.Zero(t, factoryCalls)

	// Nothing was cached: the next turn hits the store again.
	_, err = p.Run(context.Background(), Request{
		OrganizationID: "org-1", SourceID: "src-1", Message: "revenue by region",
	})
	require.NoError(t, err)
	require.Equal(t, 2, store.lookups)
	require.Zero(t, factoryCalls)
}

func TestRunExecutionFailureKeepsSQL(t *testing.T) {
	adapter := &fakeAdapter{execErr: errors.New("relation \"orders\" does not exist")}
	p := newTestPipeline(adapter, modelReply)

	rsp, err := p.Run(context.Background(), Request{
		OrganizationID: "org-1", SourceID: "src-1", Message: "revenue by region",
	})
	require.NoError(t, err)
	require.NotEmpty(t, rsp.Error)
	require.Equal(t, tool.ErrorClassFatal, rsp.ErrorClass)
	require.Equal(t, "SELECT region, SUM(amount) FROM orders GROUP BY region", rsp.Trust.SQL)
	require.Zero(t, rsp.Trust.RowCount)
	require.Empty(t, rsp.ArtifactActions)
}

func TestRunGenericFenceFallback(t *testing.T) {
	adapter := &fakeAdapter{result: source.QueryResult{RowCount: 1}}
	reply := "```\nselect count(*) from users\n```"
	p := newTestPipeline(adapter, reply)

	rsp, err := p.Run(context.Background(), Request{
		OrganizationID: "org-1", SourceID: "src-1", Message: "how many users",
	})
	require.NoError(t, err)
	require.Equal(t, "select count(*) from users", rsp.Trust.SQL)
	require.Len(t, adapter.executed, 1)
}

func TestRunValidation(t *testing.T) {
	p := newTestPipeline(&fakeAdapter{}, modelReply)

	_, err := p.Run(context.Background(), Request{OrganizationID: "org-1"})
	require.ErrorIs(t, err, ErrMessageRequired)

	_, err = p.Run(context.Background(), Request{Message: "hi"})
	require.ErrorIs(t, err, ErrOrganizationRequired)
}

func TestRunSampleRowCap(t *testing.T) {
	rows := make([][]any, SampleRowCap+50)
	for i := range rows {
		rows[i] = []any{i}
	}
	adapter := &fakeAdapter{result: source.QueryResult{
		Columns:  []string{"id"},
		Rows:     rows,
		RowCount: len(rows),
	}}
	p := newTestPipeline(adapter, modelReply)

	rsp, err := p.Run(context.Background(), Request{
		OrganizationID: "org-1", SourceID: "src-1", Message: "all ids",
	})
	require.NoError(t, err)
	require.Equal(t, len(rows), rsp.Trust.RowCount)
	require.Len(t, rsp.Trust.SampleRows, SampleRowCap)
	// Native row order survives the cap.
	require.Equal(t, []any{0}, rsp.Trust.SampleRows[0])
}
