//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

// fakeProvider counts lifecycle calls so tests can assert idempotence.
type fakeProvider struct {
	descriptor tool.Descriptor
	initCalls  int
	initErr    error
	callCalls  int
	callResult any
	callErr    error
	shutdowns  int
}

func (f *fakeProvider) Descriptor() tool.Descriptor { return f.descriptor }

func (f *fakeProvider) Initialize(ctx context.Context) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeProvider) CallTool(ctx context.Context, name string, args map[string]any, ec tool.ExecutionContext) (any, error) {
	f.callCalls++
	return f.callResult, f.callErr
}

func (f *fakeProvider) Shutdown(ctx context.Context) error {
	f.shutdowns++
	return nil
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{
		descriptor: tool.Descriptor{
			Name:    name,
			Version: "1.0.0",
			Tools: []tool.Spec{
				{
					Name:        "lookup",
					Description: "Look something up.",
					InputSchema: &tool.Schema{
						Type:       "object",
						Properties: map[string]*tool.Schema{"id": {Type: "string"}},
						Required:   []string{"id"},
					},
				},
			},
		},
		callResult: "result",
	}
}

func testContext() tool.ExecutionContext {
	return tool.ExecutionContext{OrganizationID: "org-1", SourceID: "src-1"}
}

func TestRegisterServerIdempotent(t *testing.T) {
	o := New()
	p1 := newFakeProvider("crm")
	p2 := newFakeProvider("crm")

	require.NoError(t, o.RegisterServer(p1))
	require.NoError(t, o.RegisterServer(p2))

	descriptors := o.ListTools(context.Background())
	require.Len(t, descriptors, 1)
	require.Equal(t, 1, p1.initCalls)
	// The duplicate was never initialized.
	require.Zero(t, p2.initCalls)

	// Repeated listing does not re-initialize.
	o.ListTools(context.Background())
	require.Equal(t, 1, p1.initCalls)
}

func TestDispatchSuccessEnvelope(t *testing.T) {
	o := New()
	p := newFakeProvider("crm")
	require.NoError(t, o.RegisterServer(p))

	resp, err := o.Dispatch(context.Background(), "crm", "lookup",
		map[string]any{"id": "42"}, testContext())
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "result", resp.Data)
	require.Empty(t, resp.Error)
	require.Equal(t, "crm", resp.Metadata.Server)
	require.Equal(t, "lookup", resp.Metadata.Tool)
	require.GreaterOrEqual(t, resp.Metadata.ExecutionTimeMs, int64(0))
}

func TestDispatchUnknownToolSkipsProvider(t *testing.T) {
	o := New()
	p := newFakeProvider("crm")
	require.NoError(t, o.RegisterServer(p))

	resp, err := o.Dispatch(context.Background(), "crm", "missing", nil, testContext())
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "no tool")
	require.Zero(t, p.callCalls)
	// A static tool listing rules the name out before the provider is
	// ever initialized.
	require.Zero(t, p.initCalls)
}

func TestDispatchUnknownProvider(t *testing.T) {
	o := New()
	resp, err := o.Dispatch(context.Background(), "ghost", "lookup", nil, testContext())
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "unknown provider")
}

func TestDispatchInvalidArgs(t *testing.T) {
	o := New()
	p := newFakeProvider("crm")
	require.NoError(t, o.RegisterServer(p))

	resp, err := o.Dispatch(context.Background(), "crm", "lookup",
		map[string]any{"wrong": true}, testContext())
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Zero(t, p.callCalls)
}

func TestDispatchProviderErrorWrapped(t *testing.T) {
	o := New()
	p := newFakeProvider("crm")
	p.callErr = errors.New("upstream exploded")
	require.NoError(t, o.RegisterServer(p))

	resp, err := o.Dispatch(context.Background(), "crm", "lookup",
		map[string]any{"id": "42"}, testContext())
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "upstream exploded")
	require.Equal(t, "crm", resp.Metadata.Server)
}

func TestDispatchErrorClassInEnvelope(t *testing.T) {
	o := New()
	p := newFakeProvider("crm")
	p.callErr = errors.New("dial tcp 10.0.0.1:443: connection refused")
	require.NoError(t, o.RegisterServer(p))

	resp, err := o.Dispatch(context.Background(), "crm", "lookup",
		map[string]any{"id": "42"}, testContext())
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Equal(t, tool.ErrorClassRetryable, resp.ErrorClass)

	// Local validation failures are never worth a retry.
	resp, err = o.Dispatch(context.Background(), "crm", "lookup",
		map[string]any{"wrong": true}, testContext())
	require.NoError(t, err)
	require.Equal(t, tool.ErrorClassFatal, resp.ErrorClass)

	// Success leaves the class empty.
	p.callErr = nil
	resp, err = o.Dispatch(context.Background(), "crm", "lookup",
		map[string]any{"id": "42"}, testContext())
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Empty(t, resp.ErrorClass)
}

func TestDispatchInitErrorClassified(t *testing.T) {
	o := New()
	p := newFakeProvider("crm")
	p.initErr = errors.New("read tcp: i/o timeout")
	require.NoError(t, o.RegisterServer(p))

	resp, err := o.Dispatch(context.Background(), "crm", "lookup",
		map[string]any{"id": "42"}, testContext())
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Equal(t, tool.ErrorClassRetryable, resp.ErrorClass)
}

func TestDispatchValidationRejections(t *testing.T) {
	o := New()

	_, err := o.Dispatch(context.Background(), "", "lookup", nil, testContext())
	require.ErrorIs(t, err, ErrServerNameRequired)

	_, err = o.Dispatch(context.Background(), "crm", "", nil, testContext())
	require.ErrorIs(t, err, ErrToolNameRequired)

	_, err = o.Dispatch(context.Background(), "crm", "lookup", nil, tool.ExecutionContext{})
	require.ErrorIs(t, err, ErrOrganizationRequired)
}

func TestDispatchInitFailure(t *testing.T) {
	o := New()
	p := newFakeProvider("crm")
	p.initErr = errors.New("no network")
	require.NoError(t, o.RegisterServer(p))

	resp, err := o.Dispatch(context.Background(), "crm", "lookup",
		map[string]any{"id": "42"}, testContext())
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "failed to initialize")

	// Initialization is attempted once, not per dispatch.
	_, _ = o.Dispatch(context.Background(), "crm", "lookup", map[string]any{"id": "42"}, testContext())
	require.Equal(t, 1, p.initCalls)
}

func TestShutdownResetsRegistry(t *testing.T) {
	o := New()
	p := newFakeProvider("crm")
	require.NoError(t, o.RegisterServer(p))
	o.ListTools(context.Background())

	require.NoError(t, o.Shutdown(context.Background()))
	require.Equal(t, 1, p.shutdowns)
	require.Empty(t, o.ListTools(context.Background()))

	// Registry is usable again after reset.
	require.NoError(t, o.RegisterServer(newFakeProvider("crm")))
}
