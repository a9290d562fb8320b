//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

type fakeStore struct {
	creds   Credentials
	err     error
	lookups int
}

func (f *fakeStore) GetSourceCredentials(ctx context.Context, req Request) (Credentials, error) {
	f.lookups++
	if f.err != nil {
		return Credentials{}, f.err
	}
	return f.creds, nil
}

type fakeClient struct {
	token string
}

func clientFactory(ctx context.Context, creds Credentials) (any, error) {
	return &fakeClient{token: creds.Secrets["token"]}, nil
}

func testCreds() Credentials {
	return Credentials{Provider: "crm", Secrets: map[string]string{"token": "s3cret"}}
}

func testEC() tool.ExecutionContext {
	return tool.ExecutionContext{OrganizationID: "org-1", SourceID: "src-1"}
}

func TestResolveClientCachesWithinTTL(t *testing.T) {
	store := &fakeStore{creds: testCreds()}
	now := time.Now()
	r := NewResolver("crm", store, clientFactory, withClock(func() time.Time { return now }))

	c1, err := r.ResolveClient(context.Background(), testEC())
	require.NoError(t, err)
	require.Equal(t, 1, store.lookups)

	// Within TTL: same client, no lookup.
	now = now.Add(9 * time.Minute)
	c2, err := r.ResolveClient(context.Background(), testEC())
	require.NoError(t, err)
	require.Same(t, c1, c2)
	require.Equal(t, 1, store.lookups)
}

func TestResolveClientRefreshesStaleEntry(t *testing.T) {
	store := &fakeStore{creds: testCreds()}
	now := time.Now()
	r := NewResolver("crm", store, clientFactory, withClock(func() time.Time { return now }))

	c1, err := r.ResolveClient(context.Background(), testEC())
	require.NoError(t, err)

	// Aged past the TTL: exactly one fresh lookup, new client overwrites.
	now = now.Add(DefaultTTL + time.Second)
	c2, err := r.ResolveClient(context.Background(), testEC())
	require.NoError(t, err)
	require.NotSame(t, c1, c2)
	require.Equal(t, 2, store.lookups)
}

func TestResolveClientScopedBySource(t *testing.T) {
	store := &fakeStore{creds: testCreds()}
	r := NewResolver("crm", store, clientFactory)

	c1, err := r.ResolveClient(context.Background(), tool.ExecutionContext{OrganizationID: "org-1", SourceID: "src-1"})
	require.NoError(t, err)
	c2, err := r.ResolveClient(context.Background(), tool.ExecutionContext{OrganizationID: "org-1", SourceID: "src-2"})
	require.NoError(t, err)
	require.NotSame(t, c1, c2)
	require.Equal(t, 2, store.lookups)
}

func TestResolveClientProviderMismatch(t *testing.T) {
	store := &fakeStore{creds: Credentials{Provider: "billing", Secrets: map[string]string{}}}
	r := NewResolver("crm", store, clientFactory, WithStaticClient(&fakeClient{}))

	// Mismatch is a hard failure, never coerced to the static fallback.
	_, err := r.ResolveClient(context.Background(), testEC())
	require.ErrorIs(t, err, ErrProviderMismatch)
}

func TestResolveClientNoCredentials(t *testing.T) {
	store := &fakeStore{err: errors.New("not found")}
	r := NewResolver("crm", store, clientFactory)

	_, err := r.ResolveClient(context.Background(), testEC())
	require.ErrorIs(t, err, ErrNoCredentials)

	// Nothing was cached for the failed source.
	store.err = nil
	store.creds = testCreds()
	_, err = r.ResolveClient(context.Background(), testEC())
	require.NoError(t, err)
	require.Equal(t, 2, store.lookups)
}

func TestResolveClientStaticFallback(t *testing.T) {
	static := &fakeClient{token: "static"}
	store := &fakeStore{err: errors.New("not found")}
	r := NewResolver("crm", store, clientFactory, WithStaticClient(static))

	c, err := r.ResolveClient(context.Background(), testEC())
	require.NoError(t, err)
	require.Same(t, static, c)

	// No source in context also yields the static client.
	c, err = r.ResolveClient(context.Background(), tool.ExecutionContext{OrganizationID: "org-1"})
	require.NoError(t, err)
	require.Same(t, static, c)
}

func TestResolveClientNoSourceNoStatic(t *testing.T) {
	r := NewResolver("crm", &fakeStore{creds: testCreds()}, clientFactory)
	_, err := r.ResolveClient(context.Background(), tool.ExecutionContext{OrganizationID: "org-1"})
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestInvalidate(t *testing.T) {
	store := &fakeStore{creds: testCreds()}
	r := NewResolver("crm", store, clientFactory)

	_, err := r.ResolveClient(context.Background(), testEC())
	require.NoError(t, err)
	r.Invalidate("src-1")

	_, err = r.ResolveClient(context.Background(), testEC())
	require.NoError(t, err)
	require.Equal(t, 2, store.lookups)
}
