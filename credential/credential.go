//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package credential resolves per-tenant, per-source secrets into live client
// handles and caches them with a time-to-live.
//
// The cache is keyed by source id: two execution contexts with different
// source ids never share a client, even for the same provider. Stale entries
// are evicted lazily on access; there is no background sweep. Lookups are
// never retried automatically.
package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-dataagent-go/log"
	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

// DefaultTTL is how long a cached client stays live.
const DefaultTTL = 10 * time.Minute

var (
	// ErrNoCredentials is returned when no credentials exist for the source
	// and no static fallback client was configured.
	ErrNoCredentials = errors.New("credential: no credentials for this source")
	// ErrProviderMismatch is returned when the stored credentials belong to a
	// different provider than the one expected. This is a hard failure and is
	// never silently coerced.
	ErrProviderMismatch = errors.New("credential: stored provider does not match expected provider")
)

// Credentials is one stored secret set, tagged with its owning provider.
type Credentials struct {
	// Provider is the provider these credentials belong to.
	Provider string `json:"provider"`
	// Secrets holds the raw secret material.
	Secrets map[string]string `json:"secrets"`
}

// Request scopes one credential lookup.
type Request struct {
	// SourceID is the data source whose credentials are wanted.
	SourceID string
	// OrganizationID is the owning tenant.
	OrganizationID string
	// ExpectedProvider is the provider the caller is about to use.
	ExpectedProvider string
}

// Store is the external credential lookup, implemented by the platform's
// secret storage.
type Store interface {
	// GetSourceCredentials returns the credentials stored for the request's
	// source, or an error when none exist.
	GetSourceCredentials(ctx context.Context, req Request) (Credentials, error)
}

// ClientFactory constructs a live client handle from resolved credentials.
type ClientFactory func(ctx context.Context, creds Credentials) (any, error)

// cacheEntry is a cached client handle with its creation time.
type cacheEntry struct {
	client    any
	createdAt time.Time
}

// Resolver resolves clients for one provider.
type Resolver struct {
	provider string
	store    Store
	factory  ClientFactory
	ttl      time.Duration
	static   any
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL overrides the cache time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithStaticClient sets an un-scoped, statically configured fallback client,
// used when a context carries no source or the lookup finds nothing. Meant
// for administrative and manual testing setups only.
func WithStaticClient(client any) Option {
	return func(r *Resolver) {
		r.static = client
	}
}

// withClock overrides the time source. Test hook.
func withClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a resolver for the named provider.
func NewResolver(provider string, store Store, factory ClientFactory, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		store:    store,
		factory:  factory,
		ttl:      DefaultTTL,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveClient returns a live client for the execution context.
//
// A cache hit within the TTL returns without any I/O. On miss or stale entry
// one lookup is performed; a successful lookup constructs a new client and
// overwrites any stale entry (last writer wins). A failed lookup yields the
// static fallback when one was configured, otherwise ErrNoCredentials.
func (r *Resolver) ResolveClient(ctx context.Context, ec tool.ExecutionContext) (any, error) {
	if ec.SourceID == "" {
		if r.static != nil {
			return r.static, nil
		}
		return nil, fmt.Errorf("%w (no source in context)", ErrNoCredentials)
	}

	r.mu.Lock()
	entry, ok := r.cache[ec.SourceID]
	if ok && r.now().Sub(entry.createdAt) < r.ttl {
		r.mu.Unlock()
		return entry.client, nil
	}
	if ok {
		// Stale entry: evict now, refresh below.
		delete(r.cache, ec.SourceID)
	}
	r.mu.Unlock()

	creds, err := r.store.GetSourceCredentials(ctx, Request{
		SourceID:         ec.SourceID,
		OrganizationID:   ec.OrganizationID,
		ExpectedProvider: r.provider,
	})
	if err != nil {
		log.Debugf("credential lookup failed: provider=%s source=%s err=%v", r.provider, ec.SourceID, err)
		if r.static != nil {
			return r.static, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	if creds.Provider != "" && creds.Provider != r.provider {
		return nil, fmt.Errorf("%w: stored=%q expected=%q", ErrProviderMismatch, creds.Provider, r.provider)
	}

	client, err := r.factory(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("credential: construct client for source %q: %w", ec.SourceID, err)
	}

	r.mu.Lock()
	r.cache[ec.SourceID] = cacheEntry{client: client, createdAt: r.now()}
	r.mu.Unlock()
	return client, nil
}

// Invalidate drops the cached client for a source, if any.
func (r *Resolver) Invalidate(sourceID string) {
	r.mu.Lock()
	delete(r.cache, sourceID)
	r.mu.Unlock()
}

// Reset clears the whole cache. Test isolation hook.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.mu.Unlock()
}
