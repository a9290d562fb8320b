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
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-dataagent-go/log"
)

// DefaultSchemaTTL is how long a cached schema snapshot stays fresh.
const DefaultSchemaTTL = 30 * time.Minute

// defaultWarmPoolSize caps concurrent schema fetches during WarmAll.
const defaultWarmPoolSize = 8

// snapshot is one cached schema with its fetch time.
type snapshot struct {
	schema    Schema
	fetchedAt time.Time
}

// Cache holds per-source schema snapshots with lazy TTL refresh.
type Cache struct {
	ttl      time.Duration
	poolSize int
	now      func() time.Time

	mu        sync.RWMutex
	snapshots map[string]snapshot
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithSchemaTTL overrides the snapshot time-to-live.
func WithSchemaTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithWarmPoolSize overrides the WarmAll worker pool size.
func WithWarmPoolSize(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

// withCacheClock overrides the time source. Test hook.
func withCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty schema cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		ttl:       DefaultSchemaTTL,
		poolSize:  defaultWarmPoolSize,
		now:       time.Now,
		snapshots: make(map[string]snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSchema returns the cached schema for the source, fetching through the
// adapter when the snapshot is missing or stale. Last writer wins on
// concurrent refreshes; the write is idempotent.
func (c *Cache) GetSchema(ctx context.Context, sourceID string, adapter Adapter) (Schema, error) {
	c.mu.RLock()
	snap, ok := c.snapshots[sourceID]
	c.mu.RUnlock()
	if ok && c.now().Sub(snap.fetchedAt) < c.ttl {
		return snap.schema, nil
	}

	schema, err := adapter.GetSchema(ctx)
	if err != nil {
		return Schema{}, fmt.Errorf("fetch schema for source %q: %w", sourceID, err)
	}
	c.mu.Lock()
	c.snapshots[sourceID] = snapshot{schema: schema, fetchedAt: c.now()}
	c.mu.Unlock()
	return schema, nil
}

// WarmAll refreshes snapshots for every given source concurrently through a
// bounded worker pool. Individual failures are logged and skipped; the first
// error is returned after all workers finish.
func (c *Cache) WarmAll(ctx context.Context, adapters map[string]Adapter) error {
	if len(adapters) == 0 {
		return nil
	}
	pool, err := ants.NewPool(c.poolSize)
	if err != nil {
		return fmt.Errorf("create warm pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for sourceID, adapter := range adapters {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			schema, err := adapter.GetSchema(ctx)
			if err != nil {
				log.Warnf("schema warm failed: source=%s err=%v", sourceID, err)
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("warm schema for source %q: %w", sourceID, err)
				}
				mu.Unlock()
				return
			}
			c.mu.Lock()
			c.snapshots[sourceID] = snapshot{schema: schema, fetchedAt: c.now()}
			c.mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("submit warm task for source %q: %w", sourceID, submitErr)
			}
			mu.Unlock()
		}
	}
	wg.Wait()
	return firstErr
}

// Invalidate drops the snapshot for a source, if any.
func (c *Cache) Invalidate(sourceID string) {
	c.mu.Lock()
	delete(c.snapshots, sourceID)
	c.mu.Unlock()
}

// Reset clears all snapshots. Test isolation hook.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.snapshots = make(map[string]snapshot)
	c.mu.Unlock()
}
