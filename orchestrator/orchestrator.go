//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package orchestrator owns the set of registered tool providers and exposes
// a single dispatch entry point.
//
// The orchestrator holds no per-tenant state; all tenant scoping travels in
// the tool.ExecutionContext passed on every call. Providers are process-wide
// singletons, registered once and initialized lazily on first use.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-dataagent-go/log"
	"trpc.group/trpc-go/trpc-dataagent-go/telemetry"
	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

// Sentinel errors for caller mistakes. Runtime failures never surface as Go
// errors from Dispatch; they come back inside the response envelope.
var (
	// ErrServerNameRequired is returned when a provider name is empty.
	ErrServerNameRequired = errors.New("orchestrator: server name is required")
	// ErrToolNameRequired is returned when a tool name is empty.
	ErrToolNameRequired = errors.New("orchestrator: tool name is required")
	// ErrOrganizationRequired is returned when the execution context has no organization.
	ErrOrganizationRequired = errors.New("orchestrator: organization id is required")
)

// Metadata describes one dispatch, attached to every response.
type Metadata struct {
	// Server is the provider that handled (or failed) the call.
	Server string `json:"server"`
	// Tool is the requested tool name.
	Tool string `json:"tool"`
	// ExecutionTimeMs is the wall time spent in Dispatch.
	ExecutionTimeMs int64 `json:"execution_time_ms"`
}

// Response is the uniform dispatch envelope. Its shape is identical
// regardless of which provider failed, so callers never branch on provider
// identity.
type Response struct {
	// Success reports whether the call produced Data.
	Success bool `json:"success"`
	// Data is the provider's result when Success is true.
	Data any `json:"data,omitempty"`
	// Error is a human-readable failure message when Success is false.
	Error string `json:"error,omitempty"`
	// ErrorClass tells callers whether retrying the call could help.
	// Empty when Success is true.
	ErrorClass tool.ErrorClass `json:"error_class,omitempty"`
	// Metadata describes the dispatch.
	Metadata Metadata `json:"metadata"`
}

// serverEntry pairs a provider with its one-time initialization state.
type serverEntry struct {
	provider tool.Provider
	initOnce sync.Once
	initErr  error
}

// Orchestrator routes tool calls to registered providers.
type Orchestrator struct {
	mu      sync.RWMutex
	servers map[string]*serverEntry
}

// New creates an empty orchestrator.
func New() *Orchestrator {
	return &Orchestrator{servers: make(map[string]*serverEntry)}
}

// RegisterServer registers a provider under its descriptor name.
// Re-registration under the same name is a no-op: the first registration
// wins for the process lifetime.
func (o *Orchestrator) RegisterServer(provider tool.Provider) error {
	if provider == nil {
		return errors.New("orchestrator: provider is nil")
	}
	name := provider.Descriptor().Name
	if name == "" {
		return ErrServerNameRequired
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.servers[name]; exists {
		log.Debugf("provider %q already registered, ignoring", name)
		return nil
	}
	o.servers[name] = &serverEntry{provider: provider}
	log.Infof("registered tool provider %q", name)
	return nil
}

// ListTools returns the descriptors of all registered providers, initializing
// any provider that has not served a call yet. Providers whose initialization
// fails are listed with an empty tool set.
func (o *Orchestrator) ListTools(ctx context.Context) []tool.Descriptor {
	o.mu.RLock()
	entries := make([]*serverEntry, 0, len(o.servers))
	for _, e := range o.servers {
		entries = append(entries, e)
	}
	o.mu.RUnlock()

	descriptors := make([]tool.Descriptor, 0, len(entries))
	for _, e := range entries {
		if err := o.ensureInitialized(ctx, e); err != nil {
			log.Warnf("provider %q failed to initialize: %v", e.provider.Descriptor().Name, err)
		}
		descriptors = append(descriptors, e.provider.Descriptor())
	}
	return descriptors
}

// Dispatch routes one tool call to the owning provider and returns the
// uniform envelope. An unknown tool name is a local validation failure and
// returns immediately without contacting the provider.
//
// Only caller mistakes (missing server/tool/organization) surface as Go
// errors; every runtime failure is captured in the envelope.
func (o *Orchestrator) Dispatch(ctx context.Context, server, toolName string, args map[string]any, ec tool.ExecutionContext) (Response, error) {
	if server == "" {
		return Response{}, ErrServerNameRequired
	}
	if toolName == "" {
		return Response{}, ErrToolNameRequired
	}
	if ec.OrganizationID == "" {
		return Response{}, ErrOrganizationRequired
	}

	ctx, span := telemetry.Tracer.Start(ctx, "orchestrator.dispatch", trace.WithAttributes(
		telemetry.KeyServer.String(server),
		telemetry.KeyTool.String(toolName),
		telemetry.KeyOrganizationID.String(ec.OrganizationID),
	))
	defer span.End()

	start := time.Now()
	fail := func(class tool.ErrorClass, format string, a ...any) (Response, error) {
		return Response{
			Success:    false,
			Error:      fmt.Sprintf(format, a...),
			ErrorClass: class,
			Metadata:   Metadata{Server: server, Tool: toolName, ExecutionTimeMs: time.Since(start).Milliseconds()},
		}, nil
	}

	o.mu.RLock()
	entry, ok := o.servers[server]
	o.mu.RUnlock()
	if !ok {
		return fail(tool.ErrorClassFatal, "unknown provider %q", server)
	}

	// Providers with a static tool listing let unknown tool names fail fast
	// without ever contacting the provider. Session-backed providers only
	// learn their listing during initialization, so they get initialized
	// before the lookup.
	desc := entry.provider.Descriptor()
	if len(desc.Tools) > 0 {
		if _, ok := desc.FindSpec(toolName); !ok {
			return fail(tool.ErrorClassFatal, "provider %q has no tool %q", server, toolName)
		}
	}
	if err := o.ensureInitialized(ctx, entry); err != nil {
		return fail(tool.ClassifyError(err), "provider %q failed to initialize: %v", server, err)
	}

	spec, ok := entry.provider.Descriptor().FindSpec(toolName)
	if !ok {
		return fail(tool.ErrorClassFatal, "provider %q has no tool %q", server, toolName)
	}
	if err := spec.ValidateArgs(args); err != nil {
		return fail(tool.ErrorClassFatal, "%v", err)
	}

	data, err := entry.provider.CallTool(ctx, toolName, args, ec)
	if err != nil {
		log.Warnf("tool call failed: server=%s tool=%s err=%v", server, toolName, err)
		return fail(tool.ClassifyError(err), "%v", err)
	}
	return Response{
		Success:  true,
		Data:     data,
		Metadata: Metadata{Server: server, Tool: toolName, ExecutionTimeMs: time.Since(start).Milliseconds()},
	}, nil
}

// Shutdown shuts down all registered providers and clears the registry.
// It exists so hosts and tests can reset process-wide state.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	servers := o.servers
	o.servers = make(map[string]*serverEntry)
	o.mu.Unlock()

	var errs []error
	for name, e := range servers {
		if err := e.provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown provider %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ensureInitialized runs the provider's one-time initialization.
func (o *Orchestrator) ensureInitialized(ctx context.Context, e *serverEntry) error {
	e.initOnce.Do(func() {
		e.initErr = e.provider.Initialize(ctx)
	})
	return e.initErr
}
