//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package function provides function-backed tool providers.
//
// It wraps plain Go functions as schema-validated tools so that first-party
// platform operations can be dispatched through the same orchestrator path
// as external integrations.
package function

import (
	"context"
	"fmt"
	"sync"

	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

// Handler executes one tool call with validated arguments.
type Handler func(ctx context.Context, args map[string]any, ec tool.ExecutionContext) (any, error)

// Tool pairs a spec with its handler.
type Tool struct {
	spec    tool.Spec
	handler Handler
}

// New creates a function-backed tool.
func New(name, description string, schema *tool.Schema, handler Handler) *Tool {
	return &Tool{
		spec: tool.Spec{
			Name:        name,
			Description: description,
			InputSchema: schema,
		},
		handler: handler,
	}
}

// Spec returns the tool's spec.
func (t *Tool) Spec() tool.Spec {
	return t.spec
}

// Provider implements tool.Provider over a fixed set of function tools.
type Provider struct {
	descriptor tool.Descriptor

	mu    sync.RWMutex
	tools map[string]*Tool
}

var _ tool.Provider = (*Provider)(nil)

// NewProvider creates a provider exposing the given function tools.
func NewProvider(name, version, description string, tools ...*Tool) *Provider {
	p := &Provider{
		descriptor: tool.Descriptor{
			Name:        name,
			Version:     version,
			Description: description,
		},
		tools: make(map[string]*Tool, len(tools)),
	}
	for _, t := range tools {
		p.tools[t.spec.Name] = t
		p.descriptor.Tools = append(p.descriptor.Tools, t.spec)
	}
	return p
}

// Descriptor implements tool.Provider.
func (p *Provider) Descriptor() tool.Descriptor {
	return p.descriptor
}

// Initialize implements tool.Provider. Function providers have no external
// connection to establish.
func (p *Provider) Initialize(ctx context.Context) error {
	return nil
}

// CallTool implements tool.Provider.
func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any, ec tool.ExecutionContext) (any, error) {
	p.mu.RLock()
	t, ok := p.tools[name]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider %q has no tool %q", p.descriptor.Name, name)
	}
	if t.handler == nil {
		return nil, fmt.Errorf("tool %q has no handler", name)
	}
	return t.handler(ctx, args, ec)
}

// Shutdown implements tool.Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return nil
}
