//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package tool defines the tool provider contract used by the agent core.
//
// A provider is a self-contained integration exposing a fixed set of named,
// schema-validated operations against one external system. Providers are
// consumed only through the Provider interface; the orchestrator never
// branches on provider identity except to route by name.
package tool

import "context"

// ExecutionContext carries the tenant scope for one tool call.
//
// It is the unit of credential scoping: two contexts with different SourceID
// never share a cached client, even for the same provider.
type ExecutionContext struct {
	// OrganizationID is the owning tenant. Required.
	OrganizationID string `json:"organization_id"`
	// SourceID selects the tenant's data source credentials. Optional.
	SourceID string `json:"source_id,omitempty"`
}

// Spec describes one callable tool exposed by a provider.
type Spec struct {
	// Name is the tool name, unique within its provider.
	Name string `json:"name"`
	// Description is a human-readable summary of what the tool does.
	Description string `json:"description"`
	// InputSchema is the structural validator for the tool's arguments.
	InputSchema *Schema `json:"input_schema,omitempty"`
}

// Descriptor identifies a provider and enumerates its tools.
//
// Descriptors are immutable once the provider is registered for the process
// lifetime.
type Descriptor struct {
	// Name is the provider name, unique within the registry.
	Name string `json:"name"`
	// Version is the provider version string.
	Version string `json:"version"`
	// Description is a human-readable summary of the integration.
	Description string `json:"description"`
	// Tools lists the provider's callable operations.
	Tools []Spec `json:"tools"`
}

// Provider is the capability set every tool integration must implement.
type Provider interface {
	// Descriptor returns the provider's identity and tool listing.
	// It must be callable before Initialize.
	Descriptor() Descriptor

	// Initialize prepares the provider for use. The orchestrator calls it
	// exactly once per process before the first tool call.
	Initialize(ctx context.Context) error

	// CallTool executes the named tool with already-validated arguments.
	// The execution context scopes credentials to the calling tenant.
	CallTool(ctx context.Context, name string, args map[string]any, ec ExecutionContext) (any, error)

	// Shutdown releases any resources held by the provider.
	Shutdown(ctx context.Context) error
}

// FindSpec returns the named tool spec from a descriptor, or false when the
// provider exposes no such tool.
func (d Descriptor) FindSpec(name string) (Spec, bool) {
	for _, s := range d.Tools {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}
