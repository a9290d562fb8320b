//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package mcp provides a tool provider backed by an MCP server.
//
// The provider connects over stdio or streamable HTTP, lists the server's
// tools once during Initialize, and routes CallTool through the session.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	mcp "trpc.group/trpc-go/trpc-mcp-go"

	"trpc.group/trpc-go/trpc-dataagent-go/log"
	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

// Transport constants.
const (
	// TransportStdio runs the MCP server as a subprocess.
	TransportStdio = "stdio"
	// TransportStreamable connects over streamable HTTP.
	TransportStreamable = "streamable"
)

var defaultClientInfo = mcp.Implementation{
	Name:    "trpc-dataagent-go",
	Version: "1.0.0",
}

// ConnectionConfig defines how to reach an MCP server.
type ConnectionConfig struct {
	// Transport specifies the transport method: "stdio" or "streamable".
	Transport string `json:"transport"`

	// Streamable configuration.
	ServerURL string            `json:"server_url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`

	// Stdio configuration.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	// Common configuration.
	Timeout time.Duration `json:"timeout,omitempty"`

	// ClientInfo overrides the identity reported to the server.
	ClientInfo mcp.Implementation `json:"client_info,omitempty"`
}

// connector is the subset of the MCP client used by the provider.
// It exists so tests can inject a fake session.
type connector interface {
	Initialize(ctx context.Context, req *mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req *mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Provider implements tool.Provider over one MCP server connection.
type Provider struct {
	name        string
	version     string
	description string
	config      ConnectionConfig

	newConnector func() (connector, error)

	mu     sync.RWMutex
	client connector
	tools  []tool.Spec
}

var _ tool.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithDescription sets the provider description.
func WithDescription(description string) Option {
	return func(p *Provider) {
		p.description = description
	}
}

// WithVersion sets the provider version.
func WithVersion(version string) Option {
	return func(p *Provider) {
		p.version = version
	}
}

// NewProvider creates an MCP-backed provider. The connection is established
// lazily by Initialize.
func NewProvider(name string, config ConnectionConfig, opts ...Option) *Provider {
	p := &Provider{
		name:    name,
		version: "1.0.0",
		config:  config,
	}
	p.newConnector = p.dialClient
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// dialClient creates the MCP client for the configured transport.
func (p *Provider) dialClient() (connector, error) {
	clientInfo := p.config.ClientInfo
	if clientInfo.Name == "" {
		clientInfo = defaultClientInfo
	}
	switch p.config.Transport {
	case TransportStdio:
		config := mcp.StdioTransportConfig{
			ServerParams: mcp.StdioServerParameters{
				Command: p.config.Command,
				Args:    p.config.Args,
			},
			Timeout: p.config.Timeout,
		}
		return mcp.NewStdioClient(config, clientInfo)
	case TransportStreamable, "":
		var options []mcp.ClientOption
		if len(p.config.Headers) > 0 {
			headers := http.Header{}
			for k, v := range p.config.Headers {
				headers.Set(k, v)
			}
			options = append(options, mcp.WithHTTPHeaders(headers))
		}
		return mcp.NewClient(p.config.ServerURL, clientInfo, options...)
	default:
		return nil, fmt.Errorf("unsupported transport: %s", p.config.Transport)
	}
}

// Descriptor implements tool.Provider. Before Initialize the tool listing is
// empty.
func (p *Provider) Descriptor() tool.Descriptor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tool.Descriptor{
		Name:        p.name,
		Version:     p.version,
		Description: p.description,
		Tools:       append([]tool.Spec(nil), p.tools...),
	}
}

// Initialize implements tool.Provider. It connects, initializes the MCP
// session and caches the server's tool listing.
func (p *Provider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return nil
	}

	client, err := p.newConnector()
	if err != nil {
		return fmt.Errorf("connect to MCP server %q: %w", p.name, err)
	}
	initResp, err := client.Initialize(ctx, &mcp.InitializeRequest{})
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("initialize MCP session %q: %w", p.name, err)
	}
	log.Infof("MCP session initialized: server=%s version=%s",
		initResp.ServerInfo.Name, initResp.ServerInfo.Version)

	listResp, err := client.ListTools(ctx, &mcp.ListToolsRequest{})
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("list tools from MCP server %q: %w", p.name, err)
	}
	specs := make([]tool.Spec, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		specs = append(specs, tool.Spec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: convertSchema(t.InputSchema),
		})
	}

	p.client = client
	p.tools = specs
	return nil
}

// CallTool implements tool.Provider.
func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any, ec tool.ExecutionContext) (any, error) {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("provider %q not initialized", p.name)
	}

	req := &mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call tool %s on %s: %w", name, p.name, err)
	}
	if resp.IsError {
		return nil, fmt.Errorf("tool %s on %s returned error: %s", name, p.name, textFromContent(resp.Content))
	}
	return contentToResult(resp.Content), nil
}

// Shutdown implements tool.Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	if err != nil {
		return fmt.Errorf("close MCP session %q: %w", p.name, err)
	}
	return nil
}

// convertSchema converts the MCP input schema to the local schema type via a
// JSON round-trip. A schema that fails to convert yields nil, meaning the
// tool accepts any arguments.
func convertSchema(in any) *tool.Schema {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	var schema tool.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	if schema.Type == "" && len(schema.Properties) == 0 {
		return nil
	}
	return &schema
}

// contentToResult flattens MCP content into a plain result value. Text-only
// responses collapse to a string.
func contentToResult(contents []mcp.Content) any {
	texts := make([]string, 0, len(contents))
	for _, c := range contents {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
			continue
		}
		// Non-text content is returned as-is.
		return contents
	}
	switch len(texts) {
	case 0:
		return ""
	case 1:
		return texts[0]
	default:
		return texts
	}
}

// textFromContent extracts a human-readable message from error content.
func textFromContent(contents []mcp.Content) string {
	if len(contents) == 0 {
		return "unknown error"
	}
	if tc, ok := contents[0].(mcp.TextContent); ok {
		return tc.Text
	}
	return "unknown error"
}
