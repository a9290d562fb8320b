//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package function

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

func TestProviderCallTool(t *testing.T) {
	echo := New("echo", "Echo the input back.", &tool.Schema{
		Type:       "object",
		Properties: map[string]*tool.Schema{"text": {Type: "string"}},
		Required:   []string{"text"},
	}, func(ctx context.Context, args map[string]any, ec tool.ExecutionContext) (any, error) {
		return map[string]any{"text": args["text"], "org": ec.OrganizationID}, nil
	})

	p := NewProvider("platform", "1.0.0", "First-party platform operations.", echo)
	require.NoError(t, p.Initialize(context.Background()))

	d := p.Descriptor()
	require.Equal(t, "platform", d.Name)
	require.Len(t, d.Tools, 1)

	out, err := p.CallTool(context.Background(), "echo",
		map[string]any{"text": "hi"}, tool.ExecutionContext{OrganizationID: "org-1"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"text": "hi", "org": "org-1"}, out)

	_, err = p.CallTool(context.Background(), "missing", nil, tool.ExecutionContext{})
	require.Error(t, err)
}

func TestSchemaFor(t *testing.T) {
	type payload struct {
		Name    string   `json:"name" description:"Workflow name."`
		Steps   []string `json:"steps"`
		Retries int      `json:"retries,omitempty"`
		ignored string   //nolint:unused
	}

	schema := SchemaFor[payload]()
	require.Equal(t, "object", schema.Type)
	require.Equal(t, "string", schema.Properties["name"].Type)
	require.Equal(t, "Workflow name.", schema.Properties["name"].Description)
	require.Equal(t, "array", schema.Properties["steps"].Type)
	require.Equal(t, "string", schema.Properties["steps"].Items.Type)
	require.Equal(t, "integer", schema.Properties["retries"].Type)
	require.ElementsMatch(t, []string{"name", "steps"}, schema.Required)
	require.NotContains(t, schema.Properties, "ignored")
}
