//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package deeptool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	memoryruleinmemory "trpc.group/trpc-go/trpc-dataagent-go/memoryrule/inmemory"
	"trpc.group/trpc-go/trpc-dataagent-go/orchestrator"
	"trpc.group/trpc-go/trpc-dataagent-go/tool"
	"trpc.group/trpc-go/trpc-dataagent-go/workflow"
	workflowinmemory "trpc.group/trpc-go/trpc-dataagent-go/workflow/inmemory"
)

func TestPlatformProviderThroughDispatch(t *testing.T) {
	ctx := context.Background()
	workflows := workflowinmemory.NewService()
	rules := memoryruleinmemory.NewService()

	key := workflow.ProjectKey{OrganizationID: "org-1", ProjectID: "proj-1"}
	_, err := workflows.CreateWorkflow(ctx, key, workflow.CreateRequest{Name: "digest"})
	require.NoError(t, err)

	o := orchestrator.New()
	require.NoError(t, o.RegisterServer(NewPlatformProvider(workflows, rules)))

	ec := tool.ExecutionContext{OrganizationID: "org-1"}
	rsp, err := o.Dispatch(ctx, "platform", "list_workflows", map[string]any{"project_id": "proj-1"}, ec)
	require.NoError(t, err)
	require.True(t, rsp.Success)
	list, ok := rsp.Data.([]*workflow.Workflow)
	require.True(t, ok)
	require.Len(t, list, 1)

	// Mutations are not exposed as tools at all.
	rsp, err = o.Dispatch(ctx, "platform", "create_workflow", map[string]any{"project_id": "proj-1"}, ec)
	require.NoError(t, err)
	require.False(t, rsp.Success)
}

func TestPlatformProviderValidatesArgs(t *testing.T) {
	ctx := context.Background()
	o := orchestrator.New()
	require.NoError(t, o.RegisterServer(NewPlatformProvider(workflowinmemory.NewService(), memoryruleinmemory.NewService())))

	// Missing required project_id fails schema validation before the
	// service is touched.
	rsp, err := o.Dispatch(ctx, "platform", "list_workflow_runs", map[string]any{}, tool.ExecutionContext{OrganizationID: "org-1"})
	require.NoError(t, err)
	require.False(t, rsp.Success)
	require.NotEmpty(t, rsp.Error)
}
