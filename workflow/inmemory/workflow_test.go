//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-dataagent-go/workflow"
)

func TestCreateAndListWorkflows(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	key := workflow.ProjectKey{OrganizationID: "org-1", ProjectID: "proj-1"}

	wf, err := svc.CreateWorkflow(ctx, key, workflow.CreateRequest{
		Name:     "nightly revenue refresh",
		Schedule: "0 2 * * *",
	})
	require.NoError(t, err)
	require.NotEmpty(t, wf.ID)
	require.Equal(t, "org-1", wf.OrganizationID)

	list, err := svc.ListWorkflows(ctx, key)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, wf.ID, list[0].ID)
}

func TestListWorkflowsIsProjectScoped(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	keyA := workflow.ProjectKey{OrganizationID: "org-1", ProjectID: "proj-a"}
	keyB := workflow.ProjectKey{OrganizationID: "org-1", ProjectID: "proj-b"}

	_, err := svc.CreateWorkflow(ctx, keyA, workflow.CreateRequest{Name: "a"})
	require.NoError(t, err)

	list, err := svc.ListWorkflows(ctx, keyB)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCreateWorkflowValidation(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	_, err := svc.CreateWorkflow(ctx, workflow.ProjectKey{ProjectID: "p"}, workflow.CreateRequest{Name: "x"})
	require.ErrorIs(t, err, workflow.ErrOrganizationRequired)

	_, err = svc.CreateWorkflow(ctx, workflow.ProjectKey{OrganizationID: "o"}, workflow.CreateRequest{Name: "x"})
	require.ErrorIs(t, err, workflow.ErrProjectRequired)

	_, err = svc.CreateWorkflow(ctx, workflow.ProjectKey{OrganizationID: "o", ProjectID: "p"}, workflow.CreateRequest{})
	require.ErrorIs(t, err, workflow.ErrNameRequired)
}

func TestListRuns(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	key := workflow.ProjectKey{OrganizationID: "org-1", ProjectID: "proj-1"}

	wf, err := svc.CreateWorkflow(ctx, key, workflow.CreateRequest{Name: "refresh"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RecordRun(key, &workflow.Run{
			WorkflowID: wf.ID,
			Status:     workflow.RunStatusSucceeded,
			StartedAt:  time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := svc.ListRuns(ctx, key, wf.ID, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest first.
	require.True(t, runs[0].StartedAt.After(runs[1].StartedAt))

	_, err = svc.ListRuns(ctx, key, "missing", 0)
	require.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
}
