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

	"trpc.group/trpc-go/trpc-dataagent-go/memoryrule"
	"trpc.group/trpc-go/trpc-dataagent-go/tool"
	"trpc.group/trpc-go/trpc-dataagent-go/tool/function"
	"trpc.group/trpc-go/trpc-dataagent-go/workflow"
)

// listWorkflowsArgs are the arguments for the list_workflows tool.
type listWorkflowsArgs struct {
	ProjectID string `json:"project_id" description:"Project to list workflows for."`
}

// listRunsArgs are the arguments for the list_workflow_runs tool.
type listRunsArgs struct {
	ProjectID  string `json:"project_id" description:"Project the workflow belongs to."`
	WorkflowID string `json:"workflow_id" description:"Workflow whose runs to list."`
	Limit      *int   `json:"limit,omitempty" description:"Maximum number of runs to return."`
}

// NewPlatformProvider exposes the read-only platform operations as a tool
// provider, so they are also reachable through orchestrator dispatch.
// Mutations are deliberately absent: they only run through the plan/confirm
// flow.
func NewPlatformProvider(workflows workflow.Service, rules memoryrule.Service) *function.Provider {
	listWorkflows := function.New(
		string(ActionListWorkflows),
		"List the project's workflows.",
		function.SchemaFor[listWorkflowsArgs](),
		func(ctx context.Context, args map[string]any, ec tool.ExecutionContext) (any, error) {
			projectID, _ := args["project_id"].(string)
			key := workflow.ProjectKey{OrganizationID: ec.OrganizationID, ProjectID: projectID}
			return workflows.ListWorkflows(ctx, key)
		},
	)
	listRules := function.New(
		string(ActionListMemoryRules),
		"List the project's standing memory rules.",
		function.SchemaFor[listWorkflowsArgs](),
		func(ctx context.Context, args map[string]any, ec tool.ExecutionContext) (any, error) {
			projectID, _ := args["project_id"].(string)
			key := memoryrule.ProjectKey{OrganizationID: ec.OrganizationID, ProjectID: projectID}
			return rules.ListRules(ctx, key)
		},
	)
	listRuns := function.New(
		string(ActionListWorkflowRuns),
		"List recent runs of one workflow, newest first.",
		function.SchemaFor[listRunsArgs](),
		func(ctx context.Context, args map[string]any, ec tool.ExecutionContext) (any, error) {
			projectID, _ := args["project_id"].(string)
			workflowID, _ := args["workflow_id"].(string)
			limit := 0
			if v, ok := args["limit"].(float64); ok {
				limit = int(v)
			}
			key := workflow.ProjectKey{OrganizationID: ec.OrganizationID, ProjectID: projectID}
			return workflows.ListRuns(ctx, key, workflowID, limit)
		},
	)
	return function.NewProvider("platform", "1.0.0",
		"First-party platform operations (workflows, memory rules).",
		listWorkflows, listRules, listRuns)
}
