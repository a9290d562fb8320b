//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

package deeptool

// ActionKind enumerates the structured actions the tool can take. The enum
// is closed: anything the classifier produces outside it is treated as no
// action at all.
type ActionKind string

// Supported actions.
const (
	// ActionNone means the turn needs no structured action.
	ActionNone ActionKind = "none"
	// ActionCreateWorkflow creates a scheduled workflow. Mutation.
	ActionCreateWorkflow ActionKind = "create_workflow"
	// ActionCreateMemoryRule records a standing instruction. Mutation.
	ActionCreateMemoryRule ActionKind = "create_memory_rule"
	// ActionListWorkflows lists the project's workflows. Read-only.
	ActionListWorkflows ActionKind = "list_workflows"
	// ActionListMemoryRules lists the project's memory rules. Read-only.
	ActionListMemoryRules ActionKind = "list_memory_rules"
	// ActionListWorkflowRuns lists recent runs of one workflow. Read-only.
	ActionListWorkflowRuns ActionKind = "list_workflow_runs"
)

// Mode is how a planned action proceeds.
type Mode string

// Plan modes.
const (
	// ModeNone: no structured action, the answer is conversational.
	ModeNone Mode = "none"
	// ModeConfirm: a mutation awaiting explicit user confirmation.
	ModeConfirm Mode = "confirm"
	// ModeRead: a read-only action, executed immediately.
	ModeRead Mode = "read"
)

// modeFor maps each in-enum action to its mode. Unknown actions map to
// ModeNone, which is the fail-closed path.
func modeFor(action ActionKind) Mode {
	switch action {
	case ActionCreateWorkflow, ActionCreateMemoryRule:
		return ModeConfirm
	case ActionListWorkflows, ActionListMemoryRules, ActionListWorkflowRuns:
		return ModeRead
	default:
		return ModeNone
	}
}

// CreateWorkflowPayload is the payload for create_workflow.
type CreateWorkflowPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
}

// CreateMemoryRulePayload is the payload for create_memory_rule.
type CreateMemoryRulePayload struct {
	Text   string   `json:"text"`
	Topics []string `json:"topics,omitempty"`
}

// ListWorkflowRunsPayload is the payload for list_workflow_runs.
type ListWorkflowRunsPayload struct {
	WorkflowID string `json:"workflow_id"`
	Limit      int    `json:"limit,omitempty"`
}
