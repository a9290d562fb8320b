//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package workflow defines the workflow service consumed by the agent's
// structured action executor.
//
// Workflows are tenant-scoped scheduled jobs; the core only creates and
// lists them, execution belongs to the platform scheduler.
package workflow

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrOrganizationRequired is the error for organization id required.
	ErrOrganizationRequired = errors.New("organizationID is required")
	// ErrProjectRequired is the error for project id required.
	ErrProjectRequired = errors.New("projectID is required")
	// ErrNameRequired is the error for workflow name required.
	ErrNameRequired = errors.New("workflow name is required")
	// ErrWorkflowNotFound is returned when a workflow id does not exist in
	// the project scope.
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// RunStatus is the terminal state of one workflow run.
type RunStatus string

// Run statuses.
const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Workflow is one scheduled job definition.
type Workflow struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ProjectID      string    `json:"project_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	// Schedule is a cron expression. Empty means manual trigger only.
	Schedule  string    `json:"schedule,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Run is one execution of a workflow.
type Run struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ProjectKey scopes service calls to one project of one tenant.
type ProjectKey struct {
	OrganizationID string
	ProjectID      string
}

// CheckProjectKey checks if a project key is valid.
func (k *ProjectKey) CheckProjectKey() error {
	if k.OrganizationID == "" {
		return ErrOrganizationRequired
	}
	if k.ProjectID == "" {
		return ErrProjectRequired
	}
	return nil
}

// CreateRequest is the payload for creating a workflow.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
}

// Service defines the workflow service operations.
type Service interface {
	// CreateWorkflow creates a workflow in the project scope.
	CreateWorkflow(ctx context.Context, key ProjectKey, req CreateRequest) (*Workflow, error)

	// ListWorkflows lists the project's workflows, newest first.
	ListWorkflows(ctx context.Context, key ProjectKey) ([]*Workflow, error)

	// ListRuns lists recent runs of one workflow, newest first.
	ListRuns(ctx context.Context, key ProjectKey, workflowID string, limit int) ([]*Run, error)
}
