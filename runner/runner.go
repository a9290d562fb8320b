//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package runner assembles the agent core into one façade the API layer
// calls: chat turns, structured actions, tool dispatch and artifact
// persistence, all scoped per tenant and project.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-dataagent-go/artifact"
	"trpc.group/trpc-go/trpc-dataagent-go/chat"
	"trpc.group/trpc-go/trpc-dataagent-go/deeptool"
	"trpc.group/trpc-go/trpc-dataagent-go/orchestrator"
	"trpc.group/trpc-go/trpc-dataagent-go/tool"
)

var (
	// ErrNoTrustSQL is returned when saving a chat result that carries no
	// extracted statement.
	ErrNoTrustSQL = errors.New("runner: trust record has no sql to save")
	// ErrProjectRequired is returned when the project id is empty.
	ErrProjectRequired = errors.New("runner: project id is required")
)

// PermissionCheck is implemented by the host's authorization layer. The
// core assumes it was consulted before any call arrives here; it is defined
// so hosts and the core agree on the contract.
type PermissionCheck interface {
	CanManageOrganization(ctx context.Context, userID, organizationID string) (bool, error)
}

// Runner is the assembled agent core.
type Runner struct {
	pipeline     *chat.Pipeline
	actions      *deeptool.Tool
	artifacts    artifact.Service
	orchestrator *orchestrator.Orchestrator
}

// Option configures a Runner.
type Option func(*Runner)

// WithOrchestrator attaches the tool dispatch surface.
func WithOrchestrator(o *orchestrator.Orchestrator) Option {
	return func(r *Runner) {
		r.orchestrator = o
	}
}

// New creates a Runner over the given capabilities.
func New(pipeline *chat.Pipeline, actions *deeptool.Tool, artifacts artifact.Service, opts ...Option) *Runner {
	r := &Runner{
		pipeline:  pipeline,
		actions:   actions,
		artifacts: artifacts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TurnResult is the outcome of one message handled end to end. Exactly one
// of Plan and Chat is set.
type TurnResult struct {
	Plan *deeptool.Plan `json:"plan,omitempty"`
	Chat *chat.Response `json:"chat,omitempty"`
}

// HandleMessage routes one message: the action planner goes first, and
// messages that map to no platform action fall through to the query
// pipeline.
func (r *Runner) HandleMessage(ctx context.Context, req chat.Request) (TurnResult, error) {
	if req.ProjectID == "" {
		return TurnResult{}, ErrProjectRequired
	}
	scope := deeptool.Scope{OrganizationID: req.OrganizationID, ProjectID: req.ProjectID}
	plan, err := r.actions.PlanAction(ctx, scope, req.Message)
	if err != nil {
		return TurnResult{}, err
	}
	if plan.Mode != deeptool.ModeNone {
		return TurnResult{Plan: &plan}, nil
	}
	rsp, err := r.pipeline.Run(ctx, req)
	if err != nil {
		return TurnResult{}, err
	}
	return TurnResult{Chat: &rsp}, nil
}

// RunChat executes one chat turn.
func (r *Runner) RunChat(ctx context.Context, req chat.Request) (chat.Response, error) {
	if req.ProjectID == "" {
		return chat.Response{}, ErrProjectRequired
	}
	return r.pipeline.Run(ctx, req)
}

// PlanDeepTool classifies a message into a structured action plan.
func (r *Runner) PlanDeepTool(ctx context.Context, scope deeptool.Scope, message string) (deeptool.Plan, error) {
	return r.actions.PlanAction(ctx, scope, message)
}

// ExecuteDeepTool runs a previously planned and confirmed action.
func (r *Runner) ExecuteDeepTool(ctx context.Context, scope deeptool.Scope, action deeptool.ActionKind, payload json.RawMessage, token string) (deeptool.ExecuteResult, error) {
	return r.actions.Execute(ctx, scope, action, payload, token)
}

// Dispatch forwards one tool call to the orchestrator.
func (r *Runner) Dispatch(ctx context.Context, server, toolName string, args map[string]any, ec tool.ExecutionContext) (orchestrator.Response, error) {
	if r.orchestrator == nil {
		return orchestrator.Response{}, errors.New("runner: no orchestrator configured")
	}
	return r.orchestrator.Dispatch(ctx, server, toolName, args, ec)
}

// SaveRequest saves the result of a chat turn as an artifact.
type SaveRequest struct {
	OrganizationID string        `json:"organization_id"`
	ProjectID      string        `json:"project_id"`
	SourceID       string        `json:"source_id"`
	Type           artifact.Type `json:"type"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
}

// trustMetadata is the provenance stored alongside a saved query.
type trustMetadata struct {
	Model      string   `json:"model"`
	Confidence *float64 `json:"confidence,omitempty"`
	RowCount   int      `json:"row_count"`
	Columns    []string `json:"columns,omitempty"`
}

// SaveFromChat persists a chat turn's trust record as a new artifact. The
// saved query is exactly the statement the turn executed.
func (r *Runner) SaveFromChat(ctx context.Context, req SaveRequest, trust chat.TrustRecord) (*artifact.Artifact, error) {
	if trust.SQL == "" {
		return nil, ErrNoTrustSQL
	}
	meta, err := json.Marshal(trustMetadata{
		Model:      trust.Model,
		Confidence: trust.Confidence,
		RowCount:   trust.RowCount,
		Columns:    trust.Columns,
	})
	if err != nil {
		return nil, fmt.Errorf("runner: marshal trust metadata: %w", err)
	}
	key := artifact.ProjectKey{OrganizationID: req.OrganizationID, ProjectID: req.ProjectID}
	return r.artifacts.CreateArtifact(ctx, key, artifact.CreateRequest{
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		Query: &artifact.QuerySpecInput{
			SourceID:     req.SourceID,
			SQLText:      trust.SQL,
			MetadataJSON: string(meta),
		},
	})
}

// Artifacts exposes the artifact store for CRUD passthrough.
func (r *Runner) Artifacts() artifact.Service {
	return r.artifacts
}
