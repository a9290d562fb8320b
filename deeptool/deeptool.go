//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package deeptool implements the structured action planner.
//
// A user message is classified into one of a closed set of actions.
// Read-only actions run immediately; mutations come back as a plan that the
// user must confirm, and only the confirmed plan is executed. Execution
// never re-derives intent from text: it runs exactly the payload that was
// planned, matched through a single-use token.
package deeptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-dataagent-go/log"
	"trpc.group/trpc-go/trpc-dataagent-go/memoryrule"
	"trpc.group/trpc-go/trpc-dataagent-go/model"
	"trpc.group/trpc-go/trpc-dataagent-go/telemetry"
	"trpc.group/trpc-go/trpc-dataagent-go/workflow"
)

var (
	// ErrMessageRequired is returned when the message to plan is empty.
	ErrMessageRequired = errors.New("deeptool: message is required")
	// ErrUnknownAction is returned by Execute for actions outside the enum.
	ErrUnknownAction = errors.New("deeptool: unknown action")
	// ErrPlanNotFound is returned when the plan token is missing, expired or
	// already consumed.
	ErrPlanNotFound = errors.New("deeptool: plan not found")
	// ErrPayloadMismatch is returned when the confirmed payload differs from
	// the planned payload.
	ErrPayloadMismatch = errors.New("deeptool: payload does not match plan")
	// ErrNotConfirmable is returned when Execute is called for an action
	// that does not go through the confirm flow.
	ErrNotConfirmable = errors.New("deeptool: action does not require confirmation")
)

// defaultPlanTTL bounds how long a pending confirmation stays valid.
const defaultPlanTTL = 10 * time.Minute

// Scope identifies the tenant and project a plan belongs to.
type Scope struct {
	OrganizationID string `json:"organization_id"`
	ProjectID      string `json:"project_id"`
}

// Plan is the outcome of classifying one message.
type Plan struct {
	// Mode tells the caller how to proceed.
	Mode Mode `json:"mode"`
	// Action is the classified action. ActionNone when Mode is ModeNone.
	Action ActionKind `json:"action"`
	// Summary is a human-readable description of what confirming will do.
	// Non-empty whenever Mode is ModeConfirm.
	Summary string `json:"summary,omitempty"`
	// Payload is the exact action payload. For ModeConfirm the client must
	// send it back unchanged.
	Payload json.RawMessage `json:"payload,omitempty"`
	// Token identifies the pending plan for Execute. Single use.
	Token string `json:"token,omitempty"`
	// Data carries the result of an immediately executed read action.
	Data any `json:"data,omitempty"`
	// Message is the conversational answer when no action applies.
	Message string `json:"message,omitempty"`
}

// ExecuteResult is the outcome of executing a confirmed plan.
type ExecuteResult struct {
	Action ActionKind `json:"action"`
	Data   any        `json:"data,omitempty"`
}

// pendingPlan is one unconfirmed mutation.
type pendingPlan struct {
	scope     Scope
	action    ActionKind
	payload   json.RawMessage
	createdAt time.Time
}

// Tool is the structured action planner and executor.
type Tool struct {
	model     model.Provider
	workflows workflow.Service
	rules     memoryrule.Service
	planTTL   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]pendingPlan
}

// Option configures a Tool.
type Option func(*Tool)

// WithPlanTTL overrides how long pending confirmations stay valid.
func WithPlanTTL(ttl time.Duration) Option {
	return func(t *Tool) {
		if ttl > 0 {
			t.planTTL = ttl
		}
	}
}

// withClock replaces the time source. Test hook.
func withClock(now func() time.Time) Option {
	return func(t *Tool) {
		t.now = now
	}
}

// New creates a Tool over the given model and action services.
func New(provider model.Provider, workflows workflow.Service, rules memoryrule.Service, opts ...Option) *Tool {
	t := &Tool{
		model:     provider,
		workflows: workflows,
		rules:     rules,
		planTTL:   defaultPlanTTL,
		now:       time.Now,
		pending:   make(map[string]pendingPlan),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PlanAction classifies one message and either executes it (read actions)
// or returns a confirmation plan (mutations).
func (t *Tool) PlanAction(ctx context.Context, scope Scope, message string) (Plan, error) {
	if message == "" {
		return Plan{}, ErrMessageRequired
	}
	if scope.OrganizationID == "" {
		return Plan{}, workflow.ErrOrganizationRequired
	}
	if scope.ProjectID == "" {
		return Plan{}, workflow.ErrProjectRequired
	}

	ctx, span := telemetry.Tracer.Start(ctx, "deeptool.plan", trace.WithAttributes(
		telemetry.KeyOrganizationID.String(scope.OrganizationID),
	))
	defer span.End()

	cls, err := t.classify(ctx, message)
	if err != nil {
		// Classification failure is the no-action path, never a guess.
		log.Warnf("action classification failed, treating as no action: %v", err)
		return Plan{Mode: ModeNone, Action: ActionNone, Message: "I could not map that to a supported action."}, nil
	}

	switch modeFor(cls.action) {
	case ModeRead:
		data, err := t.runRead(ctx, scope, cls.action, cls.payload)
		if err != nil {
			return Plan{}, err
		}
		return Plan{Mode: ModeRead, Action: cls.action, Payload: cls.payload, Data: data}, nil
	case ModeConfirm:
		token := uuid.NewString()
		t.mu.Lock()
		t.evictExpiredLocked()
		t.pending[token] = pendingPlan{
			scope:     scope,
			action:    cls.action,
			payload:   cls.payload,
			createdAt: t.now(),
		}
		t.mu.Unlock()
		return Plan{
			Mode:    ModeConfirm,
			Action:  cls.action,
			Summary: cls.summary,
			Payload: cls.payload,
			Token:   token,
		}, nil
	default:
		return Plan{Mode: ModeNone, Action: ActionNone, Message: cls.message}, nil
	}
}

// Execute runs a previously planned mutation. The action and payload must
// match the plan identified by the token exactly; the token is consumed
// whether or not the underlying service call succeeds.
func (t *Tool) Execute(ctx context.Context, scope Scope, action ActionKind, payload json.RawMessage, token string) (ExecuteResult, error) {
	if modeFor(action) == ModeNone {
		return ExecuteResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if modeFor(action) != ModeConfirm {
		return ExecuteResult{}, fmt.Errorf("%w: %q", ErrNotConfirmable, action)
	}

	t.mu.Lock()
	plan, ok := t.pending[token]
	if ok {
		delete(t.pending, token)
	}
	t.mu.Unlock()
	if !ok || t.now().Sub(plan.createdAt) > t.planTTL {
		return ExecuteResult{}, ErrPlanNotFound
	}
	if plan.scope != scope || plan.action != action {
		return ExecuteResult{}, ErrPlanNotFound
	}
	if !payloadEqual(plan.payload, payload) {
		return ExecuteResult{}, ErrPayloadMismatch
	}

	ctx, span := telemetry.Tracer.Start(ctx, "deeptool.execute", trace.WithAttributes(
		telemetry.KeyOrganizationID.String(scope.OrganizationID),
	))
	defer span.End()

	key := workflow.ProjectKey{OrganizationID: scope.OrganizationID, ProjectID: scope.ProjectID}
	switch action {
	case ActionCreateWorkflow:
		var p CreateWorkflowPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return ExecuteResult{}, fmt.Errorf("deeptool: decode create_workflow payload: %w", err)
		}
		wf, err := t.workflows.CreateWorkflow(ctx, key, workflow.CreateRequest{
			Name:        p.Name,
			Description: p.Description,
			Schedule:    p.Schedule,
		})
		if err != nil {
			return ExecuteResult{}, err
		}
		return ExecuteResult{Action: action, Data: wf}, nil
	case ActionCreateMemoryRule:
		var p CreateMemoryRulePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return ExecuteResult{}, fmt.Errorf("deeptool: decode create_memory_rule payload: %w", err)
		}
		rule, err := t.rules.CreateRule(ctx, memoryrule.ProjectKey(key), p.Text, p.Topics)
		if err != nil {
			return ExecuteResult{}, err
		}
		return ExecuteResult{Action: action, Data: rule}, nil
	default:
		return ExecuteResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// runRead executes a read-only action immediately.
func (t *Tool) runRead(ctx context.Context, scope Scope, action ActionKind, payload json.RawMessage) (any, error) {
	key := workflow.ProjectKey{OrganizationID: scope.OrganizationID, ProjectID: scope.ProjectID}
	switch action {
	case ActionListWorkflows:
		return t.workflows.ListWorkflows(ctx, key)
	case ActionListMemoryRules:
		return t.rules.ListRules(ctx, memoryrule.ProjectKey(key))
	case ActionListWorkflowRuns:
		var p ListWorkflowRunsPayload
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, fmt.Errorf("deeptool: decode list_workflow_runs payload: %w", err)
			}
		}
		return t.workflows.ListRuns(ctx, key, p.WorkflowID, p.Limit)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// evictExpiredLocked drops pending plans past their TTL. Caller holds t.mu.
func (t *Tool) evictExpiredLocked() {
	cutoff := t.now().Add(-t.planTTL)
	for token, plan := range t.pending {
		if plan.createdAt.Before(cutoff) {
			delete(t.pending, token)
		}
	}
}

// payloadEqual compares payloads by JSON value, not byte layout, so clients
// may re-serialize the plan payload without invalidating it. Any semantic
// difference fails the match.
func payloadEqual(a, b json.RawMessage) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
