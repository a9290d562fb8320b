//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides the in-memory workflow service implementation.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-dataagent-go/workflow"
)

var _ workflow.Service = (*Service)(nil)

// projectWorkflows stores workflows for one project.
type projectWorkflows struct {
	mu        sync.RWMutex
	workflows map[string]*workflow.Workflow // workflowID -> workflow
	runs      map[string][]*workflow.Run    // workflowID -> runs, newest last
}

func newProjectWorkflows() *projectWorkflows {
	return &projectWorkflows{
		workflows: make(map[string]*workflow.Workflow),
		runs:      make(map[string][]*workflow.Run),
	}
}

// Service is an in-memory workflow service.
type Service struct {
	mu       sync.RWMutex
	projects map[workflow.ProjectKey]*projectWorkflows
}

// NewService creates a new in-memory workflow service.
func NewService() *Service {
	return &Service{projects: make(map[workflow.ProjectKey]*projectWorkflows)}
}

func (s *Service) getProject(key workflow.ProjectKey) *projectWorkflows {
	s.mu.RLock()
	p, ok := s.projects[key]
	s.mu.RUnlock()
	if ok {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.projects[key]; ok {
		return p
	}
	p = newProjectWorkflows()
	s.projects[key] = p
	return p
}

// CreateWorkflow creates a workflow in the project scope.
func (s *Service) CreateWorkflow(ctx context.Context, key workflow.ProjectKey, req workflow.CreateRequest) (*workflow.Workflow, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, workflow.ErrNameRequired
	}
	now := time.Now()
	wf := &workflow.Workflow{
		ID:             uuid.NewString(),
		OrganizationID: key.OrganizationID,
		ProjectID:      key.ProjectID,
		Name:           req.Name,
		Description:    req.Description,
		Schedule:       req.Schedule,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	p := s.getProject(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workflows[wf.ID] = wf
	return wf, nil
}

// ListWorkflows lists the project's workflows, newest first.
func (s *Service) ListWorkflows(ctx context.Context, key workflow.ProjectKey) ([]*workflow.Workflow, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	p := s.getProject(key)
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*workflow.Workflow, 0, len(p.workflows))
	for _, wf := range p.workflows {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListRuns lists recent runs of one workflow, newest first.
func (s *Service) ListRuns(ctx context.Context, key workflow.ProjectKey, workflowID string, limit int) ([]*workflow.Run, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	p := s.getProject(key)
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.workflows[workflowID]; !ok {
		return nil, workflow.ErrWorkflowNotFound
	}
	runs := p.runs[workflowID]
	out := make([]*workflow.Run, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		out = append(out, runs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// RecordRun appends a run for a workflow. Used by the platform scheduler;
// exposed here so tests and embedding services can seed history.
func (s *Service) RecordRun(key workflow.ProjectKey, run *workflow.Run) error {
	if err := key.CheckProjectKey(); err != nil {
		return err
	}
	p := s.getProject(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.workflows[run.WorkflowID]; !ok {
		return workflow.ErrWorkflowNotFound
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	p.runs[run.WorkflowID] = append(p.runs[run.WorkflowID], run)
	return nil
}
