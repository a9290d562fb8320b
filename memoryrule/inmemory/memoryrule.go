//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides the in-memory memory rule service implementation.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-dataagent-go/memoryrule"
)

var _ memoryrule.Service = (*Service)(nil)

// Service is an in-memory memory rule service.
type Service struct {
	mu       sync.RWMutex
	projects map[memoryrule.ProjectKey][]*memoryrule.Rule
}

// NewService creates a new in-memory memory rule service.
func NewService() *Service {
	return &Service{projects: make(map[memoryrule.ProjectKey][]*memoryrule.Rule)}
}

// CreateRule records a standing instruction in the project scope.
func (s *Service) CreateRule(ctx context.Context, key memoryrule.ProjectKey, text string, topics []string) (*memoryrule.Rule, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, memoryrule.ErrRuleTextRequired
	}
	rule := &memoryrule.Rule{
		ID:             uuid.NewString(),
		OrganizationID: key.OrganizationID,
		ProjectID:      key.ProjectID,
		Text:           text,
		Topics:         topics,
		CreatedAt:      time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[key] = append(s.projects[key], rule)
	return rule, nil
}

// ListRules lists the project's rules, newest first.
func (s *Service) ListRules(ctx context.Context, key memoryrule.ProjectKey) ([]*memoryrule.Rule, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := s.projects[key]
	out := make([]*memoryrule.Rule, len(rules))
	copy(out, rules)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
