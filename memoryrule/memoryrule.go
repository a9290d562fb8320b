//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package memoryrule defines the memory rule service consumed by the agent's
// structured action executor.
//
// Memory rules are standing instructions ("always report revenue in EUR")
// injected into future chat turns of the same project.
package memoryrule

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
	// ErrRuleTextRequired is the error for rule text required.
	ErrRuleTextRequired = errors.New("rule text is required")
)

// Rule is one standing instruction.
type Rule struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ProjectID      string    `json:"project_id"`
	// Text is the instruction as the user phrased it.
	Text string `json:"text"`
	// Topics tag the rule for retrieval. Optional.
	Topics    []string  `json:"topics,omitempty"`
	CreatedAt time.Time `json:"created_at"`
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

// Service defines the memory rule service operations.
type Service interface {
	// CreateRule records a standing instruction in the project scope.
	CreateRule(ctx context.Context, key ProjectKey, text string, topics []string) (*Rule, error)

	// ListRules lists the project's rules, newest first.
	ListRules(ctx context.Context, key ProjectKey) ([]*Rule, error)
}
