//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides the in-memory artifact store implementation.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-dataagent-go/artifact"
)

var _ artifact.Service = (*Service)(nil)

// Service is an in-memory artifact store. One lock covers the whole store;
// version assignment and pointer updates are atomic under it.
type Service struct {
	mu        sync.RWMutex
	artifacts map[string]*artifact.Artifact        // artifactID -> artifact
	versions  map[string][]*artifact.Version       // artifactID -> versions, ascending
	specs     map[string]*artifact.QuerySpec       // querySpecID -> spec
	items     map[string][]*artifact.DashboardItem // dashboardID -> items, placement order
	now       func() time.Time
}

// NewService creates a new in-memory artifact store.
func NewService() *Service {
	return &Service{
		artifacts: make(map[string]*artifact.Artifact),
		versions:  make(map[string][]*artifact.Version),
		specs:     make(map[string]*artifact.QuerySpec),
		items:     make(map[string][]*artifact.DashboardItem),
		now:       time.Now,
	}
}

// getArtifactLocked resolves an artifact within the tenant scope. Caller
// holds s.mu.
func (s *Service) getArtifactLocked(key artifact.ProjectKey, artifactID string) (*artifact.Artifact, error) {
	a, ok := s.artifacts[artifactID]
	if !ok || a.OrganizationID != key.OrganizationID || a.ProjectID != key.ProjectID {
		return nil, artifact.ErrArtifactNotFound
	}
	return a, nil
}

// appendVersionLocked creates the next version and moves the current
// pointer. Caller holds s.mu.
func (s *Service) appendVersionLocked(a *artifact.Artifact, query artifact.QuerySpecInput) *artifact.Version {
	now := s.now()
	spec := &artifact.QuerySpec{
		ID:             uuid.NewString(),
		OrganizationID: a.OrganizationID,
		SourceID:       query.SourceID,
		SQLText:        query.SQLText,
		MetadataJSON:   query.MetadataJSON,
		CreatedAt:      now,
	}
	s.specs[spec.ID] = spec

	v := &artifact.Version{
		ID:          uuid.NewString(),
		ArtifactID:  a.ID,
		Version:     len(s.versions[a.ID]) + 1,
		QuerySpecID: spec.ID,
		CreatedAt:   now,
	}
	s.versions[a.ID] = append(s.versions[a.ID], v)
	a.CurrentVersionID = v.ID
	a.UpdatedAt = now
	return v
}

// CreateArtifact creates an artifact, with version 1 for non-dashboards.
func (s *Service) CreateArtifact(ctx context.Context, key artifact.ProjectKey, req artifact.CreateRequest) (*artifact.Artifact, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, artifact.ErrNameRequired
	}
	if !artifact.ValidType(req.Type) {
		return nil, artifact.ErrInvalidType
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	a := &artifact.Artifact{
		ID:             uuid.NewString(),
		OrganizationID: key.OrganizationID,
		ProjectID:      key.ProjectID,
		Type:           req.Type,
		Name:           req.Name,
		Description:    req.Description,
		Status:         artifact.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.artifacts[a.ID] = a
	if req.Type != artifact.TypeDashboard && req.Query != nil {
		s.appendVersionLocked(a, *req.Query)
	}
	return a, nil
}

// UpdateArtifact changes artifact metadata without touching versions.
func (s *Service) UpdateArtifact(ctx context.Context, key artifact.ProjectKey, artifactID string, req artifact.UpdateRequest) (*artifact.Artifact, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.getArtifactLocked(key, artifactID)
	if err != nil {
		return nil, err
	}
	if a.Status == artifact.StatusArchived {
		return nil, artifact.ErrArtifactArchived
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, artifact.ErrNameRequired
		}
		a.Name = *req.Name
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	a.UpdatedAt = s.now()
	return a, nil
}

// CreateVersion appends the next version of an artifact.
func (s *Service) CreateVersion(ctx context.Context, key artifact.ProjectKey, artifactID string, query artifact.QuerySpecInput) (*artifact.Version, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.getArtifactLocked(key, artifactID)
	if err != nil {
		return nil, err
	}
	if a.Status == artifact.StatusArchived {
		return nil, artifact.ErrArtifactArchived
	}
	return s.appendVersionLocked(a, query), nil
}

// GetArtifact returns one artifact in the tenant scope.
func (s *Service) GetArtifact(ctx context.Context, key artifact.ProjectKey, artifactID string) (*artifact.Artifact, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getArtifactLocked(key, artifactID)
}

// GetVersion returns one version of an artifact.
func (s *Service) GetVersion(ctx context.Context, key artifact.ProjectKey, artifactID, versionID string) (*artifact.Version, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.getArtifactLocked(key, artifactID); err != nil {
		return nil, err
	}
	for _, v := range s.versions[artifactID] {
		if v.ID == versionID {
			return v, nil
		}
	}
	return nil, artifact.ErrVersionNotFound
}

// ListVersions lists an artifact's versions in ascending sequence order.
func (s *Service) ListVersions(ctx context.Context, key artifact.ProjectKey, artifactID string) ([]*artifact.Version, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.getArtifactLocked(key, artifactID); err != nil {
		return nil, err
	}
	versions := s.versions[artifactID]
	out := make([]*artifact.Version, len(versions))
	copy(out, versions)
	return out, nil
}

// GetQuerySpec returns the query spec a version points at.
func (s *Service) GetQuerySpec(ctx context.Context, key artifact.ProjectKey, querySpecID string) (*artifact.QuerySpec, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.specs[querySpecID]
	if !ok || spec.OrganizationID != key.OrganizationID {
		return nil, artifact.ErrVersionNotFound
	}
	return spec, nil
}

// ListArtifacts lists the project's active artifacts, newest first.
func (s *Service) ListArtifacts(ctx context.Context, key artifact.ProjectKey) ([]*artifact.Artifact, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*artifact.Artifact, 0)
	for _, a := range s.artifacts {
		if a.OrganizationID == key.OrganizationID && a.ProjectID == key.ProjectID && a.Status == artifact.StatusActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ArchiveArtifact soft-deletes an artifact.
func (s *Service) ArchiveArtifact(ctx context.Context, key artifact.ProjectKey, artifactID string) error {
	if err := key.CheckProjectKey(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.getArtifactLocked(key, artifactID)
	if err != nil {
		return err
	}
	a.Status = artifact.StatusArchived
	a.UpdatedAt = s.now()
	return nil
}

// AddDashboardItem places a pinned child version on a dashboard.
func (s *Service) AddDashboardItem(ctx context.Context, key artifact.ProjectKey, dashboardID string, req artifact.ItemRequest) (*artifact.DashboardItem, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dash, err := s.getArtifactLocked(key, dashboardID)
	if err != nil {
		return nil, err
	}
	if dash.Type != artifact.TypeDashboard {
		return nil, artifact.ErrNotDashboard
	}
	if dash.Status == artifact.StatusArchived {
		return nil, artifact.ErrArtifactArchived
	}
	child, err := s.getArtifactLocked(key, req.ChildArtifactID)
	if err != nil {
		return nil, err
	}
	if req.ChildArtifactVersionID != "" {
		// The pinned version must belong to the child, not some other
		// artifact of the same tenant.
		found := false
		for _, v := range s.versions[child.ID] {
			if v.ID == req.ChildArtifactVersionID {
				found = true
				break
			}
		}
		if !found {
			return nil, artifact.ErrVersionMismatch
		}
	}
	if child.Type == artifact.TypeDashboard && s.reachesLocked(child.ID, dashboardID) {
		return nil, artifact.ErrDashboardCycle
	}
	if child.ID == dashboardID {
		return nil, artifact.ErrDashboardCycle
	}

	item := &artifact.DashboardItem{
		ID:                     uuid.NewString(),
		DashboardArtifactID:    dashboardID,
		ChildArtifactID:        req.ChildArtifactID,
		ChildArtifactVersionID: req.ChildArtifactVersionID,
		PositionJSON:           req.PositionJSON,
		DisplayJSON:            req.DisplayJSON,
		CreatedAt:              s.now(),
	}
	s.items[dashboardID] = append(s.items[dashboardID], item)
	return item, nil
}

// reachesLocked reports whether target is reachable from the dashboard
// rooted at from through containment edges. Caller holds s.mu.
func (s *Service) reachesLocked(from, target string) bool {
	if from == target {
		return true
	}
	for _, item := range s.items[from] {
		if s.reachesLocked(item.ChildArtifactID, target) {
			return true
		}
	}
	return false
}

// UpdateDashboardItem changes an item's placement.
func (s *Service) UpdateDashboardItem(ctx context.Context, key artifact.ProjectKey, dashboardID, itemID string, update artifact.ItemUpdate) (*artifact.DashboardItem, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getArtifactLocked(key, dashboardID); err != nil {
		return nil, err
	}
	for _, item := range s.items[dashboardID] {
		if item.ID != itemID {
			continue
		}
		if update.PositionJSON != nil {
			item.PositionJSON = *update.PositionJSON
		}
		if update.DisplayJSON != nil {
			item.DisplayJSON = *update.DisplayJSON
		}
		return item, nil
	}
	return nil, artifact.ErrItemNotFound
}

// RemoveDashboardItem removes an item. Idempotent.
func (s *Service) RemoveDashboardItem(ctx context.Context, key artifact.ProjectKey, dashboardID, itemID string) error {
	if err := key.CheckProjectKey(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getArtifactLocked(key, dashboardID); err != nil {
		return err
	}
	items := s.items[dashboardID]
	for i, item := range items {
		if item.ID == itemID {
			s.items[dashboardID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	// Already gone. Removal is idempotent.
	return nil
}

// ListDashboardItems lists a dashboard's items in placement order.
func (s *Service) ListDashboardItems(ctx context.Context, key artifact.ProjectKey, dashboardID string) ([]*artifact.DashboardItem, error) {
	if err := key.CheckProjectKey(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	dash, err := s.getArtifactLocked(key, dashboardID)
	if err != nil {
		return nil, err
	}
	if dash.Type != artifact.TypeDashboard {
		return nil, artifact.ErrNotDashboard
	}
	items := s.items[dashboardID]
	out := make([]*artifact.DashboardItem, len(items))
	copy(out, items)
	return out, nil
}
