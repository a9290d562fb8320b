//
// Tencent is pleased to support the open source community by making trpc-dataagent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dataagent-go is licensed under the Apache License Version 2.0.
//
//

// Package artifact defines the saved insight model: artifacts, their
// append-only version history, the query specs versions point at, and
// dashboard composition.
//
// Versions are never edited in place. Saving a change appends version N+1
// and moves the artifact's current pointer; every historical version stays
// addressable so dashboards can pin what they were built against.
package artifact

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
	// ErrNameRequired is the error for artifact name required.
	ErrNameRequired = errors.New("artifact name is required")
	// ErrInvalidType is returned for a type outside the closed set.
	ErrInvalidType = errors.New("invalid artifact type")
	// ErrArtifactNotFound is returned when an artifact id does not exist in
	// the tenant scope.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrVersionNotFound is returned when a version id does not exist.
	ErrVersionNotFound = errors.New("artifact version not found")
	// ErrItemNotFound is returned when updating a dashboard item that does
	// not exist.
	ErrItemNotFound = errors.New("dashboard item not found")
	// ErrVersionMismatch is returned when a dashboard item pins a version
	// that belongs to a different artifact than the item's child.
	ErrVersionMismatch = errors.New("version does not belong to child artifact")
	// ErrNotDashboard is returned when dashboard operations target a
	// non-dashboard artifact.
	ErrNotDashboard = errors.New("artifact is not a dashboard")
	// ErrDashboardCycle is returned when adding an item would make dashboard
	// containment cyclic.
	ErrDashboardCycle = errors.New("dashboard containment would form a cycle")
	// ErrArtifactArchived is returned when writing to an archived artifact.
	ErrArtifactArchived = errors.New("artifact is archived")
)

// Type is the kind of saved insight.
type Type string

// Artifact types.
const (
	TypeTable     Type = "table"
	TypeChart     Type = "chart"
	TypeKPI       Type = "kpi"
	TypeReport    Type = "report"
	TypeDashboard Type = "dashboard"
)

// ValidType reports whether t is in the closed type set.
func ValidType(t Type) bool {
	switch t {
	case TypeTable, TypeChart, TypeKPI, TypeReport, TypeDashboard:
		return true
	}
	return false
}

// Status is the artifact lifecycle state. Deletion is soft: archived
// artifacts keep their history and stay referenceable by pinned dashboards.
type Status string

// Artifact statuses.
const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Artifact is one saved insight.
type Artifact struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	ProjectID      string `json:"project_id"`
	Type           Type   `json:"type"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Status         Status `json:"status"`
	// CurrentVersionID points at the latest version. Empty for dashboards,
	// which have no query of their own.
	CurrentVersionID string    `json:"current_version_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Version is one immutable snapshot of an artifact's definition.
type Version struct {
	ID         string `json:"id"`
	ArtifactID string `json:"artifact_id"`
	// Version is the 1-based monotonic sequence number within the artifact.
	Version     int       `json:"version"`
	QuerySpecID string    `json:"query_spec_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// QuerySpec is the executable definition a version points at.
type QuerySpec struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	SourceID       string    `json:"source_id"`
	SQLText        string    `json:"sql_text"`
	MetadataJSON   string    `json:"metadata_json,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DashboardItem places a pinned child artifact version on a dashboard.
type DashboardItem struct {
	ID                     string    `json:"id"`
	DashboardArtifactID    string    `json:"dashboard_artifact_id"`
	ChildArtifactID        string    `json:"child_artifact_id"`
	ChildArtifactVersionID string    `json:"child_artifact_version_id"`
	PositionJSON           string    `json:"position_json,omitempty"`
	DisplayJSON            string    `json:"display_json,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
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

// QuerySpecInput is the query definition supplied when saving a version.
type QuerySpecInput struct {
	SourceID     string `json:"source_id"`
	SQLText      string `json:"sql_text"`
	MetadataJSON string `json:"metadata_json,omitempty"`
}

// CreateRequest is the payload for creating an artifact.
type CreateRequest struct {
	Type        Type   `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Query becomes version 1 for non-dashboard artifacts. Ignored for
	// dashboards.
	Query *QuerySpecInput `json:"query,omitempty"`
}

// UpdateRequest changes artifact metadata. Nil fields are left untouched;
// definition changes go through CreateVersion instead.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ItemRequest is the payload for placing a child on a dashboard.
type ItemRequest struct {
	ChildArtifactID        string `json:"child_artifact_id"`
	ChildArtifactVersionID string `json:"child_artifact_version_id"`
	PositionJSON           string `json:"position_json,omitempty"`
	DisplayJSON            string `json:"display_json,omitempty"`
}

// ItemUpdate changes an item's placement. Nil fields are left untouched.
type ItemUpdate struct {
	PositionJSON *string `json:"position_json,omitempty"`
	DisplayJSON  *string `json:"display_json,omitempty"`
}

// Service defines the artifact store operations.
type Service interface {
	// CreateArtifact creates an artifact; non-dashboard artifacts get
	// version 1 from req.Query in the same operation.
	CreateArtifact(ctx context.Context, key ProjectKey, req CreateRequest) (*Artifact, error)

	// UpdateArtifact changes artifact metadata without touching versions.
	UpdateArtifact(ctx context.Context, key ProjectKey, artifactID string, req UpdateRequest) (*Artifact, error)

	// CreateVersion appends the next version of an artifact and moves the
	// current pointer. The sequence number is assigned by the store.
	CreateVersion(ctx context.Context, key ProjectKey, artifactID string, query QuerySpecInput) (*Version, error)

	// GetArtifact returns one artifact in the tenant scope.
	GetArtifact(ctx context.Context, key ProjectKey, artifactID string) (*Artifact, error)

	// GetVersion returns one version of an artifact.
	GetVersion(ctx context.Context, key ProjectKey, artifactID, versionID string) (*Version, error)

	// ListVersions lists an artifact's versions in ascending sequence order.
	ListVersions(ctx context.Context, key ProjectKey, artifactID string) ([]*Version, error)

	// GetQuerySpec returns the query spec a version points at.
	GetQuerySpec(ctx context.Context, key ProjectKey, querySpecID string) (*QuerySpec, error)

	// ListArtifacts lists the project's active artifacts, newest first.
	ListArtifacts(ctx context.Context, key ProjectKey) ([]*Artifact, error)

	// ArchiveArtifact soft-deletes an artifact. History is kept.
	ArchiveArtifact(ctx context.Context, key ProjectKey, artifactID string) error

	// AddDashboardItem places a pinned child version on a dashboard.
	AddDashboardItem(ctx context.Context, key ProjectKey, dashboardID string, req ItemRequest) (*DashboardItem, error)

	// UpdateDashboardItem changes an item's placement.
	UpdateDashboardItem(ctx context.Context, key ProjectKey, dashboardID, itemID string, update ItemUpdate) (*DashboardItem, error)

	// RemoveDashboardItem removes an item. Removing an absent item is not
	// an error.
	RemoveDashboardItem(ctx context.Context, key ProjectKey, dashboardID, itemID string) error

	// ListDashboardItems lists a dashboard's items in placement order.
	ListDashboardItems(ctx context.Context, key ProjectKey, dashboardID string) ([]*DashboardItem, error)
}
