// Package models contains domain types for Atelier entities.
// SQL persistence lives in internal/adapters/sqlite/*.go
package models

import (
	"database/sql"
	"time"
)

// Artifact represents one deliverable document for one phase of one project.
// At most one artifact exists per (ProjectID, ArtifactType) pair; a new
// version replaces the previous one, it never duplicates it.
type Artifact struct {
	ID                 string
	ProjectID          string
	ArtifactType       string
	Content            string
	Status             string
	Version            int
	UpdatedByMessageID sql.NullString
	ApprovedAt         sql.NullTime
	ApprovedBy         sql.NullString
	StaleReason        sql.NullString
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Artifact status constants
const (
	ArtifactStatusDraft    = "draft"
	ArtifactStatusApproved = "approved"
	ArtifactStatusStale    = "stale"
)

// Artifact type constants - one per pipeline phase. The pipeline order
// over these types is defined in internal/core/phase.
const (
	ArtifactTypeContract   = "phase_1_contract"
	ArtifactTypeDiscovery  = "discovery_report"
	ArtifactTypePersona    = "learner_persona"
	ArtifactTypeStrategy   = "learning_strategy"
	ArtifactTypeBlueprint  = "course_blueprint"
	ArtifactTypeScenarios  = "scenario_set"
	ArtifactTypeAssessment = "assessment_plan"
	ArtifactTypeAudit      = "quality_audit"
)
