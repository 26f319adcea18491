// Package artifact contains the pure business logic for artifact lifecycle:
// merge/reconciliation, approval guards, and staleness propagation.
// This is part of the Functional Core - no I/O, only pure functions.
package artifact

import (
	"database/sql"
	"time"

	"github.com/example/atelier/internal/models"
)

// Merge reconciles an incoming artifact into the current canonical list.
// It is the single authority for artifact-list mutation regardless of
// source (local optimistic write or realtime notification).
//
// Artifacts match by (ProjectID, ArtifactType). No match appends. On a
// match the incoming artifact replaces the existing one only when
// incoming.Version >= existing.Version; otherwise it is a stale or
// duplicate notification and is dropped. Equal versions overwrite
// (last writer wins) - version is the sole ordering key, not content.
//
// The returned applied flag reports whether the list changed. Replays of
// the same payload re-apply harmlessly, so the operation is idempotent
// under duplicate and out-of-order delivery.
func Merge(current []models.Artifact, incoming models.Artifact) ([]models.Artifact, bool) {
	incoming = Normalize(incoming)
	for i, existing := range current {
		if existing.ProjectID != incoming.ProjectID || existing.ArtifactType != incoming.ArtifactType {
			continue
		}
		if incoming.Version < existing.Version {
			return current, false
		}
		merged := make([]models.Artifact, len(current))
		copy(merged, current)
		merged[i] = incoming
		return merged, true
	}
	merged := make([]models.Artifact, 0, len(current)+1)
	merged = append(merged, current...)
	merged = append(merged, incoming)
	return merged, true
}

// Normalize enforces the status field invariants on an artifact row:
// approval fields are set only while approved, staleReason only while
// stale. Rows from the wire may carry leftovers from a prior status.
func Normalize(a models.Artifact) models.Artifact {
	if a.Status != models.ArtifactStatusApproved {
		a.ApprovedAt = sql.NullTime{}
		a.ApprovedBy = sql.NullString{}
	}
	if a.Status != models.ArtifactStatusStale {
		a.StaleReason = sql.NullString{}
	}
	return a
}

// Revise produces the next version of an existing artifact from freshly
// generated content. The version increments, status resets to draft, and
// approval/staleness fields clear - a revision always needs re-approval.
func Revise(existing models.Artifact, content, messageID string, now time.Time) models.Artifact {
	next := existing
	next.Content = content
	next.Version = existing.Version + 1
	next.Status = models.ArtifactStatusDraft
	next.UpdatedByMessageID = sql.NullString{String: messageID, Valid: messageID != ""}
	next.ApprovedAt = sql.NullTime{}
	next.ApprovedBy = sql.NullString{}
	next.StaleReason = sql.NullString{}
	next.UpdatedAt = now
	return next
}

// NewDraft produces the first version of an artifact for a phase.
func NewDraft(id, projectID, artifactType, content, messageID string, now time.Time) models.Artifact {
	return models.Artifact{
		ID:                 id,
		ProjectID:          projectID,
		ArtifactType:       artifactType,
		Content:            content,
		Status:             models.ArtifactStatusDraft,
		Version:            1,
		UpdatedByMessageID: sql.NullString{String: messageID, Valid: messageID != ""},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
