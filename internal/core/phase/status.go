package phase

import "github.com/example/atelier/internal/models"

// Status is the derived state of a pipeline phase. It is computed from the
// phase's artifact (or its absence) plus pipeline position - never stored.
type Status string

const (
	// StatusComplete - the phase's artifact is approved.
	StatusComplete Status = "complete"
	// StatusActive - a draft (or stale) artifact exists and every earlier
	// required phase is complete.
	StatusActive Status = "active"
	// StatusPending - a draft (or stale) artifact exists but an earlier
	// required phase is not yet complete.
	StatusPending Status = "pending"
	// StatusEmpty - no artifact exists for the phase yet.
	StatusEmpty Status = "empty"
	// StatusSkipped - the phase is excluded by quick mode.
	StatusSkipped Status = "skipped"
)

// DocStates maps artifact type to the stored artifact status
// (draft/approved/stale) for every artifact a project currently has.
type DocStates map[string]string

// DocStatesOf builds a DocStates view from a list of artifacts.
// Artifacts with types outside the pipeline are ignored.
func DocStatesOf(artifacts []models.Artifact) DocStates {
	docs := make(DocStates, len(artifacts))
	for _, a := range artifacts {
		if IsValidType(a.ArtifactType) {
			docs[a.ArtifactType] = a.Status
		}
	}
	return docs
}

// Resolve computes the status of one phase. Pure function, no side effects.
func Resolve(artifactType string, docs DocStates, mode string) Status {
	if !InMode(artifactType, mode) {
		return StatusSkipped
	}
	st, ok := docs[artifactType]
	if !ok {
		return StatusEmpty
	}
	if st == models.ArtifactStatusApproved {
		return StatusComplete
	}
	// draft or stale
	if upstreamComplete(artifactType, docs, mode) {
		return StatusActive
	}
	return StatusPending
}

// ResolveAll computes the status of every pipeline phase.
func ResolveAll(docs DocStates, mode string) map[string]Status {
	out := make(map[string]Status, len(Pipeline))
	for _, t := range Pipeline {
		out[t] = Resolve(t, docs, mode)
	}
	return out
}

// NextExpected returns the first in-mode phase, in pipeline order, whose
// artifact is not yet approved. This is the generation target. Ok is false
// when every required phase is complete.
func NextExpected(docs DocStates, mode string) (string, bool) {
	for _, t := range Pipeline {
		if !InMode(t, mode) {
			continue
		}
		if docs[t] != models.ArtifactStatusApproved {
			return t, true
		}
	}
	return "", false
}

// upstreamComplete reports whether every required phase before artifactType
// is complete. Skipped phases do not count as required.
func upstreamComplete(artifactType string, docs DocStates, mode string) bool {
	idx := Index(artifactType)
	for _, t := range Pipeline[:idx] {
		if !InMode(t, mode) {
			continue
		}
		if docs[t] != models.ArtifactStatusApproved {
			return false
		}
	}
	return true
}
