package artifact

import (
	"fmt"

	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/models"
)

// StaleTransition is one planned approved->stale transition. Only the
// status and stale reason change; content and version stay untouched.
type StaleTransition struct {
	ArtifactID   string
	ArtifactType string
	Reason       string
}

// StaleTransitions plans the staleness cascade after the artifact for
// changedType received a new version. Every downstream artifact that is
// currently approved goes stale, because the document it was approved
// against has changed underneath it.
//
// The cascade is one-directional and direct: an upstream revision stales
// its approved dependents, nothing cascades further from an already-stale
// artifact. Clearing staleness requires a fresh generation (new version,
// back to draft) followed by a new explicit approval.
func StaleTransitions(changedType string, current []models.Artifact) []StaleTransition {
	changedIdx := phase.Index(changedType)
	if changedIdx < 0 {
		return nil
	}
	var out []StaleTransition
	for _, t := range phase.Pipeline[changedIdx+1:] {
		for _, a := range current {
			if a.ArtifactType != t || a.Status != models.ArtifactStatusApproved {
				continue
			}
			out = append(out, StaleTransition{
				ArtifactID:   a.ID,
				ArtifactType: a.ArtifactType,
				Reason:       fmt.Sprintf("%s was revised after this document was approved", phase.Title(changedType)),
			})
		}
	}
	return out
}

// ApplyStale returns a copy of the artifact transitioned to stale with the
// given reason. Approval fields clear (the approval no longer stands) and
// content/version are preserved exactly.
func ApplyStale(a models.Artifact, reason string) models.Artifact {
	a.Status = models.ArtifactStatusStale
	a.StaleReason.String = reason
	a.StaleReason.Valid = true
	return Normalize(a)
}
