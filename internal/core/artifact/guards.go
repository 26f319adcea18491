package artifact

import (
	"fmt"

	"github.com/example/atelier/internal/core/phase"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// ApproveContext provides context for approval guards.
type ApproveContext struct {
	ArtifactID   string
	ArtifactType string
	PhaseStatus  phase.Status
}

// CanApprove evaluates whether an artifact can be approved.
// Rule: only an active artifact (draft or stale, with every upstream
// required phase complete) is approvable. Approving a pending artifact
// would bypass the pipeline gate; approving a complete one is a no-op
// the caller must not rely on.
func CanApprove(ctx ApproveContext) GuardResult {
	switch ctx.PhaseStatus {
	case phase.StatusActive:
		return GuardResult{Allowed: true}
	case phase.StatusComplete:
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("artifact %s is already approved", ctx.ArtifactID),
		}
	case phase.StatusPending:
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("cannot approve %s: an earlier phase is not yet complete", phase.Title(ctx.ArtifactType)),
		}
	case phase.StatusSkipped:
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("cannot approve %s: phase is skipped in this project mode", phase.Title(ctx.ArtifactType)),
		}
	default:
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("no artifact exists for %s yet", phase.Title(ctx.ArtifactType)),
		}
	}
}
