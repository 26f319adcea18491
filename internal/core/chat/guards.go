// Package chat contains the pure business logic for chat submission.
// This is part of the Functional Core - no I/O, only pure functions.
package chat

import (
	"fmt"
	"time"
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

// SubmitContext provides context for submission guards.
type SubmitContext struct {
	Text       string
	LastSubmit time.Time
	Now        time.Time
	Cooldown   time.Duration
}

// CanSubmit evaluates whether a chat message may be submitted.
// Rule: the text must be non-empty and the minimum cooldown since the
// previous submission must have elapsed, so a double-send from the same
// input cannot create duplicate in-flight generations.
func CanSubmit(ctx SubmitContext) GuardResult {
	if ctx.Text == "" {
		return GuardResult{Allowed: false, Reason: "message text is empty"}
	}
	if !ctx.LastSubmit.IsZero() {
		elapsed := ctx.Now.Sub(ctx.LastSubmit)
		if elapsed < ctx.Cooldown {
			wait := ctx.Cooldown - elapsed
			return GuardResult{
				Allowed: false,
				Reason:  fmt.Sprintf("please wait %s before sending another message", wait.Round(time.Millisecond)),
			}
		}
	}
	return GuardResult{Allowed: true}
}
