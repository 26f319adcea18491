// Package phase contains the pure business logic for pipeline phases.
// This is part of the Functional Core - no I/O, only pure functions.
package phase

import "github.com/example/atelier/internal/models"

// Pipeline is the fixed total order of the eight artifact types.
// An artifact for position N logically depends on every type before it.
// This order is the single source of truth for "earlier" - no other
// ordering (timestamps, versions) participates in phase resolution.
var Pipeline = []string{
	models.ArtifactTypeContract,
	models.ArtifactTypeDiscovery,
	models.ArtifactTypePersona,
	models.ArtifactTypeStrategy,
	models.ArtifactTypeBlueprint,
	models.ArtifactTypeScenarios,
	models.ArtifactTypeAssessment,
	models.ArtifactTypeAudit,
}

// quickSubset is the reduced pipeline used by quick-mode projects.
// Phases outside this set are permanently skipped in quick mode.
var quickSubset = map[string]bool{
	models.ArtifactTypeContract:   true,
	models.ArtifactTypeBlueprint:  true,
	models.ArtifactTypeScenarios:  true,
	models.ArtifactTypeAssessment: true,
}

// titles maps artifact types to the deliverable titles the generation
// service emits in its sentinel lines.
var titles = map[string]string{
	models.ArtifactTypeContract:   "Phase 1 Contract",
	models.ArtifactTypeDiscovery:  "Discovery Report",
	models.ArtifactTypePersona:    "Learner Persona",
	models.ArtifactTypeStrategy:   "Learning Strategy",
	models.ArtifactTypeBlueprint:  "Course Blueprint",
	models.ArtifactTypeScenarios:  "Scenario Set",
	models.ArtifactTypeAssessment: "Assessment Plan",
	models.ArtifactTypeAudit:      "Quality Audit",
}

// Index returns the pipeline position of an artifact type, or -1 when the
// type is not part of the pipeline.
func Index(artifactType string) int {
	for i, t := range Pipeline {
		if t == artifactType {
			return i
		}
	}
	return -1
}

// IsValidType reports whether the given string is one of the eight
// pipeline artifact types.
func IsValidType(artifactType string) bool {
	return Index(artifactType) >= 0
}

// InMode reports whether a phase participates in the pipeline for the
// given project mode.
func InMode(artifactType, mode string) bool {
	if mode == models.ProjectModeQuick {
		return quickSubset[artifactType]
	}
	return IsValidType(artifactType)
}

// Title returns the deliverable title for an artifact type, or "" when
// the type is unknown.
func Title(artifactType string) string {
	return titles[artifactType]
}

// TypeForTitle resolves a deliverable title back to its artifact type.
// Matching is exact on the canonical title.
func TypeForTitle(title string) (string, bool) {
	for t, name := range titles {
		if name == title {
			return t, true
		}
	}
	return "", false
}

// Downstream returns the artifact types that logically depend on the
// given type, in pipeline order.
func Downstream(artifactType string) []string {
	idx := Index(artifactType)
	if idx < 0 || idx == len(Pipeline)-1 {
		return nil
	}
	out := make([]string, 0, len(Pipeline)-idx-1)
	out = append(out, Pipeline[idx+1:]...)
	return out
}
