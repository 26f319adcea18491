package templates

import (
	"strings"
	"testing"

	"github.com/example/atelier/internal/core/phase"
)

func TestSystemPromptCoversEveryPhase(t *testing.T) {
	for _, typ := range phase.Pipeline {
		prompt, err := SystemPrompt(typ)
		if err != nil {
			t.Fatalf("SystemPrompt(%s) error: %v", typ, err)
		}
		if !strings.Contains(prompt, "**DELIVERABLE:") {
			t.Errorf("SystemPrompt(%s) missing the sentinel instructions", typ)
		}
		if !strings.Contains(prompt, phase.Title(typ)) {
			t.Errorf("SystemPrompt(%s) does not name its deliverable", typ)
		}
	}
}

func TestSystemPromptUnknownType(t *testing.T) {
	if _, err := SystemPrompt("not_a_phase"); err == nil {
		t.Error("SystemPrompt(unknown) error = nil, want error")
	}
}

func TestBasePrompt(t *testing.T) {
	base, err := BasePrompt()
	if err != nil {
		t.Fatalf("BasePrompt() error: %v", err)
	}
	if !strings.Contains(base, "STATE") {
		t.Error("BasePrompt() missing the state block instructions")
	}
}
