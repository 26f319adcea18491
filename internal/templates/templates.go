// Package templates holds the generation prompts for each pipeline phase.
// Definitions live in an embedded YAML file so prompt edits never touch
// Go code.
package templates

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed phases.yaml
var phaseFS embed.FS

// PhaseTemplate is the prompt definition for one pipeline phase.
type PhaseTemplate struct {
	Type   string `yaml:"type"`
	Title  string `yaml:"title"`
	Prompt string `yaml:"prompt"`
}

type phaseFile struct {
	Base   string          `yaml:"base"`
	Phases []PhaseTemplate `yaml:"phases"`
}

var (
	loadOnce sync.Once
	loaded   phaseFile
	loadErr  error
)

func load() (phaseFile, error) {
	loadOnce.Do(func() {
		data, err := phaseFS.ReadFile("phases.yaml")
		if err != nil {
			loadErr = fmt.Errorf("failed to read phase templates: %w", err)
			return
		}
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			loadErr = fmt.Errorf("failed to parse phase templates: %w", err)
		}
	})
	return loaded, loadErr
}

// SystemPrompt returns the full system prompt for generating the given
// phase: the shared base instructions plus the phase-specific section.
func SystemPrompt(artifactType string) (string, error) {
	file, err := load()
	if err != nil {
		return "", err
	}
	for _, p := range file.Phases {
		if p.Type == artifactType {
			return file.Base + "\n\n" + p.Prompt, nil
		}
	}
	return "", fmt.Errorf("no template for artifact type %q", artifactType)
}

// BasePrompt returns the shared base instructions, used when every phase
// is already complete and the conversation is free-form.
func BasePrompt() (string, error) {
	file, err := load()
	if err != nil {
		return "", err
	}
	return file.Base, nil
}
