package transcript

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/models"
)

// ParsedArtifact is one fully-formed deliverable extracted from a
// completed response.
type ParsedArtifact struct {
	ArtifactType string
	Title        string
	Content      string
	Status       string // explicit status directive, draft when absent
}

// SessionState is the machine-readable state block embedded in a
// completed response.
type SessionState struct {
	CurrentStage string `json:"current_stage"`
	Mode         string `json:"mode"`
}

// Parsed is the result of parsing a completed response. Errors carries
// per-segment parse failures; a bad segment never aborts the rest.
type Parsed struct {
	Artifacts []ParsedArtifact
	Session   *SessionState
	Commands  []string
	Errors    []string
}

var statusDirectiveRe = regexp.MustCompile(`^STATUS:\s*(\S+)\s*$`)
var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n(.*?)```")

// ParseFinalResponse deterministically extracts every deliverable payload
// and the embedded session-state block from a completed (non-streaming)
// response. Parsing failure in one segment is recorded and parsing
// continues - the caller gets whatever was successfully parsed.
func ParseFinalResponse(text string) Parsed {
	var out Parsed

	stateIdx := markerLineIndex(text, stateMarker)
	deliverableRegion := text
	if stateIdx >= 0 {
		deliverableRegion = text[:stateIdx]
	}

	matches := sentinelRe.FindAllStringSubmatchIndex(deliverableRegion, -1)
	for i, m := range matches {
		title := strings.TrimSpace(deliverableRegion[m[2]:m[3]])
		segEnd := len(deliverableRegion)
		if i+1 < len(matches) {
			segEnd = matches[i+1][0]
		}
		segment := deliverableRegion[m[1]:segEnd]

		parsed, err := parseSegment(title, segment)
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
			continue
		}
		out.Artifacts = append(out.Artifacts, parsed)
	}

	if stateIdx >= 0 {
		session, err := parseSessionState(text[stateIdx:])
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		} else {
			out.Session = session
		}
	}

	out.Commands = parseCommands(text)
	return out
}

// parseSegment extracts one deliverable from the text between its sentinel
// and the next sentinel (or the state block).
func parseSegment(title, segment string) (ParsedArtifact, error) {
	artifactType, ok := phase.TypeForTitle(title)
	if !ok {
		return ParsedArtifact{}, fmt.Errorf("unknown deliverable title %q", title)
	}

	status := models.ArtifactStatusDraft
	body := segment

	// Optional explicit status directive on the first non-blank line.
	trimmed := strings.TrimLeft(body, " \t\r\n")
	if firstLine, rest, found := strings.Cut(trimmed, "\n"); found || firstLine != "" {
		if dm := statusDirectiveRe.FindStringSubmatch(strings.TrimSpace(firstLine)); dm != nil {
			directive := dm[1]
			if directive != models.ArtifactStatusDraft && directive != models.ArtifactStatusApproved {
				return ParsedArtifact{}, fmt.Errorf("deliverable %q has invalid status directive %q", title, directive)
			}
			status = directive
			body = rest
		}
	}

	if cut := terminatorIndex(body); cut >= 0 {
		body = body[:cut]
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return ParsedArtifact{}, fmt.Errorf("deliverable %q has no content", title)
	}

	return ParsedArtifact{
		ArtifactType: artifactType,
		Title:        title,
		Content:      body,
		Status:       status,
	}, nil
}

// parseSessionState extracts the fenced JSON state block that follows the
// state marker. A brace scan backs up the fence in case the fence was
// dropped from the response.
func parseSessionState(stateRegion string) (*SessionState, error) {
	raw := ""
	if fm := fencedJSONRe.FindStringSubmatch(stateRegion); len(fm) > 1 {
		raw = strings.TrimSpace(fm[1])
	} else {
		raw = extractBareJSON(stateRegion)
	}
	if raw == "" {
		return nil, fmt.Errorf("state block present but no JSON payload found")
	}

	var session SessionState
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("failed to parse state block: %w", err)
	}
	return &session, nil
}

// extractBareJSON scans for the first balanced JSON object in text.
func extractBareJSON(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		if escaped {
			escaped = false
			continue
		}
		c := text[i]
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// parseCommands extracts the optional command directives listed after the
// command marker, one per line, until a blank line or end of text.
func parseCommands(text string) []string {
	idx := strings.Index(text, cmdMarker)
	if idx < 0 {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text[idx+len(cmdMarker):], "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" {
			if len(out) > 0 {
				break
			}
			continue
		}
		out = append(out, line)
	}
	return out
}
