package transcript

import "testing"

func TestExtractPreview(t *testing.T) {
	tests := []struct {
		name     string
		streamed string
		want     string
	}{
		{
			name:     "no sentinel yet",
			streamed: "Let me think about the discovery phase for a moment.",
			want:     "",
		},
		{
			name:     "sentinel present with body cut at state marker",
			streamed: "preamble **DELIVERABLE: Discovery Report** body text\nSTATE\n{...}",
			want:     "body text",
		},
		{
			name:     "sentinel present but body still too short",
			streamed: "**DELIVERABLE: Discovery Report** hi",
			want:     "",
		},
		{
			name:     "body grows as the stream arrives",
			streamed: "**DELIVERABLE: Course Blueprint**\n## Module 1\nIntroduction to the topic",
			want:     "## Module 1\nIntroduction to the topic",
		},
		{
			name:     "truncated sentinel is not a sentinel",
			streamed: "some text **DELIVERABLE: Discovery Rep",
			want:     "",
		},
		{
			name:     "fence terminates the preview",
			streamed: "**DELIVERABLE: Scenario Set** scenario one here\n```json\n{\"x\":1}",
			want:     "scenario one here",
		},
		{
			name:     "save confirmation terminates the preview",
			streamed: "**DELIVERABLE: Quality Audit** audit findings follow ARTIFACT SAVED",
			want:     "audit findings follow",
		},
		{
			name:     "command list terminates the preview",
			streamed: "**DELIVERABLE: Assessment Plan** quiz layout\nCOMMANDS:\n- approve",
			want:     "quiz layout",
		},
		{
			name:     "STATE inside prose does not truncate",
			streamed: "**DELIVERABLE: Learner Persona** the STATE of the learner matters here",
			want:     "the STATE of the learner matters here",
		},
		{
			name:     "STATE on its own line does truncate",
			streamed: "**DELIVERABLE: Learner Persona** persona details\n  STATE  \nrest",
			want:     "persona details",
		},
		{
			name:     "earliest terminator wins",
			streamed: "**DELIVERABLE: Learning Strategy** strategy body\nCOMMANDS:\n- x\nSTATE\n{}",
			want:     "strategy body",
		},
		{
			name:     "whitespace-padded sentinel title",
			streamed: "**DELIVERABLE:   Discovery Report  ** padded title body",
			want:     "padded title body",
		},
		{
			name:     "empty input",
			streamed: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPreview(tt.streamed)
			if got != tt.want {
				t.Errorf("ExtractPreview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractPreviewIsIdempotent(t *testing.T) {
	streamed := "**DELIVERABLE: Discovery Report** a body of reasonable length"

	first := ExtractPreview(streamed)
	second := ExtractPreview(streamed)

	if first != second {
		t.Errorf("ExtractPreview() not idempotent: %q vs %q", first, second)
	}
}

func TestExtractPreviewMonotonicGrowth(t *testing.T) {
	// Feeding successive prefixes of a stream never panics and converges
	// on the terminated body.
	full := "intro **DELIVERABLE: Discovery Report** the report body grows here\nSTATE\n```json\n{\"current_stage\":\"discovery_report\"}\n```"
	var last string
	for i := 0; i <= len(full); i++ {
		last = ExtractPreview(full[:i])
	}
	if last != "the report body grows here" {
		t.Errorf("final preview = %q, want %q", last, "the report body grows here")
	}
}
