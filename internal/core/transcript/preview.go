// Package transcript parses generation-service output: live streaming
// previews of an in-flight response and deterministic extraction of
// deliverables from a completed one.
// This is part of the Functional Core - no I/O, only pure functions.
package transcript

import (
	"regexp"
	"strings"
)

// The generation service emits a fixed sentinel immediately before each
// deliverable body, and fixed markers after it: a state-dump block, an
// optional fenced data block, a save confirmation, and a command list.
const (
	stateMarker = "STATE"
	saveMarker  = "ARTIFACT SAVED"
	cmdMarker   = "COMMANDS:"
	fenceMarker = "```"
)

// minPreviewLen is the threshold below which an extracted preview is
// treated as "not enough content to preview" - callers fall back to a
// generic loading indicator.
const minPreviewLen = 8

var sentinelRe = regexp.MustCompile(`\*\*DELIVERABLE:\s*([^*\n]+?)\s*\*\*`)

// ExtractPreview returns a best-effort partial deliverable body from an
// in-flight, incomplete response stream. It returns "" until the
// deliverable sentinel has appeared and the body has reached a minimum
// length. It never mutates canonical state, is idempotent, and tolerates
// arbitrarily malformed or truncated input - the worst case is an empty
// preview.
func ExtractPreview(streamed string) string {
	loc := sentinelRe.FindStringIndex(streamed)
	if loc == nil {
		return ""
	}
	body := streamed[loc[1]:]
	if cut := terminatorIndex(body); cut >= 0 {
		body = body[:cut]
	}
	body = strings.TrimSpace(body)
	if len(body) < minPreviewLen {
		return ""
	}
	return body
}

// terminatorIndex returns the byte offset of the earliest terminator
// marker in text, or -1 when none is present.
func terminatorIndex(text string) int {
	cut := -1
	consider := func(idx int) {
		if idx >= 0 && (cut < 0 || idx < cut) {
			cut = idx
		}
	}
	consider(markerLineIndex(text, stateMarker))
	consider(strings.Index(text, fenceMarker))
	consider(strings.Index(text, saveMarker))
	consider(strings.Index(text, cmdMarker))
	return cut
}

// markerLineIndex finds the offset of the first line consisting solely of
// the given marker. Matching whole lines keeps prose that merely contains
// the word from truncating the preview.
func markerLineIndex(text, marker string) int {
	offset := 0
	for {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		line := text[offset:]
		if lineEnd >= 0 {
			line = text[offset : offset+lineEnd]
		}
		if strings.TrimSpace(line) == marker {
			return offset
		}
		if lineEnd < 0 {
			return -1
		}
		offset += lineEnd + 1
	}
}
