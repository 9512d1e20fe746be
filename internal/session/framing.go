package session

import (
	"regexp"
	"strings"
)

// PromptMarker is printed by the chat executable when it waits for input.
const PromptMarker = ">"

var (
	// endOfTurn matches an escape sequence, the rest of its line, a newline and a
	// fresh prompt marker at the end of the buffered output.
	endOfTurn = regexp.MustCompile("\x1b[^\n]*\n> ?$")

	ansiSGR = regexp.MustCompile("\x1b\\[[0-9;]*[A-Za-z]")
)

// isReady reports whether chunk carries the readiness marker.
func isReady(chunk string) bool {
	return strings.Contains(chunk, PromptMarker)
}

// splitEndOfTurn returns the reply preceding the end-of-turn marker, if buf ends
// with one. The marker starts at the last escape byte on the line before the prompt.
func splitEndOfTurn(buf string) (string, bool) {
	loc := endOfTurn.FindStringIndex(buf)
	if loc == nil {
		return "", false
	}

	marker := buf[loc[0]:]
	nl := strings.LastIndexByte(marker, '\n')
	esc := strings.LastIndexByte(marker[:nl], '\x1b')

	reply := ansiSGR.ReplaceAllString(buf[:loc[0]+esc], "")

	return trimPrompt(reply), true
}

// trimPrompt removes a trailing prompt marker.
func trimPrompt(s string) string {
	return strings.TrimSuffix(s, PromptMarker)
}
