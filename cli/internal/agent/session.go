// Session-handle extraction and validation.

package agent

import (
	"regexp"
	"strings"
)

// sessionMarker is the case-insensitive token that introduces the session
// handle in the agent's output (e.g. "Session id: abc-123").
const sessionMarker = "id:"

// sessionTokenRe is the restrictive shape a session handle must match. Any
// other captured value is a capture failure, not a session, so log noise
// around the marker never gets mistaken for a handle.
var sessionTokenRe = regexp.MustCompile(`^[A-Za-z0-9._-]{3,128}$`)

// ExtractSessionID scans output case-insensitively for the first line
// containing the "id:" marker and returns the first whitespace-delimited
// token after it. A missing marker or a token failing shape validation is a
// *CaptureError carrying the full output.
func ExtractSessionID(output string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(strings.ToLower(line), sessionMarker)
		if idx < 0 {
			continue
		}
		fields := strings.Fields(line[idx+len(sessionMarker):])
		if len(fields) == 0 {
			return "", &CaptureError{Reason: "no token after session marker", Output: output}
		}
		token := fields[0]
		if !sessionTokenRe.MatchString(token) {
			return "", &CaptureError{Reason: "session token " + token + " has invalid shape", Output: output}
		}
		return token, nil
	}
	return "", &CaptureError{Reason: "no session marker in agent output", Output: output}
}
