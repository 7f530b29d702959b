// Package correlation finds the counterpart of an issue on the other tracker.
package correlation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/similigh/jira-sync/internal/core/remote"
)

// State of a correlation marker.
type State int

const (
	Absent State = iota
	Malformed
	Present
)

func (s State) String() string {
	switch s {
	case Present:
		return "present"
	case Malformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Marker is a typed reference to a record on System.
type Marker struct {
	System remote.System
	State  State
	// Key is the Jira issue key for Jira markers.
	Key string
	// Number is the GitHub issue number for GitHub markers.
	Number int
}

// Found reports whether the marker names a counterpart. Malformed markers
// read as absent.
func (m Marker) Found() bool {
	return m.State == Present
}

var (
	titleMarker = regexp.MustCompile(`\[JIRA:\s*([^\]]*)\]`)
	issueKey    = regexp.MustCompile(`^[A-Z][A-Z0-9_]*-[1-9][0-9]*$`)
)

// ParseTitle reads the [JIRA: KEY] marker from a GitHub title. The last
// marker wins when a title carries several.
func ParseTitle(title string) Marker {
	matches := titleMarker.FindAllStringSubmatch(title, -1)
	if len(matches) == 0 {
		return Marker{System: remote.Jira, State: Absent}
	}
	key := strings.TrimSpace(matches[len(matches)-1][1])
	if !issueKey.MatchString(key) {
		return Marker{System: remote.Jira, State: Malformed}
	}
	return Marker{System: remote.Jira, State: Present, Key: key}
}

// TitleWithMarker renders a GitHub title carrying the marker for key.
func TitleWithMarker(summary, key string) string {
	return strings.TrimSpace(StripMarker(summary)) + " [JIRA: " + key + "]"
}

// StripMarker removes every [JIRA: ...] marker from a title.
func StripMarker(title string) string {
	return strings.TrimSpace(titleMarker.ReplaceAllString(title, ""))
}

// ParseIssueNumber reads a GitHub issue number stored in a Jira custom field.
// The value arrives as a JSON number or, on some instances, as text.
func ParseIssueNumber(v interface{}) Marker {
	m := Marker{System: remote.GitHub, State: Absent}
	switch n := v.(type) {
	case nil:
		return m
	case float64:
		if n > 0 && n == float64(int(n)) {
			m.State, m.Number = Present, int(n)
			return m
		}
	case int:
		if n > 0 {
			m.State, m.Number = Present, n
			return m
		}
	case string:
		if strings.TrimSpace(n) == "" {
			return m
		}
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && i > 0 {
			m.State, m.Number = Present, i
			return m
		}
	}
	m.State = Malformed
	return m
}

// IsValidKey reports whether s looks like a Jira issue key.
func IsValidKey(s string) bool {
	return issueKey.MatchString(s)
}
