// Package translate converts status, versions and assignees between the
// Jira and GitHub vocabularies.
package translate

import (
	"sort"
	"strings"
)

// Jira workflow statuses mirrored as reserved GitHub labels.
const (
	StatusToDo        = "To Do"
	StatusInProgress  = "In Progress"
	StatusNeedsReview = "Needs Review"
	StatusClosed      = "Closed"
	StatusReopened    = "Reopened"
	StatusResolved    = "Resolved"
	StatusDone        = "Done"
)

var statuses = []string{
	StatusToDo,
	StatusInProgress,
	StatusNeedsReview,
	StatusClosed,
	StatusReopened,
	StatusResolved,
	StatusDone,
}

// GitHub issue states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// IsKnownStatus reports whether status is one the sync mirrors.
func IsKnownStatus(status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// StatusLabel renders the reserved label for a status.
func StatusLabel(prefix, status string) string {
	return prefix + status
}

// IsStatusLabel reports whether label belongs to the reserved status namespace.
func IsStatusLabel(prefix, label string) bool {
	if !strings.HasPrefix(label, prefix) {
		return false
	}
	return IsKnownStatus(strings.TrimPrefix(label, prefix))
}

// WithStatus strips every reserved status label and appends the one for status.
// Other labels keep their order.
func WithStatus(prefix string, labels []string, status string) []string {
	out := make([]string, 0, len(labels)+1)
	for _, l := range labels {
		if !IsStatusLabel(prefix, l) {
			out = append(out, l)
		}
	}
	return append(out, StatusLabel(prefix, status))
}

// IssueState maps a status to the GitHub issue state it implies, or "" when
// the state should be left alone.
func IssueState(status string) string {
	switch status {
	case StatusReopened:
		return StateOpen
	case StatusClosed, StatusResolved, StatusDone:
		return StateClosed
	default:
		return ""
	}
}

// Version label prefixes.
const (
	FixedPrefix   = "Fixed in: "
	AffectsPrefix = "Affects: "
)

// VersionKind says which Jira version field a label maps to.
type VersionKind int

const (
	NotVersion VersionKind = iota
	FixVersion
	AffectsVersion
)

// ParseVersionLabel splits a version label into its kind and version.
func ParseVersionLabel(label string) (VersionKind, string) {
	switch {
	case strings.HasPrefix(label, FixedPrefix) && len(label) > len(FixedPrefix):
		return FixVersion, strings.TrimPrefix(label, FixedPrefix)
	case strings.HasPrefix(label, AffectsPrefix) && len(label) > len(AffectsPrefix):
		return AffectsVersion, strings.TrimPrefix(label, AffectsPrefix)
	default:
		return NotVersion, ""
	}
}

// VersionsFromLabels extracts fix and affects versions from GitHub labels.
func VersionsFromLabels(labels []string) (fix, affects []string) {
	for _, l := range labels {
		switch kind, v := ParseVersionLabel(l); kind {
		case FixVersion:
			fix = append(fix, v)
		case AffectsVersion:
			affects = append(affects, v)
		}
	}
	return fix, affects
}

// WithVersions replaces the version labels in labels with the ones for fix and affects.
func WithVersions(labels, fix, affects []string) []string {
	out := make([]string, 0, len(labels)+len(fix)+len(affects))
	for _, l := range labels {
		if kind, _ := ParseVersionLabel(l); kind == NotVersion {
			out = append(out, l)
		}
	}
	for _, v := range fix {
		out = append(out, FixedPrefix+v)
	}
	for _, v := range affects {
		out = append(out, AffectsPrefix+v)
	}
	return out
}

// SameSet reports whether a and b hold the same labels, ignoring order and duplicates.
func SameSet(a, b []string) bool {
	return strings.Join(normalize(a), "\x00") == strings.Join(normalize(b), "\x00")
}

func normalize(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
