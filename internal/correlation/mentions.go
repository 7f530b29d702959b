package correlation

import (
	"regexp"
	"strconv"
)

var (
	githubMention = regexp.MustCompile(`(?:^|[^\w&/])#(\d+)\b`)
	jiraMention   = regexp.MustCompile(`\b(([A-Z][A-Z0-9_]*)-[1-9][0-9]*)\b`)
)

// GitHubMentions returns the distinct #N references in text, in order of appearance.
func GitHubMentions(text string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, m := range githubMention.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// KeySet answers whether a Jira project key exists.
type KeySet interface {
	Has(projectKey string) bool
}

// JiraMentions returns the distinct KEY-N references in text whose project
// key is in keys, in order of appearance.
func JiraMentions(text string, keys KeySet) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range jiraMention.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] || !keys.Has(m[2]) {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}

// StaticKeys is a KeySet over a fixed list.
type StaticKeys map[string]struct{}

// NewStaticKeys builds a StaticKeys.
func NewStaticKeys(keys ...string) StaticKeys {
	s := make(StaticKeys, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has implements KeySet.
func (s StaticKeys) Has(key string) bool {
	_, ok := s[key]
	return ok
}
