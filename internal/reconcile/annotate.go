package reconcile

import (
	"fmt"
	"regexp"
	"strings"
)

// Annotation cross-references one Jira key inside pull request text.
type Annotation struct {
	Key string
	// Number is the GitHub issue number paired with Key.
	Number int
	// ByNumber is set when the text mentions #Number rather than Key.
	ByNumber bool
}

// Annotate rewrites "#N" as "#N (KEY)" and "KEY" as "KEY (#N)". Several keys
// found for one number share a suffix: "#N (KEY-1, KEY-2)". A mention already
// followed by a parenthesis is left alone, so annotating twice is a no-op.
func Annotate(body string, notes []Annotation) string {
	var order []string
	suffixes := make(map[string][]string)
	for _, n := range notes {
		if n.Number <= 0 || n.Key == "" {
			continue
		}
		mention, ref := n.Key, fmt.Sprintf("#%d", n.Number)
		if n.ByNumber {
			mention, ref = ref, n.Key
		}
		if _, ok := suffixes[mention]; !ok {
			order = append(order, mention)
		}
		suffixes[mention] = append(suffixes[mention], ref)
	}

	for _, mention := range order {
		body = annotateMention(body, mention, " ("+strings.Join(suffixes[mention], ", ")+")")
	}
	return body
}

func annotateMention(body, mention, suffix string) string {
	pattern := regexp.MustCompile(`(^|[^\w&/(-])` + regexp.QuoteMeta(mention) + `\b`)

	var b strings.Builder
	last := 0
	for _, loc := range pattern.FindAllStringIndex(body, -1) {
		end := loc[1]
		b.WriteString(body[last:end])
		if !strings.HasPrefix(body[end:], " (") {
			b.WriteString(suffix)
		}
		last = end
	}
	b.WriteString(body[last:])
	return b.String()
}
