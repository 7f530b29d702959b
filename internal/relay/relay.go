// Package relay copies comments between GitHub and Jira while recognising
// its own copies so they are never relayed back.
package relay

import (
	"context"
	"fmt"
	"regexp"

	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/action"
)

// Provenance suffixes appended to relayed comments.
const (
	viaJiraFormat   = " \n\n***[posted via JIRA by %s]***"
	viaGitHubFormat = " \n\n[posted via Github by %s]"
)

// Both patterns are anchored at the end of the body so a quoted suffix in the
// middle of a comment does not count as provenance.
var (
	viaJiraPattern   = regexp.MustCompile(`\[posted via JIRA by [^\]\n]+\]\*\*\*\s*$`)
	viaGitHubPattern = regexp.MustCompile(`\[posted via Github by [^\]\n]+\]\s*$`)
)

// ForGitHub renders a Jira comment for posting on GitHub.
func ForGitHub(body, author string) string {
	return body + fmt.Sprintf(viaJiraFormat, author)
}

// ForJira renders a GitHub comment for posting on Jira.
func ForJira(body, login string) string {
	return body + fmt.Sprintf(viaGitHubFormat, login)
}

// FromJira reports whether a GitHub comment body was written by the relay.
func FromJira(body string) bool {
	return viaJiraPattern.MatchString(body)
}

// FromGitHub reports whether a Jira comment body was written by the relay.
func FromGitHub(body string) bool {
	return viaGitHubPattern.MatchString(body)
}

// Relay posts comments through an executor.
type Relay struct {
	exec action.Executor
	log  *log.Entry
}

// New creates a Relay.
func New(exec action.Executor, logger *log.Logger) *Relay {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Relay{exec: exec, log: logger.WithField("component", "relay")}
}

// ToJira copies a GitHub comment onto a Jira issue. Comments that the relay
// itself wrote on GitHub are skipped. It reports whether a comment was posted.
func (r *Relay) ToJira(ctx context.Context, key, login, body string) (bool, error) {
	if FromJira(body) {
		r.log.WithField("key", key).Debug("skipping comment relayed from jira")
		return false, nil
	}
	if _, err := r.exec.Execute(ctx, action.PostJiraComment{Key: key, Body: ForJira(body, login)}); err != nil {
		return false, fmt.Errorf("failed to relay comment to %s: %w", key, err)
	}
	return true, nil
}

// ToGitHub copies a Jira comment onto a GitHub issue. Comments that the relay
// itself wrote on Jira are skipped. It reports whether a comment was posted.
func (r *Relay) ToGitHub(ctx context.Context, repo action.Repo, number int, author, body string) (bool, error) {
	if FromGitHub(body) {
		r.log.WithField("issue", number).Debug("skipping comment relayed from github")
		return false, nil
	}
	_, err := r.exec.Execute(ctx, action.CreateGitHubComment{Repo: repo, Number: number, Body: ForGitHub(body, author)})
	if err != nil {
		return false, fmt.Errorf("failed to relay comment to %s#%d: %w", repo, number, err)
	}
	return true, nil
}

// ImportComments copies the existing comments of a GitHub issue onto a newly
// created Jira issue, oldest first. It stops at the first failed post and
// returns how many comments were copied.
func (r *Relay) ImportComments(ctx context.Context, repo action.Repo, number int, key string) (int, error) {
	out, err := r.exec.Execute(ctx, action.ListGitHubComments{Repo: repo, Number: number})
	if err != nil {
		return 0, fmt.Errorf("failed to list comments: %w", err)
	}

	copied := 0
	for _, c := range out.Comments {
		posted, err := r.ToJira(ctx, key, c.GetUser().GetLogin(), c.GetBody())
		if err != nil {
			return copied, err
		}
		if posted {
			copied++
		}
	}
	return copied, nil
}
