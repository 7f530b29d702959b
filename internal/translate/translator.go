package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v60/github"
	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/core/config"
	"github.com/similigh/jira-sync/internal/integrations/jira"
)

// Translator applies translated state through an executor. Every method reads
// the counterpart's current state first and writes only when needed.
type Translator struct {
	exec   action.Executor
	prefix string
	log    *log.Entry
}

// New creates a Translator using prefix for reserved status labels.
func New(exec action.Executor, prefix string, logger *log.Logger) *Translator {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Translator{
		exec:   exec,
		prefix: prefix,
		log:    logger.WithField("component", "translate"),
	}
}

// Prefix returns the reserved status label prefix.
func (t *Translator) Prefix() string {
	return t.prefix
}

func repoOf(m *config.RepositoryMapping) action.Repo {
	return action.Repo{Owner: m.GitHubOwner, Name: m.GitHubName}
}

// SyncStatus mirrors a Jira status onto a GitHub issue: one write replacing
// the whole label set, plus the open/closed state for terminal statuses.
func (t *Translator) SyncStatus(ctx context.Context, repo *config.RepositoryMapping, number int, status string) error {
	if !IsKnownStatus(status) {
		t.log.WithField("status", status).Debug("ignoring unmapped status")
		return nil
	}
	ghRepo := repoOf(repo)

	out, err := t.exec.Execute(ctx, action.GetGitHubLabels{Repo: ghRepo, Number: number})
	if err != nil {
		return fmt.Errorf("failed to read labels: %w", err)
	}
	labels := WithStatus(t.prefix, out.Labels, status)

	if state := IssueState(status); state != "" {
		_, err = t.exec.Execute(ctx, action.EditGitHubIssue{
			Repo:    ghRepo,
			Number:  number,
			Request: &github.IssueRequest{State: github.String(state), Labels: &labels},
		})
	} else {
		_, err = t.exec.Execute(ctx, action.ReplaceGitHubLabels{Repo: ghRepo, Number: number, Labels: labels})
	}
	if err != nil {
		return fmt.Errorf("failed to apply status %q: %w", status, err)
	}
	return nil
}

// SyncVersions makes the version labels of a GitHub issue match the Jira
// fix/affects versions. It writes nothing when the label sets already agree
// and reports whether a write happened.
func (t *Translator) SyncVersions(ctx context.Context, repo *config.RepositoryMapping, number int, fix, affects []string) (bool, error) {
	if !repo.LabelVersions {
		return false, nil
	}
	ghRepo := repoOf(repo)

	out, err := t.exec.Execute(ctx, action.GetGitHubLabels{Repo: ghRepo, Number: number})
	if err != nil {
		return false, fmt.Errorf("failed to read labels: %w", err)
	}
	desired := WithVersions(out.Labels, fix, affects)
	if SameSet(out.Labels, desired) {
		return false, nil
	}

	if _, err := t.exec.Execute(ctx, action.ReplaceGitHubLabels{Repo: ghRepo, Number: number, Labels: desired}); err != nil {
		return false, fmt.Errorf("failed to apply versions: %w", err)
	}
	return true, nil
}

// SyncVersionLabel mirrors one GitHub version label being added or removed
// onto the Jira issue, if the Jira issue is not already in that state.
func (t *Translator) SyncVersionLabel(ctx context.Context, repo *config.RepositoryMapping, key, label string, added bool) error {
	if !repo.LabelVersions {
		return nil
	}
	kind, version := ParseVersionLabel(label)
	if kind == NotVersion {
		return nil
	}

	out, err := t.exec.Execute(ctx, action.GetJiraIssue{Key: key})
	if err != nil {
		return fmt.Errorf("failed to read jira issue: %w", err)
	}
	issue := out.JiraIssue

	var update jira.VersionUpdate
	switch kind {
	case FixVersion:
		has := contains(issue.FixVersions, version)
		if added && !has {
			update.AddFix = []string{version}
		} else if !added && has {
			update.RemoveFix = []string{version}
		}
	case AffectsVersion:
		has := contains(issue.AffectsVersions, version)
		if added && !has {
			update.AddAffects = []string{version}
		} else if !added && has {
			update.RemoveAffects = []string{version}
		}
	}
	if update.Empty() {
		return nil
	}

	if _, err := t.exec.Execute(ctx, action.UpdateJiraVersions{Key: key, Update: update}); err != nil {
		return fmt.Errorf("failed to update versions: %w", err)
	}
	return nil
}

// AssigneeToJira mirrors a GitHub assignment onto the Jira issue. Logins
// without a mapping are ignored. Unassigning clears the Jira assignee only if
// it is the mapped user.
func (t *Translator) AssigneeToJira(ctx context.Context, repo *config.RepositoryMapping, key, login string, assigned bool) error {
	jiraUser, ok := repo.Users.JiraUser(login)
	if !ok {
		t.log.WithField("login", login).Debug("no jira user mapped, leaving assignee alone")
		return nil
	}

	out, err := t.exec.Execute(ctx, action.GetJiraIssue{Key: key})
	if err != nil {
		return fmt.Errorf("failed to read jira issue: %w", err)
	}
	current := out.JiraIssue.Assignee

	var fields jira.IssueFields
	switch {
	case assigned && current != jiraUser:
		fields.Assignee = jira.AssignTo(jiraUser)
	case !assigned && current == jiraUser:
		fields.Assignee = jira.Unassigned()
	default:
		return nil
	}

	if _, err := t.exec.Execute(ctx, action.UpdateJiraIssue{Key: key, Fields: fields}); err != nil {
		return fmt.Errorf("failed to update assignee: %w", err)
	}
	return nil
}

// AssigneeToGitHub mirrors a Jira assignee change (from -> to usernames) onto
// the GitHub issue. Users without a mapping are ignored. Clearing the Jira
// assignee removes the GitHub assignee only if it maps back to from.
func (t *Translator) AssigneeToGitHub(ctx context.Context, repo *config.RepositoryMapping, number int, from, to string) error {
	var login string
	if to != "" {
		l, ok := repo.Users.GitHubUser(to)
		if !ok {
			t.log.WithField("jira_user", to).Debug("no github login mapped, leaving assignee alone")
			return nil
		}
		login = l
	} else {
		l, ok := repo.Users.GitHubUser(from)
		if !ok {
			return nil
		}
		login = l
	}

	ghRepo := repoOf(repo)
	out, err := t.exec.Execute(ctx, action.GetGitHubIssue{Repo: ghRepo, Number: number})
	if err != nil {
		return fmt.Errorf("failed to read github issue: %w", err)
	}
	var current []string
	for _, u := range out.Issue.Assignees {
		current = append(current, u.GetLogin())
	}

	var assignees []string
	if to != "" {
		if containsFold(current, login) {
			return nil
		}
		assignees = []string{login}
	} else {
		if !containsFold(current, login) {
			return nil
		}
		assignees = []string{}
		for _, c := range current {
			if !strings.EqualFold(c, login) {
				assignees = append(assignees, c)
			}
		}
	}

	_, err = t.exec.Execute(ctx, action.EditGitHubIssue{
		Repo:    ghRepo,
		Number:  number,
		Request: &github.IssueRequest{Assignees: &assignees},
	})
	if err != nil {
		return fmt.Errorf("failed to update assignees: %w", err)
	}
	return nil
}
