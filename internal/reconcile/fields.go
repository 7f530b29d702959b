package reconcile

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/similigh/jira-sync/internal/core/config"
	"github.com/similigh/jira-sync/internal/integrations/jira"
	"github.com/similigh/jira-sync/internal/translate"
)

// NoRepository is the repo field value for Jira issues that must never be
// mirrored to GitHub.
const NoRepository = "Do Not Link To Repo"

// Review issue created by the "create jira issue" pull request command.
const (
	reviewSummary     = "Review submitted PR"
	reviewDescription = "The linked PR was imported from Github. It needs to be reviewed"
)

// customFields renders the configured per-repository fields.
func customFields(fields []config.JiraField) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		switch f.Kind {
		case config.FieldObject:
			out[f.Name] = jira.ObjectValue(f.Key, f.Value)
		case config.FieldArray:
			out[f.Name] = jira.ArrayValue(f.Key, f.Value)
		default:
			out[f.Name] = f.Value
		}
	}
	return out
}

// createdInGitHub appends the provenance line to an imported issue body.
func createdInGitHub(body, login string) string {
	return body + "\n\n[Created in Github by " + login + " ]"
}

// createdInJira appends the provenance line to an exported issue body.
func createdInJira(description, reporter string) string {
	return description + "\n\n**[Created in JIRA by " + reporter + "]**"
}

func labelNames(labels []*github.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.GetName())
	}
	return names
}

// issueFields builds the Jira issue mirroring a GitHub issue.
func (e *Engine) issueFields(repo *config.RepositoryMapping, issue *github.Issue) jira.IssueFields {
	custom := customFields(repo.JiraFields)
	custom[e.jira.GitHubIssueNumberField] = issue.GetNumber()
	custom[e.jira.GitHubRepoNameField] = jira.ObjectValue("value", repo.JiraName)

	fields := jira.IssueFields{
		ProjectKey:  repo.JiraProjectKey,
		IssueType:   e.jira.IssueType,
		Summary:     issue.GetTitle(),
		Description: createdInGitHub(issue.GetBody(), issue.GetUser().GetLogin()),
		Custom:      custom,
	}

	if repo.LabelVersions {
		fields.FixVersions, fields.AffectsVersions = translate.VersionsFromLabels(labelNames(issue.Labels))
	}
	if login := issue.GetAssignee().GetLogin(); login != "" {
		if user, ok := repo.Users.JiraUser(login); ok {
			fields.Assignee = jira.AssignTo(user)
		}
	}
	return fields
}

// reviewFields builds the Jira issue requested by a pull request command.
func (e *Engine) reviewFields(repo *config.RepositoryMapping) jira.IssueFields {
	custom := customFields(repo.JiraFields)
	custom[e.jira.GitHubRepoNameField] = jira.ObjectValue("value", NoRepository)
	return jira.IssueFields{
		ProjectKey:  repo.JiraProjectKey,
		IssueType:   e.jira.IssueType,
		Summary:     reviewSummary,
		Description: reviewDescription,
		Custom:      custom,
	}
}

// issueLink describes a GitHub issue or pull request for a Jira remote link.
func issueLink(issue *github.Issue) jira.RemoteLink {
	rel := "issue"
	if issue.IsPullRequest() {
		rel = "pull request"
	}
	return jira.RemoteLink{URL: issue.GetHTMLURL(), Title: issue.GetTitle(), Relationship: rel}
}

func pullRequestLink(pr *github.PullRequest) jira.RemoteLink {
	return jira.RemoteLink{URL: pr.GetHTMLURL(), Title: pr.GetTitle(), Relationship: "pull request"}
}

// isReviewCommand reports whether a pull request comment asks for a review issue.
func isReviewCommand(body string) bool {
	const cmd = "create jira issue"
	body = strings.TrimLeft(body, " \t\r\n")
	return len(body) >= len(cmd) && strings.EqualFold(body[:len(cmd)], cmd)
}

func describeIssue(repo *config.RepositoryMapping, number int) string {
	return fmt.Sprintf("%s#%d", repo.FullName(), number)
}
