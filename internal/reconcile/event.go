package reconcile

import (
	"github.com/google/go-github/v60/github"
	"github.com/google/uuid"

	"github.com/similigh/jira-sync/internal/core/remote"
	"github.com/similigh/jira-sync/internal/integrations/jira"
)

// Kind identifies what happened: "<event>.<action>" for GitHub, the
// webhookEvent name for Jira.
type Kind string

// Handled event kinds.
const (
	KindIssueOpened       Kind = "issues.opened"
	KindIssueAssigned     Kind = "issues.assigned"
	KindIssueUnassigned   Kind = "issues.unassigned"
	KindIssueLabeled      Kind = "issues.labeled"
	KindIssueUnlabeled    Kind = "issues.unlabeled"
	KindPullRequestOpened Kind = "pull_request.opened"
	KindCommentCreated    Kind = "issue_comment.created"

	KindJiraIssueCreated Kind = jira.EventIssueCreated
	KindJiraIssueUpdated Kind = jira.EventIssueUpdated
)

// Event is one inbound webhook delivery.
type Event struct {
	ID     string
	Source remote.System
	Kind   Kind

	// Repository is the GitHub repository the event came from. Jira events
	// leave it empty; their repository is read from the issue.
	Repository string

	GitHub interface{}
	Jira   *jira.Event
}

func eventID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// FromGitHub wraps a payload decoded by github.ParseWebHook.
func FromGitHub(id, eventType string, payload interface{}) *Event {
	ev := &Event{
		ID:     eventID(id),
		Source: remote.GitHub,
		Kind:   Kind(eventType),
		GitHub: payload,
	}

	var action string
	var repo *github.Repository
	switch p := payload.(type) {
	case *github.IssuesEvent:
		action, repo = p.GetAction(), p.GetRepo()
	case *github.IssueCommentEvent:
		action, repo = p.GetAction(), p.GetRepo()
	case *github.PullRequestEvent:
		action, repo = p.GetAction(), p.GetRepo()
	}
	if action != "" {
		ev.Kind = Kind(eventType + "." + action)
	}
	if repo != nil {
		ev.Repository = repo.GetFullName()
		if ev.Repository == "" {
			ev.Repository = repo.GetName()
		}
	}
	return ev
}

// FromJira wraps a decoded Jira webhook.
func FromJira(id string, payload *jira.Event) *Event {
	return &Event{
		ID:     eventID(id),
		Source: remote.Jira,
		Kind:   Kind(payload.WebhookEvent),
		Jira:   payload,
	}
}
