package action

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/go-github/v60/github"
	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/core/remote"
	"github.com/similigh/jira-sync/internal/integrations/jira"
)

// Outcome carries the parsed result of an action. Only the fields relevant to
// the action's kind are set.
type Outcome struct {
	Kind Kind

	// Jira
	Key          string
	CommentID    string
	RemoteLinkID int64
	JiraIssue    *jira.Issue
	JiraIssues   []jira.Issue
	ProjectKeys  []string

	// GitHub
	Issue      *github.Issue
	Labels     []string
	Comment    *github.IssueComment
	Comments   []*github.IssueComment
	Milestone  *github.Milestone
	Milestones []*github.Milestone
}

// Executor runs one action and reports its outcome.
type Executor interface {
	Execute(ctx context.Context, a Action) (*Outcome, error)
}

// JiraAPI is the Jira connector surface used by the dispatcher.
type JiraAPI interface {
	CreateIssue(ctx context.Context, fields jira.IssueFields) (string, error)
	UpdateIssue(ctx context.Context, key string, fields jira.IssueFields) error
	UpdateVersions(ctx context.Context, key string, update jira.VersionUpdate) error
	GetIssue(ctx context.Context, key string) (*jira.Issue, error)
	Search(ctx context.Context, jql string) ([]jira.Issue, error)
	PostComment(ctx context.Context, key, body string) (string, error)
	AddRemoteLink(ctx context.Context, key string, link jira.RemoteLink) (int64, error)
	ProjectKeys(ctx context.Context) ([]string, error)
}

// GitHubAPI is the GitHub connector surface used by the dispatcher.
type GitHubAPI interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, error)
	CreateIssue(ctx context.Context, owner, repo string, req *github.IssueRequest) (*github.Issue, error)
	EditIssue(ctx context.Context, owner, repo string, number int, req *github.IssueRequest) (*github.Issue, error)
	ListLabels(ctx context.Context, owner, repo string, number int) ([]string, error)
	ReplaceLabels(ctx context.Context, owner, repo string, number int, labels []string) ([]string, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) (*github.IssueComment, error)
	EditComment(ctx context.Context, owner, repo string, id int64, body string) (*github.IssueComment, error)
	ListComments(ctx context.Context, owner, repo string, number int) ([]*github.IssueComment, error)
	ListMilestones(ctx context.Context, owner, repo string) ([]*github.Milestone, error)
	CreateMilestone(ctx context.Context, owner, repo, title, description string) (*github.Milestone, error)
	EditPullRequestBody(ctx context.Context, owner, repo string, number int, body string) error
}

// Dispatcher executes actions against the real connectors.
type Dispatcher struct {
	jira   JiraAPI
	github GitHubAPI
	log    *log.Entry
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(j JiraAPI, gh GitHubAPI, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Dispatcher{
		jira:   j,
		github: gh,
		log:    logger.WithField("component", "executor"),
	}
}

// Execute validates and runs one action. It never retries; a failure is
// logged with the target and payload and returned to the caller.
func (d *Dispatcher) Execute(ctx context.Context, a Action) (*Outcome, error) {
	entry := d.log.WithFields(log.Fields{
		"system": a.System(),
		"kind":   a.Kind(),
		"target": a.Target(),
	})

	if err := a.Validate(); err != nil {
		entry.WithError(err).Error("rejected invalid action")
		return nil, fmt.Errorf("invalid %s action: %w", a.Kind(), err)
	}

	out, err := d.dispatch(ctx, a)
	if err != nil {
		fields := log.Fields{}
		if ce, ok := remote.AsCallError(err); ok {
			fields["method"] = ce.Method
			fields["url"] = ce.URL
			fields["status"] = ce.Status
			fields["response"] = ce.Body
		}
		if a.Mutating() {
			if payload, perr := sonic.MarshalString(a); perr == nil {
				fields["payload"] = payload
			}
		}
		entry.WithFields(fields).WithError(err).Error("outbound call failed")
		return nil, fmt.Errorf("failed to %s %s: %w", a.Kind(), a.Target(), err)
	}

	entry.Debug("outbound call succeeded")
	out.Kind = a.Kind()
	return out, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, a Action) (*Outcome, error) {
	switch a := a.(type) {
	case CreateJiraIssue:
		key, err := d.jira.CreateIssue(ctx, a.Fields)
		return &Outcome{Key: key}, err
	case UpdateJiraIssue:
		return &Outcome{Key: a.Key}, d.jira.UpdateIssue(ctx, a.Key, a.Fields)
	case UpdateJiraVersions:
		return &Outcome{Key: a.Key}, d.jira.UpdateVersions(ctx, a.Key, a.Update)
	case GetJiraIssue:
		issue, err := d.jira.GetIssue(ctx, a.Key)
		return &Outcome{Key: a.Key, JiraIssue: issue}, err
	case SearchJiraIssues:
		issues, err := d.jira.Search(ctx, a.JQL)
		return &Outcome{JiraIssues: issues}, err
	case PostJiraComment:
		id, err := d.jira.PostComment(ctx, a.Key, a.Body)
		return &Outcome{Key: a.Key, CommentID: id}, err
	case AddJiraRemoteLink:
		id, err := d.jira.AddRemoteLink(ctx, a.Key, a.Link)
		return &Outcome{Key: a.Key, RemoteLinkID: id}, err
	case GetJiraProjectKeys:
		keys, err := d.jira.ProjectKeys(ctx)
		return &Outcome{ProjectKeys: keys}, err

	case GetGitHubIssue:
		issue, err := d.github.GetIssue(ctx, a.Repo.Owner, a.Repo.Name, a.Number)
		return &Outcome{Issue: issue}, err
	case CreateGitHubIssue:
		issue, err := d.github.CreateIssue(ctx, a.Repo.Owner, a.Repo.Name, a.Request)
		return &Outcome{Issue: issue}, err
	case EditGitHubIssue:
		issue, err := d.github.EditIssue(ctx, a.Repo.Owner, a.Repo.Name, a.Number, a.Request)
		return &Outcome{Issue: issue}, err
	case GetGitHubLabels:
		labels, err := d.github.ListLabels(ctx, a.Repo.Owner, a.Repo.Name, a.Number)
		return &Outcome{Labels: labels}, err
	case ReplaceGitHubLabels:
		labels, err := d.github.ReplaceLabels(ctx, a.Repo.Owner, a.Repo.Name, a.Number, a.Labels)
		return &Outcome{Labels: labels}, err
	case CreateGitHubComment:
		c, err := d.github.CreateComment(ctx, a.Repo.Owner, a.Repo.Name, a.Number, a.Body)
		return &Outcome{Comment: c}, err
	case EditGitHubComment:
		c, err := d.github.EditComment(ctx, a.Repo.Owner, a.Repo.Name, a.ID, a.Body)
		return &Outcome{Comment: c}, err
	case ListGitHubComments:
		cs, err := d.github.ListComments(ctx, a.Repo.Owner, a.Repo.Name, a.Number)
		return &Outcome{Comments: cs}, err
	case ListMilestones:
		ms, err := d.github.ListMilestones(ctx, a.Repo.Owner, a.Repo.Name)
		return &Outcome{Milestones: ms}, err
	case CreateMilestone:
		ms, err := d.github.CreateMilestone(ctx, a.Repo.Owner, a.Repo.Name, a.Title, a.Description)
		return &Outcome{Milestone: ms}, err
	case EditPullRequestBody:
		return &Outcome{}, d.github.EditPullRequestBody(ctx, a.Repo.Owner, a.Repo.Name, a.Number, a.Body)
	default:
		return nil, fmt.Errorf("unsupported action kind %q", a.Kind())
	}
}
