// Package action models every outbound call the sync can make as a plain,
// validated value, and executes those values against the two trackers.
package action

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/similigh/jira-sync/internal/core/remote"
	"github.com/similigh/jira-sync/internal/integrations/jira"
)

// Kind tags each operation.
type Kind string

const (
	KindCreateJiraIssue     Kind = "jira.create_issue"
	KindUpdateJiraIssue     Kind = "jira.update_issue"
	KindUpdateJiraVersions  Kind = "jira.update_versions"
	KindGetJiraIssue        Kind = "jira.get_issue"
	KindSearchJiraIssues    Kind = "jira.search"
	KindPostJiraComment     Kind = "jira.post_comment"
	KindAddJiraRemoteLink   Kind = "jira.add_remote_link"
	KindGetJiraProjectKeys  Kind = "jira.get_project_keys"
	KindGetGitHubIssue      Kind = "github.get_issue"
	KindCreateGitHubIssue   Kind = "github.create_issue"
	KindEditGitHubIssue     Kind = "github.edit_issue"
	KindGetGitHubLabels     Kind = "github.get_labels"
	KindReplaceGitHubLabels Kind = "github.replace_labels"
	KindCreateGitHubComment Kind = "github.create_comment"
	KindEditGitHubComment   Kind = "github.edit_comment"
	KindListGitHubComments  Kind = "github.list_comments"
	KindListMilestones      Kind = "github.list_milestones"
	KindCreateMilestone     Kind = "github.create_milestone"
	KindEditPullRequestBody Kind = "github.edit_pull_request"
)

// Action is one outbound operation.
type Action interface {
	Kind() Kind
	System() remote.System
	// Mutating is false for reads.
	Mutating() bool
	// Target names the remote record for logs, e.g. "OPS-1" or "acme/widgets#4".
	Target() string
	Validate() error
}

var errMissing = errors.New("missing required value")

func missing(what string) error {
	return fmt.Errorf("%w: %s", errMissing, what)
}

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

func (r Repo) validate() error {
	if r.Owner == "" || r.Name == "" {
		return missing("repository owner/name")
	}
	return nil
}

func issueTarget(r Repo, n int) string { return fmt.Sprintf("%s#%d", r, n) }

func validKey(key string) error {
	if key == "" || !strings.Contains(key, "-") {
		return fmt.Errorf("invalid jira issue key %q", key)
	}
	return nil
}

func validIssue(r Repo, n int) error {
	if err := r.validate(); err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("invalid issue number %d", n)
	}
	return nil
}

// Jira operations.

// CreateJiraIssue creates an issue in a Jira project.
type CreateJiraIssue struct {
	Fields jira.IssueFields
}

func (CreateJiraIssue) Kind() Kind            { return KindCreateJiraIssue }
func (CreateJiraIssue) System() remote.System { return remote.Jira }
func (CreateJiraIssue) Mutating() bool        { return true }
func (a CreateJiraIssue) Target() string      { return a.Fields.ProjectKey }
func (a CreateJiraIssue) Validate() error {
	if a.Fields.ProjectKey == "" {
		return missing("project key")
	}
	if a.Fields.IssueType == "" || a.Fields.Summary == "" {
		return missing("issue type and summary")
	}
	return nil
}

// UpdateJiraIssue sets fields on an existing Jira issue.
type UpdateJiraIssue struct {
	Key    string
	Fields jira.IssueFields
}

func (UpdateJiraIssue) Kind() Kind            { return KindUpdateJiraIssue }
func (UpdateJiraIssue) System() remote.System { return remote.Jira }
func (UpdateJiraIssue) Mutating() bool        { return true }
func (a UpdateJiraIssue) Target() string      { return a.Key }
func (a UpdateJiraIssue) Validate() error {
	if err := validKey(a.Key); err != nil {
		return err
	}
	if a.Fields.Empty() {
		return missing("fields to update")
	}
	return nil
}

// UpdateJiraVersions adds and removes fix and affects versions.
type UpdateJiraVersions struct {
	Key    string
	Update jira.VersionUpdate
}

func (UpdateJiraVersions) Kind() Kind            { return KindUpdateJiraVersions }
func (UpdateJiraVersions) System() remote.System { return remote.Jira }
func (UpdateJiraVersions) Mutating() bool        { return true }
func (a UpdateJiraVersions) Target() string      { return a.Key }
func (a UpdateJiraVersions) Validate() error {
	if err := validKey(a.Key); err != nil {
		return err
	}
	if a.Update.Empty() {
		return missing("version changes")
	}
	return nil
}

// GetJiraIssue reads one Jira issue.
type GetJiraIssue struct {
	Key string
}

func (GetJiraIssue) Kind() Kind            { return KindGetJiraIssue }
func (GetJiraIssue) System() remote.System { return remote.Jira }
func (GetJiraIssue) Mutating() bool        { return false }
func (a GetJiraIssue) Target() string      { return a.Key }
func (a GetJiraIssue) Validate() error     { return validKey(a.Key) }

// SearchJiraIssues runs a JQL query.
type SearchJiraIssues struct {
	JQL string
}

func (SearchJiraIssues) Kind() Kind            { return KindSearchJiraIssues }
func (SearchJiraIssues) System() remote.System { return remote.Jira }
func (SearchJiraIssues) Mutating() bool        { return false }
func (a SearchJiraIssues) Target() string      { return a.JQL }
func (a SearchJiraIssues) Validate() error {
	if strings.TrimSpace(a.JQL) == "" {
		return missing("jql")
	}
	return nil
}

// PostJiraComment adds a comment to a Jira issue.
type PostJiraComment struct {
	Key  string
	Body string
}

func (PostJiraComment) Kind() Kind            { return KindPostJiraComment }
func (PostJiraComment) System() remote.System { return remote.Jira }
func (PostJiraComment) Mutating() bool        { return true }
func (a PostJiraComment) Target() string      { return a.Key }
func (a PostJiraComment) Validate() error {
	if err := validKey(a.Key); err != nil {
		return err
	}
	if strings.TrimSpace(a.Body) == "" {
		return missing("comment body")
	}
	return nil
}

// AddJiraRemoteLink links a Jira issue to a GitHub issue or pull request.
type AddJiraRemoteLink struct {
	Key  string
	Link jira.RemoteLink
}

func (AddJiraRemoteLink) Kind() Kind            { return KindAddJiraRemoteLink }
func (AddJiraRemoteLink) System() remote.System { return remote.Jira }
func (AddJiraRemoteLink) Mutating() bool        { return true }
func (a AddJiraRemoteLink) Target() string      { return a.Key }
func (a AddJiraRemoteLink) Validate() error {
	if err := validKey(a.Key); err != nil {
		return err
	}
	if a.Link.URL == "" || a.Link.Title == "" {
		return missing("link url and title")
	}
	return nil
}

// GetJiraProjectKeys lists the keys of every visible Jira project.
type GetJiraProjectKeys struct{}

func (GetJiraProjectKeys) Kind() Kind            { return KindGetJiraProjectKeys }
func (GetJiraProjectKeys) System() remote.System { return remote.Jira }
func (GetJiraProjectKeys) Mutating() bool        { return false }
func (GetJiraProjectKeys) Target() string        { return "projects" }
func (GetJiraProjectKeys) Validate() error       { return nil }

// GitHub operations.

// GetGitHubIssue reads one GitHub issue.
type GetGitHubIssue struct {
	Repo   Repo
	Number int
}

func (GetGitHubIssue) Kind() Kind            { return KindGetGitHubIssue }
func (GetGitHubIssue) System() remote.System { return remote.GitHub }
func (GetGitHubIssue) Mutating() bool        { return false }
func (a GetGitHubIssue) Target() string      { return issueTarget(a.Repo, a.Number) }
func (a GetGitHubIssue) Validate() error     { return validIssue(a.Repo, a.Number) }

// CreateGitHubIssue opens an issue in a repository.
type CreateGitHubIssue struct {
	Repo    Repo
	Request *github.IssueRequest
}

func (CreateGitHubIssue) Kind() Kind            { return KindCreateGitHubIssue }
func (CreateGitHubIssue) System() remote.System { return remote.GitHub }
func (CreateGitHubIssue) Mutating() bool        { return true }
func (a CreateGitHubIssue) Target() string      { return a.Repo.String() }
func (a CreateGitHubIssue) Validate() error {
	if err := a.Repo.validate(); err != nil {
		return err
	}
	if a.Request == nil || a.Request.GetTitle() == "" {
		return missing("issue title")
	}
	return nil
}

// EditGitHubIssue patches title, state, labels, assignees or milestone.
type EditGitHubIssue struct {
	Repo    Repo
	Number  int
	Request *github.IssueRequest
}

func (EditGitHubIssue) Kind() Kind            { return KindEditGitHubIssue }
func (EditGitHubIssue) System() remote.System { return remote.GitHub }
func (EditGitHubIssue) Mutating() bool        { return true }
func (a EditGitHubIssue) Target() string      { return issueTarget(a.Repo, a.Number) }
func (a EditGitHubIssue) Validate() error {
	if err := validIssue(a.Repo, a.Number); err != nil {
		return err
	}
	if a.Request == nil {
		return missing("issue changes")
	}
	return nil
}

// GetGitHubLabels reads the label names on an issue.
type GetGitHubLabels struct {
	Repo   Repo
	Number int
}

func (GetGitHubLabels) Kind() Kind            { return KindGetGitHubLabels }
func (GetGitHubLabels) System() remote.System { return remote.GitHub }
func (GetGitHubLabels) Mutating() bool        { return false }
func (a GetGitHubLabels) Target() string      { return issueTarget(a.Repo, a.Number) }
func (a GetGitHubLabels) Validate() error     { return validIssue(a.Repo, a.Number) }

// ReplaceGitHubLabels writes the whole label set of an issue.
type ReplaceGitHubLabels struct {
	Repo   Repo
	Number int
	Labels []string
}

func (ReplaceGitHubLabels) Kind() Kind            { return KindReplaceGitHubLabels }
func (ReplaceGitHubLabels) System() remote.System { return remote.GitHub }
func (ReplaceGitHubLabels) Mutating() bool        { return true }
func (a ReplaceGitHubLabels) Target() string      { return issueTarget(a.Repo, a.Number) }
func (a ReplaceGitHubLabels) Validate() error     { return validIssue(a.Repo, a.Number) }

// CreateGitHubComment comments on an issue or pull request.
type CreateGitHubComment struct {
	Repo   Repo
	Number int
	Body   string
}

func (CreateGitHubComment) Kind() Kind            { return KindCreateGitHubComment }
func (CreateGitHubComment) System() remote.System { return remote.GitHub }
func (CreateGitHubComment) Mutating() bool        { return true }
func (a CreateGitHubComment) Target() string      { return issueTarget(a.Repo, a.Number) }
func (a CreateGitHubComment) Validate() error {
	if err := validIssue(a.Repo, a.Number); err != nil {
		return err
	}
	if strings.TrimSpace(a.Body) == "" {
		return missing("comment body")
	}
	return nil
}

// EditGitHubComment rewrites the body of an existing comment.
type EditGitHubComment struct {
	Repo Repo
	ID   int64
	Body string
}

func (EditGitHubComment) Kind() Kind            { return KindEditGitHubComment }
func (EditGitHubComment) System() remote.System { return remote.GitHub }
func (EditGitHubComment) Mutating() bool        { return true }
func (a EditGitHubComment) Target() string      { return fmt.Sprintf("%s comment %d", a.Repo, a.ID) }
func (a EditGitHubComment) Validate() error {
	if err := a.Repo.validate(); err != nil {
		return err
	}
	if a.ID <= 0 || strings.TrimSpace(a.Body) == "" {
		return missing("comment id and body")
	}
	return nil
}

// ListGitHubComments reads every comment on an issue, oldest first.
type ListGitHubComments struct {
	Repo   Repo
	Number int
}

func (ListGitHubComments) Kind() Kind            { return KindListGitHubComments }
func (ListGitHubComments) System() remote.System { return remote.GitHub }
func (ListGitHubComments) Mutating() bool        { return false }
func (a ListGitHubComments) Target() string      { return issueTarget(a.Repo, a.Number) }
func (a ListGitHubComments) Validate() error     { return validIssue(a.Repo, a.Number) }

// ListMilestones reads every milestone of a repository, open or closed.
type ListMilestones struct {
	Repo Repo
}

func (ListMilestones) Kind() Kind            { return KindListMilestones }
func (ListMilestones) System() remote.System { return remote.GitHub }
func (ListMilestones) Mutating() bool        { return false }
func (a ListMilestones) Target() string      { return a.Repo.String() }
func (a ListMilestones) Validate() error     { return a.Repo.validate() }

// CreateMilestone creates a milestone in a repository.
type CreateMilestone struct {
	Repo        Repo
	Title       string
	Description string
}

func (CreateMilestone) Kind() Kind            { return KindCreateMilestone }
func (CreateMilestone) System() remote.System { return remote.GitHub }
func (CreateMilestone) Mutating() bool        { return true }
func (a CreateMilestone) Target() string      { return a.Repo.String() }
func (a CreateMilestone) Validate() error {
	if err := a.Repo.validate(); err != nil {
		return err
	}
	if a.Title == "" {
		return missing("milestone title")
	}
	return nil
}

// EditPullRequestBody replaces the description of a pull request.
type EditPullRequestBody struct {
	Repo   Repo
	Number int
	Body   string
}

func (EditPullRequestBody) Kind() Kind            { return KindEditPullRequestBody }
func (EditPullRequestBody) System() remote.System { return remote.GitHub }
func (EditPullRequestBody) Mutating() bool        { return true }
func (a EditPullRequestBody) Target() string      { return issueTarget(a.Repo, a.Number) }
func (a EditPullRequestBody) Validate() error     { return validIssue(a.Repo, a.Number) }
