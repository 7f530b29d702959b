// Package actiontest provides an in-memory action.Executor for tests. It
// serves reads from seeded state, applies writes to that state and records
// every action it is given.
package actiontest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/go-github/v60/github"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/core/remote"
	"github.com/similigh/jira-sync/internal/integrations/jira"
)

// Recorder is a fake executor backed by maps.
type Recorder struct {
	mu sync.Mutex

	calls []action.Action
	fail  map[action.Kind]error

	JiraIssues  map[string]*jira.Issue
	Searches    map[string][]jira.Issue
	ProjectKeys []string
	nextJira    map[string]int

	Issues     map[string]*github.Issue
	Labels     map[string][]string
	Comments   map[string][]*github.IssueComment
	Milestones map[string][]*github.Milestone
	nextIssue  int
	nextID     int64
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{
		fail:       make(map[action.Kind]error),
		JiraIssues: make(map[string]*jira.Issue),
		Searches:   make(map[string][]jira.Issue),
		nextJira:   make(map[string]int),
		Issues:     make(map[string]*github.Issue),
		Labels:     make(map[string][]string),
		Comments:   make(map[string][]*github.IssueComment),
		Milestones: make(map[string][]*github.Milestone),
		nextIssue:  100,
		nextID:     1000,
	}
}

// IssueRef formats the key used by the GitHub maps.
func IssueRef(r action.Repo, number int) string {
	return fmt.Sprintf("%s#%d", r, number)
}

// FailOn makes every action of kind fail with a remote call error of the given status.
func (r *Recorder) FailOn(kind action.Kind, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[kind] = remote.NewCallError(remote.Jira, "POST", string(kind), 0, status, []byte("forced failure"))
}

// Calls returns every action executed, reads included.
func (r *Recorder) Calls() []action.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]action.Action, len(r.calls))
	copy(out, r.calls)
	return out
}

// Mutations returns only the write actions that were attempted.
func (r *Recorder) Mutations() []action.Action {
	var out []action.Action
	for _, a := range r.Calls() {
		if a.Mutating() {
			out = append(out, a)
		}
	}
	return out
}

// Kinds lists the kinds of the attempted write actions, in order.
func (r *Recorder) Kinds() []action.Kind {
	var out []action.Kind
	for _, a := range r.Mutations() {
		out = append(out, a.Kind())
	}
	return out
}

// Reset forgets recorded calls but keeps state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Execute implements action.Executor.
func (r *Recorder) Execute(ctx context.Context, a action.Action) (*action.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, a)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err, ok := r.fail[a.Kind()]; ok {
		return nil, fmt.Errorf("failed to %s: %w", a.Kind(), err)
	}

	out := &action.Outcome{Kind: a.Kind()}
	switch a := a.(type) {
	case action.CreateJiraIssue:
		r.nextJira[a.Fields.ProjectKey]++
		key := fmt.Sprintf("%s-%d", a.Fields.ProjectKey, r.nextJira[a.Fields.ProjectKey])
		issue := &jira.Issue{
			Key:             key,
			Summary:         a.Fields.Summary,
			Description:     a.Fields.Description,
			IssueType:       a.Fields.IssueType,
			FixVersions:     a.Fields.FixVersions,
			AffectsVersions: a.Fields.AffectsVersions,
			CustomFields:    make(map[string]interface{}),
		}
		if a.Fields.Assignee != nil {
			issue.Assignee = *a.Fields.Assignee
		}
		for k, v := range a.Fields.Custom {
			issue.CustomFields[k] = v
		}
		r.JiraIssues[key] = issue
		out.Key = key
	case action.UpdateJiraIssue:
		issue := r.jiraIssue(a.Key)
		if a.Fields.Assignee != nil {
			issue.Assignee = *a.Fields.Assignee
		}
		for k, v := range a.Fields.Custom {
			issue.CustomFields[k] = v
		}
		out.Key = a.Key
	case action.UpdateJiraVersions:
		issue := r.jiraIssue(a.Key)
		issue.FixVersions = apply(issue.FixVersions, a.Update.AddFix, a.Update.RemoveFix)
		issue.AffectsVersions = apply(issue.AffectsVersions, a.Update.AddAffects, a.Update.RemoveAffects)
		out.Key = a.Key
	case action.GetJiraIssue:
		issue, ok := r.JiraIssues[a.Key]
		if !ok {
			return nil, remote.NewCallError(remote.Jira, "GET", "issue/"+a.Key, 200, 404, nil)
		}
		cp := *issue
		out.JiraIssue = &cp
	case action.SearchJiraIssues:
		out.JiraIssues = r.Searches[a.JQL]
	case action.PostJiraComment:
		r.nextID++
		out.CommentID = fmt.Sprint(r.nextID)
	case action.AddJiraRemoteLink:
		r.nextID++
		out.RemoteLinkID = r.nextID
	case action.GetJiraProjectKeys:
		out.ProjectKeys = r.ProjectKeys

	case action.GetGitHubIssue:
		issue, ok := r.Issues[IssueRef(a.Repo, a.Number)]
		if !ok {
			return nil, remote.NewCallError(remote.GitHub, "GET", IssueRef(a.Repo, a.Number), 200, 404, nil)
		}
		out.Issue = issue
	case action.CreateGitHubIssue:
		r.nextIssue++
		issue := &github.Issue{
			Number:  github.Int(r.nextIssue),
			Title:   a.Request.Title,
			Body:    a.Request.Body,
			HTMLURL: github.String(fmt.Sprintf("https://github.com/%s/issues/%d", a.Repo, r.nextIssue)),
		}
		if a.Request.Milestone != nil {
			issue.Milestone = &github.Milestone{Number: a.Request.Milestone}
		}
		ref := IssueRef(a.Repo, r.nextIssue)
		r.Issues[ref] = issue
		if a.Request.Labels != nil {
			r.Labels[ref] = append([]string(nil), (*a.Request.Labels)...)
		}
		out.Issue = issue
	case action.EditGitHubIssue:
		ref := IssueRef(a.Repo, a.Number)
		issue, ok := r.Issues[ref]
		if !ok {
			issue = &github.Issue{Number: github.Int(a.Number)}
			r.Issues[ref] = issue
		}
		if a.Request.Title != nil {
			issue.Title = a.Request.Title
		}
		if a.Request.State != nil {
			issue.State = a.Request.State
		}
		if a.Request.Labels != nil {
			r.Labels[ref] = append([]string(nil), (*a.Request.Labels)...)
		}
		if a.Request.Assignees != nil {
			issue.Assignees = nil
			for _, login := range *a.Request.Assignees {
				issue.Assignees = append(issue.Assignees, &github.User{Login: github.String(login)})
			}
		}
		out.Issue = issue
	case action.GetGitHubLabels:
		out.Labels = append([]string(nil), r.Labels[IssueRef(a.Repo, a.Number)]...)
	case action.ReplaceGitHubLabels:
		r.Labels[IssueRef(a.Repo, a.Number)] = append([]string(nil), a.Labels...)
		out.Labels = a.Labels
	case action.CreateGitHubComment:
		r.nextID++
		c := &github.IssueComment{ID: github.Int64(r.nextID), Body: github.String(a.Body)}
		ref := IssueRef(a.Repo, a.Number)
		r.Comments[ref] = append(r.Comments[ref], c)
		out.Comment = c
	case action.EditGitHubComment:
		out.Comment = &github.IssueComment{ID: github.Int64(a.ID), Body: github.String(a.Body)}
	case action.ListGitHubComments:
		out.Comments = r.Comments[IssueRef(a.Repo, a.Number)]
	case action.ListMilestones:
		out.Milestones = r.Milestones[a.Repo.String()]
	case action.CreateMilestone:
		repo := a.Repo.String()
		ms := &github.Milestone{
			Number: github.Int(len(r.Milestones[repo]) + 1),
			Title:  github.String(a.Title),
		}
		r.Milestones[repo] = append(r.Milestones[repo], ms)
		out.Milestone = ms
	case action.EditPullRequestBody:
	default:
		return nil, fmt.Errorf("unsupported action kind %q", a.Kind())
	}
	return out, nil
}

func (r *Recorder) jiraIssue(key string) *jira.Issue {
	issue, ok := r.JiraIssues[key]
	if !ok {
		issue = &jira.Issue{Key: key, CustomFields: make(map[string]interface{})}
		r.JiraIssues[key] = issue
	}
	return issue
}

func apply(current, add, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, v := range remove {
		drop[v] = true
	}
	var out []string
	for _, v := range current {
		if !drop[v] {
			out = append(out, v)
		}
	}
	return append(out, add...)
}
