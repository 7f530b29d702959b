package reconcile

import (
	"errors"
	"fmt"

	"github.com/google/go-github/v60/github"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/core/pipeline"
	"github.com/similigh/jira-sync/internal/correlation"
	"github.com/similigh/jira-sync/internal/integrations/jira"
	"github.com/similigh/jira-sync/internal/translate"
)

const metaMilestone = "milestone"

func (e *Engine) onJiraIssueCreated(req *Request) error {
	issue := req.Event.Jira.Issue
	req.Log = req.Log.WithField("jira_key", issue.Key)

	marker := e.resolver.ForJiraIssue(issue)
	switch {
	case marker.Found():
		e.markGitHubIssue(req, issue, marker.Number)
	case issue.IsEpic():
		if !req.Repo.MapEpicsToMilestones {
			req.Log.Debug("epics are not mapped for this repository")
			return nil
		}
		e.createMilestone(req, issue)
	default:
		e.openInGitHub(req, issue)
	}
	return nil
}

// markGitHubIssue finishes a GitHub-originated pair: the GitHub title gains
// the marker and the issue enters the To Do status.
func (e *Engine) markGitHubIssue(req *Request, issue *jira.Issue, number int) {
	pipeline.New("mark-github-issue",
		pipeline.NewStep("read-labels", func(c *pipeline.Context) error {
			out, err := e.exec.Execute(c.Ctx, action.GetGitHubLabels{Repo: req.ghRepo(), Number: number})
			if err != nil {
				return err
			}
			c.Metadata["labels"] = translate.WithStatus(e.translator.Prefix(), out.Labels, translate.StatusToDo)
			return nil
		}),
		pipeline.NewStep("edit-issue", func(c *pipeline.Context) error {
			labels, _ := c.Metadata["labels"].([]string)
			_, err := e.exec.Execute(c.Ctx, action.EditGitHubIssue{
				Repo:   req.ghRepo(),
				Number: number,
				Request: &github.IssueRequest{
					Title:  github.String(correlation.TitleWithMarker(issue.Summary, issue.Key)),
					Labels: &labels,
				},
			})
			return err
		}),
	).RunLogged(req.chain())
}

// createMilestone mirrors a new epic as a GitHub milestone unless one with
// the same title exists.
func (e *Engine) createMilestone(req *Request, epic *jira.Issue) {
	title := e.resolver.EpicName(epic)
	pipeline.New("create-milestone",
		pipeline.NewStep("list-milestones", func(c *pipeline.Context) error {
			out, err := e.exec.Execute(c.Ctx, action.ListMilestones{Repo: req.ghRepo()})
			if err != nil {
				return err
			}
			for _, ms := range out.Milestones {
				if ms.GetTitle() == title {
					return c.Skip("milestone already exists")
				}
			}
			return nil
		}),
		pipeline.NewStep("create-milestone", func(c *pipeline.Context) error {
			_, err := e.exec.Execute(c.Ctx, action.CreateMilestone{
				Repo:        req.ghRepo(),
				Title:       title,
				Description: epic.Summary + "\n\n" + epic.Description,
			})
			return err
		}),
	).RunLogged(req.chain())
}

// openInGitHub creates the GitHub counterpart of a Jira issue, placing it in
// the milestone of its epic when epics are mapped.
func (e *Engine) openInGitHub(req *Request, issue *jira.Issue) {
	chain := pipeline.New("open-in-github")

	if epicKey, ok := issue.TextField(e.jira.EpicLinkField); ok && e.jira.HasEpicLinkField() && req.Repo.MapEpicsToMilestones {
		chain.AddStep(pipeline.NewStep("resolve-milestone", func(c *pipeline.Context) error {
			n, err := e.resolver.MilestoneForEpic(c.Ctx, req.Repo, epicKey)
			if err != nil {
				c.Log.WithError(err).WithField("epic", epicKey).Warn("failed to resolve milestone, creating issue without it")
				return nil
			}
			c.Metadata[metaMilestone] = n
			return nil
		}))
	}

	chain.AddStep(pipeline.NewStep("create-github-issue", func(c *pipeline.Context) error {
		labels := []string{translate.StatusLabel(e.translator.Prefix(), translate.StatusToDo)}
		if req.Repo.LabelVersions {
			labels = translate.WithVersions(labels, issue.FixVersions, issue.AffectsVersions)
		}
		ir := &github.IssueRequest{
			Title:  github.String(correlation.TitleWithMarker(issue.Summary, issue.Key)),
			Body:   github.String(createdInJira(issue.Description, issue.Reporter)),
			Labels: &labels,
		}
		if n := c.Int(metaMilestone); n > 0 {
			ir.Milestone = github.Int(n)
		}
		if login, ok := req.Repo.Users.GitHubUser(issue.Assignee); ok && issue.HasAssignee() {
			ir.Assignees = &[]string{login}
		}

		out, err := e.exec.Execute(c.Ctx, action.CreateGitHubIssue{Repo: req.ghRepo(), Request: ir})
		if err != nil {
			return err
		}
		c.Log.Infof("created github issue %s", describeIssue(req.Repo, out.Issue.GetNumber()))
		return nil
	}))

	chain.RunLogged(req.chain())
}

// onJiraIssueUpdated relays a new comment and mirrors changelog items. Each
// concern is independent; their errors are collected.
func (e *Engine) onJiraIssueUpdated(req *Request) error {
	ev := req.Event.Jira
	issue := ev.Issue
	req.Log = req.Log.WithField("jira_key", issue.Key)

	marker := e.resolver.ForJiraIssue(issue)
	if !marker.Found() {
		req.Log.Debug("issue has no github counterpart, ignoring update")
		return nil
	}
	number := marker.Number

	var errs []error
	if ev.Comment != nil {
		author := ev.Comment.Author.DisplayName
		if author == "" {
			author = ev.Comment.Author.Name
		}
		if _, err := e.relay.ToGitHub(req.Ctx, req.ghRepo(), number, author, ev.Comment.Body); err != nil {
			errs = append(errs, err)
		}
	}

	for _, item := range ev.Changes(jira.ChangeStatus) {
		if err := e.translator.SyncStatus(req.Ctx, req.Repo, number, item.ToString); err != nil {
			errs = append(errs, err)
		}
	}

	for _, item := range ev.Changes(jira.ChangeAssignee) {
		if err := e.translator.AssigneeToGitHub(req.Ctx, req.Repo, number, item.From, item.To); err != nil {
			errs = append(errs, err)
		}
	}

	if len(ev.Changes(jira.ChangeFixVersion))+len(ev.Changes(jira.ChangeAffectsVersion)) > 0 {
		if _, err := e.translator.SyncVersions(req.Ctx, req.Repo, number, issue.FixVersions, issue.AffectsVersions); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to apply update to %s: %w", describeIssue(req.Repo, number), err)
	}
	return nil
}
