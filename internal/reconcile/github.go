package reconcile

import (
	"fmt"

	"github.com/google/go-github/v60/github"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/core/pipeline"
	"github.com/similigh/jira-sync/internal/integrations/jira"
	"github.com/similigh/jira-sync/internal/relay"
)

// Metadata keys shared between chain steps.
const (
	metaJiraKey = "jira_key"
	metaEpicKey = "epic_key"
	metaNotes   = "annotations"
)

func unexpectedPayload(req *Request) error {
	return fmt.Errorf("unexpected payload %T for %s", req.Event.GitHub, req.Event.Kind)
}

// onIssueOpened mirrors a new GitHub issue into Jira, or completes the link
// when the issue was itself created from Jira.
func (e *Engine) onIssueOpened(req *Request) error {
	p, ok := req.Event.GitHub.(*github.IssuesEvent)
	if !ok {
		return unexpectedPayload(req)
	}
	issue := p.GetIssue()

	if marker := e.resolver.ForGitHubTitle(issue.GetTitle()); marker.Found() {
		e.linkExisting(req, issue, marker.Key)
		return nil
	}
	pipeline.New("open-in-jira", e.openInJiraSteps(req, issue)...).RunLogged(req.chain())
	return nil
}

// linkExisting records the GitHub number on a Jira issue that created its
// GitHub counterpart, then links back to GitHub.
func (e *Engine) linkExisting(req *Request, issue *github.Issue, key string) {
	pipeline.New("link-existing",
		pipeline.NewStep("record-issue-number", func(c *pipeline.Context) error {
			fields := jira.IssueFields{Custom: map[string]interface{}{
				e.jira.GitHubIssueNumberField: issue.GetNumber(),
			}}
			_, err := e.exec.Execute(c.Ctx, action.UpdateJiraIssue{Key: key, Fields: fields})
			return err
		}),
		pipeline.NewStep("add-remote-link", func(c *pipeline.Context) error {
			_, err := e.exec.Execute(c.Ctx, action.AddJiraRemoteLink{Key: key, Link: issueLink(issue)})
			return err
		}),
	).RunLogged(req.chain())
}

// openInJiraSteps creates the Jira counterpart of issue and links it. The
// created key is left in the chain metadata under metaJiraKey.
func (e *Engine) openInJiraSteps(req *Request, issue *github.Issue) []pipeline.Step {
	var steps []pipeline.Step

	ms := issue.GetMilestone()
	if req.Repo.MapEpicsToMilestones && ms != nil && e.jira.HasEpicLinkField() && e.jira.HasEpicNameField() {
		steps = append(steps, pipeline.NewStep("find-epic", func(c *pipeline.Context) error {
			key, err := e.resolver.EpicForMilestone(c.Ctx, req.Repo, ms.GetTitle())
			if err != nil {
				c.Log.WithError(err).WithField("milestone", ms.GetTitle()).Warn("failed to look up epic, creating issue without it")
				return nil
			}
			if key != "" {
				c.Metadata[metaEpicKey] = key
			}
			return nil
		}))
	}

	steps = append(steps,
		pipeline.NewStep("create-jira-issue", func(c *pipeline.Context) error {
			fields := e.issueFields(req.Repo, issue)
			if epic := c.String(metaEpicKey); epic != "" {
				fields.Custom[e.jira.EpicLinkField] = epic
			}
			out, err := e.exec.Execute(c.Ctx, action.CreateJiraIssue{Fields: fields})
			if err != nil {
				return err
			}
			c.Metadata[metaJiraKey] = out.Key
			c.Log = c.Log.WithField("jira_key", out.Key)
			c.Log.Infof("created jira issue for %s", describeIssue(req.Repo, issue.GetNumber()))
			return nil
		}),
		pipeline.NewStep("add-remote-link", func(c *pipeline.Context) error {
			_, err := e.exec.Execute(c.Ctx, action.AddJiraRemoteLink{Key: c.String(metaJiraKey), Link: issueLink(issue)})
			return err
		}),
	)
	return steps
}

func (e *Engine) onPullRequestOpened(req *Request) error {
	p, ok := req.Event.GitHub.(*github.PullRequestEvent)
	if !ok {
		return unexpectedPayload(req)
	}
	pr := p.GetPullRequest()

	e.linkPullRequest(req, pr.GetBody(), pullRequestLink(pr), func(body string) action.Action {
		return action.EditPullRequestBody{Repo: req.ghRepo(), Number: pr.GetNumber(), Body: body}
	})
	return nil
}

// linkPullRequest adds a remote link to every Jira issue mentioned in text,
// then rewrites text once with cross-references. Each link is its own chain:
// one failing does not stop the others.
func (e *Engine) linkPullRequest(req *Request, text string, link jira.RemoteLink, rewrite func(string) action.Action) {
	if text == "" {
		return
	}
	mentions := e.resolver.Mentions(req.Ctx, req.Repo, text)
	if len(mentions) == 0 {
		return
	}

	for _, m := range mentions {
		key := m.Key
		pipeline.New("link-pull-request", pipeline.NewStep("add-remote-link", func(c *pipeline.Context) error {
			_, err := e.exec.Execute(c.Ctx, action.AddJiraRemoteLink{Key: key, Link: link})
			return err
		})).RunLogged(req.chain())
	}

	pipeline.New("annotate-pull-request",
		pipeline.NewStep("resolve-numbers", func(c *pipeline.Context) error {
			var notes []Annotation
			for _, m := range mentions {
				if m.GitHubNumber > 0 {
					notes = append(notes, Annotation{Key: m.Key, Number: m.GitHubNumber, ByNumber: true})
					continue
				}
				out, err := e.exec.Execute(c.Ctx, action.GetJiraIssue{Key: m.Key})
				if err != nil {
					c.Log.WithError(err).WithField("jira_key", m.Key).Warn("failed to read mentioned issue")
					continue
				}
				if marker := e.resolver.ForJiraIssue(out.JiraIssue); marker.Found() {
					notes = append(notes, Annotation{Key: m.Key, Number: marker.Number})
				}
			}
			annotated := Annotate(text, notes)
			if annotated == text {
				return c.Skip("nothing to annotate")
			}
			c.Metadata[metaNotes] = annotated
			return nil
		}),
		pipeline.NewStep("rewrite-body", func(c *pipeline.Context) error {
			_, err := e.exec.Execute(c.Ctx, rewrite(c.String(metaNotes)))
			return err
		}),
	).RunLogged(req.chain())
}

func (e *Engine) onCommentCreated(req *Request) error {
	p, ok := req.Event.GitHub.(*github.IssueCommentEvent)
	if !ok {
		return unexpectedPayload(req)
	}
	issue, comment := p.GetIssue(), p.GetComment()

	if issue.IsPullRequest() {
		e.linkPullRequest(req, comment.GetBody(), issueLink(issue), func(body string) action.Action {
			return action.EditGitHubComment{Repo: req.ghRepo(), ID: comment.GetID(), Body: body}
		})
		if isReviewCommand(comment.GetBody()) {
			e.openReviewIssue(req, issue)
		}
		return nil
	}

	if relay.FromJira(comment.GetBody()) {
		req.Log.Debug("comment was relayed from jira, not relaying back")
		return nil
	}

	if marker := e.resolver.ForGitHubTitle(issue.GetTitle()); marker.Found() {
		_, err := e.relay.ToJira(req.Ctx, marker.Key, comment.GetUser().GetLogin(), comment.GetBody())
		return err
	}

	if !req.Repo.ImportOnComment {
		req.Log.Debug("issue has no jira counterpart, ignoring comment")
		return nil
	}

	// Importing brings the triggering comment along with the older ones.
	chain := pipeline.New("import-on-comment", e.openInJiraSteps(req, issue)...)
	chain.AddStep(pipeline.NewStep("import-comments", func(c *pipeline.Context) error {
		n, err := e.relay.ImportComments(c.Ctx, req.ghRepo(), issue.GetNumber(), c.String(metaJiraKey))
		c.Log.Infof("imported %d comments", n)
		return err
	}))
	chain.RunLogged(req.chain())
	return nil
}

// openReviewIssue creates a Jira issue asking for review of a pull request
// that has no issue of its own.
func (e *Engine) openReviewIssue(req *Request, pr *github.Issue) {
	pipeline.New("review-pull-request",
		pipeline.NewStep("create-jira-issue", func(c *pipeline.Context) error {
			out, err := e.exec.Execute(c.Ctx, action.CreateJiraIssue{Fields: e.reviewFields(req.Repo)})
			if err != nil {
				return err
			}
			c.Metadata[metaJiraKey] = out.Key
			return nil
		}),
		pipeline.NewStep("add-remote-link", func(c *pipeline.Context) error {
			_, err := e.exec.Execute(c.Ctx, action.AddJiraRemoteLink{Key: c.String(metaJiraKey), Link: issueLink(pr)})
			return err
		}),
	).RunLogged(req.chain())
}

func (e *Engine) onAssignment(req *Request) error {
	p, ok := req.Event.GitHub.(*github.IssuesEvent)
	if !ok {
		return unexpectedPayload(req)
	}
	marker := e.resolver.ForGitHubTitle(p.GetIssue().GetTitle())
	if !marker.Found() {
		req.Log.Debug("issue has no jira counterpart, ignoring assignment")
		return nil
	}
	return e.translator.AssigneeToJira(req.Ctx, req.Repo, marker.Key, p.GetAssignee().GetLogin(), p.GetAction() == "assigned")
}

func (e *Engine) onLabel(req *Request) error {
	p, ok := req.Event.GitHub.(*github.IssuesEvent)
	if !ok {
		return unexpectedPayload(req)
	}
	marker := e.resolver.ForGitHubTitle(p.GetIssue().GetTitle())
	if !marker.Found() {
		return nil
	}
	return e.translator.SyncVersionLabel(req.Ctx, req.Repo, marker.Key, p.GetLabel().GetName(), p.GetAction() == "labeled")
}
