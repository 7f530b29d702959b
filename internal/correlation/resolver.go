package correlation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/core/config"
	"github.com/similigh/jira-sync/internal/core/state"
	"github.com/similigh/jira-sync/internal/integrations/jira"
)

// Counterpart is a Jira issue referenced from GitHub text.
type Counterpart struct {
	Key string
	// GitHubNumber is set when the key was found through a #N mention.
	GitHubNumber int
}

// Resolver links records across the two trackers.
type Resolver struct {
	exec action.Executor
	keys *state.ProjectKeyCache
	jira config.JiraConfig
	log  *log.Entry
}

// NewResolver creates a Resolver.
func NewResolver(exec action.Executor, keys *state.ProjectKeyCache, jiraCfg config.JiraConfig, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Resolver{
		exec: exec,
		keys: keys,
		jira: jiraCfg,
		log:  logger.WithField("component", "correlation"),
	}
}

// ForGitHubTitle returns the Jira counterpart named by a GitHub title.
func (r *Resolver) ForGitHubTitle(title string) Marker {
	return ParseTitle(title)
}

// ForJiraIssue returns the GitHub counterpart stored on a Jira issue.
func (r *Resolver) ForJiraIssue(issue *jira.Issue) Marker {
	if issue == nil {
		return Marker{State: Absent}
	}
	return ParseIssueNumber(issue.CustomFields[r.jira.GitHubIssueNumberField])
}

// RepositoryName returns the GitHub repository a Jira issue is assigned to.
func (r *Resolver) RepositoryName(issue *jira.Issue) (string, bool) {
	if issue == nil {
		return "", false
	}
	return issue.SelectValue(r.jira.GitHubRepoNameField)
}

var customFieldID = regexp.MustCompile(`^customfield_(\d+)$`)

// jqlField converts customfield_12345 into the cf[12345] form JQL expects.
func jqlField(field string) (string, error) {
	m := customFieldID.FindStringSubmatch(field)
	if m == nil {
		return "", fmt.Errorf("not a custom field id: %q", field)
	}
	return "cf[" + m[1] + "]", nil
}

// IssueNumberJQL finds the Jira issues of a project carrying a GitHub issue number.
func IssueNumberJQL(projectKey, field string, number int) (string, error) {
	cf, err := jqlField(field)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("project = %s and %s = %d", projectKey, cf, number), nil
}

// EpicNameJQL finds the epics of a project with the given name.
func EpicNameJQL(projectKey, field, name string) (string, error) {
	cf, err := jqlField(field)
	if err != nil {
		return "", err
	}
	escaped := strings.ReplaceAll(strings.ReplaceAll(name, `\`, `\\`), `"`, `\"`)
	return fmt.Sprintf(`project = %s and %s = "%s"`, projectKey, cf, escaped), nil
}

// SearchByIssueNumber returns every Jira issue whose GitHub number field equals number.
// All matches are counterparts; no disambiguation is attempted.
func (r *Resolver) SearchByIssueNumber(ctx context.Context, repo *config.RepositoryMapping, number int) ([]jira.Issue, error) {
	jql, err := IssueNumberJQL(repo.JiraProjectKey, r.jira.GitHubIssueNumberField, number)
	if err != nil {
		return nil, err
	}
	out, err := r.exec.Execute(ctx, action.SearchJiraIssues{JQL: jql})
	if err != nil {
		return nil, err
	}
	return out.JiraIssues, nil
}

// Mentions scans free text for Jira counterparts: direct KEY-N references
// validated against the known project keys, then #N references resolved by
// searching Jira. Failed lookups are logged and skipped.
func (r *Resolver) Mentions(ctx context.Context, repo *config.RepositoryMapping, text string) []Counterpart {
	var out []Counterpart
	seen := make(map[string]bool)
	add := func(c Counterpart) {
		if !seen[c.Key] {
			seen[c.Key] = true
			out = append(out, c)
		}
	}

	if keys, err := r.knownKeys(ctx); err != nil {
		r.log.WithError(err).Warn("project keys unavailable, ignoring direct issue mentions")
	} else {
		for _, key := range JiraMentions(text, keys) {
			add(Counterpart{Key: key})
		}
	}

	for _, n := range GitHubMentions(text) {
		issues, err := r.SearchByIssueNumber(ctx, repo, n)
		if err != nil {
			r.log.WithError(err).WithField("number", n).Warn("failed to resolve issue mention")
			continue
		}
		for _, issue := range issues {
			add(Counterpart{Key: issue.Key, GitHubNumber: n})
		}
	}
	return out
}

func (r *Resolver) knownKeys(ctx context.Context) (KeySet, error) {
	if r.keys == nil {
		return NewStaticKeys(), nil
	}
	keys, err := r.keys.Keys(ctx)
	if err != nil {
		return nil, err
	}
	return NewStaticKeys(keys...), nil
}

// MilestoneForEpic resolves the GitHub milestone matching a Jira epic's name,
// creating it when none exists. The result is only valid for the current event.
func (r *Resolver) MilestoneForEpic(ctx context.Context, repo *config.RepositoryMapping, epicKey string) (int, error) {
	out, err := r.exec.Execute(ctx, action.GetJiraIssue{Key: epicKey})
	if err != nil {
		return 0, err
	}
	name := r.EpicName(out.JiraIssue)
	if name == "" {
		return 0, fmt.Errorf("epic %s has no name", epicKey)
	}

	ghRepo := action.Repo{Owner: repo.GitHubOwner, Name: repo.GitHubName}
	list, err := r.exec.Execute(ctx, action.ListMilestones{Repo: ghRepo})
	if err != nil {
		return 0, err
	}
	for _, ms := range list.Milestones {
		if ms.GetTitle() == name {
			return ms.GetNumber(), nil
		}
	}

	created, err := r.exec.Execute(ctx, action.CreateMilestone{Repo: ghRepo, Title: name})
	if err != nil {
		return 0, err
	}
	return created.Milestone.GetNumber(), nil
}

// EpicName returns the epic name of an epic issue, falling back to its summary.
func (r *Resolver) EpicName(epic *jira.Issue) string {
	if epic == nil {
		return ""
	}
	if r.jira.HasEpicNameField() {
		if name, ok := epic.TextField(r.jira.EpicNameField); ok {
			return name
		}
	}
	return epic.Summary
}

// EpicForMilestone finds the Jira epic whose name equals a milestone title.
// It returns "" when there is none.
func (r *Resolver) EpicForMilestone(ctx context.Context, repo *config.RepositoryMapping, title string) (string, error) {
	jql, err := EpicNameJQL(repo.JiraProjectKey, r.jira.EpicNameField, title)
	if err != nil {
		return "", err
	}
	out, err := r.exec.Execute(ctx, action.SearchJiraIssues{JQL: jql})
	if err != nil {
		return "", err
	}
	if len(out.JiraIssues) == 0 {
		return "", nil
	}
	return out.JiraIssues[0].Key, nil
}
