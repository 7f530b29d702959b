package reconcile

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-github/v60/github"
	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/action/actiontest"
	"github.com/similigh/jira-sync/internal/core/config"
	"github.com/similigh/jira-sync/internal/core/state"
	"github.com/similigh/jira-sync/internal/correlation"
	"github.com/similigh/jira-sync/internal/integrations/jira"
	"github.com/similigh/jira-sync/internal/relay"
	"github.com/similigh/jira-sync/internal/translate"
)

const (
	numberField = "customfield_100"
	repoField   = "customfield_101"
	epicLink    = "customfield_102"
	epicName    = "customfield_103"
)

var widgets = action.Repo{Owner: "acme", Name: "widgets"}

type testEnv struct {
	rec    *actiontest.Recorder
	engine *Engine
	cfg    *config.Config
}

func newEnv(t *testing.T, edit func(*config.RepositoryConfig)) *testEnv {
	t.Helper()
	repo := config.RepositoryConfig{
		GitHubOwner:    "acme",
		GitHubName:     "widgets",
		JiraName:       "Widgets",
		JiraProjectKey: "OPS",
	}
	if edit != nil {
		edit(&repo)
	}
	cfg := &config.Config{
		Jira: config.JiraConfig{
			GitHubIssueNumberField: numberField,
			GitHubRepoNameField:    repoField,
			EpicLinkField:          epicLink,
			EpicNameField:          epicName,
			IssueType:              "Story",
		},
		Sync:         config.SyncConfig{StatusLabelPrefix: "Status: "},
		UserMappings: []config.UserMapping{{GitHub: "octocat", Jira: "ocat"}},
		Repositories: []config.RepositoryConfig{repo},
	}

	logger := log.New()
	logger.SetOutput(io.Discard)

	rec := actiontest.New()
	keys := state.NewProjectKeyCache(func(ctx context.Context) ([]string, error) {
		return []string{"OPS"}, nil
	})
	engine := New(Dependencies{
		Config:     cfg,
		Mappings:   config.NewMappings(cfg),
		Executor:   rec,
		Resolver:   correlation.NewResolver(rec, keys, cfg.Jira, logger),
		Translator: translate.New(rec, cfg.Sync.StatusLabelPrefix, logger),
		Relay:      relay.New(rec, logger),
		Logger:     logger,
	})
	return &testEnv{rec: rec, engine: engine, cfg: cfg}
}

func (env *testEnv) github(eventType string, payload interface{}) {
	env.engine.Handle(context.Background(), FromGitHub("delivery-1", eventType, payload))
}

func (env *testEnv) jira(ev *jira.Event) {
	env.engine.Handle(context.Background(), FromJira("", ev))
}

func (env *testEnv) expectKinds(t *testing.T, want ...action.Kind) {
	t.Helper()
	got := env.rec.Kinds()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected writes %v, got %v", want, got)
	}
}

func repository(fullName string) *github.Repository {
	_, name, _ := strings.Cut(fullName, "/")
	return &github.Repository{
		Name:     github.String(name),
		FullName: github.String(fullName),
	}
}

func ghIssue(number int, title string) *github.Issue {
	return &github.Issue{
		Number:  github.Int(number),
		Title:   github.String(title),
		Body:    github.String("it crashes"),
		User:    &github.User{Login: github.String("alice")},
		HTMLURL: github.String(fmt.Sprintf("https://github.com/acme/widgets/issues/%d", number)),
	}
}

func issuesEvent(act string, issue *github.Issue) *github.IssuesEvent {
	return &github.IssuesEvent{
		Action: github.String(act),
		Issue:  issue,
		Repo:   repository("acme/widgets"),
	}
}

// jiraIssue builds a Jira issue linked to the widgets repository.
func jiraIssue(key string, number int) *jira.Issue {
	issue := &jira.Issue{
		Key:          key,
		Summary:      "Fix crash",
		Description:  "steps to reproduce",
		IssueType:    "Story",
		Reporter:     "Jane Doe",
		CustomFields: map[string]interface{}{repoField: map[string]interface{}{"value": "Widgets"}},
	}
	if number > 0 {
		issue.CustomFields[numberField] = float64(number)
	}
	return issue
}

func TestFromGitHubKinds(t *testing.T) {
	tests := []struct {
		eventType string
		payload   interface{}
		want      Kind
		repo      string
	}{
		{"issues", issuesEvent("opened", ghIssue(1, "x")), KindIssueOpened, "acme/widgets"},
		{"issue_comment", &github.IssueCommentEvent{Action: github.String("created"), Repo: repository("acme/widgets")}, KindCommentCreated, "acme/widgets"},
		{"pull_request", &github.PullRequestEvent{Action: github.String("opened"), Repo: repository("acme/widgets")}, KindPullRequestOpened, "acme/widgets"},
		{"ping", &github.PingEvent{}, Kind("ping"), ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			ev := FromGitHub("", tt.eventType, tt.payload)
			if ev.Kind != tt.want {
				t.Errorf("Expected kind %q, got %q", tt.want, ev.Kind)
			}
			if ev.Repository != tt.repo {
				t.Errorf("Expected repository %q, got %q", tt.repo, ev.Repository)
			}
			if ev.ID == "" {
				t.Error("Expected a generated event id")
			}
		})
	}
}

func TestUnknownKindsAreIgnored(t *testing.T) {
	env := newEnv(t, nil)

	env.github("issues", issuesEvent("closed", ghIssue(7, "Fix crash")))
	env.github("ping", &github.PingEvent{})
	env.jira(&jira.Event{WebhookEvent: "jira:issue_deleted", Issue: jiraIssue("OPS-1", 7)})

	if n := len(env.rec.Calls()); n != 0 {
		t.Errorf("Expected zero calls for unhandled kinds, got %d", n)
	}
}

func TestUnmappedRepositoryIsIgnored(t *testing.T) {
	env := newEnv(t, nil)

	ev := issuesEvent("opened", ghIssue(7, "Fix crash"))
	ev.Repo = repository("acme/gadgets")
	env.github("issues", ev)

	unlinked := jiraIssue("OPS-2", 0)
	unlinked.CustomFields[repoField] = map[string]interface{}{"value": NoRepository}
	env.jira(&jira.Event{WebhookEvent: jira.EventIssueCreated, Issue: unlinked})

	noRepo := jiraIssue("OPS-3", 0)
	delete(noRepo.CustomFields, repoField)
	env.jira(&jira.Event{WebhookEvent: jira.EventIssueCreated, Issue: noRepo})

	if n := len(env.rec.Calls()); n != 0 {
		t.Errorf("Expected zero calls for unmapped repositories, got %d", n)
	}
}

func TestRegisteredKinds(t *testing.T) {
	env := newEnv(t, nil)
	if got := len(env.engine.Kinds()); got != 9 {
		t.Errorf("Expected 9 handled kinds, got %d: %v", got, env.engine.Kinds())
	}
}

func TestRepositoryLookupIgnoresCase(t *testing.T) {
	tests := []struct {
		name     string
		owner    string
		fullName string
	}{
		{"owner case differs", "Acme", "acme/widgets"},
		{"payload upper case", "acme", "ACME/Widgets"},
		{"owner renamed", "acme", "acme-labs/widgets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, func(r *config.RepositoryConfig) { r.GitHubOwner = tt.owner })

			ev := issuesEvent("opened", ghIssue(7, "Fix crash"))
			ev.Repo = repository(tt.fullName)
			env.github("issues", ev)

			env.expectKinds(t, action.KindCreateJiraIssue, action.KindAddJiraRemoteLink)
		})
	}
}
