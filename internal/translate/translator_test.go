package translate

import (
	"context"
	"io"
	"reflect"
	"testing"

	"github.com/google/go-github/v60/github"
	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/action/actiontest"
	"github.com/similigh/jira-sync/internal/core/config"
	"github.com/similigh/jira-sync/internal/integrations/jira"
)

var ghRepo = action.Repo{Owner: "acme", Name: "widgets"}

func newRepo() *config.RepositoryMapping {
	return &config.RepositoryMapping{
		GitHubOwner:    "acme",
		GitHubName:     "widgets",
		JiraName:       "Widgets",
		JiraProjectKey: "OPS",
		LabelVersions:  true,
		Users:          config.NewUserMap([]config.UserMapping{{GitHub: "octocat", Jira: "ocat"}}),
	}
}

func newTranslator(rec *actiontest.Recorder) *Translator {
	l := log.New()
	l.SetOutput(io.Discard)
	return New(rec, "Status: ", l)
}

func TestSyncStatusReplacesLabelsOnce(t *testing.T) {
	rec := actiontest.New()
	ref := actiontest.IssueRef(ghRepo, 7)
	rec.Labels[ref] = []string{"bug", "Status: To Do"}

	if err := newTranslator(rec).SyncStatus(context.Background(), newRepo(), 7, "In Progress"); err != nil {
		t.Fatalf("SyncStatus failed: %v", err)
	}

	muts := rec.Mutations()
	if len(muts) != 1 {
		t.Fatalf("Expected exactly one write, got %v", rec.Kinds())
	}
	set, ok := muts[0].(action.ReplaceGitHubLabels)
	if !ok {
		t.Fatalf("Expected replace labels, got %s", muts[0].Kind())
	}
	if !reflect.DeepEqual(set.Labels, []string{"bug", "Status: In Progress"}) {
		t.Errorf("Unexpected labels %v", set.Labels)
	}
}

func TestSyncStatusClosesIssue(t *testing.T) {
	rec := actiontest.New()
	ref := actiontest.IssueRef(ghRepo, 7)
	rec.Labels[ref] = []string{"Status: In Progress"}

	if err := newTranslator(rec).SyncStatus(context.Background(), newRepo(), 7, "Resolved"); err != nil {
		t.Fatalf("SyncStatus failed: %v", err)
	}

	muts := rec.Mutations()
	if len(muts) != 1 {
		t.Fatalf("Expected exactly one write, got %v", rec.Kinds())
	}
	edit := muts[0].(action.EditGitHubIssue)
	if edit.Request.GetState() != "closed" {
		t.Errorf("Expected closed state, got %q", edit.Request.GetState())
	}
	if !reflect.DeepEqual(*edit.Request.Labels, []string{"Status: Resolved"}) {
		t.Errorf("Unexpected labels %v", *edit.Request.Labels)
	}
}

func TestSyncStatusIgnoresUnknownStatus(t *testing.T) {
	rec := actiontest.New()
	if err := newTranslator(rec).SyncStatus(context.Background(), newRepo(), 7, "Blocked"); err != nil {
		t.Fatalf("SyncStatus failed: %v", err)
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("Expected no calls, got %d", len(rec.Calls()))
	}
}

func TestSyncVersionsIsIdempotent(t *testing.T) {
	rec := actiontest.New()
	rec.Labels[actiontest.IssueRef(ghRepo, 3)] = []string{"bug", "Affects: 0.9"}
	tr := newTranslator(rec)
	repo := newRepo()

	changed, err := tr.SyncVersions(context.Background(), repo, 3, []string{"1.0"}, []string{"0.9"})
	if err != nil || !changed {
		t.Fatalf("Expected first sync to write, got %v %v", changed, err)
	}
	if len(rec.Mutations()) != 1 {
		t.Fatalf("Expected one write, got %v", rec.Kinds())
	}

	rec.Reset()
	changed, err = tr.SyncVersions(context.Background(), repo, 3, []string{"1.0"}, []string{"0.9"})
	if err != nil || changed {
		t.Errorf("Expected second sync to be a no-op, got %v %v", changed, err)
	}
	if len(rec.Mutations()) != 0 {
		t.Errorf("Expected zero writes on second run, got %v", rec.Kinds())
	}

	repo.LabelVersions = false
	rec.Reset()
	if _, err := tr.SyncVersions(context.Background(), repo, 3, []string{"9.9"}, nil); err != nil {
		t.Fatal(err)
	}
	if len(rec.Calls()) != 0 {
		t.Error("Expected no calls when version labels are disabled")
	}
}

func TestSyncVersionLabel(t *testing.T) {
	tests := []struct {
		name      string
		fix       []string
		label     string
		added     bool
		wantWrite bool
	}{
		{"add missing fix version", nil, "Fixed in: 1.0", true, true},
		{"add present fix version", []string{"1.0"}, "Fixed in: 1.0", true, false},
		{"remove present fix version", []string{"1.0"}, "Fixed in: 1.0", false, true},
		{"remove absent fix version", nil, "Fixed in: 1.0", false, false},
		{"add affects version", nil, "Affects: 0.9", true, true},
		{"not a version label", nil, "bug", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := actiontest.New()
			rec.JiraIssues["OPS-1"] = &jira.Issue{Key: "OPS-1", FixVersions: tt.fix}

			if err := newTranslator(rec).SyncVersionLabel(context.Background(), newRepo(), "OPS-1", tt.label, tt.added); err != nil {
				t.Fatalf("SyncVersionLabel failed: %v", err)
			}
			if got := len(rec.Mutations()) == 1; got != tt.wantWrite {
				t.Errorf("Expected write=%v, got %v", tt.wantWrite, rec.Kinds())
			}
		})
	}
}

func TestAssigneeToJira(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		login     string
		assigned  bool
		wantCalls int
		wantUser  *string
	}{
		{"assign mapped user", "", "octocat", true, 2, jira.AssignTo("ocat")},
		{"already assigned", "ocat", "OctoCat", true, 1, nil},
		{"unassign mapped user", "ocat", "octocat", false, 2, jira.Unassigned()},
		{"unassign someone else", "bob", "octocat", false, 1, nil},
		{"unmapped login", "", "stranger", true, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := actiontest.New()
			rec.JiraIssues["OPS-1"] = &jira.Issue{Key: "OPS-1", Assignee: tt.current}

			if err := newTranslator(rec).AssigneeToJira(context.Background(), newRepo(), "OPS-1", tt.login, tt.assigned); err != nil {
				t.Fatalf("AssigneeToJira failed: %v", err)
			}
			if len(rec.Calls()) != tt.wantCalls {
				t.Fatalf("Expected %d calls, got %d", tt.wantCalls, len(rec.Calls()))
			}
			if tt.wantUser != nil {
				upd := rec.Mutations()[0].(action.UpdateJiraIssue)
				if *upd.Fields.Assignee != *tt.wantUser {
					t.Errorf("Expected assignee %q, got %q", *tt.wantUser, *upd.Fields.Assignee)
				}
			}
		})
	}
}

func TestAssigneeToGitHub(t *testing.T) {
	tests := []struct {
		name      string
		current   []string
		from, to  string
		wantCalls int
		want      []string
	}{
		{"assign mapped user", nil, "", "ocat", 2, []string{"octocat"}},
		{"already assigned", []string{"octocat"}, "", "ocat", 1, nil},
		{"unmapped jira user", nil, "", "stranger", 0, nil},
		{"unassign mapped user", []string{"octocat", "hubot"}, "ocat", "", 2, []string{"hubot"}},
		{"unassign but someone else assigned", []string{"hubot"}, "ocat", "", 1, nil},
		{"unassign unmapped user", []string{"hubot"}, "stranger", "", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := actiontest.New()
			issue := &github.Issue{Number: github.Int(5)}
			for _, login := range tt.current {
				issue.Assignees = append(issue.Assignees, &github.User{Login: github.String(login)})
			}
			rec.Issues[actiontest.IssueRef(ghRepo, 5)] = issue

			if err := newTranslator(rec).AssigneeToGitHub(context.Background(), newRepo(), 5, tt.from, tt.to); err != nil {
				t.Fatalf("AssigneeToGitHub failed: %v", err)
			}
			if len(rec.Calls()) != tt.wantCalls {
				t.Fatalf("Expected %d calls, got %d", tt.wantCalls, len(rec.Calls()))
			}
			if tt.want != nil {
				edit := rec.Mutations()[0].(action.EditGitHubIssue)
				if !reflect.DeepEqual(*edit.Request.Assignees, tt.want) {
					t.Errorf("Expected assignees %v, got %v", tt.want, *edit.Request.Assignees)
				}
			}
		})
	}
}
