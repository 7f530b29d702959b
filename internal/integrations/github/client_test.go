package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-github/v60/github"

	"github.com/similigh/jira-sync/internal/core/config"
	"github.com/similigh/jira-sync/internal/core/remote"
)

func newTestClient(t *testing.T, cfg config.GitHubConfig, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.URL = srv.URL
	c, err := NewClient(context.Background(), cfg, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestCreateCommentValidation(t *testing.T) {
	// Test that CreateComment rejects empty body
	client := &Client{client: nil} // nil client for validation testing

	if _, err := client.CreateComment(context.Background(), "org", "repo", 1, ""); err == nil {
		t.Error("Expected error for empty comment body")
	}

	if _, err := client.CreateComment(context.Background(), "org", "repo", 1, "   "); err == nil {
		t.Error("Expected error for whitespace-only comment body")
	}

	if _, err := client.EditComment(context.Background(), "org", "repo", 1, ""); err == nil {
		t.Error("Expected error for empty edited comment body")
	}
}

func TestCreateMilestoneValidation(t *testing.T) {
	client := &Client{client: nil}

	if _, err := client.CreateMilestone(context.Background(), "org", "repo", "", "desc"); err == nil {
		t.Error("Expected error for empty milestone title")
	}
	if _, err := client.CreateIssue(context.Background(), "org", "repo", &github.IssueRequest{}); err == nil {
		t.Error("Expected error for issue without title")
	}
}

func TestBasicAuthAndReplaceLabels(t *testing.T) {
	var gotUser, gotPass string
	var gotLabels []string
	c := newTestClient(t, config.GitHubConfig{Username: "bot", Password: "pw"}, func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		if r.Method != http.MethodPut || r.URL.Path != "/repos/acme/widgets/issues/4/labels" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotLabels)
		_, _ = w.Write([]byte(`[{"name":"bug"},{"name":"Status: In Progress"}]`))
	})

	labels, err := c.ReplaceLabels(context.Background(), "acme", "widgets", 4, []string{"bug", "Status: In Progress"})
	if err != nil {
		t.Fatalf("ReplaceLabels failed: %v", err)
	}
	if gotUser != "bot" || gotPass != "pw" {
		t.Errorf("Expected basic auth bot/pw, got %s/%s", gotUser, gotPass)
	}
	if len(gotLabels) != 2 || gotLabels[1] != "Status: In Progress" {
		t.Errorf("Unexpected label payload %v", gotLabels)
	}
	if len(labels) != 2 {
		t.Errorf("Expected 2 labels back, got %v", labels)
	}
}

func TestTokenAuth(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, config.GitHubConfig{Token: "secret-token"}, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"number":9,"title":"Fix crash [JIRA: OPS-1]"}`))
	})

	issue, err := c.GetIssue(context.Background(), "acme", "widgets", 9)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Expected bearer token, got %q", gotAuth)
	}
	if issue.GetNumber() != 9 {
		t.Errorf("Expected issue 9, got %d", issue.GetNumber())
	}
}

func TestErrorResponseBecomesCallError(t *testing.T) {
	c := newTestClient(t, config.GitHubConfig{Token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := c.ListLabels(context.Background(), "acme", "widgets", 1)
	ce, ok := remote.AsCallError(err)
	if !ok {
		t.Fatalf("Expected CallError, got %v", err)
	}
	if ce.Status != http.StatusNotFound || ce.System != remote.GitHub || ce.Body != "Not Found" {
		t.Errorf("Unexpected CallError: %+v", ce)
	}
}

func TestUnexpectedSuccessCodeIsCallError(t *testing.T) {
	c := newTestClient(t, config.GitHubConfig{Token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		// 200 where 201 is expected
		_, _ = w.Write([]byte(`{"id":1,"body":"x"}`))
	})

	_, err := c.CreateComment(context.Background(), "acme", "widgets", 1, "hello")
	ce, ok := remote.AsCallError(err)
	if !ok {
		t.Fatalf("Expected CallError, got %v", err)
	}
	if ce.Expected != http.StatusCreated || ce.Status != http.StatusOK {
		t.Errorf("Unexpected CallError: %+v", ce)
	}
}

func TestListMilestonesFollowsPages(t *testing.T) {
	var srvURL string
	c := newTestClient(t, config.GitHubConfig{Token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "all" {
			t.Errorf("Expected state=all, got %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("page") == "" {
			w.Header().Set("Link", `<`+srvURL+`/repos/acme/widgets/milestones?state=all&page=2>; rel="next"`)
			_, _ = w.Write([]byte(`[{"number":1,"title":"Alpha"}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"number":2,"title":"Beta"}]`))
	})
	srvURL = c.client.BaseURL.String()
	srvURL = srvURL[:len(srvURL)-1]

	milestones, err := c.ListMilestones(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("ListMilestones failed: %v", err)
	}
	if len(milestones) != 2 || milestones[1].GetTitle() != "Beta" {
		t.Errorf("Expected two pages of milestones, got %v", milestones)
	}
}
