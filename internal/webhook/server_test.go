package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/core/remote"
	"github.com/similigh/jira-sync/internal/reconcile"
)

type captureDispatcher struct {
	mu     sync.Mutex
	events []*reconcile.Event
}

func (d *captureDispatcher) Handle(ctx context.Context, ev *reconcile.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *captureDispatcher) Events() []*reconcile.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*reconcile.Event(nil), d.events...)
}

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

const issueOpened = `{
  "action": "opened",
  "issue": {"number": 7, "title": "Fix crash", "user": {"login": "alice"}},
  "repository": {"name": "widgets", "full_name": "acme/widgets"}
}`

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func post(t *testing.T, srv http.Handler, path, body string, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec.Code
}

func TestGitHubDelivery(t *testing.T) {
	d := &captureDispatcher{}
	srv := NewServer(d, "", quietLogger())

	code := post(t, srv, GitHubPath, issueOpened, map[string]string{
		"X-GitHub-Event":    "issues",
		"X-GitHub-Delivery": "abc-123",
	})
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	events := d.Events()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID != "abc-123" || ev.Source != remote.GitHub || ev.Kind != reconcile.KindIssueOpened {
		t.Errorf("Unexpected event %+v", ev)
	}
	if ev.Repository != "acme/widgets" {
		t.Errorf("Expected acme/widgets, got %q", ev.Repository)
	}
}

func TestGitHubSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		wantEvent bool
	}{
		{"valid", sign("s3cret", issueOpened), true},
		{"wrong secret", sign("other", issueOpened), false},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &captureDispatcher{}
			srv := NewServer(d, "s3cret", quietLogger())

			headers := map[string]string{"X-GitHub-Event": "issues"}
			if tt.signature != "" {
				headers["X-Hub-Signature-256"] = tt.signature
			}
			if code := post(t, srv, GitHubPath, issueOpened, headers); code != http.StatusOK {
				t.Errorf("Expected 200 regardless of signature, got %d", code)
			}
			if got := len(d.Events()) == 1; got != tt.wantEvent {
				t.Errorf("Expected dispatched=%v, got %v", tt.wantEvent, got)
			}
		})
	}
}

func TestGitHubUnknownEventAcknowledged(t *testing.T) {
	d := &captureDispatcher{}
	srv := NewServer(d, "", quietLogger())

	code := post(t, srv, GitHubPath, `{}`, map[string]string{"X-GitHub-Event": "not_a_real_event"})
	if code != http.StatusOK {
		t.Errorf("Expected 200, got %d", code)
	}
	if len(d.Events()) != 0 {
		t.Error("Expected nothing dispatched")
	}
}

func TestJiraDelivery(t *testing.T) {
	d := &captureDispatcher{}
	srv := NewServer(d, "", quietLogger())

	body := `{
	  "webhookEvent": "jira:issue_updated",
	  "issue": {"key": "OPS-4", "fields": {"summary": "Fix crash", "customfield_100": 12}},
	  "changelog": {"items": [{"field": "status", "fromString": "To Do", "toString": "In Progress"}]}
	}`
	if code := post(t, srv, JiraPath, body, nil); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	events := d.Events()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != reconcile.KindJiraIssueUpdated || ev.Jira.Issue.Key != "OPS-4" || ev.ID == "" {
		t.Errorf("Unexpected event %+v", ev)
	}
	if items := ev.Jira.Changes("status"); len(items) != 1 || items[0].ToString != "In Progress" {
		t.Errorf("Unexpected changelog %+v", items)
	}
}

func TestJiraMalformedAcknowledged(t *testing.T) {
	d := &captureDispatcher{}
	srv := NewServer(d, "", quietLogger())

	for _, body := range []string{`not json`, `{"webhookEvent": "jira:issue_created"}`} {
		if code := post(t, srv, JiraPath, body, nil); code != http.StatusOK {
			t.Errorf("Expected 200 for %q, got %d", body, code)
		}
	}
	if len(d.Events()) != 0 {
		t.Error("Expected nothing dispatched")
	}
}

type panicDispatcher struct{}

func (panicDispatcher) Handle(ctx context.Context, ev *reconcile.Event) {
	panic("nil issue")
}

func TestPanicStillAcknowledged(t *testing.T) {
	srv := NewServer(panicDispatcher{}, "", quietLogger())

	if code := post(t, srv, GitHubPath, issueOpened, map[string]string{"X-GitHub-Event": "issues"}); code != http.StatusOK {
		t.Errorf("Expected 200 for github delivery, got %d", code)
	}
	body := `{"webhookEvent": "jira:issue_created", "issue": {"key": "OPS-1", "fields": {}}}`
	if code := post(t, srv, JiraPath, body, nil); code != http.StatusOK {
		t.Errorf("Expected 200 for jira delivery, got %d", code)
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(&captureDispatcher{}, "", quietLogger())
	req := httptest.NewRequest(http.MethodGet, HealthPath, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}
