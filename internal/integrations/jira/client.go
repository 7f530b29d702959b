// Package jira is a small Jira REST v2 client covering the calls the sync makes.
package jira

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/core/remote"
)

// Client talks to one Jira instance with basic auth.
type Client struct {
	base     *url.URL
	username string
	password string
	http     *http.Client
	log      *log.Entry
}

// NewClient creates a client for the REST base URL, e.g. https://jira.example.com/rest/api/2/.
func NewClient(baseURL, username, password string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jira url: %w", err)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		base:     u,
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
		log:      logger.WithField("component", "jira"),
	}, nil
}

// do executes one call. body is encoded for non-GET methods; out receives the
// decoded response when non-nil. Any status other than expected is a *remote.CallError.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, expected int, out interface{}) error {
	target := c.base.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	if method != http.MethodGet && body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.WithFields(log.Fields{"method": method, "url": target.String(), "status": resp.StatusCode}).Debug("jira call")

	if resp.StatusCode != expected {
		return remote.NewCallError(remote.Jira, method, target.String(), expected, resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CreateIssue creates an issue and returns its key.
func (c *Client) CreateIssue(ctx context.Context, fields IssueFields) (string, error) {
	var created struct {
		Key string `json:"key"`
	}
	body := map[string]interface{}{"fields": fields.Payload()}
	if err := c.do(ctx, http.MethodPost, "issue", body, http.StatusCreated, &created); err != nil {
		return "", err
	}
	if created.Key == "" {
		return "", fmt.Errorf("jira returned no issue key")
	}
	return created.Key, nil
}

// UpdateIssue sets fields on an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields IssueFields) error {
	body := map[string]interface{}{"fields": fields.Payload()}
	return c.do(ctx, http.MethodPut, "issue/"+key, body, http.StatusNoContent, nil)
}

// UpdateVersions adds and removes fix/affects versions on an issue.
func (c *Client) UpdateVersions(ctx context.Context, key string, update VersionUpdate) error {
	return c.do(ctx, http.MethodPut, "issue/"+key, update.Payload(), http.StatusNoContent, nil)
}

// GetIssue fetches one issue.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, http.MethodGet, "issue/"+key, nil, http.StatusOK, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// searchPageSize is the maxResults sent with each search page.
const searchPageSize = 100

// Search runs a JQL query and returns every matching issue, following
// startAt until total is reached.
func (c *Client) Search(ctx context.Context, jql string) ([]Issue, error) {
	var issues []Issue
	for {
		var page struct {
			StartAt int     `json:"startAt"`
			Total   int     `json:"total"`
			Issues  []Issue `json:"issues"`
		}
		body := map[string]interface{}{
			"jql":        jql,
			"startAt":    len(issues),
			"maxResults": searchPageSize,
		}
		if err := c.do(ctx, http.MethodPost, "search", body, http.StatusOK, &page); err != nil {
			return nil, err
		}
		issues = append(issues, page.Issues...)
		if len(page.Issues) == 0 || len(issues) >= page.Total {
			return issues, nil
		}
		c.log.WithField("jql", jql).Debugf("fetched %d of %d search results", len(issues), page.Total)
	}
}

// PostComment adds a comment and returns its id.
func (c *Client) PostComment(ctx context.Context, key, body string) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	req := map[string]string{"body": body}
	if err := c.do(ctx, http.MethodPost, "issue/"+key+"/comment", req, http.StatusCreated, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// AddRemoteLink links an issue to a GitHub URL and returns the link id.
func (c *Client) AddRemoteLink(ctx context.Context, key string, link RemoteLink) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "issue/"+key+"/remotelink", link.Payload(key), http.StatusCreated, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// ProjectKeys lists the keys of every project visible to the user.
func (c *Client) ProjectKeys(ctx context.Context) ([]string, error) {
	var projects []struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, http.MethodGet, "project", nil, http.StatusOK, &projects); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(projects))
	for _, p := range projects {
		keys = append(keys, p.Key)
	}
	return keys, nil
}
