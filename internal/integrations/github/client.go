// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-18

// Package github wraps go-github with the calls the sync makes. Every call
// checks the exact response code it expects and reports a mismatch as a
// *remote.CallError.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/similigh/jira-sync/internal/core/remote"
)

// Client wraps the GitHub API client.
type Client struct {
	client *github.Client
}

// check converts a go-github result into the connector's error contract.
func check(method, path string, expected int, resp *github.Response, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return remote.NewCallError(remote.GitHub, method, requestURL(ghErr.Response, path), expected, ghErr.Response.StatusCode, []byte(ghErr.Message))
	}
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	if resp != nil && resp.StatusCode != expected {
		return remote.NewCallError(remote.GitHub, method, requestURL(resp.Response, path), expected, resp.StatusCode, nil)
	}
	return nil
}

func requestURL(resp *http.Response, fallback string) string {
	if resp != nil && resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return fallback
}

func issuePath(owner, repo string, number int) string {
	return fmt.Sprintf("repos/%s/%s/issues/%d", owner, repo, number)
}

// GetIssue fetches issue details.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, error) {
	issue, resp, err := c.client.Issues.Get(ctx, owner, repo, number)
	if err := check(http.MethodGet, issuePath(owner, repo, number), http.StatusOK, resp, err); err != nil {
		return nil, err
	}
	return issue, nil
}

// CreateIssue opens a new issue.
func (c *Client) CreateIssue(ctx context.Context, owner, repo string, req *github.IssueRequest) (*github.Issue, error) {
	if req == nil || req.GetTitle() == "" {
		return nil, fmt.Errorf("issue title cannot be empty")
	}
	issue, resp, err := c.client.Issues.Create(ctx, owner, repo, req)
	if err := check(http.MethodPost, fmt.Sprintf("repos/%s/%s/issues", owner, repo), http.StatusCreated, resp, err); err != nil {
		return nil, err
	}
	return issue, nil
}

// EditIssue patches title, state, labels, assignees or milestone of an issue.
func (c *Client) EditIssue(ctx context.Context, owner, repo string, number int, req *github.IssueRequest) (*github.Issue, error) {
	issue, resp, err := c.client.Issues.Edit(ctx, owner, repo, number, req)
	if err := check(http.MethodPatch, issuePath(owner, repo, number), http.StatusOK, resp, err); err != nil {
		return nil, err
	}
	return issue, nil
}

// ListLabels returns the names of all labels on an issue.
func (c *Client) ListLabels(ctx context.Context, owner, repo string, number int) ([]string, error) {
	opts := &github.ListOptions{PerPage: 100}
	var names []string
	for {
		labels, resp, err := c.client.Issues.ListLabelsByIssue(ctx, owner, repo, number, opts)
		if err := check(http.MethodGet, issuePath(owner, repo, number)+"/labels", http.StatusOK, resp, err); err != nil {
			return nil, err
		}
		for _, l := range labels {
			names = append(names, l.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// ReplaceLabels overwrites the whole label set of an issue.
func (c *Client) ReplaceLabels(ctx context.Context, owner, repo string, number int, labels []string) ([]string, error) {
	if labels == nil {
		labels = []string{}
	}
	result, resp, err := c.client.Issues.ReplaceLabelsForIssue(ctx, owner, repo, number, labels)
	if err := check(http.MethodPut, issuePath(owner, repo, number)+"/labels", http.StatusOK, resp, err); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result))
	for _, l := range result {
		names = append(names, l.GetName())
	}
	return names, nil
}

// CreateComment posts a comment on an issue.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*github.IssueComment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("comment body cannot be empty")
	}

	comment := &github.IssueComment{
		Body: github.String(body),
	}
	created, resp, err := c.client.Issues.CreateComment(ctx, owner, repo, number, comment)
	if err := check(http.MethodPost, issuePath(owner, repo, number)+"/comments", http.StatusCreated, resp, err); err != nil {
		return nil, err
	}
	return created, nil
}

// EditComment replaces the body of a comment.
func (c *Client) EditComment(ctx context.Context, owner, repo string, id int64, body string) (*github.IssueComment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("comment body cannot be empty")
	}
	comment := &github.IssueComment{Body: github.String(body)}
	edited, resp, err := c.client.Issues.EditComment(ctx, owner, repo, id, comment)
	if err := check(http.MethodPatch, fmt.Sprintf("repos/%s/%s/issues/comments/%d", owner, repo, id), http.StatusOK, resp, err); err != nil {
		return nil, err
	}
	return edited, nil
}

// ListComments returns every comment on an issue, oldest first.
func (c *Client) ListComments(ctx context.Context, owner, repo string, number int) ([]*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var all []*github.IssueComment
	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err := check(http.MethodGet, issuePath(owner, repo, number)+"/comments", http.StatusOK, resp, err); err != nil {
			return nil, err
		}
		all = append(all, comments...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListMilestones returns open and closed milestones of a repository.
func (c *Client) ListMilestones(ctx context.Context, owner, repo string) ([]*github.Milestone, error) {
	opts := &github.MilestoneListOptions{State: "all", ListOptions: github.ListOptions{PerPage: 100}}
	var all []*github.Milestone
	for {
		milestones, resp, err := c.client.Issues.ListMilestones(ctx, owner, repo, opts)
		if err := check(http.MethodGet, fmt.Sprintf("repos/%s/%s/milestones", owner, repo), http.StatusOK, resp, err); err != nil {
			return nil, err
		}
		all = append(all, milestones...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateMilestone creates a milestone and returns it.
func (c *Client) CreateMilestone(ctx context.Context, owner, repo, title, description string) (*github.Milestone, error) {
	if title == "" {
		return nil, fmt.Errorf("milestone title cannot be empty")
	}
	ms := &github.Milestone{Title: github.String(title)}
	if description != "" {
		ms.Description = github.String(description)
	}
	created, resp, err := c.client.Issues.CreateMilestone(ctx, owner, repo, ms)
	if err := check(http.MethodPost, fmt.Sprintf("repos/%s/%s/milestones", owner, repo), http.StatusCreated, resp, err); err != nil {
		return nil, err
	}
	return created, nil
}

// EditPullRequestBody replaces the description of a pull request.
func (c *Client) EditPullRequestBody(ctx context.Context, owner, repo string, number int, body string) error {
	pr := &github.PullRequest{Body: github.String(body)}
	_, resp, err := c.client.PullRequests.Edit(ctx, owner, repo, number, pr)
	return check(http.MethodPatch, fmt.Sprintf("repos/%s/%s/pulls/%d", owner, repo, number), http.StatusOK, resp, err)
}
