// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-18

package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/similigh/jira-sync/internal/core/config"
)

// NewClient creates a GitHub client from configuration.
// A token takes precedence over username/password basic auth.
func NewClient(ctx context.Context, cfg config.GitHubConfig, timeout time.Duration) (*Client, error) {
	var tc *http.Client

	switch {
	case cfg.Token != "":
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.Token},
		)
		tc = oauth2.NewClient(ctx, ts)
	case cfg.Username != "":
		tp := &github.BasicAuthTransport{
			Username: cfg.Username,
			Password: cfg.Password,
		}
		tc = tp.Client()
	default:
		tc = &http.Client{}
	}
	tc.Timeout = timeout

	client := github.NewClient(tc)
	if cfg.URL != "" {
		base := cfg.URL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("failed to parse github url: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{
		client: client,
	}, nil
}
