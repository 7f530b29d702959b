// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-18

// Package config handles loading and validating jira-sync configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	// GitHub configures the GitHub connection.
	GitHub GitHubConfig `yaml:"github"`

	// Jira configures the Jira connection and the custom fields used for correlation.
	Jira JiraConfig `yaml:"jira"`

	// Server configures the webhook listener.
	Server ServerConfig `yaml:"server"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`

	// Sync holds sync behavior settings shared by all repositories.
	Sync SyncConfig `yaml:"sync"`

	// UserMappings pairs GitHub logins with Jira usernames for every repository.
	UserMappings []UserMapping `yaml:"user_mappings,omitempty"`

	// Repositories lists the GitHub repository / Jira project pairs kept in sync.
	Repositories []RepositoryConfig `yaml:"repositories"`
}

// GitHubConfig holds GitHub API settings.
// Either Token or Username/Password must be set.
type GitHubConfig struct {
	URL           string `yaml:"url"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	Token         string `yaml:"token,omitempty"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
}

// JiraConfig holds Jira API settings.
type JiraConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// GitHubIssueNumberField holds the GitHub issue number on a Jira issue.
	GitHubIssueNumberField string `yaml:"github_issue_number_field"`
	// GitHubRepoNameField is a select field naming the repository a Jira issue belongs to.
	GitHubRepoNameField string `yaml:"github_repo_name_field"`
	EpicLinkField       string `yaml:"epic_link_field,omitempty"`
	EpicNameField       string `yaml:"epic_name_field,omitempty"`

	IssueType string `yaml:"issue_type,omitempty"`
}

// HasEpicLinkField reports whether the epic link custom field is configured.
func (j JiraConfig) HasEpicLinkField() bool {
	return j.EpicLinkField != ""
}

// HasEpicNameField reports whether the epic name custom field is configured.
func (j JiraConfig) HasEpicNameField() bool {
	return j.EpicNameField != ""
}

// ServerConfig holds webhook listener settings.
type ServerConfig struct {
	Listen      string        `yaml:"listen"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// SyncConfig holds behavior shared by all repositories.
type SyncConfig struct {
	StatusLabelPrefix string `yaml:"status_label_prefix"`
}

// UserMapping pairs one GitHub login with one Jira username.
type UserMapping struct {
	GitHub string `yaml:"github"`
	Jira   string `yaml:"jira"`
}

// RepositoryConfig defines a repository pairing and its feature flags.
type RepositoryConfig struct {
	GitHubOwner          string        `yaml:"github_owner"`
	GitHubName           string        `yaml:"github_name"`
	JiraName             string        `yaml:"jira_name"`
	JiraProjectKey       string        `yaml:"jira_project_key"`
	ImportOnComment      bool          `yaml:"import_on_comment"`
	MapEpicsToMilestones bool          `yaml:"map_epics_to_milestones"`
	LabelVersions        bool          `yaml:"label_versions"`
	JiraFields           []JiraField   `yaml:"jira_fields,omitempty"`
	UserMappings         []UserMapping `yaml:"user_mappings,omitempty"`
}

// FieldKind describes the JSON shape of a Jira custom field value.
type FieldKind string

const (
	FieldScalar FieldKind = "scalar"
	FieldObject FieldKind = "object"
	FieldArray  FieldKind = "array"
)

// JiraField is a custom field set on every Jira issue created for a repository.
type JiraField struct {
	Name  string    `yaml:"name"`
	Kind  FieldKind `yaml:"type"`
	Key   string    `yaml:"key,omitempty"`
	Value string    `yaml:"value"`
}

var customFieldPattern = regexp.MustCompile(`^customfield_\d+$`)

// Load reads a config file from the given path and expands environment variables.
// A .env file next to the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Missing .env is fine
	_ = godotenv.Load()

	cfg, err := parseRaw(data)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseRaw expands environment variables and decodes YAML, applying defaults.
func parseRaw(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// FindConfigPath searches for a config file in standard locations.
func FindConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	candidates := []string{
		"jira-sync.yaml",
		"jira-sync.yml",
		".github/jira-sync.yaml",
		"/etc/jira-sync/jira-sync.yaml",
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			abs, _ := filepath.Abs(c)
			return abs
		}
	}

	return ""
}

// applyDefaults sets default values for unset fields.
func (c *Config) applyDefaults() {
	if c.GitHub.URL == "" {
		c.GitHub.URL = "https://api.github.com/"
	}
	if c.Jira.IssueType == "" {
		c.Jira.IssueType = "Story"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.HTTPTimeout == 0 {
		c.Server.HTTPTimeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Sync.StatusLabelPrefix == "" {
		c.Sync.StatusLabelPrefix = "Status: "
	}
	for i := range c.Repositories {
		for j := range c.Repositories[i].JiraFields {
			if c.Repositories[i].JiraFields[j].Kind == "" {
				c.Repositories[i].JiraFields[j].Kind = FieldScalar
			}
		}
	}
}

// Validate checks that the configuration is complete enough to run.
func (c *Config) Validate() error {
	var problems []string

	if c.Jira.URL == "" {
		problems = append(problems, "jira.url is required")
	}
	if c.Jira.Username == "" || c.Jira.Password == "" {
		problems = append(problems, "jira.username and jira.password are required")
	}
	if c.GitHub.Token == "" && (c.GitHub.Username == "" || c.GitHub.Password == "") {
		problems = append(problems, "github.token or github.username/password is required")
	}

	for name, field := range map[string]string{
		"jira.github_issue_number_field": c.Jira.GitHubIssueNumberField,
		"jira.github_repo_name_field":    c.Jira.GitHubRepoNameField,
	} {
		if !customFieldPattern.MatchString(field) {
			problems = append(problems, fmt.Sprintf("%s must look like customfield_NNNNN, got %q", name, field))
		}
	}
	if c.Jira.HasEpicNameField() && !customFieldPattern.MatchString(c.Jira.EpicNameField) {
		problems = append(problems, fmt.Sprintf("jira.epic_name_field must look like customfield_NNNNN, got %q", c.Jira.EpicNameField))
	}

	seenGitHub := make(map[string]bool)
	seenJira := make(map[string]bool)
	for i, r := range c.Repositories {
		if r.GitHubOwner == "" || r.GitHubName == "" {
			problems = append(problems, fmt.Sprintf("repositories[%d]: github_owner and github_name are required", i))
		}
		if r.JiraName == "" || r.JiraProjectKey == "" {
			problems = append(problems, fmt.Sprintf("repositories[%d]: jira_name and jira_project_key are required", i))
		}
		ghName := strings.ToLower(r.GitHubName)
		if seenGitHub[ghName] {
			problems = append(problems, fmt.Sprintf("repositories[%d]: duplicate github_name %q", i, r.GitHubName))
		}
		if seenJira[r.JiraName] {
			problems = append(problems, fmt.Sprintf("repositories[%d]: duplicate jira_name %q", i, r.JiraName))
		}
		seenGitHub[ghName] = true
		seenJira[r.JiraName] = true

		for _, f := range r.JiraFields {
			switch f.Kind {
			case FieldScalar:
			case FieldObject, FieldArray:
				if f.Key == "" {
					problems = append(problems, fmt.Sprintf("repositories[%d]: field %s of type %s needs a key", i, f.Name, f.Kind))
				}
			default:
				problems = append(problems, fmt.Sprintf("repositories[%d]: unknown field type %q", i, f.Kind))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
