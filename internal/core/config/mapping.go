package config

import "strings"

// UserMap is a bidirectional GitHub login <-> Jira username table.
type UserMap struct {
	toJira   map[string]string
	toGitHub map[string]string
}

// NewUserMap builds a UserMap. Later entries win over earlier ones.
func NewUserMap(entries ...[]UserMapping) UserMap {
	m := UserMap{
		toJira:   make(map[string]string),
		toGitHub: make(map[string]string),
	}
	for _, list := range entries {
		for _, e := range list {
			if e.GitHub == "" || e.Jira == "" {
				continue
			}
			m.toJira[strings.ToLower(e.GitHub)] = e.Jira
			m.toGitHub[e.Jira] = e.GitHub
		}
	}
	return m
}

// Empty reports whether the map has no entries.
func (m UserMap) Empty() bool {
	return len(m.toJira) == 0
}

// JiraUser returns the Jira username for a GitHub login. Logins are case-insensitive.
func (m UserMap) JiraUser(login string) (string, bool) {
	u, ok := m.toJira[strings.ToLower(login)]
	return u, ok
}

// GitHubUser returns the GitHub login for a Jira username.
func (m UserMap) GitHubUser(jiraUser string) (string, bool) {
	u, ok := m.toGitHub[jiraUser]
	return u, ok
}

// RepositoryMapping is the immutable, resolved pairing of one GitHub repository
// with one Jira project.
type RepositoryMapping struct {
	GitHubOwner          string
	GitHubName           string
	JiraName             string
	JiraProjectKey       string
	ImportOnComment      bool
	MapEpicsToMilestones bool
	LabelVersions        bool
	JiraFields           []JiraField
	Users                UserMap
}

// FullName returns "owner/name".
func (r *RepositoryMapping) FullName() string {
	return r.GitHubOwner + "/" + r.GitHubName
}

// Mappings indexes repository mappings by GitHub and Jira names.
// It is built once at startup and only read afterwards.
type Mappings struct {
	byGitHub map[string]*RepositoryMapping
	byJira   map[string]*RepositoryMapping
	all      []*RepositoryMapping
}

// NewMappings resolves the configured repositories into lookup tables.
func NewMappings(cfg *Config) *Mappings {
	m := &Mappings{
		byGitHub: make(map[string]*RepositoryMapping),
		byJira:   make(map[string]*RepositoryMapping),
	}
	for _, rc := range cfg.Repositories {
		fields := make([]JiraField, len(rc.JiraFields))
		copy(fields, rc.JiraFields)

		repo := &RepositoryMapping{
			GitHubOwner:          rc.GitHubOwner,
			GitHubName:           rc.GitHubName,
			JiraName:             rc.JiraName,
			JiraProjectKey:       rc.JiraProjectKey,
			ImportOnComment:      rc.ImportOnComment,
			MapEpicsToMilestones: rc.MapEpicsToMilestones,
			LabelVersions:        rc.LabelVersions,
			JiraFields:           fields,
			Users:                NewUserMap(cfg.UserMappings, rc.UserMappings),
		}
		m.byGitHub[strings.ToLower(rc.GitHubName)] = repo
		m.byGitHub[strings.ToLower(repo.FullName())] = repo
		m.byJira[rc.JiraName] = repo
		m.all = append(m.all, repo)
	}
	return m
}

// ForGitHub looks up a mapping by "owner/name" or bare repository name.
// GitHub names are case-insensitive, so keys are compared lowercased, and a
// full name whose owner differs from the config falls back to the bare name.
func (m *Mappings) ForGitHub(name string) (*RepositoryMapping, bool) {
	key := strings.ToLower(name)
	if r, ok := m.byGitHub[key]; ok {
		return r, true
	}
	if _, bare, ok := strings.Cut(key, "/"); ok {
		r, ok := m.byGitHub[bare]
		return r, ok
	}
	return nil, false
}

// ForJira looks up a mapping by the Jira repository name.
func (m *Mappings) ForJira(name string) (*RepositoryMapping, bool) {
	r, ok := m.byJira[name]
	return r, ok
}

// All returns every mapping in configuration order.
func (m *Mappings) All() []*RepositoryMapping {
	return m.all
}
