package jira

import (
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Standard Jira field ids used by the sync.
const (
	FieldFixVersions     = "fixVersions"
	FieldAffectsVersions = "versions"
	FieldStatus          = "status"
	FieldAssignee        = "assignee"
)

// Issue is the subset of a Jira issue the sync reads. Custom fields are kept
// raw because their ids are only known from configuration.
type Issue struct {
	Key             string
	Summary         string
	Description     string
	IssueType       string
	Status          string
	Reporter        string
	Assignee        string
	FixVersions     []string
	AffectsVersions []string
	Labels          []string
	CustomFields    map[string]interface{}
}

type wireIssue struct {
	Key    string                 `json:"key"`
	Fields map[string]interface{} `json:"fields"`
}

// UnmarshalJSON decodes the REST and webhook representation of an issue.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var w wireIssue
	if err := sonic.Unmarshal(data, &w); err != nil {
		return err
	}

	f := w.Fields
	*i = Issue{
		Key:             w.Key,
		Summary:         stringField(f, "summary"),
		Description:     stringField(f, "description"),
		IssueType:       nestedString(f, "issuetype", "name"),
		Status:          nestedString(f, FieldStatus, "name"),
		Reporter:        nestedString(f, "reporter", "displayName"),
		Assignee:        nestedString(f, FieldAssignee, "name"),
		FixVersions:     namesOf(f[FieldFixVersions]),
		AffectsVersions: namesOf(f[FieldAffectsVersions]),
		CustomFields:    make(map[string]interface{}),
	}
	if labels, ok := f["labels"].([]interface{}); ok {
		for _, l := range labels {
			if s, ok := l.(string); ok {
				i.Labels = append(i.Labels, s)
			}
		}
	}
	for name, v := range f {
		if strings.HasPrefix(name, "customfield_") {
			i.CustomFields[name] = v
		}
	}
	return nil
}

// IsEpic reports whether the issue is an epic.
func (i *Issue) IsEpic() bool {
	return i.IssueType == "Epic"
}

// HasAssignee reports whether anyone is assigned.
func (i *Issue) HasAssignee() bool {
	return i.Assignee != ""
}

// TextField returns a custom field holding plain text.
func (i *Issue) TextField(name string) (string, bool) {
	s, ok := i.CustomFields[name].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// SelectValue returns the value of a single-select custom field.
func (i *Issue) SelectValue(name string) (string, bool) {
	obj, ok := i.CustomFields[name].(map[string]interface{})
	if !ok {
		return "", false
	}
	s, ok := obj["value"].(string)
	return s, ok
}

// NumberField returns a numeric custom field as an int. Numeric strings are
// accepted; anything else reads as absent.
func (i *Issue) NumberField(name string) (int, bool) {
	switch v := i.CustomFields[name].(type) {
	case float64:
		if v <= 0 || v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func stringField(f map[string]interface{}, name string) string {
	s, _ := f[name].(string)
	return s
}

func nestedString(f map[string]interface{}, name, key string) string {
	obj, ok := f[name].(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

func namesOf(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var names []string
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			if name, ok := obj["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// IssueFields describes the fields written by a create or update call.
// Zero values are omitted from the payload.
type IssueFields struct {
	ProjectKey      string
	IssueType       string
	Summary         string
	Description     string
	FixVersions     []string
	AffectsVersions []string
	// Assignee is nil to leave the assignee untouched and "" to clear it.
	Assignee *string
	Custom   map[string]interface{}
}

// Unassigned returns the Assignee value that clears the assignee.
func Unassigned() *string {
	s := ""
	return &s
}

// AssignTo returns an Assignee value naming user.
func AssignTo(user string) *string {
	return &user
}

// Payload renders the fields as the "fields" object of a Jira request.
func (f IssueFields) Payload() map[string]interface{} {
	fields := make(map[string]interface{})
	if f.ProjectKey != "" {
		fields["project"] = map[string]string{"key": f.ProjectKey}
	}
	if f.IssueType != "" {
		fields["issuetype"] = map[string]string{"name": f.IssueType}
	}
	if f.Summary != "" {
		fields["summary"] = f.Summary
	}
	if f.Description != "" {
		fields["description"] = f.Description
	}
	if len(f.FixVersions) > 0 {
		fields[FieldFixVersions] = versionList(f.FixVersions)
	}
	if len(f.AffectsVersions) > 0 {
		fields[FieldAffectsVersions] = versionList(f.AffectsVersions)
	}
	if f.Assignee != nil {
		if *f.Assignee == "" {
			fields[FieldAssignee] = map[string]interface{}{"name": nil}
		} else {
			fields[FieldAssignee] = map[string]interface{}{"name": *f.Assignee}
		}
	}
	for name, v := range f.Custom {
		fields[name] = v
	}
	return fields
}

// Empty reports whether the update would write nothing.
func (f IssueFields) Empty() bool {
	return len(f.Payload()) == 0
}

func versionList(versions []string) []map[string]string {
	out := make([]map[string]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, map[string]string{"name": v})
	}
	return out
}

// ObjectValue renders a keyed-object custom field value, e.g. {"value": "Backend"}.
func ObjectValue(key, value string) map[string]string {
	return map[string]string{key: value}
}

// ArrayValue renders a keyed-array custom field value, e.g. [{"name": "core"}].
func ArrayValue(key, value string) []map[string]string {
	return []map[string]string{{key: value}}
}

// VersionUpdate adds or removes fix/affects versions through the "update" verb.
type VersionUpdate struct {
	AddFix        []string
	RemoveFix     []string
	AddAffects    []string
	RemoveAffects []string
}

// Empty reports whether the update changes nothing.
func (u VersionUpdate) Empty() bool {
	return len(u.AddFix)+len(u.RemoveFix)+len(u.AddAffects)+len(u.RemoveAffects) == 0
}

// Payload renders the request body.
func (u VersionUpdate) Payload() map[string]interface{} {
	update := make(map[string]interface{})
	if ops := versionOps(u.AddFix, u.RemoveFix); len(ops) > 0 {
		update[FieldFixVersions] = ops
	}
	if ops := versionOps(u.AddAffects, u.RemoveAffects); len(ops) > 0 {
		update[FieldAffectsVersions] = ops
	}
	return map[string]interface{}{"update": update}
}

func versionOps(add, remove []string) []map[string]map[string]string {
	var ops []map[string]map[string]string
	for _, v := range add {
		ops = append(ops, map[string]map[string]string{"add": {"name": v}})
	}
	for _, v := range remove {
		ops = append(ops, map[string]map[string]string{"remove": {"name": v}})
	}
	return ops
}

// RemoteLink points a Jira issue at a GitHub issue or pull request.
type RemoteLink struct {
	URL          string
	Title        string
	Relationship string
}

// GlobalID identifies the link so re-adding it updates instead of duplicating.
func (l RemoteLink) GlobalID(issueKey string) string {
	return "jira=" + issueKey + "&gh=" + l.URL
}

// Payload renders the remotelink request body.
func (l RemoteLink) Payload(issueKey string) map[string]interface{} {
	p := map[string]interface{}{
		"globalId": l.GlobalID(issueKey),
		"application": map[string]string{
			"type": "github.com",
			"name": "Github",
		},
		"object": map[string]interface{}{
			"url":   l.URL,
			"title": l.Title,
			"icon": map[string]string{
				"url16x16": "https://github.com/favicon.ico",
				"title":    "Github",
			},
		},
	}
	if l.Relationship != "" {
		p["relationship"] = l.Relationship
	}
	return p
}
