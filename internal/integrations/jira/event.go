package jira

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Webhook event names.
const (
	EventIssueCreated = "jira:issue_created"
	EventIssueUpdated = "jira:issue_updated"
)

// Changelog field names.
const (
	ChangeStatus         = "status"
	ChangeAssignee       = "assignee"
	ChangeFixVersion     = "Fix Version"
	ChangeAffectsVersion = "Version"
)

// Event is an inbound Jira webhook payload.
type Event struct {
	WebhookEvent string     `json:"webhookEvent"`
	Timestamp    int64      `json:"timestamp"`
	Issue        *Issue     `json:"issue"`
	Changelog    *Changelog `json:"changelog,omitempty"`
	Comment      *Comment   `json:"comment,omitempty"`
}

// Changelog lists the field changes carried by an update event.
type Changelog struct {
	ID    string          `json:"id"`
	Items []ChangelogItem `json:"items"`
}

// ChangelogItem is one field change.
type ChangelogItem struct {
	Field      string `json:"field"`
	FieldType  string `json:"fieldtype"`
	From       string `json:"from"`
	FromString string `json:"fromString"`
	To         string `json:"to"`
	ToString   string `json:"toString"`
}

// Comment is a Jira comment as carried by webhooks.
type Comment struct {
	ID     string `json:"id"`
	Body   string `json:"body"`
	Author User   `json:"author"`
}

// User identifies a Jira account.
type User struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := sonic.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode jira event: %w", err)
	}
	if ev.Issue == nil {
		return nil, fmt.Errorf("jira event %q carries no issue", ev.WebhookEvent)
	}
	return &ev, nil
}

// Changes returns the changelog items for a field, oldest first.
func (e *Event) Changes(field string) []ChangelogItem {
	if e.Changelog == nil {
		return nil
	}
	var items []ChangelogItem
	for _, it := range e.Changelog.Items {
		if it.Field == field {
			items = append(items, it)
		}
	}
	return items
}
