package remote

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewCallErrorTruncatesBody(t *testing.T) {
	body := []byte(strings.Repeat("x", 2000))
	err := NewCallError(Jira, "POST", "https://jira/rest/api/2/issue", 201, 400, body)

	if len(err.Body) != maxBodyInError+3 {
		t.Errorf("Expected truncated body of %d chars, got %d", maxBodyInError+3, len(err.Body))
	}
	if !strings.Contains(err.Error(), "expected status 201, got 400") {
		t.Errorf("Unexpected error text: %s", err.Error())
	}
}

func TestAsCallError(t *testing.T) {
	inner := NewCallError(GitHub, "PUT", "/repos/a/b/issues/1/labels", 200, 404, []byte("Not Found"))
	wrapped := fmt.Errorf("failed to replace labels: %w", inner)

	ce, ok := AsCallError(wrapped)
	if !ok {
		t.Fatal("Expected to unwrap CallError")
	}
	if ce.Status != 404 || ce.System != GitHub {
		t.Errorf("Unexpected CallError: %+v", ce)
	}

	if _, ok := AsCallError(fmt.Errorf("plain")); ok {
		t.Error("Expected plain error not to unwrap")
	}
}
