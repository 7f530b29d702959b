// Package remote holds the error type shared by the GitHub and Jira connectors.
package remote

import (
	"errors"
	"fmt"
)

// System names one of the two synchronized trackers.
type System string

const (
	GitHub System = "github"
	Jira   System = "jira"
)

// maxBodyInError bounds how much of a response body is kept on a CallError.
const maxBodyInError = 512

// CallError reports an outbound call whose response code did not match the
// code the operation expects. It is never retried.
type CallError struct {
	System   System
	Method   string
	URL      string
	Expected int
	Status   int
	Body     string
}

// NewCallError builds a CallError, truncating long response bodies.
func NewCallError(system System, method, url string, expected, status int, body []byte) *CallError {
	b := string(body)
	if len(b) > maxBodyInError {
		b = b[:maxBodyInError] + "..."
	}
	return &CallError{
		System:   system,
		Method:   method,
		URL:      url,
		Expected: expected,
		Status:   status,
		Body:     b,
	}
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s %s %s: expected status %d, got %d: %s", e.System, e.Method, e.URL, e.Expected, e.Status, e.Body)
}

// AsCallError unwraps err into a *CallError when possible.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
