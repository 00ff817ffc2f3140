package model

import "time"

// WebhookEvent is a normalized inbound webhook signal. It lives only for the
// duration of a request; anything worth keeping is carried forward on the
// TaskMessage built from it.
type WebhookEvent struct {
	Provider       string            // Provider name (github, jira, slack, sentry)
	EventType      string            // Normalized event type (e.g. "pull_request.opened")
	InstallationID string            // Tenant installation that received the event
	OrganizationID string            // Tenant organization
	RawPayload     []byte            // Original request body, untouched
	Timestamp      time.Time         // When the event was received
	Metadata       map[string]string // Flat event facts (pr_number, comment_body, labels, ...)
}

// Meta returns a metadata value or "" when absent.
func (e *WebhookEvent) Meta(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}
