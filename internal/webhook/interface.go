package webhook

import (
	"net/http"

	"agent-gateway/internal/model"
)

// Handler is the fixed capability set a provider integration must implement.
// Adding a provider means implementing this interface and registering it;
// the delivery layer never changes.
type Handler interface {
	// Provider returns the provider name this handler serves.
	Provider() string

	// OrganizationID extracts the tenant organization from the raw payload so
	// the router can look up the tenant's webhook secret before validation.
	// It must not trust any other payload field.
	OrganizationID(body []byte, header http.Header) (string, error)

	// Validate checks the provider's signature over the raw, unparsed body
	// using the tenant's stored secret. A nil error means authentic.
	Validate(body []byte, header http.Header, secret string) error

	// Parse decodes the raw payload into a normalized event.
	Parse(body []byte, header http.Header) (*model.WebhookEvent, error)

	// ShouldProcess decides whether the event warrants automated work.
	// The second return is the extracted instruction on accept, or the
	// skip reason on decline.
	ShouldProcess(event *model.WebhookEvent) (bool, string)

	// BuildTaskRequest converts an accepted event into a task request.
	BuildTaskRequest(event *model.WebhookEvent) (*TaskRequest, error)
}

// TaskRequest is what a handler hands the router for enqueueing.
type TaskRequest struct {
	InputMessage   string
	SourceMetadata map[string]string
	Priority       model.TaskPriority
}
