package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"agent-gateway/internal/model"
)

// SentryHandler handles Sentry error-monitoring webhooks. Sentry events are
// not conversational, so every issue alert is a default trigger at CRITICAL
// priority.
type SentryHandler struct {
	triggerActions map[string]struct{}
}

func NewSentryHandler() *SentryHandler {
	return &SentryHandler{
		triggerActions: map[string]struct{}{
			"created":   {},
			"triggered": {},
		},
	}
}

func (h *SentryHandler) Provider() string {
	return string(model.PlatformSentry)
}

func (h *SentryHandler) OrganizationID(body []byte, header http.Header) (string, error) {
	var payload struct {
		Installation struct {
			UUID string `json:"uuid"`
		} `json:"installation"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPayloadParse, err)
	}
	if payload.Installation.UUID == "" {
		return "", fmt.Errorf("%w: no installation uuid in payload", ErrPayloadParse)
	}
	return payload.Installation.UUID, nil
}

func (h *SentryHandler) Validate(body []byte, header http.Header, secret string) error {
	return validateHMACSignature(body, header.Get(headerSentrySignature), secret)
}

func (h *SentryHandler) Parse(body []byte, header http.Header) (*model.WebhookEvent, error) {
	var payload struct {
		Action       string `json:"action"`
		Installation struct {
			UUID string `json:"uuid"`
		} `json:"installation"`
		Data struct {
			Issue struct {
				ID      string `json:"id"`
				Title   string `json:"title"`
				Culprit string `json:"culprit"`
				Level   string `json:"level"`
				Project struct {
					Slug string `json:"slug"`
				} `json:"project"`
			} `json:"issue"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadParse, err)
	}

	resource := header.Get(headerSentryResource)
	if resource == "" {
		resource = "issue"
	}
	eventType := resource
	if payload.Action != "" {
		eventType = resource + "." + payload.Action
	}

	return &model.WebhookEvent{
		Provider:       h.Provider(),
		EventType:      eventType,
		OrganizationID: payload.Installation.UUID,
		RawPayload:     body,
		Timestamp:      time.Now().UTC(),
		Metadata: map[string]string{
			"issue_id": payload.Data.Issue.ID,
			"title":    payload.Data.Issue.Title,
			"culprit":  payload.Data.Issue.Culprit,
			"level":    payload.Data.Issue.Level,
			"project":  payload.Data.Issue.Project.Slug,
			"action":   payload.Action,
		},
	}, nil
}

func (h *SentryHandler) ShouldProcess(event *model.WebhookEvent) (bool, string) {
	if _, ok := h.triggerActions[event.Meta("action")]; !ok {
		return false, fmt.Sprintf("action %q does not trigger", event.Meta("action"))
	}
	return true, ""
}

func (h *SentryHandler) BuildTaskRequest(event *model.WebhookEvent) (*TaskRequest, error) {
	input := fmt.Sprintf("Investigate error: %s", event.Meta("title"))
	if culprit := event.Meta("culprit"); culprit != "" {
		input = fmt.Sprintf("%s (at %s)", input, culprit)
	}

	return &TaskRequest{
		InputMessage:   input,
		SourceMetadata: cloneMetadata(event.Metadata),
		Priority:       model.PriorityCritical,
	}, nil
}
