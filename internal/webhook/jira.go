package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agent-gateway/internal/model"
)

// JiraHandler handles Jira issue and comment webhooks.
type JiraHandler struct {
	policy *TriggerPolicy
}

func NewJiraHandler(policy *TriggerPolicy) *JiraHandler {
	if policy == nil {
		policy = &TriggerPolicy{Mention: defaultMention}
	}
	return &JiraHandler{policy: policy}
}

func (h *JiraHandler) Provider() string {
	return string(model.PlatformJira)
}

func (h *JiraHandler) OrganizationID(body []byte, header http.Header) (string, error) {
	var payload struct {
		Issue struct {
			Fields struct {
				Project struct {
					Key string `json:"key"`
				} `json:"project"`
			} `json:"fields"`
		} `json:"issue"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPayloadParse, err)
	}
	if payload.Issue.Fields.Project.Key == "" {
		return "", fmt.Errorf("%w: no project key in payload", ErrPayloadParse)
	}
	return payload.Issue.Fields.Project.Key, nil
}

func (h *JiraHandler) Validate(body []byte, header http.Header, secret string) error {
	return validateHMACSignature(body, header.Get(headerJiraSignature), secret)
}

func (h *JiraHandler) Parse(body []byte, header http.Header) (*model.WebhookEvent, error) {
	var payload struct {
		WebhookEvent string `json:"webhookEvent"`
		Issue        struct {
			Key    string `json:"key"`
			Fields struct {
				Summary     string   `json:"summary"`
				Description string   `json:"description"`
				Labels      []string `json:"labels"`
				Project     struct {
					Key string `json:"key"`
				} `json:"project"`
			} `json:"fields"`
		} `json:"issue"`
		Comment struct {
			ID     string `json:"id"`
			Body   string `json:"body"`
			Author struct {
				DisplayName string `json:"displayName"`
			} `json:"author"`
		} `json:"comment"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadParse, err)
	}
	if payload.WebhookEvent == "" {
		return nil, fmt.Errorf("%w: missing webhookEvent field", ErrPayloadParse)
	}

	// "jira:issue_updated" → "issue_updated"
	eventType := strings.TrimPrefix(payload.WebhookEvent, "jira:")

	metadata := map[string]string{
		"issue_key": payload.Issue.Key,
		"title":     payload.Issue.Fields.Summary,
		"body":      payload.Issue.Fields.Description,
		"sender":    payload.Comment.Author.DisplayName,
	}
	if payload.Comment.ID != "" {
		metadata["comment_body"] = payload.Comment.Body
		metadata["external_id"] = payload.Comment.ID
	}
	if len(payload.Issue.Fields.Labels) > 0 {
		metadata["labels"] = strings.Join(payload.Issue.Fields.Labels, ",")
	}

	return &model.WebhookEvent{
		Provider:       h.Provider(),
		EventType:      eventType,
		OrganizationID: payload.Issue.Fields.Project.Key,
		RawPayload:     body,
		Timestamp:      time.Now().UTC(),
		Metadata:       metadata,
	}, nil
}

func (h *JiraHandler) ShouldProcess(event *model.WebhookEvent) (bool, string) {
	return h.policy.Evaluate(event)
}

func (h *JiraHandler) BuildTaskRequest(event *model.WebhookEvent) (*TaskRequest, error) {
	input, mentioned := h.policy.ExtractMention(event.Meta("comment_body"))
	if !mentioned {
		input, mentioned = h.policy.ExtractMention(event.Meta("body"))
	}
	priority := model.PriorityNormal
	if mentioned {
		priority = model.PriorityHigh
	}
	if input == "" {
		input = defaultTaskInput(event)
	}

	return &TaskRequest{
		InputMessage:   input,
		SourceMetadata: cloneMetadata(event.Metadata),
		Priority:       priority,
	}, nil
}
