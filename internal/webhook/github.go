package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agent-gateway/internal/model"
)

// GitHubHandler handles GitHub webhooks (pull requests, issues, comments).
type GitHubHandler struct {
	policy *TriggerPolicy
}

func NewGitHubHandler(policy *TriggerPolicy) *GitHubHandler {
	if policy == nil {
		policy = &TriggerPolicy{
			Mention:       defaultMention,
			DefaultEvents: []string{"pull_request.opened"},
		}
	}
	return &GitHubHandler{policy: policy}
}

func (h *GitHubHandler) Provider() string {
	return string(model.PlatformGitHub)
}

func (h *GitHubHandler) OrganizationID(body []byte, header http.Header) (string, error) {
	var payload struct {
		Organization struct {
			Login string `json:"login"`
		} `json:"organization"`
		Repository struct {
			Owner struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPayloadParse, err)
	}

	if payload.Organization.Login != "" {
		return payload.Organization.Login, nil
	}
	if payload.Repository.Owner.Login != "" {
		return payload.Repository.Owner.Login, nil
	}
	return "", fmt.Errorf("%w: no organization in payload", ErrPayloadParse)
}

func (h *GitHubHandler) Validate(body []byte, header http.Header, secret string) error {
	return validateHMACSignature(body, header.Get(headerGitHubSignature), secret)
}

func (h *GitHubHandler) Parse(body []byte, header http.Header) (*model.WebhookEvent, error) {
	var payload struct {
		Action string `json:"action"`
		Number int    `json:"number"`
		Sender struct {
			Login string `json:"login"`
		} `json:"sender"`
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
		PullRequest struct {
			Number int    `json:"number"`
			Title  string `json:"title"`
			Body   string `json:"body"`
			Merged bool   `json:"merged"`
			Labels []struct {
				Name string `json:"name"`
			} `json:"labels"`
		} `json:"pull_request"`
		Issue struct {
			Number int    `json:"number"`
			Title  string `json:"title"`
			Body   string `json:"body"`
			Labels []struct {
				Name string `json:"name"`
			} `json:"labels"`
			PullRequest *struct{} `json:"pull_request"`
		} `json:"issue"`
		Comment struct {
			ID   int64  `json:"id"`
			Body string `json:"body"`
		} `json:"comment"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadParse, err)
	}

	ghEvent := header.Get(headerGitHubEvent)
	if ghEvent == "" {
		return nil, fmt.Errorf("%w: missing X-GitHub-Event header", ErrPayloadParse)
	}

	eventType := ghEvent
	if payload.Action != "" {
		eventType = ghEvent + "." + payload.Action
	}

	orgID, err := h.OrganizationID(body, header)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"repository": payload.Repository.FullName,
		"sender":     payload.Sender.Login,
		"action":     payload.Action,
	}

	var labels []string
	switch ghEvent {
	case "pull_request":
		metadata["pr_number"] = strconv.Itoa(payload.PullRequest.Number)
		metadata["title"] = payload.PullRequest.Title
		metadata["body"] = payload.PullRequest.Body
		for _, l := range payload.PullRequest.Labels {
			labels = append(labels, l.Name)
		}
	case "issues":
		metadata["issue_number"] = strconv.Itoa(payload.Issue.Number)
		metadata["title"] = payload.Issue.Title
		metadata["body"] = payload.Issue.Body
		for _, l := range payload.Issue.Labels {
			labels = append(labels, l.Name)
		}
	case "issue_comment", "pull_request_review_comment":
		metadata["comment_body"] = payload.Comment.Body
		metadata["external_id"] = strconv.FormatInt(payload.Comment.ID, 10)
		if payload.Issue.Number > 0 {
			if payload.Issue.PullRequest != nil {
				metadata["pr_number"] = strconv.Itoa(payload.Issue.Number)
			} else {
				metadata["issue_number"] = strconv.Itoa(payload.Issue.Number)
			}
		}
		if payload.PullRequest.Number > 0 {
			metadata["pr_number"] = strconv.Itoa(payload.PullRequest.Number)
		}
	}
	if len(labels) > 0 {
		metadata["labels"] = strings.Join(labels, ",")
	}

	return &model.WebhookEvent{
		Provider:       h.Provider(),
		EventType:      eventType,
		OrganizationID: orgID,
		RawPayload:     body,
		Timestamp:      time.Now().UTC(),
		Metadata:       metadata,
	}, nil
}

func (h *GitHubHandler) ShouldProcess(event *model.WebhookEvent) (bool, string) {
	return h.policy.Evaluate(event)
}

func (h *GitHubHandler) BuildTaskRequest(event *model.WebhookEvent) (*TaskRequest, error) {
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

// defaultTaskInput builds an instruction for events triggered without an
// explicit mention (label or default-trigger events).
func defaultTaskInput(event *model.WebhookEvent) string {
	if title := event.Meta("title"); title != "" {
		return fmt.Sprintf("Handle %s event: %s", event.EventType, title)
	}
	return fmt.Sprintf("Handle %s event", event.EventType)
}

func cloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
