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

// slackTimestampTolerance bounds how old a Slack request may be before it is
// rejected as a possible replay.
const slackTimestampTolerance = 5 * time.Minute

// SlackHandler handles Slack Events API callbacks (app mentions, messages).
type SlackHandler struct {
	policy *TriggerPolicy
}

func NewSlackHandler(policy *TriggerPolicy) *SlackHandler {
	if policy == nil {
		policy = &TriggerPolicy{Mention: defaultMention}
	}
	return &SlackHandler{policy: policy}
}

func (h *SlackHandler) Provider() string {
	return string(model.PlatformSlack)
}

func (h *SlackHandler) OrganizationID(body []byte, header http.Header) (string, error) {
	var payload struct {
		TeamID string `json:"team_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPayloadParse, err)
	}
	if payload.TeamID == "" {
		return "", fmt.Errorf("%w: no team_id in payload", ErrPayloadParse)
	}
	return payload.TeamID, nil
}

// Validate verifies Slack's v0 signing scheme: HMAC-SHA256 over
// "v0:<timestamp>:<raw body>" with a bounded timestamp window.
func (h *SlackHandler) Validate(body []byte, header http.Header, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}

	signature := header.Get(headerSlackSignature)
	timestamp := header.Get(headerSlackTimestamp)
	if signature == "" || timestamp == "" {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp header: %w", ErrSignatureValidation)
	}
	age := time.Since(time.Unix(ts, 0))
	if age > slackTimestampTolerance || age < -slackTimestampTolerance {
		return fmt.Errorf("request timestamp out of tolerance: %w", ErrSignatureValidation)
	}

	base := fmt.Sprintf("v0:%s:%s", timestamp, body)
	expected := "v0=" + computeHMACSignature([]byte(base), secret)
	return validateSharedToken(signature, expected)
}

func (h *SlackHandler) Parse(body []byte, header http.Header) (*model.WebhookEvent, error) {
	var payload struct {
		Type   string `json:"type"`
		TeamID string `json:"team_id"`
		Event  struct {
			Type    string `json:"type"`
			Text    string `json:"text"`
			User    string `json:"user"`
			Channel string `json:"channel"`
			TS      string `json:"ts"`
			BotID   string `json:"bot_id"`
		} `json:"event"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadParse, err)
	}

	eventType := payload.Type
	if payload.Event.Type != "" {
		eventType = payload.Event.Type
	}

	// Slack mentions arrive as "<@U123ABC> do something"; strip the user-id
	// form so the shared mention policy sees plain text.
	text := payload.Event.Text
	if payload.Event.Type == "app_mention" {
		if idx := strings.Index(text, ">"); idx >= 0 && strings.HasPrefix(text, "<@") {
			text = defaultMention + " " + strings.TrimSpace(text[idx+1:])
		}
	}

	return &model.WebhookEvent{
		Provider:       h.Provider(),
		EventType:      eventType,
		OrganizationID: payload.TeamID,
		RawPayload:     body,
		Timestamp:      time.Now().UTC(),
		Metadata: map[string]string{
			"comment_body": text,
			"channel":      payload.Event.Channel,
			"sender":       payload.Event.User,
			"external_id":  payload.Event.TS,
			"bot_id":       payload.Event.BotID,
		},
	}, nil
}

func (h *SlackHandler) ShouldProcess(event *model.WebhookEvent) (bool, string) {
	// Bot-authored messages never trigger, regardless of content.
	if event.Meta("bot_id") != "" {
		return false, "message authored by a bot"
	}
	return h.policy.Evaluate(event)
}

func (h *SlackHandler) BuildTaskRequest(event *model.WebhookEvent) (*TaskRequest, error) {
	input, mentioned := h.policy.ExtractMention(event.Meta("comment_body"))
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
