package webhook

import (
	"net/http"
	"testing"

	"agent-gateway/internal/model"
)

func TestJiraHandler(t *testing.T) {
	policy := &TriggerPolicy{Mention: "@agent", AllowedLabels: []string{"agent-task"}}
	h := NewJiraHandler(policy)

	commentPayload := []byte(`{
		"webhookEvent": "comment_created",
		"issue": {
			"key": "OPS-17",
			"fields": {
				"summary": "Flaky deploy pipeline",
				"description": "Deploys intermittently time out.",
				"labels": ["infra"],
				"project": {"key": "OPS"}
			}
		},
		"comment": {
			"id": "5001",
			"body": "@agent find the root cause",
			"author": {"displayName": "Dana"}
		}
	}`)

	t.Run("organization from project key", func(t *testing.T) {
		org, err := h.OrganizationID(commentPayload, http.Header{})
		if err != nil {
			t.Fatalf("org: %v", err)
		}
		if org != "OPS" {
			t.Errorf("org = %q", org)
		}
	})

	t.Run("organization missing project key", func(t *testing.T) {
		if _, err := h.OrganizationID([]byte(`{"issue":{}}`), http.Header{}); err == nil {
			t.Error("expected error for missing project key")
		}
	})

	t.Run("validate hub signature", func(t *testing.T) {
		secret := "jira-secret"
		header := http.Header{}
		header.Set("X-Hub-Signature", "sha256="+computeHMACSignature(commentPayload, secret))
		if err := h.Validate(commentPayload, header, secret); err != nil {
			t.Errorf("validate: %v", err)
		}

		header.Set("X-Hub-Signature", "sha256="+computeHMACSignature(commentPayload, "wrong"))
		if err := h.Validate(commentPayload, header, secret); err == nil {
			t.Error("expected signature mismatch")
		}
	})

	t.Run("parse strips jira prefix", func(t *testing.T) {
		payload := []byte(`{
			"webhookEvent": "jira:issue_updated",
			"issue": {"key": "OPS-17", "fields": {"summary": "x", "project": {"key": "OPS"}}}
		}`)
		event, err := h.Parse(payload, http.Header{})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if event.EventType != "issue_updated" {
			t.Errorf("event type = %q", event.EventType)
		}
	})

	t.Run("parse comment metadata", func(t *testing.T) {
		event, err := h.Parse(commentPayload, http.Header{})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if event.Meta("external_id") != "5001" {
			t.Errorf("external_id = %q", event.Meta("external_id"))
		}
		if event.Meta("labels") != "infra" {
			t.Errorf("labels = %q", event.Meta("labels"))
		}
		if event.OrganizationID != "OPS" {
			t.Errorf("org = %q", event.OrganizationID)
		}
	})

	t.Run("mention builds high priority task", func(t *testing.T) {
		event, err := h.Parse(commentPayload, http.Header{})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		ok, _ := h.ShouldProcess(event)
		if !ok {
			t.Fatal("expected mention to trigger")
		}

		req, err := h.BuildTaskRequest(event)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if req.InputMessage != "find the root cause" {
			t.Errorf("input = %q", req.InputMessage)
		}
		if req.Priority != model.PriorityHigh {
			t.Errorf("priority = %s, want HIGH", req.Priority)
		}
	})

	t.Run("allowed label triggers without mention", func(t *testing.T) {
		payload := []byte(`{
			"webhookEvent": "jira:issue_created",
			"issue": {
				"key": "OPS-18",
				"fields": {
					"summary": "Rotate signing keys",
					"labels": ["agent-task"],
					"project": {"key": "OPS"}
				}
			}
		}`)
		event, err := h.Parse(payload, http.Header{})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		ok, _ := h.ShouldProcess(event)
		if !ok {
			t.Fatal("expected label to trigger")
		}

		req, err := h.BuildTaskRequest(event)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if req.Priority != model.PriorityNormal {
			t.Errorf("priority = %s, want NORMAL", req.Priority)
		}
	})

	t.Run("no signal skips", func(t *testing.T) {
		payload := []byte(`{
			"webhookEvent": "jira:issue_updated",
			"issue": {"key": "OPS-19", "fields": {"summary": "x", "project": {"key": "OPS"}}}
		}`)
		event, err := h.Parse(payload, http.Header{})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		ok, reason := h.ShouldProcess(event)
		if ok {
			t.Error("expected skip")
		}
		if reason == "" {
			t.Error("expected a reason")
		}
	})
}
