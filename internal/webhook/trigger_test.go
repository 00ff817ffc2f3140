package webhook

import (
	"testing"

	"agent-gateway/internal/model"
)

func TestExtractMention(t *testing.T) {
	policy := &TriggerPolicy{Mention: "@agent"}

	tests := []struct {
		name     string
		text     string
		want     string
		mentions bool
	}{
		{"simple instruction", "@agent review PR 42", "review PR 42", true},
		{"case insensitive", "@Agent fix the build", "fix the build", true},
		{"colon separator", "@agent: run the tests", "run the tests", true},
		{"mid-text mention", "hey @agent take a look at this", "take a look at this", true},
		{"multiline stops at newline", "@agent do the thing\nunrelated second line", "do the thing", true},
		{"no mention", "just a regular comment", "", false},
		{"mention without instruction", "@agent", "", false},
		{"empty text", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := policy.ExtractMention(tt.text)
			if ok != tt.mentions {
				t.Fatalf("mentions = %v, want %v", ok, tt.mentions)
			}
			if got != tt.want {
				t.Errorf("instruction = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTriggerPolicyEvaluate(t *testing.T) {
	policy := &TriggerPolicy{
		Mention:       "@agent",
		AllowedLabels: []string{"ai-review", "automate"},
		DefaultEvents: []string{"pull_request.opened"},
	}

	event := func(eventType string, metadata map[string]string) *model.WebhookEvent {
		return &model.WebhookEvent{EventType: eventType, Metadata: metadata}
	}

	t.Run("comment mention triggers with instruction", func(t *testing.T) {
		ok, detail := policy.Evaluate(event("issue_comment.created", map[string]string{
			"comment_body": "@agent summarize this issue",
		}))
		if !ok {
			t.Fatalf("expected trigger, got skip: %s", detail)
		}
		if detail != "summarize this issue" {
			t.Errorf("instruction = %q", detail)
		}
	})

	t.Run("body mention triggers", func(t *testing.T) {
		ok, _ := policy.Evaluate(event("issues.opened", map[string]string{
			"body": "@agent triage this",
		}))
		if !ok {
			t.Error("expected body mention to trigger")
		}
	})

	t.Run("allow-listed label triggers", func(t *testing.T) {
		ok, _ := policy.Evaluate(event("issues.labeled", map[string]string{
			"labels": "bug,AI-Review",
		}))
		if !ok {
			t.Error("expected label overlap to trigger")
		}
	})

	t.Run("unlisted label does not trigger", func(t *testing.T) {
		ok, _ := policy.Evaluate(event("issues.labeled", map[string]string{
			"labels": "bug,wontfix",
		}))
		if ok {
			t.Error("expected no trigger for unlisted labels")
		}
	})

	t.Run("default event triggers", func(t *testing.T) {
		ok, _ := policy.Evaluate(event("pull_request.opened", nil))
		if !ok {
			t.Error("expected default event to trigger")
		}
	})

	t.Run("no signal gives reason", func(t *testing.T) {
		ok, detail := policy.Evaluate(event("issues.closed", map[string]string{
			"comment_body": "thanks, closing",
		}))
		if ok {
			t.Fatal("expected skip")
		}
		if detail == "" {
			t.Error("expected a skip reason")
		}
	})
}
