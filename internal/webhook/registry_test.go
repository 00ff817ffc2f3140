package webhook

import (
	"net/http"
	"reflect"
	"testing"

	"agent-gateway/internal/model"
)

type stubHandler struct {
	name string
}

func (s *stubHandler) Provider() string { return s.name }
func (s *stubHandler) OrganizationID(body []byte, header http.Header) (string, error) {
	return "org", nil
}
func (s *stubHandler) Validate(body []byte, header http.Header, secret string) error { return nil }
func (s *stubHandler) Parse(body []byte, header http.Header) (*model.WebhookEvent, error) {
	return &model.WebhookEvent{Provider: s.name}, nil
}
func (s *stubHandler) ShouldProcess(event *model.WebhookEvent) (bool, string) { return true, "" }
func (s *stubHandler) BuildTaskRequest(event *model.WebhookEvent) (*TaskRequest, error) {
	return &TaskRequest{}, nil
}

func TestRegistry(t *testing.T) {
	t.Run("get unregistered returns nil", func(t *testing.T) {
		r := NewRegistry()
		if got := r.Get("github"); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		h := &stubHandler{name: "github"}
		r.Register("github", h)
		if got := r.Get("github"); got != h {
			t.Errorf("expected registered handler, got %v", got)
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		r := NewRegistry()
		first := &stubHandler{name: "github"}
		second := &stubHandler{name: "github"}
		r.Register("github", first)
		r.Register("github", second)
		if got := r.Get("github"); got != second {
			t.Error("expected replacement handler")
		}
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewRegistry()
		r.Register("slack", &stubHandler{name: "slack"})
		r.Unregister("slack")
		if got := r.Get("slack"); got != nil {
			t.Error("expected nil after unregister")
		}
		// unknown provider is a no-op
		r.Unregister("slack")
	})

	t.Run("providers sorted", func(t *testing.T) {
		r := NewRegistry()
		for _, name := range []string{"slack", "github", "sentry", "jira"} {
			r.Register(name, &stubHandler{name: name})
		}
		want := []string{"github", "jira", "sentry", "slack"}
		if got := r.Providers(); !reflect.DeepEqual(got, want) {
			t.Errorf("providers = %v, want %v", got, want)
		}
	})
}
