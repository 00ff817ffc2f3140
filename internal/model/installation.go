package model

import "time"

// Platform identifies a third-party provider family.
type Platform string

const (
	PlatformGitHub Platform = "github"
	PlatformJira   Platform = "jira"
	PlatformSlack  Platform = "slack"
	PlatformSentry Platform = "sentry"
)

// Installation is a tenant's stored credentials for one platform.
// At most one active installation may exist per (platform, organization).
type Installation struct {
	ID               string            `json:"id"`
	Platform         Platform          `json:"platform"`
	OrganizationID   string            `json:"organization_id"`
	OrganizationName string            `json:"organization_name"`
	AccessToken      string            `json:"-"`
	RefreshToken     string            `json:"-"`
	TokenExpiresAt   *time.Time        `json:"token_expires_at,omitempty"`
	Scopes           []string          `json:"scopes"`
	WebhookSecret    string            `json:"-"`
	InstalledBy      string            `json:"installed_by"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	IsActive         bool              `json:"is_active"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TokenExpired reports whether the access token is at or past its expiry.
// Installations without an expiry never expire.
func (i *Installation) TokenExpired(now time.Time) bool {
	if i.TokenExpiresAt == nil {
		return false
	}
	return !i.TokenExpiresAt.After(now)
}
