package token

import (
	"context"
	"time"

	"agent-gateway/internal/model"
)

// TokenInfo is a usable access token with its expiry.
type TokenInfo struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       []string
}

// CreateInstallationInput carries everything needed to provision a tenant.
type CreateInstallationInput struct {
	Platform         model.Platform
	OrganizationID   string
	OrganizationName string
	AccessToken      string
	RefreshToken     string
	TokenExpiresAt   *time.Time
	Scopes           []string
	WebhookSecret    string
	InstalledBy      string
	Metadata         map[string]string
}

// RefreshFunc exchanges an installation's refresh token for fresh
// credentials. One is injected per platform; the service never talks to a
// provider directly.
type RefreshFunc func(ctx context.Context, inst *model.Installation) (*TokenInfo, error)
