package token

import (
	"context"

	"agent-gateway/internal/model"
)

// Service owns per-tenant provider credentials: validity, refresh
// coordination, and webhook secrets.
type Service interface {
	// GetToken returns a valid access token for the tenant, refreshing it
	// first when expired. Concurrent callers racing one expired token cause
	// exactly one upstream refresh.
	GetToken(ctx context.Context, platform model.Platform, organizationID string) (*TokenInfo, error)

	// GetWebhookSecret returns the tenant's webhook validation secret.
	GetWebhookSecret(ctx context.Context, platform model.Platform, organizationID string) (string, error)

	// GetInstallation returns the tenant's active installation.
	GetInstallation(ctx context.Context, platform model.Platform, organizationID string) (*model.Installation, error)

	// CreateInstallation provisions a tenant. Fails with
	// ErrDuplicateInstallation when an active row already exists.
	CreateInstallation(ctx context.Context, input CreateInstallationInput) (*model.Installation, error)

	// DeactivateInstallation soft-deactivates a tenant; subsequent lookups
	// behave as not-found.
	DeactivateInstallation(ctx context.Context, id string) (*model.Installation, error)

	// ListInstallations returns active installations, optionally filtered by
	// platform ("" means all).
	ListInstallations(ctx context.Context, platform model.Platform) ([]*model.Installation, error)
}
