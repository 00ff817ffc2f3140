package repository

import (
	"context"

	"agent-gateway/internal/model"
)

// InstallationRepository persists tenant credential records.
type InstallationRepository interface {
	// Create inserts a new installation row.
	Create(ctx context.Context, inst *model.Installation) error

	// GetByID returns an installation regardless of active state.
	GetByID(ctx context.Context, id string) (*model.Installation, error)

	// GetActiveByOrg returns the single active installation for
	// (platform, organization), or nil when none exists.
	GetActiveByOrg(ctx context.Context, platform model.Platform, organizationID string) (*model.Installation, error)

	// Update persists changed fields of an existing installation.
	Update(ctx context.Context, inst *model.Installation) error

	// ListActive returns active installations, optionally filtered by
	// platform ("" means all).
	ListActive(ctx context.Context, platform model.Platform) ([]*model.Installation, error)
}
