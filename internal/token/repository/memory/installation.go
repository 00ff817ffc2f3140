package memory

import (
	"context"
	"sync"

	"agent-gateway/internal/model"
)

// Repository is the in-memory InstallationRepository, used by tests and
// single-process development setups.
type Repository struct {
	mu   sync.RWMutex
	byID map[string]*model.Installation
}

func New() *Repository {
	return &Repository{
		byID: make(map[string]*model.Installation),
	}
}

func (r *Repository) Create(ctx context.Context, inst *model.Installation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneInstallation(inst)
	r.byID[inst.ID] = cp
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*model.Installation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneInstallation(inst), nil
}

func (r *Repository) GetActiveByOrg(ctx context.Context, platform model.Platform, organizationID string) (*model.Installation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inst := range r.byID {
		if inst.IsActive && inst.Platform == platform && inst.OrganizationID == organizationID {
			return cloneInstallation(inst), nil
		}
	}
	return nil, nil
}

func (r *Repository) Update(ctx context.Context, inst *model.Installation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[inst.ID] = cloneInstallation(inst)
	return nil
}

func (r *Repository) ListActive(ctx context.Context, platform model.Platform) ([]*model.Installation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Installation
	for _, inst := range r.byID {
		if !inst.IsActive {
			continue
		}
		if platform != "" && inst.Platform != platform {
			continue
		}
		out = append(out, cloneInstallation(inst))
	}
	return out, nil
}

func cloneInstallation(inst *model.Installation) *model.Installation {
	cp := *inst
	cp.Scopes = append([]string(nil), inst.Scopes...)
	if inst.Metadata != nil {
		cp.Metadata = make(map[string]string, len(inst.Metadata))
		for k, v := range inst.Metadata {
			cp.Metadata[k] = v
		}
	}
	if inst.TokenExpiresAt != nil {
		t := *inst.TokenExpiresAt
		cp.TokenExpiresAt = &t
	}
	return &cp
}
