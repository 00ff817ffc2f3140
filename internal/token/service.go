package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"agent-gateway/internal/model"
	"agent-gateway/internal/token/repository"
	pkgLog "agent-gateway/pkg/log"
)

type service struct {
	repo       repository.InstallationRepository
	refreshers map[model.Platform]RefreshFunc
	l          pkgLog.Logger
	now        func() time.Time

	// refreshLocks serializes token refreshes per installation so racing
	// callers trigger exactly one upstream refresh.
	mu           sync.Mutex
	refreshLocks map[string]*sync.Mutex
}

func (s *service) GetToken(ctx context.Context, platform model.Platform, organizationID string) (*TokenInfo, error) {
	inst, err := s.GetInstallation(ctx, platform, organizationID)
	if err != nil {
		return nil, err
	}

	if !inst.TokenExpired(s.now()) {
		return tokenInfoOf(inst), nil
	}

	return s.refreshToken(ctx, inst)
}

func (s *service) GetWebhookSecret(ctx context.Context, platform model.Platform, organizationID string) (string, error) {
	inst, err := s.GetInstallation(ctx, platform, organizationID)
	if err != nil {
		return "", err
	}
	return inst.WebhookSecret, nil
}

func (s *service) GetInstallation(ctx context.Context, platform model.Platform, organizationID string) (*model.Installation, error) {
	inst, err := s.repo.GetActiveByOrg(ctx, platform, organizationID)
	if err != nil {
		return nil, fmt.Errorf("lookup installation: %w", err)
	}
	if inst == nil {
		return nil, ErrInstallationNotFound
	}
	return inst, nil
}

func (s *service) CreateInstallation(ctx context.Context, input CreateInstallationInput) (*model.Installation, error) {
	existing, err := s.repo.GetActiveByOrg(ctx, input.Platform, input.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("lookup installation: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateInstallation
	}

	now := s.now()
	inst := &model.Installation{
		ID:               uuid.NewString(),
		Platform:         input.Platform,
		OrganizationID:   input.OrganizationID,
		OrganizationName: input.OrganizationName,
		AccessToken:      input.AccessToken,
		RefreshToken:     input.RefreshToken,
		TokenExpiresAt:   input.TokenExpiresAt,
		Scopes:           input.Scopes,
		WebhookSecret:    input.WebhookSecret,
		InstalledBy:      input.InstalledBy,
		Metadata:         input.Metadata,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, inst); err != nil {
		return nil, fmt.Errorf("create installation: %w", err)
	}

	s.l.Infof(ctx, "Installation created: %s %s/%s", inst.ID, inst.Platform, inst.OrganizationID)
	return inst, nil
}

func (s *service) DeactivateInstallation(ctx context.Context, id string) (*model.Installation, error) {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup installation: %w", err)
	}
	if inst == nil {
		return nil, ErrInstallationNotFound
	}

	inst.IsActive = false
	inst.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, inst); err != nil {
		return nil, fmt.Errorf("deactivate installation: %w", err)
	}

	s.l.Infof(ctx, "Installation deactivated: %s %s/%s", inst.ID, inst.Platform, inst.OrganizationID)
	return inst, nil
}

func (s *service) ListInstallations(ctx context.Context, platform model.Platform) ([]*model.Installation, error) {
	return s.repo.ListActive(ctx, platform)
}

// refreshToken coalesces concurrent refreshes of one installation behind a
// per-installation mutex. The loser of the race observes the already
// refreshed record and skips the upstream call.
func (s *service) refreshToken(ctx context.Context, inst *model.Installation) (*TokenInfo, error) {
	lock := s.lockFor(inst.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent caller may have refreshed already.
	current, err := s.repo.GetByID(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup installation: %w", err)
	}
	if current == nil || !current.IsActive {
		return nil, ErrInstallationNotFound
	}
	if !current.TokenExpired(s.now()) {
		return tokenInfoOf(current), nil
	}

	refresh, ok := s.refreshers[current.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: no refresh function for platform %s", ErrTokenRefresh, current.Platform)
	}

	info, err := refresh(ctx, current)
	if err != nil {
		if errors.Is(err, ErrCredentialsRevoked) {
			s.l.Warnf(ctx, "Credentials revoked for installation %s, deactivating", current.ID)
			if _, deactErr := s.DeactivateInstallation(ctx, current.ID); deactErr != nil {
				s.l.Errorf(ctx, "Failed to deactivate installation %s: %v", current.ID, deactErr)
			}
			return nil, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
		}

		// One retry for transient upstream failures.
		s.l.Warnf(ctx, "Token refresh failed for %s, retrying once: %v", current.ID, err)
		info, err = refresh(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
		}
	}

	current.AccessToken = info.AccessToken
	if info.RefreshToken != "" {
		current.RefreshToken = info.RefreshToken
	}
	current.TokenExpiresAt = info.ExpiresAt
	if len(info.Scopes) > 0 {
		current.Scopes = info.Scopes
	}
	current.UpdatedAt = s.now()

	// The refreshed token must be durable before anyone uses it.
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("persist refreshed token: %w", err)
	}

	s.l.Infof(ctx, "Token refreshed for installation %s", current.ID)
	return tokenInfoOf(current), nil
}

func (s *service) lockFor(installationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.refreshLocks[installationID]
	if !ok {
		lock = &sync.Mutex{}
		s.refreshLocks[installationID] = lock
	}
	return lock
}

func tokenInfoOf(inst *model.Installation) *TokenInfo {
	return &TokenInfo{
		AccessToken:  inst.AccessToken,
		RefreshToken: inst.RefreshToken,
		ExpiresAt:    inst.TokenExpiresAt,
		Scopes:       inst.Scopes,
	}
}
