package token

import "errors"

// Domain-specific errors for the token package.
var (
	ErrInstallationNotFound  = errors.New("no active installation for tenant")
	ErrDuplicateInstallation = errors.New("active installation already exists for tenant")
	ErrTokenRefresh          = errors.New("token refresh failed")

	// ErrCredentialsRevoked marks a permanent upstream auth failure. A
	// RefreshFunc returns it (wrapped) to have the installation deactivated
	// instead of retried.
	ErrCredentialsRevoked = errors.New("credentials revoked upstream")
)
