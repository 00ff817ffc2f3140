package token

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"agent-gateway/internal/model"
)

// OAuthRefresh builds a RefreshFunc on top of a standard OAuth2 endpoint.
// Platforms with a plain refresh-token grant (GitHub, Slack, Jira) plug in
// their endpoint config; anything exotic supplies a custom RefreshFunc.
func OAuthRefresh(cfg *oauth2.Config) RefreshFunc {
	return func(ctx context.Context, inst *model.Installation) (*TokenInfo, error) {
		if inst.RefreshToken == "" {
			return nil, fmt.Errorf("%w: installation has no refresh token", ErrCredentialsRevoked)
		}

		src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: inst.RefreshToken})
		tok, err := src.Token()
		if err != nil {
			if retrieveErr, ok := err.(*oauth2.RetrieveError); ok {
				switch retrieveErr.ErrorCode {
				case "invalid_grant", "unauthorized_client":
					return nil, fmt.Errorf("%w: %v", ErrCredentialsRevoked, err)
				}
			}
			return nil, err
		}

		info := &TokenInfo{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
		}
		if !tok.Expiry.IsZero() {
			expiry := tok.Expiry.UTC()
			info.ExpiresAt = &expiry
		}
		return info, nil
	}
}
