package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// validateHMACSignature verifies an HMAC-SHA256 hex digest over the raw,
// unparsed payload. The header value may carry a "sha256=" prefix (GitHub
// style). Comparison is constant-time on the decoded bytes.
func validateHMACSignature(payload []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	if signature == "" {
		return ErrMissingSignature
	}

	sigHex := strings.TrimPrefix(signature, "sha256=")

	expected, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex encoding: %w", ErrSignatureValidation)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	actual := mac.Sum(nil)

	if !hmac.Equal(expected, actual) {
		return ErrSignatureValidation
	}
	return nil
}

// computeHMACSignature returns the hex HMAC-SHA256 digest of data. Used by
// the Slack handler to sign its base string, and by tests.
func computeHMACSignature(data []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// validateSharedToken compares a header-supplied token against the stored
// secret in constant time (GitLab/Jira style token auth).
func validateSharedToken(token, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	if token == "" {
		return ErrMissingSignature
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ErrSignatureValidation
	}
	return nil
}
