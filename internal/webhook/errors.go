package webhook

import "errors"

// Domain-specific errors for webhook processing.
var (
	ErrSignatureValidation = errors.New("signature validation failed")
	ErrMissingSignature    = errors.New("signature header missing")
	ErrPayloadParse        = errors.New("failed to parse webhook payload")
	ErrUnknownProvider     = errors.New("provider not registered")
)
