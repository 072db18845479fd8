package canonical

import "errors"

// Error kinds surfaced verbatim in orchestrator responses.
var (
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrBadLength       = errors.New("signature must be exactly 65 bytes")
	ErrBadRecoveryID   = errors.New("signature recovery id must be 0, 1, 27, or 28")
	ErrRecoveryFailed  = errors.New("failed to recover public key from signature")
	ErrAddressMismatch = errors.New("recovered address does not match claimed account")
)
