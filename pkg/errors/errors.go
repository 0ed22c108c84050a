package errors

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrEmptyKey    = errors.New("empty key")
	ErrInvalidData = errors.New("invalid data")

	ErrNotInitialized   = errors.New("trusted authority is not initialized")
	ErrInvalidPoW       = errors.New("invalid proof of work")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNotRegistered    = errors.New("facility is not registered")
	ErrAccessDenied     = errors.New("attributes do not satisfy access policy")
	ErrNoModel          = errors.New("no model available")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrSchemeMismatch   = errors.New("secret sharing scheme mismatch")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrRoundMismatch    = errors.New("payload does not belong to the open round")
)
