package contract

import "errors"

// Sentinel errors for every precondition the registry enforces. Operations wrap them
// with context, so callers match with errors.Is. A returned sentinel always means the
// transaction wrote nothing and emitted no event.
var (
	// Validation
	ErrEmptyField      = errors.New("required field is empty")
	ErrEmptyResourceID = errors.New("resource id is empty")
	ErrInvalidAddress  = errors.New("invalid principal")
	ErrInvalidDuration = errors.New("invalid expiry duration")

	// State conflict
	ErrAlreadyRegistered  = errors.New("identity already registered")
	ErrAlreadyVerified    = errors.New("identity already verified")
	ErrAlreadyProcessed   = errors.New("access request already processed")
	ErrAlreadyInitialized = errors.New("registry already initialized")

	// Authorization
	ErrUnauthorized = errors.New("unauthorized")

	// Temporal
	ErrExpired = errors.New("access request expired")

	// Not found / range
	ErrInvalidRequestID = errors.New("invalid access request id")
	ErrNotRegistered    = errors.New("identity not registered")
	ErrIdentityInactive = errors.New("identity inactive")
	ErrNotVerified      = errors.New("identity not verified")
	ErrNotInitialized   = errors.New("registry not initialized")
)
