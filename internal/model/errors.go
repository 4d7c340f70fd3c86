package model

import "errors"

// Service-level errors. Callers match them with errors.Is; the HTTP layer
// maps each one to a status code.
var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("invalid request")

	// ErrAuth indicates an absent, invalid, expired or mismatched token.
	ErrAuth = errors.New("authentication failure")

	// ErrInvalidCredentials indicates a login with an unknown phone or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired indicates an attempt to extend a token that already expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrNotFound indicates the addressed resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLimitExceeded indicates the owner already has the maximum number of checks.
	ErrLimitExceeded = errors.New("check limit reached")

	// ErrConflict indicates the resource already exists.
	ErrConflict = errors.New("already exists")

	// ErrStore indicates a durable read or write failed.
	ErrStore = errors.New("store failure")

	// ErrInconsistent indicates the user and check records disagree
	// (a deleted check id was missing from its owner's list).
	ErrInconsistent = errors.New("inconsistent records")
)
