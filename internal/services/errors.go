package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to HTTP
// status codes with errors.Is.
var (
	// ErrNotFound means the requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness rule was violated (duplicate chassis,
	// duplicate invoice request, duplicate pending activation)
	ErrConflict = errors.New("conflict")

	// ErrInvalidState means the entity is not in a state that allows the
	// requested transition
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation means the input failed validation
	ErrValidation = errors.New("validation failed")

	// ErrForbidden means the caller does not own the entity or lacks the role
	ErrForbidden = errors.New("forbidden")
)
