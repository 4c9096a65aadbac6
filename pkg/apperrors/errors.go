package apperrors

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique-constraint violations.
	ErrConflict = errors.New("conflict")
	// ErrConfigNotFound is returned when a product has no active database configuration.
	ErrConfigNotFound = errors.New("no active database configuration for product")
	// ErrUnsupportedKind is returned when a configuration names a database kind the
	// manager cannot build a connection for.
	ErrUnsupportedKind = errors.New("unsupported database kind")
	// ErrIncompleteConfig is returned when kind-specific required fields are missing.
	ErrIncompleteConfig = errors.New("incomplete database configuration")
	// ErrNotImplemented is returned for operations that exist in the API surface but
	// have no working implementation yet (direct postgres credential testing).
	ErrNotImplemented = errors.New("not implemented")
	// ErrValidation is returned when request input fails validation.
	ErrValidation = errors.New("validation failed")
)
