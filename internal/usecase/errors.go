package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrMissingData           = errors.New("required match data is missing")
	ErrSessionPhase          = errors.New("operation not allowed in current session phase")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
