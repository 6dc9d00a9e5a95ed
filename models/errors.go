package models

import "errors"

// Error kinds returned by services. Wrap with fmt.Errorf("%w: ...", ErrX) to add detail;
// handlers map them to HTTP codes with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)
