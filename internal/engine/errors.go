package engine

import "errors"

var (
	// ErrInvalidIdentifier is returned for a malformed engine identifier.
	ErrInvalidIdentifier = errors.New("invalid engine identifier")

	// ErrMethodUnavailable is returned when the library cannot provide the
	// requested input method. It is permanent for that variant.
	ErrMethodUnavailable = errors.New("input method unavailable")
)
