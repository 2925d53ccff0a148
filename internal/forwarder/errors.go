package forwarder

import "errors"

// Domain errors for the forwarder package.
var (
	// ErrInvalidURL is returned by New when the base URL is not absolute.
	ErrInvalidURL = errors.New("forwarder: invalid upstream URL")

	// ErrMissingToken is returned by New when no credential is supplied.
	ErrMissingToken = errors.New("forwarder: missing token")
)
