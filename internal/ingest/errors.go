package ingest

import "errors"

var (
	// ErrServerClosed is returned by Serve when it is called after shutdown.
	ErrServerClosed = errors.New("ingest: server closed")

	// ErrAlreadyServing is returned when Serve is called twice.
	ErrAlreadyServing = errors.New("ingest: already serving")
)
