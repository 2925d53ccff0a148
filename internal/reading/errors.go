package reading

import "errors"

// Domain errors for the reading package.
//
//	if errors.Is(err, reading.ErrOutOfRange) {
//	    // drop the line, keep the connection
//	}
var (
	// ErrMalformed is returned when a line is not a complete reading object.
	ErrMalformed = errors.New("reading: malformed")

	// ErrOutOfRange is returned when a measurement is outside sensor bounds.
	ErrOutOfRange = errors.New("reading: out of range")

	// ErrTimestampUnparseable is the fallback reason for a timestamp that is not RFC3339.
	ErrTimestampUnparseable = errors.New("reading: timestamp not RFC3339")

	// ErrTimestampOverflow is the fallback reason for an instant that cannot be
	// expressed as int64 nanoseconds since the epoch.
	ErrTimestampOverflow = errors.New("reading: timestamp outside nanosecond range")
)
