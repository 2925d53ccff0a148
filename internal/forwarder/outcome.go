package forwarder

import (
	"fmt"
	"time"
)

// Kind classifies a forward attempt.
type Kind int

const (
	// Delivered means the upstream answered 2xx.
	Delivered Kind = iota + 1
	// Rejected means the upstream answered with any other status.
	Rejected
	// TransportFailure means no HTTP response was obtained.
	TransportFailure
)

// String returns the lowercase name used in audit records and metric labels.
func (k Kind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case Rejected:
		return "rejected"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one forward attempt.
type Outcome struct {
	Kind Kind

	// Status is the HTTP status code; zero for TransportFailure.
	Status int

	// Body is the upstream response body for Rejected, truncated to MaxBodyBytes.
	Body string

	// Err is the transport error for TransportFailure.
	Err error

	// Duration is the wall time of the attempt.
	Duration time.Duration
}

// OK reports whether the point was stored.
func (o Outcome) OK() bool {
	return o.Kind == Delivered
}

func (o Outcome) String() string {
	switch o.Kind {
	case Delivered:
		return fmt.Sprintf("delivered (%d)", o.Status)
	case Rejected:
		return fmt.Sprintf("rejected (%d): %s", o.Status, o.Body)
	case TransportFailure:
		return fmt.Sprintf("transport failure: %v", o.Err)
	default:
		return "unknown"
	}
}
