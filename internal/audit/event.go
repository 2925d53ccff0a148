package audit

import "time"

// Action names one kind of audit event.
type Action string

// Actions emitted by the ingest path.
const (
	ActionConnectionOpened  Action = "connection.opened"
	ActionConnectionClosed  Action = "connection.closed"
	ActionReadingReceived   Action = "reading.received"
	ActionReadingRejected   Action = "reading.rejected"
	ActionReadingMalformed  Action = "reading.malformed"
	ActionTimestampFallback Action = "timestamp.fallback"
	ActionForwardDelivered  Action = "forward.delivered"
	ActionForwardRejected   Action = "forward.rejected"
	ActionForwardFailed     Action = "forward.failed"
	ActionAckFailed         Action = "ack.failed"
	ActionHandlerPanic      Action = "handler.panic"
)

// Event is one audit record.
type Event struct {
	Action Action
	ConnID string
	Peer   string

	// Details carries action-specific values (reading fields, status, error text).
	Details map[string]any

	// Time is when the event happened; zero means now.
	Time time.Time
}

// at returns e.Time, or now when unset.
func (e Event) at() time.Time {
	if e.Time.IsZero() {
		return time.Now()
	}
	return e.Time
}
