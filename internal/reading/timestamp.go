package reading

import (
	"fmt"
	"time"
)

// Representable range of time.Time.UnixNano.
var (
	minNanoTime = time.Unix(0, -1<<63)
	maxNanoTime = time.Unix(0, 1<<63-1)
)

// Resolution is the outcome of resolving a client timestamp.
type Resolution struct {
	// Nanos is the point time in nanoseconds since the Unix epoch.
	Nanos int64

	// FellBack is true when Nanos came from the clock, not the client.
	FellBack bool

	// Reason explains the fallback; nil when FellBack is false.
	Reason error
}

// Resolver turns client-supplied timestamps into epoch nanoseconds.
// The zero value uses the wall clock.
type Resolver struct {
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Resolve parses ts as RFC3339. Unparseable or unrepresentable instants
// resolve to the current time with FellBack set. It never blocks.
func (r Resolver) Resolve(ts string) Resolution {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return r.fallback(fmt.Errorf("%w: %q: %w", ErrTimestampUnparseable, ts, err))
	}

	if t.Before(minNanoTime) || t.After(maxNanoTime) {
		return r.fallback(fmt.Errorf("%w: %q", ErrTimestampOverflow, ts))
	}

	return Resolution{Nanos: t.UnixNano()}
}

func (r Resolver) fallback(reason error) Resolution {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return Resolution{
		Nanos:    now().UnixNano(),
		FellBack: true,
		Reason:   reason,
	}
}
