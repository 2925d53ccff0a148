package reading

import (
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolver_RFC3339(t *testing.T) {
	r := Resolver{Now: fixedClock(time.Unix(0, 42))}

	tests := []struct {
		ts   string
		want int64
	}{
		{"2023-11-14T22:13:20Z", 1700000000000000000},
		{"2023-11-15T05:13:20+07:00", 1700000000000000000},
		{"2023-11-14T22:13:20.5Z", 1700000000500000000},
		{"1970-01-01T00:00:00Z", 0},
	}

	for _, tt := range tests {
		t.Run(tt.ts, func(t *testing.T) {
			res := r.Resolve(tt.ts)
			if res.FellBack {
				t.Fatalf("Resolve(%q) fell back: %v", tt.ts, res.Reason)
			}
			if res.Nanos != tt.want {
				t.Errorf("Resolve(%q).Nanos = %d, want %d", tt.ts, res.Nanos, tt.want)
			}
		})
	}
}

func TestResolver_Fallback(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := Resolver{Now: fixedClock(now)}

	tests := []struct {
		ts     string
		reason error
	}{
		{"not-a-time", ErrTimestampUnparseable},
		{"", ErrTimestampUnparseable},
		{"2023-11-14 22:13:20", ErrTimestampUnparseable},
		{"1500-01-01T00:00:00Z", ErrTimestampOverflow},
		{"2300-01-01T00:00:00Z", ErrTimestampOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.ts, func(t *testing.T) {
			res := r.Resolve(tt.ts)
			if !res.FellBack {
				t.Fatalf("Resolve(%q) did not fall back", tt.ts)
			}
			if res.Nanos != now.UnixNano() {
				t.Errorf("Resolve(%q).Nanos = %d, want clock %d", tt.ts, res.Nanos, now.UnixNano())
			}
			if !errors.Is(res.Reason, tt.reason) {
				t.Errorf("Resolve(%q).Reason = %v, want %v", tt.ts, res.Reason, tt.reason)
			}
		})
	}
}

func TestResolver_WallClock(t *testing.T) {
	before := time.Now().UnixNano()
	res := Resolver{}.Resolve("garbage")
	after := time.Now().UnixNano()

	if !res.FellBack {
		t.Fatal("expected fallback for unparseable timestamp")
	}
	if res.Nanos < before || res.Nanos > after {
		t.Errorf("Nanos = %d, want within [%d, %d]", res.Nanos, before, after)
	}
}
