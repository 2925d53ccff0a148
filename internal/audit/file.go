package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const filePermissions = 0640

// fileRecord is the JSON shape of one line in the audit file.
type fileRecord struct {
	Time    string         `json:"time"`
	Action  Action         `json:"action"`
	ConnID  string         `json:"conn_id,omitempty"`
	Peer    string         `json:"peer,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// FileRecorder appends one JSON object per line to a file, with
// timestamps rendered in a fixed zone. Rotation is left to the host.
type FileRecorder struct {
	mu  sync.Mutex
	w   io.WriteCloser
	loc *time.Location
}

// OpenFile opens path for appending, creating it if needed.
// A nil loc renders timestamps in UTC.
func OpenFile(path string, loc *time.Location) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	return NewFileRecorder(f, loc), nil
}

// NewFileRecorder wraps an already open writer.
func NewFileRecorder(w io.WriteCloser, loc *time.Location) *FileRecorder {
	if loc == nil {
		loc = time.UTC
	}
	return &FileRecorder{w: w, loc: loc}
}

// Record implements Recorder. Each event is written with a single Write
// call so concurrent connections never interleave within a line.
func (r *FileRecorder) Record(_ context.Context, e Event) error {
	line, err := json.Marshal(fileRecord{
		Time:    e.at().In(r.loc).Format(time.RFC3339Nano),
		Action:  e.Action,
		ConnID:  e.ConnID,
		Peer:    e.Peer,
		Details: e.Details,
	})
	if err != nil {
		return fmt.Errorf("encoding audit record: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.w.Write(line); err != nil {
		return fmt.Errorf("writing audit file: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Close()
}
