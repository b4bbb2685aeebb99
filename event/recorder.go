package event

import (
	"context"
	"sync"
)

var _ Sender = (*Recorder)(nil)

// Recorder is an in-memory Sender that keeps every record it receives.
// It is intended for tests and local debugging.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send implements Sender.
func (r *Recorder) Send(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	return nil
}

// Records returns the received records in arrival order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Last returns the most recent record, or false when none was received.
func (r *Recorder) Last() (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == 0 {
		return Record{}, false
	}
	return r.records[len(r.records)-1], true
}

// Len returns the number of received records.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.records)
}

// Reset discards all received records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = nil
}
