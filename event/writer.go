package event

import (
	"context"
	"fmt"
	"io"
	"sync"

	json "github.com/goccy/go-json"
)

var _ Sender = (*WriterSender)(nil)

// WriterSender writes each record as one JSON line.
//
// Example:
//
//	client := event.NewClient(event.NewWriterSender(os.Stdout))
type WriterSender struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSender creates a sender writing JSON lines to w.
func NewWriterSender(w io.Writer) *WriterSender {
	return &WriterSender{w: w}
}

// Send implements Sender.
func (s *WriterSender) Send(_ context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
