package event

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
)

var _ Sender = (*HTTPSender)(nil)

const defaultHTTPTimeout = 10 * time.Second

// StatusError is returned when the collector answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("event: collector returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt:
// 429 and the gateway errors 502, 503 and 504.
func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// HTTPSender posts each record as JSON to a collector endpoint.
//
// Non-retryable statuses are returned as permanent errors so a wrapping
// Transmission does not redeliver them.
//
// Example:
//
//	s := event.NewHTTPSender("https://collector.internal/v1/events",
//	    event.WithHTTPHeader("X-Api-Key", key),
//	)
//	client := event.NewClient(event.NewTransmission(s))
type HTTPSender struct {
	endpoint string
	client   *http.Client
	headers  http.Header
}

// HTTPSenderOption configures an HTTPSender.
type HTTPSenderOption func(*HTTPSender)

// WithHTTPClient sets the HTTP client (default: 10s timeout).
func WithHTTPClient(c *http.Client) HTTPSenderOption {
	return func(s *HTTPSender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithHTTPHeader adds a header sent with every request.
func WithHTTPHeader(key, value string) HTTPSenderOption {
	return func(s *HTTPSender) {
		s.headers.Add(key, value)
	}
}

// NewHTTPSender creates a sender posting to endpoint.
func NewHTTPSender(endpoint string, opts ...HTTPSenderOption) *HTTPSender {
	s := &HTTPSender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		headers:  http.Header{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to encode event: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(b))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	for k, v := range s.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Time", rec.Timestamp.UTC().Format(time.RFC3339Nano))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	if statusErr.Retryable() {
		return statusErr
	}
	return backoff.Permanent(statusErr)
}
