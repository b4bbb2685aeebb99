package event

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSender_Send(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantErr       bool
		wantPermanent bool
	}{
		{
			name:   "given 200, then succeeds",
			status: http.StatusOK,
		},
		{
			name:   "given 202, then succeeds",
			status: http.StatusAccepted,
		},
		{
			name:    "given 503, then returns retryable error",
			status:  http.StatusServiceUnavailable,
			wantErr: true,
		},
		{
			name:    "given 429, then returns retryable error",
			status:  http.StatusTooManyRequests,
			wantErr: true,
		},
		{
			name:          "given 400, then returns permanent error",
			status:        http.StatusBadRequest,
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:          "given 500, then returns permanent error",
			status:        http.StatusInternalServerError,
			wantErr:       true,
			wantPermanent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			type request struct {
				Data   map[string]any `json:"data"`
				APIKey string         `json:"-"`
			}
			requests := make(chan request, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req request
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &req)
				req.APIKey = r.Header.Get("X-Api-Key")
				requests <- req

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer srv.Close()

			s := NewHTTPSender(srv.URL, WithHTTPHeader("X-Api-Key", "secret"))
			err := s.Send(context.Background(), Record{
				Timestamp: time.Now(),
				Data:      Fields{"name": "SELECT"},
			})

			got := <-requests
			assert.Equal(t, "SELECT", got.Data["name"])
			assert.Equal(t, "secret", got.APIKey)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, "nope", statusErr.Body)

			var permanent *backoff.PermanentError
			assert.Equal(t, tt.wantPermanent, errors.As(err, &permanent))
		})
	}
}

func TestHTTPSender_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewHTTPSender(url).Send(context.Background(), Record{Data: Fields{}})
	require.Error(t, err)

	var permanent *backoff.PermanentError
	assert.False(t, errors.As(err, &permanent))
}

func TestHTTPSender_TransmissionStopsOnPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tx := NewTransmission(NewHTTPSender(srv.URL),
		WithoutBreaker(),
		WithRetry(RetryConfig{MaxTries: 3, InitialInterval: time.Millisecond}),
	)
	require.NoError(t, tx.Send(context.Background(), Record{Data: Fields{}}))
	require.NoError(t, tx.Close(context.Background()))

	assert.Equal(t, int32(1), calls.Load())
}
