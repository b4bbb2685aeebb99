package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/sqlevent/internal/demo/database"
)

type fakeStore struct {
	animals []database.Animal
	counts  map[string]int64
	err     error
}

func (s *fakeStore) BySpecies(_ context.Context, species string) ([]database.Animal, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []database.Animal
	for _, a := range s.animals {
		if a.Species == species {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) Count(context.Context) (map[string]int64, error) {
	return s.counts, s.err
}

func newTestRouter(store Store, checkErr error) http.Handler {
	health := NewHealth("sqlevent-demo", "test")
	health.AddCheck("postgres", func(context.Context) error { return checkErr })

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "demo_test_total"}))

	return NewRouter(store, health, reg, zerolog.Nop())
}

func TestRouter(t *testing.T) {
	store := &fakeStore{
		animals: []database.Animal{
			{ID: 1, Name: "Max", Species: "Lion"},
			{ID: 2, Name: "Nala", Species: "Tiger"},
		},
		counts: map[string]int64{"Lion": 1, "Tiger": 1},
	}

	tests := []struct {
		name       string
		store      Store
		checkErr   error
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "given ping, then returns pong",
			store:      store,
			path:       "/ping",
			wantStatus: http.StatusOK,
			wantBody:   `"pong"`,
		},
		{
			name:       "given passing checks, then readyz returns ok",
			store:      store,
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `"all checks passed"`,
		},
		{
			name:       "given failing check, then readyz returns 503",
			store:      store,
			checkErr:   errors.New("connection refused"),
			path:       "/readyz",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"connection refused"`,
		},
		{
			name:       "given metrics path, then exposes registry",
			store:      store,
			path:       "/metrics",
			wantStatus: http.StatusOK,
			wantBody:   "demo_test_total",
		},
		{
			name:       "given species, then returns matching animals",
			store:      store,
			path:       "/animals/?species=Lion",
			wantStatus: http.StatusOK,
			wantBody:   `"name":"Max"`,
		},
		{
			name:       "given a species without animals, then returns count 0",
			store:      store,
			path:       "/animals/?species=Zebra",
			wantStatus: http.StatusOK,
			wantBody:   `"count":0`,
		},
		{
			name:       "given no species, then returns 400",
			store:      store,
			path:       "/animals/",
			wantStatus: http.StatusBadRequest,
			wantBody:   `"field":"species"`,
		},
		{
			name:       "given store error, then returns 500",
			store:      &fakeStore{err: errors.New("boom")},
			path:       "/animals/counts",
			wantStatus: http.StatusInternalServerError,
			wantBody:   "failed to count animals",
		},
		{
			name:       "given counts path, then returns counts",
			store:      store,
			path:       "/animals/counts",
			wantStatus: http.StatusOK,
			wantBody:   `"Tiger":1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)

			newTestRouter(tt.store, tt.checkErr).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))
		})
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "given request id header, then forwards it", header: "req-123"},
		{name: "given no header, then generates one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if tt.header != "" {
				assert.Equal(t, tt.header, got)
			} else {
				assert.Len(t, got, 36)
			}
			assert.Equal(t, got, rr.Header().Get(RequestIDHeader))
		})
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp Response[any]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Message)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "server", resp.Errors[0].Field)
}

func TestWriteList(t *testing.T) {
	tests := []struct {
		name      string
		items     []database.Animal
		wantCount int
		wantData  bool
	}{
		{
			name:      "given animals, then data and count are written",
			items:     []database.Animal{{ID: 1, Name: "Max", Species: "Lion"}, {ID: 3, Name: "Simba", Species: "Lion"}},
			wantCount: 2,
			wantData:  true,
		},
		{
			name:      "given no animals, then count 0 and no data",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				WriteList(w, r, tt.items)
			}))

			req := httptest.NewRequest(http.MethodGet, "/animals/", nil)
			req.Header.Set(RequestIDHeader, "req-animals")
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp Response[[]database.Animal]
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, "req-animals", resp.Meta.RequestID)
			require.NotNil(t, resp.Meta.Count)
			assert.Equal(t, tt.wantCount, *resp.Meta.Count)
			if tt.wantData {
				assert.Equal(t, tt.items, resp.Data)
			} else {
				assert.Empty(t, resp.Data)
			}
		})
	}
}

func TestServer_ListenAndServe(t *testing.T) {
	s := New("127.0.0.1:0", http.NotFoundHandler(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, s.ListenAndServe(ctx))
}
