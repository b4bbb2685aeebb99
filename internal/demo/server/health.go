package server

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// CheckResult is the outcome of one health check.
type CheckResult struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of /readyz.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// Health runs readiness checks.
type Health struct {
	service   string
	version   string
	startTime time.Time

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

// NewHealth creates a Health with no checks.
func NewHealth(service, version string) *Health {
	return &Health{
		service:   service,
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]HealthCheck),
	}
}

// AddCheck registers a readiness check under name.
//
// Example:
//
//	health.AddCheck("postgres", db.PingContext)
func (h *Health) AddCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// ServeHTTP responds 200 when every check passes and 503 otherwise.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()
	names := slices.Sorted(maps.Keys(checks))

	var errs []Error
	results := make(map[string]CheckResult, len(names))
	for _, name := range names {
		start := time.Now()
		err := checks[name](r.Context())

		result := CheckResult{Status: "ok", Latency: time.Since(start).String()}
		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			errs = append(errs, Error{Field: name, Message: err.Error()})
		}
		results[name] = result
	}

	data := HealthResponse{
		Status:  "ok",
		Service: h.service,
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Checks:  results,
	}

	if len(errs) > 0 {
		data.Status = "fail"
		WriteJSON(w, r, http.StatusServiceUnavailable, Response[HealthResponse]{
			Data:    data,
			Errors:  errs,
			Message: "one or more checks failed",
		})
		return
	}

	WriteJSON(w, r, http.StatusOK, Response[HealthResponse]{
		Data:    data,
		Message: "all checks passed",
	})
}
