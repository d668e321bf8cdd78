package health

import (
	"context"
	"sync"
	"time"
)

// Status of a single check or the whole service.
type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

// CheckResult is the outcome of one checker.
type CheckResult struct {
	Status  Status         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Checker performs one health check.
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context) CheckResult

func (f CheckerFunc) Check(ctx context.Context) CheckResult { return f(ctx) }

// Response aggregates all registered checks.
type Response struct {
	Service string                 `json:"service"`
	Status  Status                 `json:"status"`
	Checks  map[string]CheckResult `json:"checks"`
}

// Health runs a set of named checkers with a shared timeout.
type Health struct {
	service  string
	timeout  time.Duration
	mu       sync.RWMutex
	checkers map[string]Checker
}

// New creates a Health aggregate for the named service.
func New(service string, timeout time.Duration) *Health {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Health{
		service:  service,
		timeout:  timeout,
		checkers: map[string]Checker{},
	}
}

// AddCheck registers a named checker.
func (h *Health) AddCheck(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Check runs all checkers; the service is UP only when every check is UP.
func (h *Health) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	defer h.mu.RUnlock()

	response := Response{
		Service: h.service,
		Status:  StatusUp,
		Checks:  make(map[string]CheckResult, len(h.checkers)),
	}
	for name, checker := range h.checkers {
		result := checker.Check(ctx)
		response.Checks[name] = result
		if result.Status == StatusDown {
			response.Status = StatusDown
		}
	}
	return response
}
