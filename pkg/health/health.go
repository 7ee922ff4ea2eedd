// Package health serves liveness, readiness and diagnostics endpoints for
// the navigation simulator.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/opd-ai/go-isonav/pkg/logging"
)

// HealthCheck is one named readiness probe.
type HealthCheck interface {
	Name() string
	// Check returns an error when the component is unhealthy.
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker manages and executes health checks for the application.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a check, replacing any check with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// Names returns the registered check names in order.
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check. The overall status is "healthy" only if all
// of them pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks[name] = ComponentHealth{
				Status: "healthy",
			}
		}
	}

	return status
}

// LivenessHandler answers 200 while the process can serve requests.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]string{"status": "alive"}
	json.NewEncoder(w).Encode(response)
}

// ReadinessHandler runs all checks and answers 200 when they pass, or 503.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}

// DiagnosticsHandler serves the value returned by collect as JSON.
func DiagnosticsHandler(collect func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(collect())
	}
}

// CorrelationHeader carries a request's correlation ID.
const CorrelationHeader = "X-Correlation-ID"

// maxCorrelationID bounds caller-supplied IDs; longer ones are replaced.
const maxCorrelationID = 64

// WithCorrelation puts the caller's correlation ID, or a fresh one, in the
// request context and echoes it in the response.
func WithCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if len(id) > maxCorrelationID {
			id = ""
		}
		ctx := logging.WithCorrelationID(r.Context(), id)
		w.Header().Set(CorrelationHeader, logging.GetCorrelationID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SimulationHealthCheck fails when the simulation loop is stopped or has
// not completed a tick within maxStall.
type SimulationHealthCheck struct {
	running  func() bool
	lastTick func() time.Time
	maxStall time.Duration
	now      func() time.Time
}

// NewSimulationHealthCheck creates a health check for the tick loop.
func NewSimulationHealthCheck(running func() bool, lastTick func() time.Time, maxStall time.Duration) *SimulationHealthCheck {
	return &SimulationHealthCheck{
		running:  running,
		lastTick: lastTick,
		maxStall: maxStall,
		now:      time.Now,
	}
}

// Name returns the name of this health check.
func (s *SimulationHealthCheck) Name() string {
	return "simulation"
}

// Check verifies that the tick loop is running and recent.
func (s *SimulationHealthCheck) Check(ctx context.Context) error {
	if !s.running() {
		return fmt.Errorf("simulation is not running")
	}
	last := s.lastTick()
	if last.IsZero() {
		return fmt.Errorf("simulation has not completed a tick")
	}
	if stall := s.now().Sub(last); stall > s.maxStall {
		return fmt.Errorf("last tick was %v ago, limit %v", stall.Round(time.Millisecond), s.maxStall)
	}
	return nil
}

// PathfinderHealthCheck fails while the pathfinder's circuit breaker is
// open and path requests are being shed.
type PathfinderHealthCheck struct {
	breakerOpen func() bool
}

// NewPathfinderHealthCheck creates a health check for the pathfinder.
func NewPathfinderHealthCheck(breakerOpen func() bool) *PathfinderHealthCheck {
	return &PathfinderHealthCheck{
		breakerOpen: breakerOpen,
	}
}

// Name returns the name of this health check.
func (p *PathfinderHealthCheck) Name() string {
	return "pathfinder"
}

// Check verifies that path requests are being served.
func (p *PathfinderHealthCheck) Check(ctx context.Context) error {
	if p.breakerOpen() {
		return fmt.Errorf("pathfinder circuit breaker is open")
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}
