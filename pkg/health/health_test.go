package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/go-isonav/pkg/logging"
)

// stubCheck reports err under name.
type stubCheck struct {
	name string
	err  error
}

func (s *stubCheck) Name() string { return s.name }

func (s *stubCheck) Check(context.Context) error { return s.err }

// blockingCheck waits for the context, like a check probing a stalled loop.
type blockingCheck struct{}

func (blockingCheck) Name() string { return "stalled" }

func (blockingCheck) Check(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

var errStalled = errors.New("no tick for 3s")

func TestHealthChecker_AddRemove(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(&stubCheck{name: "simulation"})
	hc.AddCheck(&stubCheck{name: "simulation", err: errStalled})

	if got := hc.Names(); len(got) != 1 {
		t.Fatalf("Names() = %v, want one entry after re-adding a name", got)
	}
	if status := hc.CheckHealth(context.Background()); status.Status != "unhealthy" {
		t.Errorf("re-added check should replace the first, got %s", status.Status)
	}

	hc.RemoveCheck("simulation")
	hc.RemoveCheck("missing")
	if got := hc.Names(); len(got) != 0 {
		t.Errorf("Names() after removal = %v", got)
	}
}

func TestHealthChecker_CheckHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks []*stubCheck
		want   string
	}{
		{name: "no_checks", want: "healthy"},
		{
			name: "all_healthy",
			checks: []*stubCheck{
				{name: "simulation"},
				{name: "pathfinder"},
			},
			want: "healthy",
		},
		{
			name: "stalled_simulation",
			checks: []*stubCheck{
				{name: "simulation", err: errStalled},
				{name: "pathfinder"},
			},
			want: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for _, c := range tt.checks {
				hc.AddCheck(c)
			}

			status := hc.CheckHealth(context.Background())
			if status.Status != tt.want {
				t.Errorf("Status = %s, want %s", status.Status, tt.want)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Fatalf("got %d results, want %d", len(status.Checks), len(tt.checks))
			}
			for _, c := range tt.checks {
				got := status.Checks[c.name]
				if c.err != nil {
					if got.Status != "unhealthy" || got.Message != c.err.Error() {
						t.Errorf("%s = %+v, want unhealthy %q", c.name, got, c.err)
					}
				} else if got.Status != "healthy" {
					t.Errorf("%s = %+v, want healthy", c.name, got)
				}
			}
		})
	}
}

func TestHealthChecker_CheckHealthRespectsDeadline(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(blockingCheck{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	status := hc.CheckHealth(ctx)
	if status.Status != "unhealthy" || status.Checks["stalled"].Status != "unhealthy" {
		t.Errorf("expected the deadline to fail the check, got %+v", status)
	}
}

func TestHealthChecker_Handlers(t *testing.T) {
	hc := NewHealthChecker()

	w := httptest.NewRecorder()
	hc.LivenessHandler(w, httptest.NewRequest("GET", "/live", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("liveness: code %d, content type %q", w.Code, w.Header().Get("Content-Type"))
	}
	var alive map[string]string
	if err := json.NewDecoder(w.Body).Decode(&alive); err != nil {
		t.Fatalf("decode liveness: %v", err)
	}
	if alive["status"] != "alive" {
		t.Errorf("liveness status = %q", alive["status"])
	}

	for _, tc := range []struct {
		name string
		err  error
		code int
	}{
		{name: "ready", code: http.StatusOK},
		{name: "not_ready", err: errStalled, code: http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			hc := NewHealthChecker()
			hc.AddCheck(&stubCheck{name: "simulation", err: tc.err})

			w := httptest.NewRecorder()
			hc.ReadinessHandler(w, httptest.NewRequest("GET", "/ready", nil))
			if w.Code != tc.code {
				t.Errorf("code = %d, want %d", w.Code, tc.code)
			}
			var status HealthStatus
			if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
				t.Fatalf("decode readiness: %v", err)
			}
			if status.Checks["simulation"].Status == "" {
				t.Error("readiness body is missing the simulation check")
			}
		})
	}
}

func TestWithCorrelation(t *testing.T) {
	var seen string
	h := WithCorrelation(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetCorrelationID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "caller_id_kept", header: "reload-7", keep: true},
		{name: "missing_id_generated"},
		{name: "oversized_id_replaced", header: strings.Repeat("a", 65)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/diagnostics", nil)
			if tt.header != "" {
				req.Header.Set(CorrelationHeader, tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get(CorrelationHeader)
			if got == "" || got != seen {
				t.Fatalf("response ID %q, handler saw %q", got, seen)
			}
			if tt.keep && got != tt.header {
				t.Errorf("ID = %q, want %q", got, tt.header)
			}
			if !tt.keep && got == tt.header {
				t.Errorf("ID %q should have been generated", got)
			}
		})
	}
}

func TestSimulationHealthCheck(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		running     bool
		lastTick    time.Time
		expectError bool
	}{
		{
			name:        "running and recent",
			running:     true,
			lastTick:    now.Add(-50 * time.Millisecond),
			expectError: false,
		},
		{
			name:        "not running",
			running:     false,
			lastTick:    now,
			expectError: true,
		},
		{
			name:        "no tick yet",
			running:     true,
			lastTick:    time.Time{},
			expectError: true,
		},
		{
			name:        "stalled",
			running:     true,
			lastTick:    now.Add(-2 * time.Second),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewSimulationHealthCheck(
				func() bool { return tt.running },
				func() time.Time { return tt.lastTick },
				time.Second,
			)
			check.now = func() time.Time { return now }

			if check.Name() != "simulation" {
				t.Errorf("Expected name 'simulation', got %s", check.Name())
			}

			err := check.Check(context.Background())

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}

			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestPathfinderHealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		open        bool
		expectError bool
	}{
		{
			name:        "breaker closed",
			open:        false,
			expectError: false,
		},
		{
			name:        "breaker open",
			open:        true,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewPathfinderHealthCheck(func() bool {
				return tt.open
			})

			if check.Name() != "pathfinder" {
				t.Errorf("Expected name 'pathfinder', got %s", check.Name())
			}

			err := check.Check(context.Background())

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}

			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestDiagnosticsHandler(t *testing.T) {
	handler := DiagnosticsHandler(func() any {
		return map[string]int{"agents": 3, "cells": 12}
	})

	tests := []struct {
		name       string
		method     string
		wantStatus int
		wantBody   bool
	}{
		{"get", http.MethodGet, http.StatusOK, true},
		{"head", http.MethodHead, http.StatusOK, false},
		{"post rejected", http.MethodPost, http.StatusMethodNotAllowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/diagnostics", nil)
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status code %d, got %d", tt.wantStatus, w.Code)
			}
			if !tt.wantBody {
				return
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", ct)
			}
			var body map[string]int
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body["agents"] != 3 || body["cells"] != 12 {
				t.Errorf("Unexpected body %v", body)
			}
		})
	}
}

func TestHealthChecker_Names(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(&stubCheck{name: "simulation"})
	hc.AddCheck(&stubCheck{name: "memory"})
	hc.AddCheck(&stubCheck{name: "pathfinder"})

	names := hc.Names()
	want := []string{"memory", "pathfinder", "simulation"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d names, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestMemoryHealthCheck(t *testing.T) {
	tests := []struct {
		name         string
		maxMemoryMB  int64
		currentMemMB int64
		expectError  bool
	}{
		{
			name:         "memory usage within limit",
			maxMemoryMB:  100,
			currentMemMB: 50,
			expectError:  false,
		},
		{
			name:         "memory usage at limit",
			maxMemoryMB:  100,
			currentMemMB: 100,
			expectError:  false,
		},
		{
			name:         "memory usage exceeds limit",
			maxMemoryMB:  100,
			currentMemMB: 150,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewMemoryHealthCheck(tt.maxMemoryMB, func() int64 {
				return tt.currentMemMB
			})

			if check.Name() != "memory" {
				t.Errorf("Expected name 'memory', got %s", check.Name())
			}

			err := check.Check(context.Background())

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}

			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func BenchmarkHealthChecker_CheckHealth(b *testing.B) {
	hc := NewHealthChecker()
	hc.AddCheck(NewSimulationHealthCheck(func() bool { return true }, time.Now, time.Second))
	hc.AddCheck(NewPathfinderHealthCheck(func() bool { return false }))
	hc.AddCheck(NewMemoryHealthCheck(1<<20, getCurrentMemoryMB))

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hc.CheckHealth(ctx)
	}
}

// getCurrentMemoryMB reports the heap in use.
func getCurrentMemoryMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}
