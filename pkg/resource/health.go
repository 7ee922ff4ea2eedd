// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// maxOverrunRate is the share of ticks allowed over the frame budget before
// the simulator reports unhealthy.
const maxOverrunRate = 0.25

// minFramesForRate keeps a few slow startup ticks from failing the check.
const minFramesForRate = 120

// ResourceHealthCheck reports the resource manager's limits as a health check.
type ResourceHealthCheck struct {
	manager *ResourceManager
}

// NewResourceHealthCheck creates a new health check for the resource manager.
func NewResourceHealthCheck(manager *ResourceManager) *ResourceHealthCheck {
	return &ResourceHealthCheck{
		manager: manager,
	}
}

// Name returns the name of this health check.
func (r *ResourceHealthCheck) Name() string {
	return "resource"
}

// Check fails when memory is over its limit, tracked goroutines pass 80% of
// theirs, or too many ticks overran the frame budget.
func (r *ResourceHealthCheck) Check(ctx context.Context) error {
	stats := r.manager.GetResourceStats()

	if stats.MemoryUsageMB > stats.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB",
			stats.MemoryUsageMB, stats.MaxMemoryMB)
	}

	goroutineThreshold := int64(float64(stats.MaxGoroutines) * 0.8)
	if stats.GoroutineCount > goroutineThreshold {
		return fmt.Errorf("goroutine count %d exceeds 80%% threshold (%d/%d)",
			stats.GoroutineCount, goroutineThreshold, stats.MaxGoroutines)
	}

	if stats.Frames.Frames >= minFramesForRate && stats.Frames.OverrunRate() > maxOverrunRate {
		return fmt.Errorf("%d of %d ticks exceeded the %v frame budget",
			stats.Frames.Overruns, stats.Frames.Frames, stats.Frames.Budget)
	}
	return nil
}
