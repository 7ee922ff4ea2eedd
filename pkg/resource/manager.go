// pkg/resource/manager.go
package resource

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-isonav/pkg/config"
	"github.com/opd-ai/go-isonav/pkg/logging"
)

// overrunLogEvery limits overrun warnings to one per this many overruns.
const overrunLogEvery = 60

// ResourceManager tracks the simulator's goroutines, heap and tick
// durations, and waits for tracked goroutines on shutdown.
type ResourceManager struct {
	maxMemoryMB     int64
	maxGoroutines   int64
	shutdownTimeout time.Duration
	checkInterval   time.Duration
	frameBudget     time.Duration

	goroutineCount atomic.Int64
	memoryUsageMB  atomic.Int64

	frames     atomic.Uint64
	overruns   atomic.Uint64
	lastFrame  atomic.Int64
	worstFrame atomic.Int64

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	logger  *logging.Logger

	lastMemoryCheck    time.Time
	lastGoroutineCheck time.Time
}

// NewResourceManager creates a manager from the process settings. A nil
// logger discards output.
func NewResourceManager(cfg *config.EnvironmentConfig, logger *logging.Logger) *ResourceManager {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = logging.Discard()
	}

	now := time.Now()
	return &ResourceManager{
		maxMemoryMB:        cfg.MaxMemoryMB,
		maxGoroutines:      int64(cfg.MaxGoroutines),
		shutdownTimeout:    cfg.ShutdownTimeout,
		checkInterval:      cfg.ResourceCheckInterval,
		frameBudget:        cfg.FrameBudget,
		ctx:                ctx,
		cancel:             cancel,
		done:               make(chan struct{}),
		logger:             logger.With("component", "resource"),
		lastMemoryCheck:    now,
		lastGoroutineCheck: now,
	}
}

// Start begins the monitoring loop.
func (rm *ResourceManager) Start() error {
	rm.mu.Lock()
	if rm.running {
		rm.mu.Unlock()
		return fmt.Errorf("resource manager already running")
	}
	rm.running = true
	rm.mu.Unlock()

	go rm.monitoringLoop()

	rm.logger.Info(rm.ctx, "Resource manager started",
		"max_memory_mb", rm.maxMemoryMB,
		"max_goroutines", rm.maxGoroutines,
		"frame_budget", rm.frameBudget,
		"check_interval", rm.checkInterval,
	)
	return nil
}

// StartGoroutine runs fn on a tracked goroutine. It fails when the limit is
// reached. A panic in fn is logged and the goroutine exits.
func (rm *ResourceManager) StartGoroutine(ctx context.Context, name string, fn func(context.Context)) error {
	current := rm.goroutineCount.Load()
	if current >= rm.maxGoroutines {
		rm.logger.Warn(ctx, "Goroutine limit exceeded",
			"current", current,
			"limit", rm.maxGoroutines,
			"name", name,
		)
		return fmt.Errorf("goroutine limit exceeded: %d/%d", current, rm.maxGoroutines)
	}

	rm.goroutineCount.Add(1)
	go func() {
		defer rm.goroutineCount.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				rm.logger.Error(ctx, "Goroutine panic",
					fmt.Errorf("panic: %v", r),
					"name", name,
				)
			}
		}()
		fn(ctx)
	}()
	return nil
}

// RecordFrame records the wall time of one simulation tick. Ticks longer
// than the frame budget count as overruns.
func (rm *ResourceManager) RecordFrame(d time.Duration) {
	rm.frames.Add(1)
	rm.lastFrame.Store(int64(d))
	for {
		worst := rm.worstFrame.Load()
		if int64(d) <= worst || rm.worstFrame.CompareAndSwap(worst, int64(d)) {
			break
		}
	}

	if rm.frameBudget <= 0 || d <= rm.frameBudget {
		return
	}
	n := rm.overruns.Add(1)
	if n%overrunLogEvery == 1 {
		rm.logger.Warn(rm.ctx, "Tick exceeded frame budget",
			"duration", d,
			"budget", rm.frameBudget,
			"overruns", n,
		)
	}
}

// FrameStats summarizes recorded ticks.
type FrameStats struct {
	Frames   uint64        `json:"frames"`
	Overruns uint64        `json:"overruns"`
	Last     time.Duration `json:"last"`
	Max      time.Duration `json:"max"`
	Budget   time.Duration `json:"budget"`
}

// OverrunRate returns the fraction of ticks over budget.
func (s FrameStats) OverrunRate() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.Overruns) / float64(s.Frames)
}

// GetFrameStats returns the tick counters.
func (rm *ResourceManager) GetFrameStats() FrameStats {
	return FrameStats{
		Frames:   rm.frames.Load(),
		Overruns: rm.overruns.Load(),
		Last:     time.Duration(rm.lastFrame.Load()),
		Max:      time.Duration(rm.worstFrame.Load()),
		Budget:   rm.frameBudget,
	}
}

// CheckMemoryUsage samples the heap and compares it to the limit.
func (rm *ResourceManager) CheckMemoryUsage() error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	currentMB := int64(m.Alloc / 1024 / 1024)
	rm.memoryUsageMB.Store(currentMB)
	rm.mu.Lock()
	rm.lastMemoryCheck = time.Now()
	rm.mu.Unlock()

	if currentMB > rm.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, rm.maxMemoryMB)
	}
	return nil
}

// GetGoroutineCount returns the number of tracked goroutines.
func (rm *ResourceManager) GetGoroutineCount() int64 {
	return rm.goroutineCount.Load()
}

// GetMemoryUsage returns the last sampled heap size in MB.
func (rm *ResourceManager) GetMemoryUsage() int64 {
	return rm.memoryUsageMB.Load()
}

// ResourceStats contains resource usage statistics.
type ResourceStats struct {
	GoroutineCount     int64      `json:"goroutine_count"`
	MaxGoroutines      int64      `json:"max_goroutines"`
	MemoryUsageMB      int64      `json:"memory_usage_mb"`
	MaxMemoryMB        int64      `json:"max_memory_mb"`
	Frames             FrameStats `json:"frames"`
	LastMemoryCheck    time.Time  `json:"last_memory_check"`
	LastGoroutineCheck time.Time  `json:"last_goroutine_check"`
}

// GetResourceStats returns current resource usage statistics.
func (rm *ResourceManager) GetResourceStats() ResourceStats {
	rm.mu.RLock()
	memCheck, goCheck := rm.lastMemoryCheck, rm.lastGoroutineCheck
	rm.mu.RUnlock()

	return ResourceStats{
		GoroutineCount:     rm.GetGoroutineCount(),
		MaxGoroutines:      rm.maxGoroutines,
		MemoryUsageMB:      rm.GetMemoryUsage(),
		MaxMemoryMB:        rm.maxMemoryMB,
		Frames:             rm.GetFrameStats(),
		LastMemoryCheck:    memCheck,
		LastGoroutineCheck: goCheck,
	}
}

// Shutdown stops monitoring and waits for tracked goroutines, bounded by the
// configured shutdown timeout.
func (rm *ResourceManager) Shutdown(ctx context.Context) error {
	rm.mu.Lock()
	if !rm.running {
		rm.mu.Unlock()
		return nil
	}
	rm.running = false
	rm.mu.Unlock()

	rm.logger.Info(ctx, "Shutting down resource manager")
	rm.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, rm.shutdownTimeout)
	defer cancel()

	select {
	case <-rm.done:
	case <-shutdownCtx.Done():
		rm.logger.Warn(ctx, "Resource manager monitoring loop did not stop gracefully")
	}

	return rm.waitForGoroutines(shutdownCtx)
}

func (rm *ResourceManager) waitForGoroutines(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		count := rm.GetGoroutineCount()
		if count == 0 {
			rm.logger.Info(ctx, "All tracked goroutines finished")
			return nil
		}

		select {
		case <-ticker.C:
			rm.logger.Debug(ctx, "Waiting for goroutines to finish",
				"remaining", count,
			)
		case <-ctx.Done():
			remaining := rm.GetGoroutineCount()
			rm.logger.Warn(ctx, "Shutdown timeout exceeded with goroutines still running",
				"remaining", remaining,
			)
			return fmt.Errorf("shutdown timeout: %d goroutines still running", remaining)
		}
	}
}

func (rm *ResourceManager) monitoringLoop() {
	defer close(rm.done)

	ticker := time.NewTicker(rm.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.performResourceChecks()
		case <-rm.ctx.Done():
			rm.logger.Info(rm.ctx, "Resource monitoring loop stopping")
			return
		}
	}
}

func (rm *ResourceManager) performResourceChecks() {
	if err := rm.CheckMemoryUsage(); err != nil {
		rm.logger.Error(rm.ctx, "Memory limit exceeded", err,
			"current_mb", rm.GetMemoryUsage(),
			"limit_mb", rm.maxMemoryMB,
		)
	}

	rm.mu.Lock()
	rm.lastGoroutineCheck = time.Now()
	rm.mu.Unlock()

	frames := rm.GetFrameStats()
	rm.logger.Debug(rm.ctx, "Resource usage check",
		"goroutines", rm.GetGoroutineCount(),
		"max_goroutines", rm.maxGoroutines,
		"memory_mb", rm.GetMemoryUsage(),
		"max_memory_mb", rm.maxMemoryMB,
		"frames", frames.Frames,
		"overruns", frames.Overruns,
		"worst_frame", frames.Max,
	)
}
