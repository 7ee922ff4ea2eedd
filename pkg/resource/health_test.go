// pkg/resource/health_test.go
package resource

import (
	"context"
	"runtime"
	"testing"
	"time"
)

func TestResourceHealthCheck_Name(t *testing.T) {
	rm := NewResourceManager(testEnv(100), nil)
	defer rm.Shutdown(context.Background())

	check := NewResourceHealthCheck(rm)
	if check.Name() != "resource" {
		t.Errorf("Expected name 'resource', got %s", check.Name())
	}
}

func TestResourceHealthCheck_Check_Healthy(t *testing.T) {
	rm := NewResourceManager(testEnv(100), nil)
	defer rm.Shutdown(context.Background())

	rm.CheckMemoryUsage()
	for i := 0; i < 200; i++ {
		rm.RecordFrame(time.Millisecond)
	}

	if err := NewResourceHealthCheck(rm).Check(context.Background()); err != nil {
		t.Errorf("Expected healthy check to pass, got error: %v", err)
	}
}

func TestResourceHealthCheck_Check_MemoryUnhealthy(t *testing.T) {
	env := testEnv(100)
	env.MaxMemoryMB = 1
	rm := NewResourceManager(env, nil)
	defer rm.Shutdown(context.Background())

	data := make([]byte, 4*1024*1024)
	rm.CheckMemoryUsage()
	runtime.KeepAlive(data)

	if err := NewResourceHealthCheck(rm).Check(context.Background()); err == nil {
		t.Error("Expected health check to fail due to memory limit")
	}
}

func TestResourceHealthCheck_Check_GoroutineUnhealthy(t *testing.T) {
	rm := NewResourceManager(testEnv(5), nil)
	defer rm.Shutdown(context.Background())

	release := make(chan struct{})
	defer close(release)
	for i := 0; i < 5; i++ {
		if err := rm.StartGoroutine(context.Background(), "path-worker", func(ctx context.Context) {
			<-release
		}); err != nil {
			break
		}
	}

	if err := NewResourceHealthCheck(rm).Check(context.Background()); err == nil {
		t.Error("Expected health check to fail due to goroutine threshold")
	}
}

func TestResourceHealthCheck_Check_FrameOverruns(t *testing.T) {
	tests := []struct {
		name      string
		fast      int
		slow      int
		wantError bool
	}{
		{"few_frames_ignored", 0, 50, false},
		{"occasional_overrun", 180, 20, false},
		{"sustained_overrun", 100, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := NewResourceManager(testEnv(10), nil)
			defer rm.Shutdown(context.Background())

			for i := 0; i < tt.fast; i++ {
				rm.RecordFrame(time.Millisecond)
			}
			for i := 0; i < tt.slow; i++ {
				rm.RecordFrame(50 * time.Millisecond)
			}

			err := NewResourceHealthCheck(rm).Check(context.Background())
			if (err != nil) != tt.wantError {
				t.Errorf("Check() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
