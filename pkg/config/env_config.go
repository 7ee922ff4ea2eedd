// pkg/config/env_config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/opd-ai/go-isonav/pkg/pathfind"
)

// EnvironmentConfig holds process settings read from ISONAV_* variables.
type EnvironmentConfig struct {
	// Diagnostics HTTP server
	HealthAddr string
	HealthPort int

	// Scenario hot reload
	WatchFiles bool

	// Frame budget for one simulation tick
	FrameBudget time.Duration

	// Circuit breaker in front of the pathfinder
	CircuitBreakerMaxRequests         uint32
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails uint32

	// Resource management
	MaxMemoryMB           int64
	MaxGoroutines         int
	ShutdownTimeout       time.Duration
	ResourceCheckInterval time.Duration
}

// ValidationError names the configuration field that failed validation.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfigFromEnv reads the environment, falling back to defaults, and
// validates the result.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	config := &EnvironmentConfig{
		HealthAddr:  getEnvOrDefault("ISONAV_HEALTH_ADDR", "localhost"),
		HealthPort:  getEnvAsIntOrDefault("ISONAV_HEALTH_PORT", 8089),
		WatchFiles:  getEnvAsBoolOrDefault("ISONAV_WATCH", true),
		FrameBudget: getEnvAsDurationOrDefault("ISONAV_FRAME_BUDGET", time.Second/60),

		CircuitBreakerMaxRequests:         uint32(getEnvAsIntOrDefault("ISONAV_BREAKER_MAX_REQUESTS", 1)),
		CircuitBreakerInterval:            getEnvAsDurationOrDefault("ISONAV_BREAKER_INTERVAL", 0),
		CircuitBreakerTimeout:             getEnvAsDurationOrDefault("ISONAV_BREAKER_TIMEOUT", 2*time.Second),
		CircuitBreakerMaxConsecutiveFails: uint32(getEnvAsIntOrDefault("ISONAV_BREAKER_MAX_FAILURES", 10)),

		MaxMemoryMB:           int64(getEnvAsIntOrDefault("ISONAV_MAX_MEMORY_MB", 512)),
		MaxGoroutines:         getEnvAsIntOrDefault("ISONAV_MAX_GOROUTINES", 64),
		ShutdownTimeout:       getEnvAsDurationOrDefault("ISONAV_SHUTDOWN_TIMEOUT", 10*time.Second),
		ResourceCheckInterval: getEnvAsDurationOrDefault("ISONAV_RESOURCE_CHECK_INTERVAL", 10*time.Second),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// GuardSettings returns the pathfinder breaker settings.
func (c *EnvironmentConfig) GuardSettings() pathfind.GuardSettings {
	return pathfind.GuardSettings{
		MaxRequests:            c.CircuitBreakerMaxRequests,
		Interval:               c.CircuitBreakerInterval,
		Timeout:                c.CircuitBreakerTimeout,
		MaxConsecutiveFailures: c.CircuitBreakerMaxConsecutiveFails,
	}
}

// ListenAddress returns host:port of the diagnostics server.
func (c *EnvironmentConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.HealthAddr, c.HealthPort)
}

func validateEnvironmentConfig(config *EnvironmentConfig) error {
	if config.HealthAddr == "" {
		return &ValidationError{Field: "HealthAddr", Value: config.HealthAddr, Message: "cannot be empty"}
	}
	if config.HealthPort < 1024 || config.HealthPort > 65535 {
		return &ValidationError{Field: "HealthPort", Value: config.HealthPort, Message: "must be between 1024 and 65535"}
	}
	if config.FrameBudget < time.Millisecond || config.FrameBudget > time.Second {
		return &ValidationError{Field: "FrameBudget", Value: config.FrameBudget, Message: "must be between 1ms and 1s"}
	}
	if config.CircuitBreakerMaxRequests < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxRequests", Value: config.CircuitBreakerMaxRequests, Message: "must be at least 1"}
	}
	if config.CircuitBreakerInterval != 0 && config.CircuitBreakerInterval < time.Second {
		return &ValidationError{Field: "CircuitBreakerInterval", Value: config.CircuitBreakerInterval, Message: "must be zero or at least 1s"}
	}
	if config.CircuitBreakerTimeout < 100*time.Millisecond {
		return &ValidationError{Field: "CircuitBreakerTimeout", Value: config.CircuitBreakerTimeout, Message: "must be at least 100ms"}
	}
	if config.CircuitBreakerMaxConsecutiveFails < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxConsecutiveFails", Value: config.CircuitBreakerMaxConsecutiveFails, Message: "must be at least 1"}
	}
	if config.MaxMemoryMB < 16 {
		return &ValidationError{Field: "MaxMemoryMB", Value: config.MaxMemoryMB, Message: "must be at least 16"}
	}
	if config.MaxGoroutines < 4 {
		return &ValidationError{Field: "MaxGoroutines", Value: config.MaxGoroutines, Message: "must be at least 4"}
	}
	if config.ShutdownTimeout < time.Second {
		return &ValidationError{Field: "ShutdownTimeout", Value: config.ShutdownTimeout, Message: "must be at least 1s"}
	}
	if config.ResourceCheckInterval < time.Second {
		return &ValidationError{Field: "ResourceCheckInterval", Value: config.ResourceCheckInterval, Message: "must be at least 1s"}
	}
	return nil
}

// ApplyEnvironmentOverrides overrides simulation tunables from ISONAV_*
// variables and revalidates the result.
func ApplyEnvironmentOverrides(cfg *Config) error {
	if v := os.Getenv("ISONAV_TICK_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Field: "ISONAV_TICK_RATE", Value: v, Message: "must be an integer"}
		}
		cfg.Simulation.TickRate = n
	}
	if v := os.Getenv("ISONAV_PATH_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Field: "ISONAV_PATH_MAX_ITERATIONS", Value: v, Message: "must be an integer"}
		}
		cfg.Pathfinding.MaxIterations = n
	}
	if v := os.Getenv("ISONAV_PATH_MAX_RADIUS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ValidationError{Field: "ISONAV_PATH_MAX_RADIUS", Value: v, Message: "must be a number"}
		}
		cfg.Pathfinding.MaxSearchRadius = f
	}
	if v := os.Getenv("ISONAV_STUCK_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ValidationError{Field: "ISONAV_STUCK_THRESHOLD", Value: v, Message: "must be a number"}
		}
		cfg.Movement.StuckThreshold = f
	}
	if v := os.Getenv("ISONAV_PATH_SMOOTH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ValidationError{Field: "ISONAV_PATH_SMOOTH", Value: v, Message: "must be a boolean"}
		}
		cfg.Pathfinding.Smooth = b
	}
	return cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
