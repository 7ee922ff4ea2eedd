// cmd/isonav-sim/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/opd-ai/go-isonav/pkg/config"
	"github.com/opd-ai/go-isonav/pkg/engine"
	"github.com/opd-ai/go-isonav/pkg/event"
	"github.com/opd-ai/go-isonav/pkg/health"
	"github.com/opd-ai/go-isonav/pkg/logging"
	"github.com/opd-ai/go-isonav/pkg/render"
	"github.com/opd-ai/go-isonav/pkg/resource"
)

// stallTicks is how many missed ticks make the simulation unready.
const stallTicks = 30

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	configPath := flag.String("config", "isonav.yaml", "Path to configuration file (JSON or YAML)")
	scenarioPath := flag.String("scenario", "", "Path to scenario file (JSON or YAML)")
	createDefault := flag.Bool("default", false, "Write the default configuration to -config and exit")
	printSchema := flag.Bool("schema", false, "Print the scenario JSON schema and exit")
	ascii := flag.Duration("ascii", 0, "Print an ASCII map at this interval (0 disables)")
	flag.Parse()

	if *printSchema {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(config.ScenarioSchema()); err != nil {
			logger.Error(ctx, "Failed to write scenario schema", err)
			os.Exit(1)
		}
		return
	}

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	cfg, err := loadConfig(ctx, logger, *configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		os.Exit(1)
	}

	env, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Invalid environment configuration", err)
		os.Exit(1)
	}

	world, err := engine.NewWorld(cfg, env.GuardSettings(), logger)
	if err != nil {
		logger.Error(ctx, "Failed to create world", err)
		os.Exit(1)
	}
	logEvents(world.EventBus, logger)

	if *scenarioPath != "" {
		if err := loadScenario(ctx, world, *scenarioPath); err != nil {
			logger.Error(ctx, "Failed to load scenario", err,
				"scenario_path", *scenarioPath,
			)
			os.Exit(1)
		}
	}

	resources := resource.NewResourceManager(env, logger)
	if err := resources.Start(); err != nil {
		logger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}
	world.SetFrameRecorder(resources)
	resources.CheckMemoryUsage()

	healthChecker := health.NewHealthChecker()
	healthChecker.AddCheck(health.NewSimulationHealthCheck(world.Running, world.LastTick,
		max(time.Second, stallTicks*cfg.TickInterval())))
	healthChecker.AddCheck(health.NewPathfinderHealthCheck(world.BreakerOpen))
	healthChecker.AddCheck(health.NewMemoryHealthCheck(env.MaxMemoryMB, resources.GetMemoryUsage))
	healthChecker.AddCheck(resource.NewResourceHealthCheck(resources))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthChecker.LivenessHandler)
	mux.HandleFunc("/live", healthChecker.LivenessHandler)
	mux.HandleFunc("/ready", healthChecker.ReadinessHandler)
	mux.HandleFunc("/diagnostics", health.DiagnosticsHandler(func() any {
		return diagnostics{
			World:     world.Diagnostics(),
			Resources: resources.GetResourceStats(),
		}
	}))
	mux.HandleFunc("/snapshot", health.DiagnosticsHandler(func() any {
		return world.Snapshot()
	}))

	healthServer := &http.Server{
		Addr:         env.ListenAddress(),
		Handler:      health.WithCorrelation(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx, "Starting diagnostics server",
			"address", healthServer.Addr,
		)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Diagnostics server failed", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := resources.StartGoroutine(runCtx, "simulation", func(ctx context.Context) {
		if err := world.Run(ctx); err != nil {
			logger.Error(ctx, "Simulation stopped", err)
		}
	}); err != nil {
		logger.Error(ctx, "Failed to start simulation", err)
		os.Exit(1)
	}

	var watcher *config.Watcher
	if env.WatchFiles && *scenarioPath != "" {
		watcher, err = config.NewWatcher(*scenarioPath)
		if err != nil {
			logger.Warn(ctx, "Scenario hot reload disabled", "error", err.Error())
		} else if err := resources.StartGoroutine(runCtx, "scenario-watcher", func(ctx context.Context) {
			watchScenario(ctx, world, watcher, *scenarioPath, logger)
		}); err != nil {
			logger.Warn(ctx, "Scenario hot reload disabled", "error", err.Error())
		}
	}

	if *ascii > 0 {
		if err := resources.StartGoroutine(runCtx, "ascii-map", func(ctx context.Context) {
			printMap(ctx, world, *ascii)
		}); err != nil {
			logger.Warn(ctx, "ASCII map disabled", "error", err.Error())
		}
	}

	<-runCtx.Done()
	logger.Info(ctx, "Shutting down simulator")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.ShutdownTimeout)
	defer cancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Diagnostics server shutdown failed", err)
	}
	if watcher != nil {
		watcher.Close()
	}
	if err := resources.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Resource manager shutdown failed", err)
		os.Exit(1)
	}
}

type diagnostics struct {
	World     engine.Diagnostics     `json:"world"`
	Resources resource.ResourceStats `json:"resources"`
}

func loadConfig(ctx context.Context, logger *logging.Logger, path string) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		return nil, logging.WrapError(err, "apply environment overrides")
	}
	return cfg, nil
}

func loadScenario(ctx context.Context, world *engine.World, path string) error {
	s, err := config.LoadScenario(path)
	if err != nil {
		return err
	}
	if err := s.ValidateFor(world.Config); err != nil {
		return err
	}
	return world.LoadScenario(ctx, s)
}

// watchScenario reloads the scenario whenever its file changes. A file that
// fails to load leaves the running scenario in place.
func watchScenario(ctx context.Context, world *engine.World, watcher *config.Watcher, path string, logger *logging.Logger) {
	want, err := filepath.Abs(path)
	if err != nil {
		want = filepath.Clean(path)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case changed, ok := <-watcher.Events:
			if !ok {
				return
			}
			if abs, err := filepath.Abs(changed); err != nil || abs != want {
				continue
			}
			reloadCtx := logging.WithCorrelationID(ctx, logging.GenerateCorrelationID())
			if err := loadScenario(reloadCtx, world, path); err != nil {
				logger.Error(reloadCtx, "Scenario reload failed", err,
					"scenario_path", path,
				)
				continue
			}
			logger.Info(reloadCtx, "Scenario reloaded", "scenario_path", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn(ctx, "Scenario watcher error", "error", err.Error())
		}
	}
}

// logEvents reports navigation outcomes. Handlers run with the world locked.
func logEvents(bus *event.Bus, logger *logging.Logger) {
	ctx := context.Background()
	for _, typ := range []event.Type{event.GoalAbandoned, event.AgentStuck, event.PathFailed} {
		bus.Subscribe(typ, func(e event.Event) {
			switch ev := e.(type) {
			case *event.AgentEvent:
				logger.Debug(ctx, "Agent event",
					"event", string(ev.GetType()),
					"agent_id", ev.AgentID,
					"x", ev.Position.X,
					"y", ev.Position.Y,
				)
			case *event.PathEvent:
				logger.Debug(ctx, "Path event",
					"event", string(ev.GetType()),
					"agent_id", ev.AgentID,
					"goal_x", ev.Goal.X,
					"goal_y", ev.Goal.Y,
				)
			}
		})
	}
}

func printMap(ctx context.Context, world *engine.World, every time.Duration) {
	r := render.NewTerminalRenderer(100, 40, 8, os.Stdout)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cells, shape := world.Cells()
			if err := render.DrawFrame(r, cells, shape, world.Snapshot()); err != nil {
				return
			}
		}
	}
}
