// cmd/isonav-view/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-isonav/pkg/config"
	"github.com/opd-ai/go-isonav/pkg/engine"
	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/logging"
	"github.com/opd-ai/go-isonav/pkg/pathfind"
	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (JSON or YAML)")
	scenarioPath := flag.String("scenario", "", "Path to scenario file; empty uses a built-in arena")
	logPath := flag.String("log", "isonav-view.log", "Log file")
	scale := flag.Float64("scale", 8, "World units per terminal column")
	flag.Parse()

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := logging.NewLoggerTo(logFile)

	if err := run(*configPath, *scenarioPath, *scale, logger); err != nil {
		logger.Error(context.Background(), "Viewer failed", err)
		fmt.Fprintf(os.Stderr, "isonav-view: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, scenarioPath string, scale float64, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	world, err := engine.NewWorld(cfg, pathfind.DefaultGuardSettings(), logger)
	if err != nil {
		return err
	}

	load := func(ctx context.Context) error {
		s := demoScenario()
		if scenarioPath != "" {
			loaded, err := config.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			s = loaded
		}
		if err := s.ValidateFor(cfg); err != nil {
			return err
		}
		return world.LoadScenario(ctx, s)
	}
	if err := load(ctx); err != nil {
		return logging.WrapError(err, "load scenario", "scenario_path", scenarioPath)
	}

	player, err := controlledAgent(world)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	w, h := screen.Size()
	v := newViewer(world, player, w, h, scale, logger)
	v.reload = load

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()
	last := time.Now()

	logger.Info(ctx, "Viewer started",
		"scenario_path", scenarioPath,
		"agents", world.AgentCount(),
	)
	for {
		select {
		case ev, ok := <-events:
			if !ok || !v.handleEvent(ctx, ev) {
				logger.Info(ctx, "Viewer stopped", "ticks", world.Tick())
				return nil
			}
		case now := <-ticker.C:
			world.Step(ctx, now.Sub(last).Seconds())
			last = now
			v.draw(screen)
		}
	}
}

// controlledAgent returns the first player agent, adding one at the origin
// when the scenario has none.
func controlledAgent(world *engine.World) (entity.ID, error) {
	for _, a := range world.Snapshot().Agents {
		if a.Kind == entity.KindPlayer.String() {
			return a.ID, nil
		}
	}
	return world.AddAgent(engine.AgentSpec{
		Name:     "player",
		Kind:     entity.KindPlayer,
		Position: physics.Vector2D{},
		Speed:    160,
	})
}

// demoScenario is a walled room with a pillar and one enemy chasing the
// player.
func demoScenario() *config.Scenario {
	var cells []terrain.Cell
	for x := -512.0; x <= 512; x += 64 {
		cells = append(cells, terrain.Cell{X: x, Y: -320}, terrain.Cell{X: x, Y: 320})
	}
	for y := -288.0; y <= 288; y += 32 {
		cells = append(cells, terrain.Cell{X: -512, Y: y}, terrain.Cell{X: 512, Y: y})
	}
	for y := -96.0; y <= 96; y += 32 {
		cells = append(cells, terrain.Cell{X: 160, Y: y})
	}
	return &config.Scenario{
		Name:  "demo",
		Cells: cells,
		Agents: []config.AgentSpawn{
			{Name: "player", Kind: "player", X: -300, Y: 0, Speed: 160},
			{Name: "hunter", Kind: "enemy", X: 380, Y: 200, Speed: 90, Chase: "player"},
		},
	}
}
