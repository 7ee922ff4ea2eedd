// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/go-isonav/pkg/collision"
	"github.com/opd-ai/go-isonav/pkg/movement"
	"github.com/opd-ai/go-isonav/pkg/pathfind"
	"github.com/opd-ai/go-isonav/pkg/terrain"
	"github.com/opd-ai/go-isonav/pkg/validation"
)

// Config contains every tunable of a simulation
type Config struct {
	Terrain     TerrainConfig     `json:"terrain" yaml:"terrain"`
	Collision   CollisionConfig   `json:"collision" yaml:"collision"`
	Pathfinding PathfindingConfig `json:"pathfinding" yaml:"pathfinding"`
	Movement    MovementConfig    `json:"movement" yaml:"movement"`
	Simulation  SimulationConfig  `json:"simulation" yaml:"simulation"`
}

// TerrainConfig contains the cell geometry and spatial hash size
type TerrainConfig struct {
	HalfWidth  float64 `json:"halfWidth" yaml:"halfWidth"`
	HalfHeight float64 `json:"halfHeight" yaml:"halfHeight"`
	GridSize   float64 `json:"gridSize" yaml:"gridSize"`
}

// CollisionConfig contains collision query and resolver tunables
type CollisionConfig struct {
	EntityRadius     float64 `json:"entityRadius" yaml:"entityRadius"`
	CollisionBuffer  float64 `json:"collisionBuffer" yaml:"collisionBuffer"`
	CacheGridSize    float64 `json:"cacheGridSize" yaml:"cacheGridSize"`
	Tolerance        float64 `json:"tolerance" yaml:"tolerance"`
	StepSize         float64 `json:"stepSize" yaml:"stepSize"`
	SearchIterations int     `json:"searchIterations" yaml:"searchIterations"`
	SlideDamping     float64 `json:"slideDamping" yaml:"slideDamping"`
	UnstickPush      float64 `json:"unstickPush" yaml:"unstickPush"`
	MaxIterations    int     `json:"maxIterations" yaml:"maxIterations"`
}

// PathfindingConfig contains search bounds
type PathfindingConfig struct {
	CellSize        float64 `json:"cellSize" yaml:"cellSize"`
	MaxIterations   int     `json:"maxIterations" yaml:"maxIterations"`
	MaxSearchRadius float64 `json:"maxSearchRadius" yaml:"maxSearchRadius"`
	Colinearity     float64 `json:"colinearity" yaml:"colinearity"`
	Smooth          bool    `json:"smooth" yaml:"smooth"`
}

// MovementConfig contains agent driver tunables
type MovementConfig struct {
	ArrivalTolerance float64   `json:"arrivalTolerance" yaml:"arrivalTolerance"`
	GoalTolerance    float64   `json:"goalTolerance" yaml:"goalTolerance"`
	StuckThreshold   float64   `json:"stuckThreshold" yaml:"stuckThreshold"`
	MinProgress      float64   `json:"minProgress" yaml:"minProgress"`
	ProbeScales      []float64 `json:"probeScales" yaml:"probeScales"`
	ProbeBlends      []float64 `json:"probeBlends" yaml:"probeBlends"`
}

// SimulationConfig contains loop and throttling settings
type SimulationConfig struct {
	TickRate        int `json:"tickRate" yaml:"tickRate"`
	PathRequests    int `json:"pathRequests" yaml:"pathRequests"`
	PathWindowTicks int `json:"pathWindowTicks" yaml:"pathWindowTicks"`
}

// DefaultConfig returns the tuned configuration
func DefaultConfig() *Config {
	col := collision.DefaultOptions()
	pf := pathfind.DefaultOptions()
	mv := movement.DefaultOptions()
	return &Config{
		Terrain: TerrainConfig{
			HalfWidth:  32,
			HalfHeight: 16,
			GridSize:   64,
		},
		Collision: CollisionConfig{
			EntityRadius:     8,
			CollisionBuffer:  2,
			CacheGridSize:    col.CacheGridSize,
			Tolerance:        col.Tolerance,
			StepSize:         col.StepSize,
			SearchIterations: col.SearchIterations,
			SlideDamping:     col.SlideDamping,
			UnstickPush:      col.UnstickPush,
			MaxIterations:    col.MaxIterations,
		},
		Pathfinding: PathfindingConfig{
			CellSize:        pf.CellSize,
			MaxIterations:   pf.MaxIterations,
			MaxSearchRadius: pf.MaxSearchRadius,
			Colinearity:     mv.Colinearity,
			Smooth:          mv.SmoothPaths,
		},
		Movement: MovementConfig{
			ArrivalTolerance: mv.ArrivalTolerance,
			GoalTolerance:    mv.GoalTolerance,
			StuckThreshold:   mv.StuckThreshold,
			MinProgress:      mv.MinProgress,
			ProbeScales:      append([]float64(nil), mv.ProbeScales...),
			ProbeBlends:      append([]float64(nil), mv.ProbeBlends...),
		},
		Simulation: SimulationConfig{
			TickRate:        60,
			PathRequests:    4,
			PathWindowTicks: 60,
		},
	}
}

// Shape returns the cell shape.
func (c *Config) Shape() terrain.Shape {
	return terrain.Shape{HalfWidth: c.Terrain.HalfWidth, HalfHeight: c.Terrain.HalfHeight}
}

// CollisionOptions converts the collision section.
func (c *Config) CollisionOptions() collision.Options {
	return collision.Options{
		Radius:           c.Collision.EntityRadius + c.Collision.CollisionBuffer,
		CacheGridSize:    c.Collision.CacheGridSize,
		Tolerance:        c.Collision.Tolerance,
		StepSize:         c.Collision.StepSize,
		SearchIterations: c.Collision.SearchIterations,
		SlideDamping:     c.Collision.SlideDamping,
		UnstickPush:      c.Collision.UnstickPush,
		MaxIterations:    c.Collision.MaxIterations,
	}
}

// PathfindOptions converts the pathfinding section.
func (c *Config) PathfindOptions() pathfind.Options {
	return pathfind.Options{
		CellSize:        c.Pathfinding.CellSize,
		MaxIterations:   c.Pathfinding.MaxIterations,
		MaxSearchRadius: c.Pathfinding.MaxSearchRadius,
	}
}

// MovementOptions converts the movement section.
func (c *Config) MovementOptions() movement.Options {
	return movement.Options{
		ArrivalTolerance:   c.Movement.ArrivalTolerance,
		GoalTolerance:      c.Movement.GoalTolerance,
		StuckThreshold:     c.Movement.StuckThreshold,
		MinProgress:        c.Movement.MinProgress,
		ResolverIterations: c.Collision.MaxIterations,
		ProbeScales:        c.Movement.ProbeScales,
		ProbeBlends:        c.Movement.ProbeBlends,
		Colinearity:        c.Pathfinding.Colinearity,
		SmoothPaths:        c.Pathfinding.Smooth,
	}
}

// TickInterval returns the fixed timestep.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Simulation.TickRate)
}

// Reach returns the farthest distance from a cell center at which a probe
// circle can still be blocked by that cell.
func (c *Config) Reach() float64 {
	return c.ReachOf(c.Shape())
}

// ReachOf is Reach for cells of shape s.
func (c *Config) ReachOf(s terrain.Shape) float64 {
	radius := c.Collision.EntityRadius + c.Collision.CollisionBuffer
	return s.Diamond(terrain.Cell{}).Reach(radius, c.Collision.Tolerance)
}

// CheckShape reports whether the terrain grid is coarse enough for cells of
// shape s. A cell whose reach exceeds the grid size can block points outside
// the 3x3 bucket neighbourhood, which the index never scans.
func (c *Config) CheckShape(s terrain.Shape) error {
	if reach := c.ReachOf(s); c.Terrain.GridSize < reach {
		return &ValidationError{
			Field:   "Terrain.GridSize",
			Value:   c.Terrain.GridSize,
			Message: fmt.Sprintf("must be at least the blocking reach %.2f so the 3x3 scan sees every cell", reach),
		}
	}
	return nil
}

// Validate checks the configuration for values the simulation cannot run
// with.
func (c *Config) Validate() error {
	if err := validation.ValidateShape(c.Shape()); err != nil {
		return &ValidationError{Field: "Terrain", Value: c.Terrain, Message: err.Error()}
	}
	if err := validation.ValidateRadius(c.Collision.EntityRadius + c.Collision.CollisionBuffer); err != nil {
		return &ValidationError{Field: "Collision.EntityRadius", Value: c.Collision.EntityRadius, Message: err.Error()}
	}
	if c.Collision.Tolerance < 1 {
		return &ValidationError{Field: "Collision.Tolerance", Value: c.Collision.Tolerance, Message: "must be at least 1"}
	}
	if err := c.CheckShape(c.Shape()); err != nil {
		return err
	}
	if c.Collision.CacheGridSize <= 0 || c.Collision.CacheGridSize >= c.Terrain.GridSize {
		return &ValidationError{Field: "Collision.CacheGridSize", Value: c.Collision.CacheGridSize, Message: "must be positive and smaller than the grid size"}
	}
	if c.Collision.StepSize <= 0 {
		return &ValidationError{Field: "Collision.StepSize", Value: c.Collision.StepSize, Message: "must be positive"}
	}
	if c.Collision.SlideDamping <= 0 || c.Collision.SlideDamping > 1 {
		return &ValidationError{Field: "Collision.SlideDamping", Value: c.Collision.SlideDamping, Message: "must be in (0, 1]"}
	}
	if c.Collision.MaxIterations < 1 {
		return &ValidationError{Field: "Collision.MaxIterations", Value: c.Collision.MaxIterations, Message: "must be at least 1"}
	}
	if c.Pathfinding.CellSize <= 0 {
		return &ValidationError{Field: "Pathfinding.CellSize", Value: c.Pathfinding.CellSize, Message: "must be positive"}
	}
	if c.Pathfinding.MaxIterations < 1 {
		return &ValidationError{Field: "Pathfinding.MaxIterations", Value: c.Pathfinding.MaxIterations, Message: "must be at least 1"}
	}
	if c.Pathfinding.MaxSearchRadius < c.Pathfinding.CellSize {
		return &ValidationError{Field: "Pathfinding.MaxSearchRadius", Value: c.Pathfinding.MaxSearchRadius, Message: "must cover at least one cell"}
	}
	if c.Pathfinding.Colinearity <= 0 || c.Pathfinding.Colinearity > 1 {
		return &ValidationError{Field: "Pathfinding.Colinearity", Value: c.Pathfinding.Colinearity, Message: "must be in (0, 1]"}
	}
	if c.Movement.StuckThreshold <= 0 {
		return &ValidationError{Field: "Movement.StuckThreshold", Value: c.Movement.StuckThreshold, Message: "must be positive"}
	}
	if c.Movement.ArrivalTolerance <= 0 {
		return &ValidationError{Field: "Movement.ArrivalTolerance", Value: c.Movement.ArrivalTolerance, Message: "must be positive"}
	}
	if c.Simulation.TickRate < 1 || c.Simulation.TickRate > 240 {
		return &ValidationError{Field: "Simulation.TickRate", Value: c.Simulation.TickRate, Message: "must be between 1 and 240"}
	}
	if c.Simulation.PathRequests < 1 || c.Simulation.PathWindowTicks < 1 {
		return &ValidationError{Field: "Simulation.PathRequests", Value: c.Simulation.PathRequests, Message: "limiter needs at least one request per window of at least one tick"}
	}
	return nil
}

// isYAML reports whether path names a YAML document.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// decode reads a JSON or YAML document, chosen by extension, into v.
func decode(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	yamlDoc := isYAML(path)
	if err := validation.ValidateDocument(data, !yamlDoc); err != nil {
		return fmt.Errorf("invalid document %s: %w", path, err)
	}
	if yamlDoc {
		err = yaml.Unmarshal(data, v)
	} else {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// encode writes v as JSON or YAML, chosen by extension.
func encode(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads a configuration from a JSON or YAML file. Fields absent
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := decode(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig saves a configuration to a JSON or YAML file
func SaveConfig(cfg *Config, path string) error {
	return encode(path, cfg)
}
