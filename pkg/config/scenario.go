// pkg/config/scenario.go
package config

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
	"github.com/opd-ai/go-isonav/pkg/validation"
)

// Scenario is a map file: the collision cells of the terrain and the agents
// spawned on it.
type Scenario struct {
	Name   string         `json:"name" yaml:"name" jsonschema:"title=Scenario name,minLength=1,maxLength=32,required"`
	Shape  *terrain.Shape `json:"shape,omitempty" yaml:"shape,omitempty" jsonschema:"description=Half extents shared by every cell. Defaults to the configured terrain shape."`
	Cells  []terrain.Cell `json:"cells" yaml:"cells" jsonschema:"description=Centers of the diamond collision cells"`
	Agents []AgentSpawn   `json:"agents,omitempty" yaml:"agents,omitempty" jsonschema:"description=Agents placed when the scenario loads"`
}

// AgentSpawn places one agent.
type AgentSpawn struct {
	Name   string  `json:"name" yaml:"name" jsonschema:"minLength=1,maxLength=32,required"`
	Kind   string  `json:"kind" yaml:"kind" jsonschema:"enum=player,enum=enemy,required"`
	X      float64 `json:"x" yaml:"x" jsonschema:"required"`
	Y      float64 `json:"y" yaml:"y" jsonschema:"required"`
	Speed  float64 `json:"speed" yaml:"speed" jsonschema:"minimum=0,required"`
	Radius float64 `json:"radius,omitempty" yaml:"radius,omitempty" jsonschema:"minimum=0,description=Collision radius. Defaults to the configured entity radius plus buffer."`
	// Target is an optional click goal given at spawn.
	Target *terrain.Cell `json:"target,omitempty" yaml:"target,omitempty"`
	// Chase names an agent this one follows.
	Chase string `json:"chase,omitempty" yaml:"chase,omitempty"`
	// Ghost agents do not collide with other agents.
	Ghost bool `json:"ghost,omitempty" yaml:"ghost,omitempty"`
}

// Position returns the spawn point.
func (s AgentSpawn) Position() physics.Vector2D {
	return physics.Vector2D{X: s.X, Y: s.Y}
}

// EntityKind maps the kind name.
func (s AgentSpawn) EntityKind() (entity.Kind, error) {
	switch strings.ToLower(s.Kind) {
	case "player":
		return entity.KindPlayer, nil
	case "enemy", "":
		return entity.KindEnemy, nil
	default:
		return 0, fmt.Errorf("unknown agent kind %q", s.Kind)
	}
}

// Validate checks names, geometry and references.
func (s *Scenario) Validate() error {
	name, err := validation.ValidateName(s.Name)
	if err != nil {
		return fmt.Errorf("scenario name: %w", err)
	}
	s.Name = name
	if s.Shape != nil {
		if err := validation.ValidateShape(*s.Shape); err != nil {
			return fmt.Errorf("scenario shape: %w", err)
		}
	}
	if err := validation.ValidateCells(s.Cells); err != nil {
		return fmt.Errorf("scenario cells: %w", err)
	}
	if len(s.Agents) > validation.MaxAgents {
		return fmt.Errorf("scenario has %d agents, maximum is %d", len(s.Agents), validation.MaxAgents)
	}

	seen := make(map[string]bool, len(s.Agents))
	for i := range s.Agents {
		a := &s.Agents[i]
		n, err := validation.ValidateName(a.Name)
		if err != nil {
			return fmt.Errorf("agent %d name: %w", i, err)
		}
		if seen[n] {
			return fmt.Errorf("agent %d: duplicate name %q", i, n)
		}
		seen[n] = true
		a.Name = n
		if _, err := a.EntityKind(); err != nil {
			return fmt.Errorf("agent %q: %w", n, err)
		}
		if err := validation.ValidatePosition(a.Position()); err != nil {
			return fmt.Errorf("agent %q position: %w", n, err)
		}
		if err := validation.ValidateSpeed(a.Speed); err != nil {
			return fmt.Errorf("agent %q speed: %w", n, err)
		}
		if err := validation.ValidateRadius(a.Radius); err != nil {
			return fmt.Errorf("agent %q radius: %w", n, err)
		}
		if a.Target != nil {
			if err := validation.ValidatePosition(a.Target.Center()); err != nil {
				return fmt.Errorf("agent %q target: %w", n, err)
			}
		}
	}
	for _, a := range s.Agents {
		if a.Chase == "" {
			continue
		}
		if a.Chase == a.Name {
			return fmt.Errorf("agent %q cannot chase itself", a.Name)
		}
		if !seen[a.Chase] {
			return fmt.Errorf("agent %q chases unknown agent %q", a.Name, a.Chase)
		}
	}
	return nil
}

// ValidateFor runs Validate and checks that a shape override still fits the
// terrain grid of cfg.
func (s *Scenario) ValidateFor(cfg *Config) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Shape != nil {
		if err := cfg.CheckShape(*s.Shape); err != nil {
			return fmt.Errorf("scenario shape: %w", err)
		}
	}
	return nil
}

// LoadScenario reads and validates a JSON or YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	var s Scenario
	if err := decode(path, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// SaveScenario writes a scenario as JSON or YAML.
func SaveScenario(s *Scenario, path string) error {
	return encode(path, s)
}

// ScenarioSchema returns the JSON schema of scenario files for map tooling.
func ScenarioSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(Scenario))
	schema.Title = "isonav scenario"
	schema.Description = "Diamond collision cells and agent spawns of one map"
	return schema
}
