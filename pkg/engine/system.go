// pkg/engine/system.go
package engine

import (
	"context"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/movement"
)

type movementEntity struct {
	*ecs.BasicEntity
	agent *entity.Agent
}

// MovementSystem runs the movement driver for every agent it holds, in the
// order they were added.
type MovementSystem struct {
	driver   *movement.Driver
	entities []movementEntity
	ctx      context.Context
	outcomes map[movement.Outcome]uint64
}

// NewMovementSystem creates a system around driver.
func NewMovementSystem(driver *movement.Driver) *MovementSystem {
	return &MovementSystem{
		driver:   driver,
		ctx:      context.Background(),
		outcomes: make(map[movement.Outcome]uint64),
	}
}

// Add satisfies the ecs.System interface
func (s *MovementSystem) Add(basic *ecs.BasicEntity, a *entity.Agent) {
	s.entities = append(s.entities, movementEntity{BasicEntity: basic, agent: a})
}

// Remove satisfies the ecs.System interface
func (s *MovementSystem) Remove(basic ecs.BasicEntity) {
	for i, e := range s.entities {
		if e.ID() == basic.ID() {
			s.entities = append(s.entities[:i], s.entities[i+1:]...)
			return
		}
	}
}

// Priority runs movement before any later systems.
func (s *MovementSystem) Priority() int {
	return 10
}

// Len returns the number of agents driven.
func (s *MovementSystem) Len() int {
	return len(s.entities)
}

// Update steps each agent by dt seconds.
func (s *MovementSystem) Update(dt float32) {
	for _, e := range s.entities {
		out := s.driver.Step(s.ctx, e.agent, float64(dt))
		s.outcomes[out]++
	}
}

// Outcomes returns how often each outcome occurred, keyed by name.
func (s *MovementSystem) Outcomes() map[string]uint64 {
	out := make(map[string]uint64, len(s.outcomes))
	for k, v := range s.outcomes {
		out[k.String()] = v
	}
	return out
}

func (s *MovementSystem) withContext(ctx context.Context) {
	s.ctx = ctx
}
