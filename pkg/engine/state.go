// pkg/engine/state.go
package engine

import (
	"github.com/opd-ai/go-isonav/pkg/collision"
	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/pathfind"
	"github.com/opd-ai/go-isonav/pkg/physics"
)

// AgentState is a copy of one agent's navigation state.
type AgentState struct {
	ID        entity.ID          `json:"id"`
	Name      string             `json:"name"`
	Kind      string             `json:"kind"`
	Position  physics.Vector2D   `json:"position"`
	Radius    float64            `json:"radius"`
	Facing    physics.Vector2D   `json:"facing"`
	Goal      *physics.Vector2D  `json:"goal,omitempty"`
	Following bool               `json:"following,omitempty"`
	Path      []physics.Vector2D `json:"path,omitempty"`
	StuckTime float64            `json:"stuckTime,omitempty"`
	Engaged   entity.ID          `json:"engaged,omitempty"`
	Chasing   entity.ID          `json:"chasing,omitempty"`
}

// Snapshot is a consistent copy of the world at one tick.
type Snapshot struct {
	Tick   uint64       `json:"tick"`
	Agents []AgentState `json:"agents"`
}

// Diagnostics collects counters from every navigation component.
type Diagnostics struct {
	Tick          uint64               `json:"tick"`
	Agents        int                  `json:"agents"`
	Cells         int                  `json:"cells"`
	Buckets       int                  `json:"buckets"`
	Cache         collision.CacheStats `json:"cache"`
	CacheHitRate  float64              `json:"cacheHitRate"`
	Paths         pathfind.Stats       `json:"paths"`
	Breaker       string               `json:"breaker"`
	Outcomes      map[string]uint64    `json:"outcomes"`
	LimitedAgents int                  `json:"limitedAgents"`
}

func (w *World) stateOf(e *agentEntry) AgentState {
	a := e.agent
	st := AgentState{
		ID:        a.ID,
		Name:      e.name,
		Kind:      a.Kind.String(),
		Position:  a.Position,
		Radius:    a.Radius,
		Facing:    a.Facing,
		Following: a.Following,
		StuckTime: a.StuckTime,
		Engaged:   a.Engaged,
		Chasing:   e.chase,
	}
	if a.HasGoal {
		goal := a.Goal
		st.Goal = &goal
	}
	if a.HasPath() {
		st.Path = append([]physics.Vector2D(nil), a.Path...)
	}
	return st
}

// Snapshot copies every agent's state in insertion order.
func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := Snapshot{
		Tick:   w.tick,
		Agents: make([]AgentState, 0, len(w.order)),
	}
	for _, id := range w.order {
		snap.Agents = append(snap.Agents, w.stateOf(w.agents[id]))
	}
	return snap
}

// Agent returns one agent's state.
func (w *World) Agent(id entity.ID) (AgentState, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.agents[id]
	if !ok {
		return AgentState{}, false
	}
	return w.stateOf(e), true
}

// Diagnostics returns the current counters.
func (w *World) Diagnostics() Diagnostics {
	w.mu.RLock()
	defer w.mu.RUnlock()

	idx := w.collision.Terrain()
	cache := w.collision.CacheStats()
	return Diagnostics{
		Tick:          w.tick,
		Agents:        len(w.agents),
		Cells:         idx.Len(),
		Buckets:       idx.BucketCount(),
		Cache:         cache,
		CacheHitRate:  cache.HitRate(),
		Paths:         w.finder.Stats(),
		Breaker:       w.guard.State(),
		Outcomes:      w.movement.Outcomes(),
		LimitedAgents: w.limiter.Len(),
	}
}

// BreakerOpen reports whether path requests are being shed.
func (w *World) BreakerOpen() bool {
	return w.guard.Open()
}
