// pkg/entity/entity.go
package entity

import (
	"github.com/opd-ai/go-isonav/pkg/physics"
)

// ID is a unique identifier for an entity
type ID uint64

// NoID is never assigned to an entity. Queries use it to mean "exclude nobody".
const NoID ID = 0

// Kind distinguishes the behaviours driven by the movement driver.
type Kind int

const (
	KindPlayer Kind = iota
	KindEnemy
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// BaseEntity contains common functionality for all entities
type BaseEntity struct {
	ID       ID
	Position physics.Vector2D
	Radius   float64
	Active   bool
}

// GetID returns the entity's unique identifier
func (e *BaseEntity) GetID() ID {
	return e.ID
}

// GetPosition returns the entity's position
func (e *BaseEntity) GetPosition() physics.Vector2D {
	return e.Position
}

// GetCollider returns the entity's collision shape
func (e *BaseEntity) GetCollider() physics.Circle {
	return physics.Circle{
		Center: e.Position,
		Radius: e.Radius,
	}
}

// IsCollidable reports whether the entity should block others.
func (e *BaseEntity) IsCollidable() bool {
	return e.Active
}

// Agent is a moving circle with an optional goal and an owned waypoint path.
type Agent struct {
	BaseEntity

	Kind  Kind
	Speed float64 // world units per second

	// Goal is only meaningful while HasGoal is set. Following marks a goal
	// that tracks a held cursor; such goals are never abandoned.
	Goal      physics.Vector2D
	HasGoal   bool
	Following bool

	// Engaged restricts agent collisions to a single opponent when set.
	Engaged ID
	// CollideAgents enables agent-vs-agent checks for this agent's moves.
	CollideAgents bool

	Path      []physics.Vector2D
	StuckTime float64

	// Facing is cosmetic and follows the last successful movement.
	Facing physics.Vector2D
}

// NewAgent creates an active agent at pos.
func NewAgent(id ID, kind Kind, pos physics.Vector2D, radius, speed float64) *Agent {
	return &Agent{
		BaseEntity: BaseEntity{
			ID:       id,
			Position: pos,
			Radius:   radius,
			Active:   true,
		},
		Kind:          kind,
		Speed:         speed,
		CollideAgents: true,
		Facing:        physics.Vector2D{X: 1, Y: 0},
	}
}

// SetGoal replaces the goal and drops any path toward the previous one.
func (a *Agent) SetGoal(goal physics.Vector2D, following bool) {
	a.Goal = goal
	a.HasGoal = true
	a.Following = following
	a.StuckTime = 0
	a.ClearPath()
}

// FollowTo moves a followed goal without discarding the current path.
func (a *Agent) FollowTo(goal physics.Vector2D) {
	a.Goal = goal
	a.HasGoal = true
	a.Following = true
}

// ClearGoal drops the goal, the path and the stuck timer.
func (a *Agent) ClearGoal() {
	a.HasGoal = false
	a.Following = false
	a.StuckTime = 0
	a.ClearPath()
}

// HasPath reports whether waypoints remain.
func (a *Agent) HasPath() bool {
	return len(a.Path) > 0
}

// SetPath takes ownership of waypoints.
func (a *Agent) SetPath(path []physics.Vector2D) {
	a.Path = path
}

// ClearPath drops all waypoints.
func (a *Agent) ClearPath() {
	a.Path = nil
}

// PathHead returns the next waypoint.
func (a *Agent) PathHead() (physics.Vector2D, bool) {
	if len(a.Path) == 0 {
		return physics.Vector2D{}, false
	}
	return a.Path[0], true
}

// PopReached removes leading waypoints within tolerance of the agent and
// returns how many were removed.
func (a *Agent) PopReached(tolerance float64) int {
	popped := 0
	tolSq := tolerance * tolerance
	for len(a.Path) > 0 && a.Path[0].DistanceSquared(a.Position) <= tolSq {
		a.Path = a.Path[1:]
		popped++
	}
	if len(a.Path) == 0 {
		a.Path = nil
	}
	return popped
}
