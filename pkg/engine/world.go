// pkg/engine/world.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-isonav/pkg/collision"
	"github.com/opd-ai/go-isonav/pkg/config"
	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/event"
	"github.com/opd-ai/go-isonav/pkg/logging"
	"github.com/opd-ai/go-isonav/pkg/movement"
	"github.com/opd-ai/go-isonav/pkg/pathfind"
	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
	"github.com/opd-ai/go-isonav/pkg/validation"
)

var (
	ErrUnknownAgent  = errors.New("unknown agent")
	ErrDuplicateName = errors.New("agent name already in use")
	ErrTargetBlocked = errors.New("target is inside terrain")
	ErrSpawnBlocked  = errors.New("spawn point is inside terrain")
	ErrTooManyAgents = errors.New("too many agents")
)

// maxDeltaTime caps a tick so a stalled loop does not teleport agents.
const maxDeltaTime = 0.1

// FrameRecorder receives the wall time spent in each tick.
type FrameRecorder interface {
	RecordFrame(d time.Duration)
}

// AgentSpec describes an agent to add.
type AgentSpec struct {
	Name     string
	Kind     entity.Kind
	Position physics.Vector2D
	// Radius is used for agent-vs-agent tests; zero takes the configured
	// probe radius.
	Radius float64
	Speed  float64
	// Ghost agents ignore other agents when moving.
	Ghost bool
}

type agentEntry struct {
	basic ecs.BasicEntity
	agent *entity.Agent
	name  string
	chase entity.ID
}

// World owns the agents and terrain of one simulation and advances them on a
// fixed timestep. All methods are safe for concurrent use. Event handlers run
// on the stepping goroutine while the world is locked and must not call back
// into the World.
type World struct {
	Config   *config.Config
	EventBus *event.Bus

	ecs       *ecs.World
	movement  *MovementSystem
	collision *collision.Engine
	finder    *pathfind.Service
	guard     *pathfind.Guard
	driver    *movement.Driver
	limiter   *validation.RateLimiter
	frames    FrameRecorder
	logger    *logging.Logger

	mu     sync.RWMutex
	agents map[entity.ID]*agentEntry
	order  []entity.ID
	names  map[string]entity.ID
	nextID entity.ID
	tick   uint64

	running    atomic.Bool
	lastTickAt atomic.Int64
	lastUpdate time.Time
}

// roster exposes the agents to the collision engine. It does not lock: the
// engine only consults it from World methods that already hold mu.
type roster struct {
	w *World
}

func (r roster) ForEachAgent(fn func(a *entity.BaseEntity) bool) {
	for _, id := range r.w.order {
		if !fn(&r.w.agents[id].agent.BaseEntity) {
			return
		}
	}
}

// NewWorld creates an empty world. A nil cfg uses the defaults; a nil logger
// discards output.
func NewWorld(cfg *config.Config, guard pathfind.GuardSettings, logger *logging.Logger) (*World, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	w := &World{
		Config:     cfg,
		EventBus:   event.NewEventBus(),
		ecs:        &ecs.World{},
		agents:     make(map[entity.ID]*agentEntry),
		names:      make(map[string]entity.ID),
		nextID:     1,
		logger:     logger.With("component", "world"),
		lastUpdate: time.Now(),
	}

	w.collision = collision.NewEngine(terrain.Build(nil, cfg.Shape(), cfg.Terrain.GridSize), roster{w}, cfg.CollisionOptions())
	w.finder = pathfind.NewService(cfg.PathfindOptions())
	w.guard = pathfind.NewGuard(w.finder, guard, logger)
	w.limiter = validation.NewRateLimiter(cfg.Simulation.PathRequests, cfg.Simulation.PathWindowTicks)

	w.driver = movement.NewDriver(w.collision, w.guard, cfg.MovementOptions(), logger)
	w.driver.SetLimiter(w.limiter)
	w.driver.SetPublisher(w.EventBus)

	w.movement = NewMovementSystem(w.driver)
	w.ecs.AddSystem(w.movement)
	return w, nil
}

// SetFrameRecorder installs a recorder for tick durations.
func (w *World) SetFrameRecorder(r FrameRecorder) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = r
}

// AddAgent validates spec and places a new agent.
func (w *World) AddAgent(spec AgentSpec) (entity.ID, error) {
	name, err := validation.ValidateName(spec.Name)
	if err != nil {
		return entity.NoID, err
	}
	if err := validation.ValidatePosition(spec.Position); err != nil {
		return entity.NoID, fmt.Errorf("position: %w", err)
	}
	if err := validation.ValidateSpeed(spec.Speed); err != nil {
		return entity.NoID, fmt.Errorf("speed: %w", err)
	}
	if err := validation.ValidateRadius(spec.Radius); err != nil {
		return entity.NoID, fmt.Errorf("radius: %w", err)
	}
	radius := spec.Radius
	if radius == 0 {
		radius = w.collision.Radius()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.names[name]; ok {
		return entity.NoID, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if len(w.agents) >= validation.MaxAgents {
		return entity.NoID, fmt.Errorf("%w: limit is %d", ErrTooManyAgents, validation.MaxAgents)
	}
	if w.collision.Blocked(spec.Position, collision.TerrainOnly()) {
		return entity.NoID, fmt.Errorf("%w: %v", ErrSpawnBlocked, spec.Position)
	}

	id := w.nextID
	w.nextID++
	a := entity.NewAgent(id, spec.Kind, spec.Position, radius, spec.Speed)
	a.CollideAgents = !spec.Ghost

	e := &agentEntry{basic: ecs.NewBasic(), agent: a, name: name}
	w.agents[id] = e
	w.order = append(w.order, id)
	w.names[name] = id
	w.movement.Add(&e.basic, a)

	w.EventBus.Publish(event.NewAgentEvent(event.AgentAdded, w, uint64(id), a.Position, a.Goal))
	return id, nil
}

// RemoveAgent removes an agent. Agents chasing or engaged with it lose that
// link.
func (w *World) RemoveAgent(id entity.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.agents[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	e.agent.Active = false
	w.ecs.RemoveEntity(e.basic)
	delete(w.agents, id)
	delete(w.names, e.name)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.limiter.Forget(id)

	for _, other := range w.agents {
		if other.chase == id {
			other.chase = entity.NoID
			other.agent.ClearGoal()
		}
		if other.agent.Engaged == id {
			other.agent.Engaged = entity.NoID
		}
	}

	w.EventBus.Publish(event.NewAgentEvent(event.AgentRemoved, w, uint64(id), e.agent.Position, e.agent.Goal))
	return nil
}

// AgentID looks up an agent by name.
func (w *World) AgentID(name string) (entity.ID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	id, ok := w.names[name]
	return id, ok
}

// SetTarget gives an agent a new goal. A click target (following false) is
// rejected when it lies inside terrain; a followed target is accepted
// anywhere and is never abandoned. Setting a target stops any chase.
func (w *World) SetTarget(id entity.ID, target physics.Vector2D, following bool) error {
	if err := validation.ValidatePosition(target); err != nil {
		return fmt.Errorf("target: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.agents[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	if !following && w.collision.Blocked(target, collision.TerrainOnly()) {
		return fmt.Errorf("%w: %v", ErrTargetBlocked, target)
	}
	e.chase = entity.NoID
	if following && e.agent.HasGoal && e.agent.Following {
		e.agent.FollowTo(target)
	} else {
		e.agent.SetGoal(target, following)
	}
	return nil
}

// ClearTarget stops an agent.
func (w *World) ClearTarget(id entity.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.agents[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	e.chase = entity.NoID
	e.agent.ClearGoal()
	return nil
}

// Chase makes id follow target's position every tick.
func (w *World) Chase(id, target entity.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.agents[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	t, ok := w.agents[target]
	if !ok || target == id {
		return fmt.Errorf("%w: chase target %d", ErrUnknownAgent, target)
	}
	e.chase = target
	e.agent.SetGoal(t.agent.Position, true)
	return nil
}

// Engage restricts id's agent collisions to opponent alone.
func (w *World) Engage(id, opponent entity.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.agents[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	if _, ok := w.agents[opponent]; !ok || opponent == id {
		return fmt.Errorf("%w: opponent %d", ErrUnknownAgent, opponent)
	}
	e.agent.Engaged = opponent
	return nil
}

// Disengage restores collisions with every agent.
func (w *World) Disengage(id entity.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.agents[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	e.agent.Engaged = entity.NoID
	return nil
}

// ReloadTerrain replaces the terrain and clears the collision cache. Agents
// keep their goals but drop their paths, which were planned against the old
// terrain. A nil shape keeps the configured one; a shape whose blocking reach
// exceeds the terrain grid is rejected.
func (w *World) ReloadTerrain(ctx context.Context, cells []terrain.Cell, shape *terrain.Shape) error {
	idx, err := w.buildTerrain(cells, shape)
	if err != nil {
		return err
	}
	w.installTerrain(ctx, idx)
	return nil
}

func (w *World) buildTerrain(cells []terrain.Cell, shape *terrain.Shape) (*terrain.Index, error) {
	if err := validation.ValidateCells(cells); err != nil {
		return nil, fmt.Errorf("terrain: %w", err)
	}
	s := w.Config.Shape()
	if shape != nil {
		if err := validation.ValidateShape(*shape); err != nil {
			return nil, fmt.Errorf("terrain: %w", err)
		}
		if err := w.Config.CheckShape(*shape); err != nil {
			return nil, fmt.Errorf("terrain: %w", err)
		}
		s = *shape
	}
	return terrain.Build(cells, s, w.Config.Terrain.GridSize), nil
}

func (w *World) installTerrain(ctx context.Context, idx *terrain.Index) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.collision.SetTerrain(idx)
	for _, id := range w.order {
		a := w.agents[id].agent
		a.ClearPath()
		a.StuckTime = 0
	}
	w.EventBus.Publish(event.NewTerrainEvent(w, idx.Len()))
	w.logger.Info(ctx, "terrain reloaded",
		"cells", idx.Len(),
		"buckets", idx.BucketCount(),
	)
}

// Step advances the world by dt seconds.
func (w *World) Step(ctx context.Context, dt float64) {
	if dt > maxDeltaTime {
		dt = maxDeltaTime
	}
	if dt <= 0 {
		return
	}
	start := time.Now()

	w.mu.Lock()
	w.updateChases()
	w.limiter.Advance()
	w.movement.withContext(ctx)
	w.ecs.Update(float32(dt))
	w.tick++
	frames := w.frames
	w.mu.Unlock()

	w.lastTickAt.Store(time.Now().UnixNano())
	if frames != nil {
		frames.RecordFrame(time.Since(start))
	}
}

// updateChases moves every chaser's followed goal to its target.
func (w *World) updateChases() {
	for _, id := range w.order {
		e := w.agents[id]
		if e.chase == entity.NoID {
			continue
		}
		t, ok := w.agents[e.chase]
		if !ok || !t.agent.Active {
			e.chase = entity.NoID
			e.agent.ClearGoal()
			continue
		}
		e.agent.FollowTo(t.agent.Position)
	}
}

// calculateDeltaTime returns the time since the last update, capped.
func (w *World) calculateDeltaTime() float64 {
	now := time.Now()
	deltaTime := now.Sub(w.lastUpdate).Seconds()
	w.lastUpdate = now
	if deltaTime > maxDeltaTime {
		deltaTime = maxDeltaTime
	}
	return deltaTime
}

// Run steps the world at the configured tick rate until ctx is done.
func (w *World) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("world already running")
	}
	defer w.running.Store(false)

	ticker := time.NewTicker(w.Config.TickInterval())
	defer ticker.Stop()

	w.lastUpdate = time.Now()
	w.logger.Info(ctx, "simulation started",
		"tick_rate", w.Config.Simulation.TickRate,
		"agents", w.AgentCount(),
	)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(context.Background(), "simulation stopped", "ticks", w.Tick())
			return nil
		case <-ticker.C:
			w.Step(ctx, w.calculateDeltaTime())
		}
	}
}

// Running reports whether Run is active.
func (w *World) Running() bool {
	return w.running.Load()
}

// LastTick returns when the last Step finished, or the zero time.
func (w *World) LastTick() time.Time {
	ns := w.lastTickAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Tick returns the number of completed steps.
func (w *World) Tick() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// AgentCount returns the number of agents.
func (w *World) AgentCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.agents)
}

// PointBlocked answers a point query against the live world.
func (w *World) PointBlocked(pos physics.Vector2D, includeAgents bool, exclude entity.ID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.collision.PointBlocked(pos, includeAgents, exclude)
}

// LineOfSightBlocked reports whether terrain blocks the segment.
func (w *World) LineOfSightBlocked(from, to physics.Vector2D) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.collision.LineOfSightBlocked(from, to, false, entity.NoID)
}

// Cells returns the terrain cells and their shape.
func (w *World) Cells() ([]terrain.Cell, terrain.Shape) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	idx := w.collision.Terrain()
	return idx.Cells(), idx.Shape()
}
