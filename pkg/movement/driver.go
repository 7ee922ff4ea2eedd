// Package movement advances agents toward their goals one simulation tick
// at a time. Each tick an agent walks its path or heads straight for its
// goal. When the step is blocked the driver falls back, in order, to a wall
// slide, a local detour and a path request, and only then counts the tick
// toward the stuck timer.
package movement

import (
	"context"

	"github.com/opd-ai/go-isonav/pkg/collision"
	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/event"
	"github.com/opd-ai/go-isonav/pkg/logging"
	"github.com/opd-ai/go-isonav/pkg/pathfind"
	"github.com/opd-ai/go-isonav/pkg/physics"
)

// Outcome says what an agent did during one Step.
type Outcome int

const (
	Idle Outcome = iota
	Moved
	Slid
	Probed
	Repathed
	Blocked
	Arrived
	Abandoned
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Moved:
		return "moved"
	case Slid:
		return "slid"
	case Probed:
		return "probed"
	case Repathed:
		return "repathed"
	case Blocked:
		return "blocked"
	case Arrived:
		return "arrived"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Collider is the part of the collision engine the driver uses.
type Collider interface {
	Blocked(pos physics.Vector2D, f collision.Filter) bool
	Predicate(f collision.Filter) func(physics.Vector2D) bool
	MoveWith(from, to physics.Vector2D, maxIterations int, f collision.Filter) physics.Vector2D
	LineOfSightBlockedWith(from, to physics.Vector2D, f collision.Filter) bool
}

// PathLimiter throttles path requests per agent.
type PathLimiter interface {
	Allow(id entity.ID) bool
}

// Publisher receives navigation events.
type Publisher interface {
	Publish(e event.Event)
}

// Options holds the driver tunables.
type Options struct {
	// ArrivalTolerance pops waypoints within this distance.
	ArrivalTolerance float64
	// GoalTolerance completes a goal within this distance.
	GoalTolerance float64
	// StuckThreshold is the seconds without progress before a click goal
	// is abandoned.
	StuckThreshold float64
	// MinProgress is the fraction of a step a fallback must gain toward
	// the target to count as progress.
	MinProgress float64
	// ResolverIterations bounds the wall slide.
	ResolverIterations int
	// ProbeScales and ProbeBlends shape the local detour candidates.
	ProbeScales []float64
	ProbeBlends []float64
	// Colinearity is the Simplify threshold for new paths.
	Colinearity float64
	// SmoothPaths shortcuts new paths along clear sight lines.
	SmoothPaths bool
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		ArrivalTolerance:   10,
		GoalTolerance:      1,
		StuckThreshold:     0.5,
		MinProgress:        0.1,
		ResolverIterations: 3,
		ProbeScales:        []float64{1, 0.5, 0.25},
		ProbeBlends:        []float64{0.25, 0.5, 0.75},
		Colinearity:        pathfind.DefaultColinearity,
		SmoothPaths:        true,
	}
}

// Driver runs the per-agent state machine.
type Driver struct {
	collider Collider
	finder   pathfind.Finder
	limiter  PathLimiter
	events   Publisher
	logger   *logging.Logger
	opts     Options
}

// NewDriver creates a driver. finder may be nil, in which case blocked
// agents never request paths.
func NewDriver(collider Collider, finder pathfind.Finder, opts Options, logger *logging.Logger) *Driver {
	def := DefaultOptions()
	if opts.ArrivalTolerance <= 0 {
		opts.ArrivalTolerance = def.ArrivalTolerance
	}
	if opts.GoalTolerance <= 0 {
		opts.GoalTolerance = def.GoalTolerance
	}
	if opts.StuckThreshold <= 0 {
		opts.StuckThreshold = def.StuckThreshold
	}
	if opts.MinProgress <= 0 {
		opts.MinProgress = def.MinProgress
	}
	if opts.ResolverIterations <= 0 {
		opts.ResolverIterations = def.ResolverIterations
	}
	if len(opts.ProbeScales) == 0 {
		opts.ProbeScales = def.ProbeScales
	}
	if len(opts.ProbeBlends) == 0 {
		opts.ProbeBlends = def.ProbeBlends
	}
	if opts.Colinearity <= 0 {
		opts.Colinearity = def.Colinearity
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Driver{
		collider: collider,
		finder:   finder,
		opts:     opts,
		logger:   logger.With("component", "movement"),
	}
}

// SetLimiter installs a path request limiter.
func (d *Driver) SetLimiter(l PathLimiter) {
	d.limiter = l
}

// SetPublisher installs an event sink.
func (d *Driver) SetPublisher(p Publisher) {
	d.events = p
}

// Options returns the effective options.
func (d *Driver) Options() Options {
	return d.opts
}

// FilterFor returns the collision filter for an agent's own moves. An
// engaged agent only collides with its opponent.
func FilterFor(a *entity.Agent) collision.Filter {
	if !a.CollideAgents {
		return collision.TerrainOnly()
	}
	if a.Engaged != entity.NoID {
		return collision.Filter{Agents: true, Exclude: a.ID, Only: []entity.ID{a.Engaged}}
	}
	return collision.AllAgentsExcept(a.ID)
}

// Step advances a by dt seconds.
func (d *Driver) Step(ctx context.Context, a *entity.Agent, dt float64) Outcome {
	if !a.Active || !a.HasGoal || dt <= 0 {
		return Idle
	}
	f := FilterFor(a)

	if a.HasPath() {
		a.PopReached(d.opts.ArrivalTolerance)
		if a.HasPath() && !d.collider.LineOfSightBlockedWith(a.Position, a.Goal, f) {
			a.ClearPath()
		}
	}

	if !a.HasPath() && a.Position.Distance(a.Goal) <= d.opts.GoalTolerance {
		if a.Following {
			d.recovered(a)
			return Idle
		}
		goal := a.Goal
		a.ClearGoal()
		d.publish(event.NewAgentEvent(event.GoalReached, d, uint64(a.ID), a.Position, goal))
		return Arrived
	}

	target := a.Goal
	if head, ok := a.PathHead(); ok {
		target = head
	}

	stepLen := a.Speed * dt
	toTarget := target.Sub(a.Position)
	dist := toTarget.Length()
	next := target
	if dist > stepLen {
		next = a.Position.Add(toTarget.Scale(stepLen / dist))
	}
	if !d.collider.Blocked(next, f) {
		d.commit(a, next)
		return Moved
	}

	minGain := stepLen * d.opts.MinProgress
	slid := d.collider.MoveWith(a.Position, next, d.opts.ResolverIterations, f)
	if dist-slid.Distance(target) > minGain {
		d.commit(a, slid)
		return Slid
	}

	probe, ok := LocalSlide(a.Position, target, stepLen, d.collider.Predicate(f), d.opts.ProbeScales, d.opts.ProbeBlends)
	if ok && dist-probe.Distance(target) > minGain {
		d.commit(a, probe)
		return Probed
	}

	if d.requestPath(ctx, a, f) {
		return Repathed
	}
	if d.stuck(ctx, a, dt) {
		return Abandoned
	}
	return Blocked
}

func (d *Driver) commit(a *entity.Agent, next physics.Vector2D) {
	if mv := next.Sub(a.Position); mv.LengthSquared() > physics.Epsilon {
		a.Facing = mv.Normalize()
	}
	a.Position = next
	d.recovered(a)
}

func (d *Driver) recovered(a *entity.Agent) {
	if a.StuckTime >= d.opts.StuckThreshold {
		d.publish(event.NewAgentEvent(event.AgentUnstuck, d, uint64(a.ID), a.Position, a.Goal))
	}
	a.StuckTime = 0
}

// stuck adds dt to the stuck timer and abandons a click goal that has made
// no progress for StuckThreshold seconds. Followed goals are kept.
func (d *Driver) stuck(ctx context.Context, a *entity.Agent, dt float64) bool {
	before := a.StuckTime
	a.StuckTime += dt
	if a.StuckTime < d.opts.StuckThreshold {
		return false
	}
	if !a.Following {
		goal := a.Goal
		d.logger.Info(ctx, "goal abandoned",
			"agent", uint64(a.ID),
			"x", a.Position.X,
			"y", a.Position.Y,
			"stuck_seconds", a.StuckTime,
		)
		a.ClearGoal()
		d.publish(event.NewAgentEvent(event.GoalAbandoned, d, uint64(a.ID), a.Position, goal))
		return true
	}
	if before < d.opts.StuckThreshold {
		d.publish(event.NewAgentEvent(event.AgentStuck, d, uint64(a.ID), a.Position, a.Goal))
	}
	return false
}

// requestPath asks the finder for a route to the goal and adopts it. It
// reports whether the agent now has waypoints to walk.
func (d *Driver) requestPath(ctx context.Context, a *entity.Agent, f collision.Filter) bool {
	if d.finder == nil {
		return false
	}
	if d.limiter != nil && !d.limiter.Allow(a.ID) {
		return false
	}

	path := d.finder.FindPath(a.Position, a.Goal, d.collider.Predicate(f))
	d.publish(event.NewPathEvent(d, uint64(a.ID), a.Goal, len(path)))
	if path == nil {
		d.logger.Debug(ctx, "no path",
			"agent", uint64(a.ID),
			"from_x", a.Position.X,
			"from_y", a.Position.Y,
			"to_x", a.Goal.X,
			"to_y", a.Goal.Y,
		)
		return false
	}

	path = pathfind.Simplify(path, d.opts.Colinearity)
	if d.opts.SmoothPaths {
		path = pathfind.Smooth(path, func(p, q physics.Vector2D) bool {
			return d.collider.LineOfSightBlockedWith(p, q, f)
		})
	}
	a.SetPath(path)
	a.PopReached(d.opts.ArrivalTolerance)
	return a.HasPath()
}

func (d *Driver) publish(e event.Event) {
	if d.events != nil {
		d.events.Publish(e)
	}
}
