// Package collision answers point, swept and line-of-sight queries against
// static diamond terrain and live agents, and resolves movement into wall
// slides. No query fails: each returns a definite answer or position.
package collision

import (
	"slices"
	"sync/atomic"

	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
)

// Options holds the tunables of the query engine and movement resolver.
type Options struct {
	// Radius is the probe radius: entity radius plus collision buffer.
	Radius float64
	// CacheGridSize quantizes positions for the terrain cache. Must be
	// smaller than the terrain grid size.
	CacheGridSize float64
	// Tolerance is the diamond inclusion factor.
	Tolerance float64
	// StepSize is the sampling distance of sweeps and sight lines.
	StepSize float64
	// SearchIterations bisects the first blocked sweep step.
	SearchIterations int
	// SlideDamping scales every slide so acute corners cannot be re-entered.
	SlideDamping float64
	// UnstickPush is the nudge along the normal when no progress is made.
	// It is the one move not bounded by the requested distance: an agent
	// embedded in terrain may end up to UnstickPush per resolver iteration
	// away from where it started, even for a shorter request.
	UnstickPush float64
	// MaxIterations bounds the resolver loop when callers pass zero.
	MaxIterations int
	// Negligible is the distance treated as no movement.
	Negligible float64
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		Radius:           10,
		CacheGridSize:    1,
		Tolerance:        physics.DiamondTolerance,
		StepSize:         4,
		SearchIterations: 4,
		SlideDamping:     0.95,
		UnstickPush:      2,
		MaxIterations:    3,
		Negligible:       0.01,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Radius < 0 {
		o.Radius = 0
	}
	if o.CacheGridSize <= 0 {
		o.CacheGridSize = def.CacheGridSize
	}
	if o.Tolerance <= 0 {
		o.Tolerance = def.Tolerance
	}
	if o.StepSize <= 0 {
		o.StepSize = def.StepSize
	}
	if o.SearchIterations < 0 {
		o.SearchIterations = 0
	}
	if o.SlideDamping <= 0 || o.SlideDamping > 1 {
		o.SlideDamping = def.SlideDamping
	}
	if o.UnstickPush <= 0 {
		o.UnstickPush = def.UnstickPush
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.Negligible <= 0 {
		o.Negligible = def.Negligible
	}
	return o
}

// AgentView is a read-only view of the live agents.
type AgentView interface {
	// ForEachAgent calls fn for each agent until fn returns false.
	ForEachAgent(fn func(a *entity.BaseEntity) bool)
}

// Filter selects which agents take part in a query. Terrain always does.
type Filter struct {
	Agents  bool
	Exclude entity.ID
	// Only restricts agent checks to these IDs when non-empty.
	Only []entity.ID
}

// TerrainOnly ignores every agent.
func TerrainOnly() Filter {
	return Filter{}
}

// AllAgentsExcept checks every collidable agent but exclude.
func AllAgentsExcept(exclude entity.ID) Filter {
	return Filter{Agents: true, Exclude: exclude}
}

// OnlyAgents checks just the listed agents.
func OnlyAgents(ids ...entity.ID) Filter {
	return Filter{Agents: true, Only: ids}
}

func filterFor(includeAgents bool, exclude entity.ID) Filter {
	if !includeAgents {
		return TerrainOnly()
	}
	return AllAgentsExcept(exclude)
}

func (f Filter) admits(id entity.ID) bool {
	if id == f.Exclude && f.Exclude != entity.NoID {
		return false
	}
	if len(f.Only) > 0 {
		return slices.Contains(f.Only, id)
	}
	return true
}

// Engine is the collision query engine. Terrain queries are memoized; the
// terrain index can be swapped with SetTerrain, which clears the cache.
type Engine struct {
	opts   Options
	index  atomic.Pointer[terrain.Index]
	agents AgentView
	cache  *Cache
}

// NewEngine creates an engine over idx. A nil index never blocks and a nil
// agent view has no agents.
func NewEngine(idx *terrain.Index, agents AgentView, opts Options) *Engine {
	e := &Engine{
		opts:   opts.withDefaults(),
		agents: agents,
		cache:  NewCache(),
	}
	if idx == nil {
		idx = terrain.Build(nil, terrain.Shape{}, 1)
	}
	e.index.Store(idx)
	return e
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Radius returns the probe radius.
func (e *Engine) Radius() float64 {
	return e.opts.Radius
}

// Terrain returns the current terrain index.
func (e *Engine) Terrain() *terrain.Index {
	return e.index.Load()
}

// SetTerrain swaps the terrain index and clears the cache.
func (e *Engine) SetTerrain(idx *terrain.Index) {
	if idx == nil {
		idx = terrain.Build(nil, terrain.Shape{}, 1)
	}
	e.index.Store(idx)
	e.cache.Clear()
}

// ClearCache drops every memoized terrain result.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// CacheStats returns cache hit/miss counters and size.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}

// PointBlocked reports whether a probe circle at pos overlaps terrain or,
// when includeAgents is set, any collidable agent other than exclude.
func (e *Engine) PointBlocked(pos physics.Vector2D, includeAgents bool, exclude entity.ID) bool {
	return e.Blocked(pos, filterFor(includeAgents, exclude))
}

// Blocked is PointBlocked with an explicit filter.
func (e *Engine) Blocked(pos physics.Vector2D, f Filter) bool {
	if f.Agents && e.AgentBlocked(pos, f) {
		return true
	}
	return e.TerrainBlocked(pos)
}

// Predicate returns Blocked bound to f.
func (e *Engine) Predicate(f Filter) func(physics.Vector2D) bool {
	return func(p physics.Vector2D) bool {
		return e.Blocked(p, f)
	}
}

// AgentBlocked tests pos against the agents admitted by f.
func (e *Engine) AgentBlocked(pos physics.Vector2D, f Filter) bool {
	_, hit := e.firstAgentHit(pos, f, e.opts.Radius)
	return hit
}

func (e *Engine) firstAgentHit(pos physics.Vector2D, f Filter, radius float64) (physics.Vector2D, bool) {
	if e.agents == nil {
		return physics.Vector2D{}, false
	}
	probe := physics.Circle{Center: pos, Radius: radius}
	var (
		center physics.Vector2D
		hit    bool
	)
	e.agents.ForEachAgent(func(a *entity.BaseEntity) bool {
		if !a.IsCollidable() || !f.admits(a.ID) {
			return true
		}
		if probe.Collides(a.GetCollider()) {
			center = a.Position
			hit = true
			return false
		}
		return true
	})
	return center, hit
}

// TerrainBlocked reports whether the probe circle overlaps terrain. The
// answer is computed at the center of pos's cache cell so that a warm and
// a cold cache always agree.
func (e *Engine) TerrainBlocked(pos physics.Vector2D) bool {
	k := terrain.KeyFor(pos, e.opts.CacheGridSize)
	if blocked, ok := e.cache.Lookup(k); ok {
		return blocked
	}
	blocked := e.terrainBlockedAt(e.cacheCellCenter(k))
	e.cache.Store(k, blocked)
	return blocked
}

func (e *Engine) cacheCellCenter(k terrain.Key) physics.Vector2D {
	g := e.opts.CacheGridSize
	return physics.Vector2D{
		X: (float64(k.X) + 0.5) * g,
		Y: (float64(k.Y) + 0.5) * g,
	}
}

func (e *Engine) terrainBlockedAt(p physics.Vector2D) bool {
	idx := e.index.Load()
	shape := idx.Shape()
	probe := physics.Circle{Center: p, Radius: e.opts.Radius}
	blocked := false
	idx.ForEachNear(p, func(c terrain.Cell) bool {
		if shape.Diamond(c).BlocksCircle(probe, e.opts.Tolerance) {
			blocked = true
			return false
		}
		return true
	})
	return blocked
}
