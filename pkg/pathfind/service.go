// Package pathfind plans routes on a square grid laid over the terrain with
// A*. Working memory lives in an arena owned by the Service and reused by
// every search, so searches are serialized behind one mutex.
package pathfind

import (
	"math"
	"sync"

	"github.com/opd-ai/go-isonav/pkg/physics"
)

// Options bounds and shapes a search.
type Options struct {
	// CellSize is the edge of a grid cell in world units.
	CellSize float64
	// MaxIterations caps node expansions per search.
	MaxIterations int
	// MaxSearchRadius prunes cells whose center is farther from the start.
	MaxSearchRadius float64
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		CellSize:        32,
		MaxIterations:   500,
		MaxSearchRadius: 800,
	}
}

// BlockedFunc reports whether an agent standing at a world point collides.
type BlockedFunc func(physics.Vector2D) bool

// Finder is anything that can answer a path request.
type Finder interface {
	FindPath(start, goal physics.Vector2D, isBlocked BlockedFunc) []physics.Vector2D
}

// Stats counts searches for diagnostics.
type Stats struct {
	Searches       uint64 `json:"searches"`
	Failures       uint64 `json:"failures"`
	EarlyExits     uint64 `json:"earlyExits"`
	LastIterations int    `json:"lastIterations"`
	LastLength     int    `json:"lastLength"`
}

type cell struct {
	x, y int
}

type neighbor struct {
	dx, dy   int
	cost     float64
	diagonal bool
}

var neighbors = [...]neighbor{
	{dx: 0, dy: -1, cost: 1},
	{dx: 1, dy: 0, cost: 1},
	{dx: 0, dy: 1, cost: 1},
	{dx: -1, dy: 0, cost: 1},
	{dx: 1, dy: -1, cost: math.Sqrt2, diagonal: true},
	{dx: 1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: -1, cost: math.Sqrt2, diagonal: true},
}

// Service is the pathfinding service.
type Service struct {
	opts Options

	mu    sync.Mutex
	arena arena
	stats Stats
}

// NewService creates a service; zero option fields take defaults.
func NewService(opts Options) *Service {
	def := DefaultOptions()
	if opts.CellSize <= 0 {
		opts.CellSize = def.CellSize
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.MaxSearchRadius <= 0 {
		opts.MaxSearchRadius = def.MaxSearchRadius
	}
	return &Service{
		opts:  opts,
		arena: newArena(),
	}
}

// Options returns the effective options.
func (s *Service) Options() Options {
	return s.opts
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Service) cellOf(p physics.Vector2D) cell {
	return cell{
		x: int(math.Floor(p.X / s.opts.CellSize)),
		y: int(math.Floor(p.Y / s.opts.CellSize)),
	}
}

func (s *Service) centerOf(c cell) physics.Vector2D {
	return physics.Vector2D{
		X: (float64(c.x) + 0.5) * s.opts.CellSize,
		Y: (float64(c.y) + 0.5) * s.opts.CellSize,
	}
}

func heuristic(a, b cell) float64 {
	return math.Hypot(float64(a.x-b.x), float64(a.y-b.y))
}

// FindPath returns world-space waypoints from start to goal, or nil when
// the goal was not reached within the iteration cap or search radius. The
// first waypoint is start itself and the last is goal. When start and goal
// share a cell or touch, the path is just the goal.
func (s *Service) FindPath(start, goal physics.Vector2D, isBlocked BlockedFunc) []physics.Vector2D {
	from, to := s.cellOf(start), s.cellOf(goal)

	s.mu.Lock()
	defer s.mu.Unlock()

	if abs(from.x-to.x) <= 1 && abs(from.y-to.y) <= 1 {
		s.stats.EarlyExits++
		s.stats.LastIterations = 0
		s.stats.LastLength = 1
		return []physics.Vector2D{goal}
	}

	s.stats.Searches++
	found, iterations := s.search(from, to, start, goal, isBlocked)
	s.stats.LastIterations = iterations
	if !found {
		s.stats.Failures++
		s.stats.LastLength = 0
		return nil
	}

	path := s.reconstruct(from, to, start, goal)
	s.stats.LastLength = len(path)
	return path
}

// search runs A* over the arena. The goal cell is tested at the goal point
// rather than its center, since a reachable goal may sit in a cell whose
// center is inside a wall.
func (s *Service) search(from, to cell, start, goal physics.Vector2D, isBlocked BlockedFunc) (bool, int) {
	a := &s.arena
	a.reset()

	radiusSq := s.opts.MaxSearchRadius * s.opts.MaxSearchRadius
	blocked := func(c cell) bool {
		if c == to {
			return isBlocked(goal)
		}
		if b, ok := a.blocked[c]; ok {
			return b
		}
		b := isBlocked(s.centerOf(c))
		a.blocked[c] = b
		return b
	}

	a.g[from] = 0
	a.open.push(node{cell: from, g: 0, f: heuristic(from, to)})

	iterations := 0
	for a.open.len() > 0 && iterations < s.opts.MaxIterations {
		current := a.open.pop()
		if _, done := a.closed[current.cell]; done {
			continue
		}
		if g, ok := a.g[current.cell]; ok && current.g > g {
			continue
		}
		a.closed[current.cell] = struct{}{}
		iterations++

		if current.cell == to {
			return true, iterations
		}

		for _, n := range neighbors {
			next := cell{x: current.cell.x + n.dx, y: current.cell.y + n.dy}
			if _, done := a.closed[next]; done {
				continue
			}
			if next != to && s.centerOf(next).DistanceSquared(start) > radiusSq {
				continue
			}
			if blocked(next) {
				continue
			}
			if n.diagonal && (blocked(cell{x: current.cell.x + n.dx, y: current.cell.y}) ||
				blocked(cell{x: current.cell.x, y: current.cell.y + n.dy})) {
				continue
			}
			tentative := current.g + n.cost
			if prev, ok := a.g[next]; ok && tentative >= prev {
				continue
			}
			a.g[next] = tentative
			a.parent[next] = current.cell
			a.open.push(node{cell: next, g: tentative, f: tentative + heuristic(next, to)})
		}
	}
	return false, iterations
}

func (s *Service) reconstruct(from, to cell, start, goal physics.Vector2D) []physics.Vector2D {
	a := &s.arena
	cells := a.trail[:0]
	for c := to; ; {
		cells = append(cells, c)
		if c == from {
			break
		}
		c = a.parent[c]
	}
	a.trail = cells

	path := make([]physics.Vector2D, 0, len(cells)+1)
	for i := len(cells) - 1; i >= 0; i-- {
		path = append(path, s.centerOf(cells[i]))
	}
	path[0] = start
	return append(path, goal)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
