package collision

import (
	"math"

	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
)

// NormalAt returns the outward push direction at pos: away from the center
// of the closest terrain cell within reach of a circle of the given radius.
// It returns the zero vector when no cell is near.
//
// Using the cell center instead of the true diamond edge is an
// approximation; the slide loop corrects for it over iterations.
func (e *Engine) NormalAt(pos physics.Vector2D, radius float64) physics.Vector2D {
	idx := e.index.Load()
	shape := idx.Shape()
	reach := (math.Max(shape.HalfWidth, shape.HalfHeight)+radius)*e.opts.Tolerance + e.opts.StepSize
	bestSq := reach * reach

	var (
		closest physics.Vector2D
		found   bool
	)
	idx.ForEachNear(pos, func(c terrain.Cell) bool {
		d2 := c.Center().DistanceSquared(pos)
		if d2 <= physics.Epsilon || d2 > bestSq {
			return true
		}
		bestSq = d2
		closest = c.Center()
		found = true
		return true
	})
	if !found {
		return physics.Vector2D{}
	}
	return pos.Sub(closest).Normalize()
}

// contactNormal prefers the terrain normal and falls back to the direction
// away from a blocking agent admitted by f.
func (e *Engine) contactNormal(pos physics.Vector2D, f Filter) physics.Vector2D {
	if n := e.NormalAt(pos, e.opts.Radius); !n.IsZero() {
		return n
	}
	if !f.Agents {
		return physics.Vector2D{}
	}
	center, hit := e.firstAgentHit(pos, f, e.opts.Radius+e.opts.UnstickPush)
	if !hit {
		return physics.Vector2D{}
	}
	return pos.Sub(center).Normalize()
}
