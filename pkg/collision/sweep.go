package collision

import (
	"math"

	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/physics"
)

// Sweep walks from toward to and returns the last collision-free point on
// the segment. Degenerate segments return to unchanged.
func (e *Engine) Sweep(from, to physics.Vector2D, includeAgents bool, exclude entity.ID) physics.Vector2D {
	return e.SweepWith(from, to, filterFor(includeAgents, exclude))
}

// SweepWith is Sweep with an explicit filter.
func (e *Engine) SweepWith(from, to physics.Vector2D, f Filter) physics.Vector2D {
	return sweep(from, to, e.opts, e.Predicate(f))
}

// sweep samples the segment every StepSize. The first blocked sample is
// bisected against the previous safe one on the continuous segment, so the
// result is resolved to StepSize / 2^SearchIterations.
func sweep(from, to physics.Vector2D, opts Options, blocked func(physics.Vector2D) bool) physics.Vector2D {
	delta := to.Sub(from)
	dist := delta.Length()
	if dist < opts.Negligible {
		return to
	}

	prevT := 0.0
	for traveled := opts.StepSize; ; traveled += opts.StepSize {
		t := math.Min(traveled/dist, 1)
		if blocked(from.Add(delta.Scale(t))) {
			lo, hi := prevT, t
			for i := 0; i < opts.SearchIterations; i++ {
				mid := (lo + hi) / 2
				if blocked(from.Add(delta.Scale(mid))) {
					hi = mid
				} else {
					lo = mid
				}
			}
			return from.Add(delta.Scale(lo))
		}
		if t >= 1 {
			return to
		}
		prevT = t
	}
}

// LineOfSightBlocked samples the segment like Sweep, without bisection, and
// reports whether any sample past from is blocked.
func (e *Engine) LineOfSightBlocked(from, to physics.Vector2D, includeAgents bool, exclude entity.ID) bool {
	return e.LineOfSightBlockedWith(from, to, filterFor(includeAgents, exclude))
}

// LineOfSightBlockedWith is LineOfSightBlocked with an explicit filter.
func (e *Engine) LineOfSightBlockedWith(from, to physics.Vector2D, f Filter) bool {
	return lineBlocked(from, to, e.opts, e.Predicate(f))
}

func lineBlocked(from, to physics.Vector2D, opts Options, blocked func(physics.Vector2D) bool) bool {
	delta := to.Sub(from)
	dist := delta.Length()
	if dist < opts.Negligible {
		return false
	}
	for traveled := opts.StepSize; ; traveled += opts.StepSize {
		t := math.Min(traveled/dist, 1)
		if blocked(from.Add(delta.Scale(t))) {
			return true
		}
		if t >= 1 {
			return false
		}
	}
}
