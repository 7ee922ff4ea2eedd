package collision

import (
	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/physics"
)

// MoveWithCollision moves from toward to and returns where the agent ends
// up. A free destination is returned unchanged. Otherwise the agent sweeps
// to the first contact and slides along the wall with the remaining
// movement, at most maxIterations times (zero uses the configured default).
// When no progress is possible the agent is nudged along the contact normal,
// and if that fails too the original position comes back.
//
// Starting from free space the result is never farther from from than to
// is. Only the nudge can exceed that, by at most UnstickPush per iteration.
func (e *Engine) MoveWithCollision(from, to physics.Vector2D, includeAgents bool, maxIterations int, exclude entity.ID) physics.Vector2D {
	return e.MoveWith(from, to, maxIterations, filterFor(includeAgents, exclude))
}

// MoveWith is MoveWithCollision with an explicit filter.
func (e *Engine) MoveWith(from, to physics.Vector2D, maxIterations int, f Filter) physics.Vector2D {
	blocked := e.Predicate(f)
	if !blocked(to) {
		return to
	}
	if maxIterations <= 0 {
		maxIterations = e.opts.MaxIterations
	}

	current := from
	remaining := to.Sub(from)
	for i := 0; i < maxIterations; i++ {
		target := current.Add(remaining)
		if !blocked(target) {
			return target
		}

		hit := sweep(current, target, e.opts, blocked)
		if hit.Distance(current) < e.opts.Negligible {
			pushed, ok := e.unstick(current, f, blocked)
			if !ok {
				break
			}
			current = pushed
			continue
		}

		remaining = remaining.Sub(hit.Sub(current))
		current = hit

		normal := e.contactNormal(hit, f)
		if normal.IsZero() {
			break
		}
		slide := remaining.Sub(normal.Scale(remaining.Dot(normal))).Scale(e.opts.SlideDamping)
		if slide.Length() < e.opts.Negligible {
			break
		}
		remaining = slide
	}

	if current != from && blocked(current) {
		return from
	}
	return current
}

func (e *Engine) unstick(pos physics.Vector2D, f Filter, blocked func(physics.Vector2D) bool) (physics.Vector2D, bool) {
	normal := e.contactNormal(pos, f)
	if normal.IsZero() {
		return pos, false
	}
	pushed := pos.Add(normal.Scale(e.opts.UnstickPush))
	if blocked(pushed) {
		return pos, false
	}
	return pushed, true
}
