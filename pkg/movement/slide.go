package movement

import (
	"math"

	"github.com/opd-ai/go-isonav/pkg/physics"
)

// LocalSlide looks for a short detour when the straight step from from
// toward target is blocked. At each scale, largest first, it tries the axis
// directions that make up the forward direction and both perpendiculars
// blended with forward by each blend weight. Both sides are always
// evaluated and the free candidate that ends closest to target wins, so the
// choice carries no state between calls. It returns false when no
// candidate at any scale gets closer to target.
func LocalSlide(from, target physics.Vector2D, step float64, blocked func(physics.Vector2D) bool, scales, blends []float64) (physics.Vector2D, bool) {
	forward := target.Sub(from)
	before := forward.Length()
	if before < physics.Epsilon || step <= 0 {
		return from, false
	}
	forward = forward.Scale(1 / before)
	left := forward.Perp()
	right := left.Scale(-1)

	dirs := make([]physics.Vector2D, 0, 2+2*len(blends))
	if ax := axisX(forward); !ax.IsZero() {
		dirs = append(dirs, ax)
	}
	if ay := axisY(forward); !ay.IsZero() {
		dirs = append(dirs, ay)
	}
	for _, w := range blends {
		w = math.Min(math.Max(w, 0), 1)
		dirs = append(dirs,
			left.Scale(1-w).Add(forward.Scale(w)).Normalize(),
			right.Scale(1-w).Add(forward.Scale(w)).Normalize(),
		)
	}

	for _, scale := range scales {
		dist := step * scale
		best, bestGain := from, 0.0
		for _, d := range dirs {
			if d.IsZero() {
				continue
			}
			cand := from.Add(d.Scale(dist))
			gain := before - cand.Distance(target)
			if gain <= bestGain || blocked(cand) {
				continue
			}
			best, bestGain = cand, gain
		}
		if bestGain > 0 {
			return best, true
		}
	}
	return from, false
}

// axisX returns the unit x component of a diagonal direction, or zero when
// dir is already axis-aligned.
func axisX(dir physics.Vector2D) physics.Vector2D {
	if math.Abs(dir.X) < physics.Epsilon || math.Abs(dir.Y) < physics.Epsilon {
		return physics.Vector2D{}
	}
	return physics.Vector2D{X: math.Copysign(1, dir.X)}
}

func axisY(dir physics.Vector2D) physics.Vector2D {
	if math.Abs(dir.X) < physics.Epsilon || math.Abs(dir.Y) < physics.Epsilon {
		return physics.Vector2D{}
	}
	return physics.Vector2D{Y: math.Copysign(1, dir.Y)}
}
