package pathfind

import "github.com/opd-ai/go-isonav/pkg/physics"

// DefaultColinearity is the dot product above which a turn is treated as
// straight by Simplify.
const DefaultColinearity = 0.99

// Simplify drops repeated points and interior waypoints where the route does
// not turn: the unit direction into the point and the unit direction out of
// it have a dot product of at least threshold. The endpoints are kept. A
// non-positive threshold uses DefaultColinearity.
func Simplify(path []physics.Vector2D, threshold float64) []physics.Vector2D {
	if threshold <= 0 {
		threshold = DefaultColinearity
	}
	if len(path) < 3 {
		return path
	}

	out := make([]physics.Vector2D, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path)-1; i++ {
		prev := out[len(out)-1]
		p := path[i]
		in := p.Sub(prev)
		if in.LengthSquared() <= physics.Epsilon {
			continue
		}
		next := path[i+1].Sub(p)
		if next.LengthSquared() <= physics.Epsilon {
			continue
		}
		if in.Normalize().Dot(next.Normalize()) >= threshold {
			continue
		}
		out = append(out, p)
	}

	last := path[len(path)-1]
	if len(out) > 1 && out[len(out)-1].DistanceSquared(last) <= physics.Epsilon {
		out[len(out)-1] = last
	} else {
		out = append(out, last)
	}
	return out
}

// Smooth shortcuts the path greedily: from each kept waypoint it jumps to
// the farthest later waypoint with a clear line to it. lineBlocked reports
// whether the straight segment between two points is obstructed. Adjacent
// waypoints are always connected, so the result never loses the goal.
func Smooth(path []physics.Vector2D, lineBlocked func(a, b physics.Vector2D) bool) []physics.Vector2D {
	if len(path) < 3 || lineBlocked == nil {
		return path
	}

	out := []physics.Vector2D{path[0]}
	for i := 0; i < len(path)-1; {
		j := len(path) - 1
		for j > i+1 && lineBlocked(path[i], path[j]) {
			j--
		}
		out = append(out, path[j])
		i = j
	}
	return out
}
