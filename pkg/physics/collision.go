// pkg/physics/collision.go
package physics

import "math"

// DiamondTolerance is the default inclusion factor for the diamond test.
// It over-includes by about 2% so circles cannot graze a diamond corner and
// wedge there. Gameplay feel depends on this value; tune it, don't derive it.
const DiamondTolerance = 1.02

// Circle represents a circular collision shape
type Circle struct {
	Center Vector2D
	Radius float64
}

// Collides checks if two circles are colliding
func (c Circle) Collides(other Circle) bool {
	r := c.Radius + other.Radius
	return c.Center.DistanceSquared(other.Center) < r*r
}

// Diamond is an axis-aligned rhombus given by its center and half extents.
type Diamond struct {
	Center     Vector2D
	HalfWidth  float64
	HalfHeight float64
}

// Reach returns the distance from the diamond center beyond which a circle
// of the given radius can never be blocked.
func (d Diamond) Reach(radius, tolerance float64) float64 {
	return (math.Max(d.HalfWidth, d.HalfHeight) + radius) * tolerance
}

// ReachSquared is Reach squared.
func (d Diamond) ReachSquared(radius, tolerance float64) float64 {
	reach := d.Reach(radius, tolerance)
	return reach * reach
}

// BlocksCircle reports whether a circle overlaps the diamond.
//
// The circle is folded into the diamond by growing both half extents by its
// radius; the point is then inside when |dx|/hw + |dy|/hh <= tolerance. A
// circle-circle rejection runs first since nearly every candidate is far away.
func (d Diamond) BlocksCircle(c Circle, tolerance float64) bool {
	dx := c.Center.X - d.Center.X
	dy := c.Center.Y - d.Center.Y
	if dx*dx+dy*dy > d.ReachSquared(c.Radius, tolerance) {
		return false
	}

	hw := d.HalfWidth + c.Radius
	hh := d.HalfHeight + c.Radius
	if hw <= 0 || hh <= 0 {
		return false
	}
	return math.Abs(dx)/hw+math.Abs(dy)/hh <= tolerance
}
