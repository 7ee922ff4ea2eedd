package movement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-isonav/pkg/physics"
)

var (
	testScales = []float64{1, 0.5, 0.25}
	testBlends = []float64{0.25, 0.5, 0.75}
)

func vec(x, y float64) physics.Vector2D {
	return physics.Vector2D{X: x, Y: y}
}

func TestLocalSlide_PicksFreeSide(t *testing.T) {
	tests := []struct {
		name    string
		blocked func(physics.Vector2D) bool
		wantUp  bool
	}{
		{
			name:    "left_blocked",
			blocked: func(p physics.Vector2D) bool { return p.X > 0.2 && p.Y > -0.1 },
			wantUp:  false,
		},
		{
			name:    "right_blocked",
			blocked: func(p physics.Vector2D) bool { return p.X > 0.2 && p.Y < 0.1 },
			wantUp:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, target := vec(0, 0), vec(10, 0)

			got, ok := LocalSlide(from, target, 1, tt.blocked, testScales, testBlends)

			require.True(t, ok)
			assert.False(t, tt.blocked(got))
			assert.Less(t, got.Distance(target), from.Distance(target))
			assert.Equal(t, tt.wantUp, got.Y > 0)
		})
	}
}

func TestLocalSlide_IsStateless(t *testing.T) {
	blocked := func(p physics.Vector2D) bool { return p.X > 0.2 && p.Y > -0.1 }
	first, _ := LocalSlide(vec(0, 0), vec(10, 0), 1, blocked, testScales, testBlends)

	// A call with the opposite side blocked must not be biased by the first.
	LocalSlide(vec(0, 0), vec(10, 0), 1, func(p physics.Vector2D) bool { return p.X > 0.2 && p.Y < 0.1 }, testScales, testBlends)

	again, _ := LocalSlide(vec(0, 0), vec(10, 0), 1, blocked, testScales, testBlends)
	assert.Equal(t, first, again)
}

func TestLocalSlide_PrefersGreaterProgress(t *testing.T) {
	// The upper side only admits a steep sidestep; the lower side admits a
	// shallow one that gains more ground.
	blocked := func(p physics.Vector2D) bool {
		if p.X <= 0.2 {
			return false
		}
		return (p.Y > 0 && p.Y < 0.9) || (p.Y <= 0 && p.Y > -0.2)
	}
	got, ok := LocalSlide(vec(0, 0), vec(10, 0), 1, blocked, testScales, testBlends)

	require.True(t, ok)
	assert.Less(t, got.Y, 0.0)
	assert.InDelta(t, 0.939, 10-got.Distance(vec(10, 0)), 0.01)
}

func TestLocalSlide_DiagonalUsesAxes(t *testing.T) {
	blocked := func(p physics.Vector2D) bool { return p.X > 0.1 && p.Y > 0.1 }
	got, ok := LocalSlide(vec(0, 0), vec(10, 10), 1, blocked, testScales, testBlends)

	require.True(t, ok)
	assert.False(t, blocked(got))
	assert.Less(t, got.Distance(vec(10, 10)), vec(0, 0).Distance(vec(10, 10)))
}

func TestLocalSlide_NoCandidate(t *testing.T) {
	everywhere := func(physics.Vector2D) bool { return true }
	got, ok := LocalSlide(vec(3, 4), vec(10, 0), 1, everywhere, testScales, testBlends)
	assert.False(t, ok)
	assert.Equal(t, vec(3, 4), got)

	got, ok = LocalSlide(vec(3, 4), vec(3, 4), 1, func(physics.Vector2D) bool { return false }, testScales, testBlends)
	assert.False(t, ok, "already at target")
	assert.Equal(t, vec(3, 4), got)
}

func TestLocalSlide_ShrinksScale(t *testing.T) {
	// Only points within 0.3 of the origin are free.
	blocked := func(p physics.Vector2D) bool { return p.Length() > 0.3 }
	got, ok := LocalSlide(vec(0, 0), vec(10, 0), 1, blocked, testScales, testBlends)

	require.True(t, ok)
	assert.InDelta(t, 0.25, got.Length(), 1e-9)
}
