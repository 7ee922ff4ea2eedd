package pathfind

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-isonav/pkg/physics"
)

type scriptedFinder struct {
	calls atomic.Int32
	found atomic.Bool
}

func (f *scriptedFinder) FindPath(start, goal physics.Vector2D, _ BlockedFunc) []physics.Vector2D {
	f.calls.Add(1)
	if f.found.Load() {
		return []physics.Vector2D{start, goal}
	}
	return nil
}

func TestGuard_PassesThroughResults(t *testing.T) {
	f := &scriptedFinder{}
	f.found.Store(true)
	g := NewGuard(f, DefaultGuardSettings(), nil)

	path := g.FindPath(vec(0, 0), vec(100, 0), open)

	assert.Equal(t, []physics.Vector2D{vec(0, 0), vec(100, 0)}, path)
	assert.Equal(t, "closed", g.State())
}

func TestGuard_TripsAfterConsecutiveFailures(t *testing.T) {
	f := &scriptedFinder{}
	g := NewGuard(f, GuardSettings{MaxConsecutiveFailures: 3, Timeout: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		assert.Nil(t, g.FindPath(vec(0, 0), vec(500, 0), open))
	}
	require.True(t, g.Open())

	f.found.Store(true)
	assert.Nil(t, g.FindPath(vec(0, 0), vec(500, 0), open), "open breaker must shed the request")
	assert.Equal(t, int32(3), f.calls.Load())
}

func TestGuard_RecoversAfterTimeout(t *testing.T) {
	f := &scriptedFinder{}
	g := NewGuard(f, GuardSettings{MaxConsecutiveFailures: 1, Timeout: 20 * time.Millisecond}, nil)

	g.FindPath(vec(0, 0), vec(500, 0), open)
	require.True(t, g.Open())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, "half-open", g.State())

	f.found.Store(true)
	assert.NotNil(t, g.FindPath(vec(0, 0), vec(500, 0), open))
	assert.Equal(t, "closed", g.State())
}

func TestGuard_WrapsService(t *testing.T) {
	var finder Finder = NewGuard(NewService(DefaultOptions()), DefaultGuardSettings(), nil)
	path := finder.FindPath(vec(16, 16), vec(400, 16), open)
	require.NotNil(t, path)
	assert.Equal(t, vec(400, 16), path[len(path)-1])
}
