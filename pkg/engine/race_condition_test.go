// pkg/engine/race_condition_test.go
package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
)

// TestWorldRaceCondition runs steps, agent churn and readers concurrently.
// Run with -race.
func TestWorldRaceCondition(t *testing.T) {
	w := newTestWorld(t)
	cells := make([]terrain.Cell, 0, 13)
	for x := -96.0; x <= 96; x += 16 {
		cells = append(cells, terrain.Cell{X: x, Y: 0})
	}
	if err := w.ReloadTerrain(context.Background(), cells, nil); err != nil {
		t.Fatalf("ReloadTerrain failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		id := addAgent(t, w, fmt.Sprintf("walker-%d", i), entity.KindEnemy, float64(i*60-120), 120)
		if err := w.SetTarget(id, physics.Vector2D{X: float64(i*60 - 120), Y: -120}, false); err != nil {
			t.Fatalf("SetTarget failed: %v", err)
		}
	}

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				w.Step(context.Background(), 1.0/60)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			id, err := w.AddAgent(AgentSpec{
				Name:     fmt.Sprintf("temp-%d", i),
				Position: physics.Vector2D{X: 300, Y: float64(i * 25)},
				Speed:    80,
			})
			if err != nil {
				t.Errorf("Failed to add agent: %v", err)
				return
			}
			if err := w.SetTarget(id, physics.Vector2D{X: -300, Y: -200}, true); err != nil {
				t.Errorf("Failed to set target: %v", err)
				return
			}
			time.Sleep(time.Millisecond)
			if err := w.RemoveAgent(id); err != nil {
				t.Errorf("Failed to remove agent: %v", err)
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			snap := w.Snapshot()
			for _, a := range snap.Agents {
				_ = w.PointBlocked(a.Position, true, a.ID)
			}
			_ = w.Diagnostics()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if err := w.ReloadTerrain(context.Background(), cells, nil); err != nil {
				t.Errorf("ReloadTerrain failed: %v", err)
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	time.Sleep(200 * time.Millisecond)
	close(done)
	wg.Wait()

	if w.AgentCount() != 5 {
		t.Errorf("AgentCount() = %d, want the 5 walkers", w.AgentCount())
	}
	for _, a := range w.Snapshot().Agents {
		if w.PointBlocked(a.Position, false, entity.NoID) {
			t.Errorf("agent %s ended inside terrain at %v", a.Name, a.Position)
		}
	}
}
