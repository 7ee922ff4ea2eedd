// pkg/event/event_test.go
package event

import (
	"sync"
	"testing"

	"github.com/opd-ai/go-isonav/pkg/physics"
)

func TestNewEventBus_Creation_ReturnsInitializedBus(t *testing.T) {
	bus := NewEventBus()

	if bus == nil {
		t.Fatal("NewEventBus() returned nil")
	}
	if bus.handlers == nil {
		t.Error("handlers map not initialized")
	}
	if bus.nextID != 1 {
		t.Errorf("expected nextID to be 1, got %d", bus.nextID)
	}
}

func TestBusSubscribe_MultipleHandlers_UniqueIDs(t *testing.T) {
	bus := NewEventBus()
	noop := func(Event) {}

	sub1 := bus.Subscribe(GoalReached, noop)
	sub2 := bus.Subscribe(GoalReached, noop)
	bus.Subscribe(PathFailed, noop)

	if sub1.ID == 0 || sub1.ID == sub2.ID {
		t.Errorf("bad subscription ids %d and %d", sub1.ID, sub2.ID)
	}
	if sub1.Cancel == nil {
		t.Error("subscription Cancel function should not be nil")
	}
	if got := bus.SubscriberCount(GoalReached); got != 2 {
		t.Errorf("expected 2 handlers for GoalReached, got %d", got)
	}
	if got := bus.SubscriberCount(PathFailed); got != 1 {
		t.Errorf("expected 1 handler for PathFailed, got %d", got)
	}
}

func TestBusPublish_DispatchesByType(t *testing.T) {
	bus := NewEventBus()
	var got []Type

	bus.Subscribe(AgentStuck, func(e Event) { got = append(got, e.GetType()) })
	bus.Subscribe(AgentUnstuck, func(e Event) { got = append(got, e.GetType()) })

	bus.Publish(NewAgentEvent(AgentStuck, "driver", 1, physics.Vector2D{}, physics.Vector2D{}))
	bus.Publish(NewAgentEvent(GoalReached, "driver", 1, physics.Vector2D{}, physics.Vector2D{}))
	bus.Publish(NewAgentEvent(AgentUnstuck, "driver", 1, physics.Vector2D{}, physics.Vector2D{}))

	if len(got) != 2 || got[0] != AgentStuck || got[1] != AgentUnstuck {
		t.Errorf("dispatched %v, want [agent_stuck agent_unstuck]", got)
	}
}

func TestSubscriptionCancel_RemovesHandler(t *testing.T) {
	bus := NewEventBus()
	called := false

	sub := bus.Subscribe(TerrainReloaded, func(Event) { called = true })
	sub.Cancel()

	if got := bus.SubscriberCount(TerrainReloaded); got != 0 {
		t.Errorf("expected 0 handlers after cancel, got %d", got)
	}
	bus.Publish(NewTerrainEvent("world", 12))
	if called {
		t.Error("handler should not be called after cancellation")
	}
	if bus.Unsubscribe(sub.ID) {
		t.Error("second unsubscribe should report false")
	}
}

func TestSubscriptionCancel_KeepsOtherHandlers(t *testing.T) {
	bus := NewEventBus()
	calls := 0

	first := bus.Subscribe(PathFound, func(Event) { calls += 1 })
	bus.Subscribe(PathFound, func(Event) { calls += 10 })
	first.Cancel()

	bus.Publish(NewPathEvent("driver", 2, physics.Vector2D{X: 5}, 4))
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
}

func TestBus_ConcurrentAccess_ThreadSafe(t *testing.T) {
	bus := NewEventBus()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		count int
	)
	handler := func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	const subscribers, publishers = 10, 3
	wg.Add(subscribers)
	for i := 0; i < subscribers; i++ {
		go func() {
			defer wg.Done()
			bus.Subscribe(GoalAbandoned, handler)
		}()
	}
	wg.Wait()

	wg.Add(publishers)
	for i := 0; i < publishers; i++ {
		go func() {
			defer wg.Done()
			bus.Publish(NewAgentEvent(GoalAbandoned, nil, 7, physics.Vector2D{}, physics.Vector2D{}))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != subscribers*publishers {
		t.Errorf("expected %d handler calls, got %d", subscribers*publishers, count)
	}
}

func TestNewPathEvent_TypeFollowsOutcome(t *testing.T) {
	tests := []struct {
		name      string
		waypoints int
		expected  Type
	}{
		{"found", 5, PathFound},
		{"single_waypoint", 1, PathFound},
		{"failed", 0, PathFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewPathEvent("driver", 3, physics.Vector2D{X: 1, Y: 2}, tt.waypoints)
			if e.GetType() != tt.expected {
				t.Errorf("GetType() = %v, want %v", e.GetType(), tt.expected)
			}
			if e.AgentID != 3 || e.Waypoints != tt.waypoints {
				t.Errorf("unexpected payload %+v", e)
			}
		})
	}
}

func TestNewAgentEvent_Payload(t *testing.T) {
	pos := physics.Vector2D{X: 10, Y: -4}
	goal := physics.Vector2D{X: 200, Y: 50}

	e := NewAgentEvent(GoalAbandoned, "driver", 42, pos, goal)

	if e.GetSource() != "driver" {
		t.Errorf("GetSource() = %v", e.GetSource())
	}
	if e.AgentID != 42 || e.Position != pos || e.Goal != goal {
		t.Errorf("unexpected payload %+v", e)
	}
}
