// pkg/event/event.go
package event

import (
	"sync"

	"github.com/opd-ai/go-isonav/pkg/physics"
)

// Type represents the type of event
type Type string

// Navigation event types
const (
	AgentAdded      Type = "agent_added"
	AgentRemoved    Type = "agent_removed"
	PathFound       Type = "path_found"
	PathFailed      Type = "path_failed"
	GoalReached     Type = "goal_reached"
	GoalAbandoned   Type = "goal_abandoned"
	AgentStuck      Type = "agent_stuck"
	AgentUnstuck    Type = "agent_unstuck"
	TerrainReloaded Type = "terrain_reloaded"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// SubscriptionID identifies one Subscribe call.
type SubscriptionID uint64

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	ID     SubscriptionID
	Cancel func()
}

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run
// synchronously on the publishing goroutine, which for navigation events is
// the simulation tick.
type Bus struct {
	handlers map[Type][]subscription
	nextID   SubscriptionID
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscription),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})
	return &Subscription{
		ID:     id,
		Cancel: func() { b.Unsubscribe(id) },
	}
}

// Unsubscribe removes a subscription and reports whether it existed.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.handlers {
		for i, s := range subs {
			if s.id != id {
				continue
			}
			rest := make([]subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			rest = append(rest, subs[i+1:]...)
			if len(rest) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = rest
			}
			return true
		}
	}
	return false
}

// SubscriberCount returns the number of handlers for eventType.
func (b *Bus) SubscriberCount(eventType Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	// Unsubscribe replaces the slice, so iterating the snapshot is safe.
	for _, s := range subs {
		s.handler(event)
	}
}

// AgentEvent reports a change in an agent's navigation state.
type AgentEvent struct {
	BaseEvent
	AgentID  uint64
	Position physics.Vector2D
	Goal     physics.Vector2D
}

// NewAgentEvent creates a new agent event
func NewAgentEvent(eventType Type, source interface{}, agentID uint64, pos, goal physics.Vector2D) *AgentEvent {
	return &AgentEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		AgentID:  agentID,
		Position: pos,
		Goal:     goal,
	}
}

// PathEvent reports the outcome of a path request.
type PathEvent struct {
	BaseEvent
	AgentID   uint64
	Goal      physics.Vector2D
	Waypoints int
}

// NewPathEvent creates a PathFound event when waypoints > 0 and a PathFailed
// event otherwise.
func NewPathEvent(source interface{}, agentID uint64, goal physics.Vector2D, waypoints int) *PathEvent {
	eventType := PathFound
	if waypoints == 0 {
		eventType = PathFailed
	}
	return &PathEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		AgentID:   agentID,
		Goal:      goal,
		Waypoints: waypoints,
	}
}

// TerrainEvent reports a terrain rebuild.
type TerrainEvent struct {
	BaseEvent
	Cells int
}

// NewTerrainEvent creates a new terrain event
func NewTerrainEvent(source interface{}, cells int) *TerrainEvent {
	return &TerrainEvent{
		BaseEvent: BaseEvent{
			EventType: TerrainReloaded,
			Source:    source,
		},
		Cells: cells,
	}
}
