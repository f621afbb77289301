// pkg/event/event.go
package event

import (
	"sync"
	"time"

	"github.com/opd-ai/go-nbody/pkg/physics"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	BodySpawned       Type = "body_spawned"
	BodyRemoved       Type = "body_removed"
	BodiesCollided    Type = "bodies_collided"
	StepCompleted     Type = "step_completed"
	SimulationStarted Type = "simulation_started"
	SimulationStopped Type = "simulation_stopped"
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

// Subscription identifies a registered handler. Cancel removes it; calling
// Cancel more than once is harmless.
type Subscription struct {
	ID     uint64
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run
// synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			// Copy so that a Publish iterating the old slice is unaffected.
			kept := make([]subscriber, 0, len(subs)-1)
			kept = append(kept, subs[:i]...)
			b.handlers[eventType] = append(kept, subs[i+1:]...)
			return
		}
	}
}

// HasSubscribers reports whether any handler is registered for eventType.
func (b *Bus) HasSubscribers(eventType Type) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType]) > 0
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// BodyEvent is published when a body enters or leaves the simulation
type BodyEvent struct {
	BaseEvent
	BodyID   physics.BodyID
	Position physics.Vector2D
}

// NewBodyEvent creates a new body event
func NewBodyEvent(eventType Type, source interface{}, id physics.BodyID, position physics.Vector2D) *BodyEvent {
	return &BodyEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		BodyID:   id,
		Position: position,
	}
}

// CollisionEvent reports one resolved overlap
type CollisionEvent struct {
	BaseEvent
	BodyA physics.BodyID
	BodyB physics.BodyID
	Depth float64
}

// NewCollisionEvent creates a new collision event
func NewCollisionEvent(source interface{}, a, b physics.BodyID, depth float64) *CollisionEvent {
	return &CollisionEvent{
		BaseEvent: BaseEvent{
			EventType: BodiesCollided,
			Source:    source,
		},
		BodyA: a,
		BodyB: b,
		Depth: depth,
	}
}

// StepEvent summarises one completed simulation step
type StepEvent struct {
	BaseEvent
	Step     uint64
	Bodies   int
	Removed  int
	Contacts int
	Nodes    int
	Duration time.Duration
}

// NewStepEvent creates a new step event
func NewStepEvent(source interface{}, step uint64, bodies, removed, contacts, nodes int, duration time.Duration) *StepEvent {
	return &StepEvent{
		BaseEvent: BaseEvent{
			EventType: StepCompleted,
			Source:    source,
		},
		Step:     step,
		Bodies:   bodies,
		Removed:  removed,
		Contacts: contacts,
		Nodes:    nodes,
		Duration: duration,
	}
}
