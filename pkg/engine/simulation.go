// pkg/engine/simulation.go
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/go-nbody/pkg/collision"
	"github.com/opd-ai/go-nbody/pkg/config"
	"github.com/opd-ai/go-nbody/pkg/event"
	"github.com/opd-ai/go-nbody/pkg/gravity"
	"github.com/opd-ai/go-nbody/pkg/logging"
	"github.com/opd-ai/go-nbody/pkg/physics"
	"github.com/opd-ai/go-nbody/pkg/quadtree"
	"github.com/opd-ai/go-nbody/pkg/validation"
)

// LaunchScale divides the drag length to give the launch speed.
const LaunchScale = 30.0

// SpawnParams describes a body to add to the simulation
type SpawnParams struct {
	Position physics.Vector2D
	Velocity physics.Vector2D
	Mass     float64
	Radius   float64
	Heat     float64
}

// BodyState is the read-only view of a body handed to renderers
type BodyState struct {
	ID       physics.BodyID
	Position physics.Vector2D
	Radius   float64
	Heat     float64
}

// Stats describes the most recent step
type Stats struct {
	Step     uint64
	Bodies   int
	Removed  int
	Contacts int
	Nodes    int
	Duration time.Duration
}

// Option configures a Simulation
type Option func(*Simulation)

// WithLogger sets the logger used by the simulation
func WithLogger(logger *logging.Logger) Option {
	return func(s *Simulation) { s.logger = logger }
}

// WithEventBus publishes simulation events on bus instead of a private bus
func WithEventBus(bus *event.Bus) Option {
	return func(s *Simulation) { s.EventBus = bus }
}

// WithContext sets the context carried into log records, typically holding
// a run ID
func WithContext(ctx context.Context) Option {
	return func(s *Simulation) { s.ctx = ctx }
}

// WithLaunchLimiter rate-limits Launch calls
func WithLaunchLimiter(limiter *validation.RateLimiter) Option {
	return func(s *Simulation) { s.limiter = limiter }
}

// Simulation owns the active body set and advances it one frame at a time.
// All methods are safe for concurrent use; event handlers run after the
// simulation lock is released and may call back into the simulation.
type Simulation struct {
	Config   *config.SimulationConfig
	EventBus *event.Bus

	mu        sync.RWMutex
	bodies    []*physics.Body
	nextID    physics.BodyID
	tree      *quadtree.Tree
	gravity   *gravity.Engine
	collision *collision.Engine
	stats     Stats
	running   bool

	logger  *logging.Logger
	ctx     context.Context
	limiter *validation.RateLimiter
}

// NewSimulation creates an empty simulation. A nil config uses the defaults.
func NewSimulation(cfg *config.SimulationConfig, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, logging.WrapError(err, "invalid simulation config")
	}

	s := &Simulation{
		Config:   cfg,
		EventBus: event.NewEventBus(),
		nextID:   1,
		tree: quadtree.New(quadtree.Options{
			MaxDepth:           cfg.Tree.MaxDepth,
			MinWidth:           cfg.Tree.MinWidth,
			CoincidenceEpsilon: cfg.Tree.CoincidenceEpsilon,
			MassWeightedCenter: cfg.Tree.MassWeightedCenter,
		}),
		gravity: &gravity.Engine{
			G:                cfg.Physics.G,
			Theta:            cfg.Physics.Theta,
			CloseRangeFactor: cfg.Physics.CloseRangeFactor,
			Workers:          cfg.Workers,
		},
		collision: &collision.Engine{
			Restitution: cfg.Physics.Restitution,
			HeatGain:    cfg.Physics.HeatGain,
			Workers:     cfg.Workers,
		},
		ctx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger()
	}
	s.logger = s.logger.Component("simulation")

	return s, nil
}

// Start marks the simulation as running
func (s *Simulation) Start() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info(s.ctx, "simulation started", "bodies", s.Len())
	s.EventBus.Publish(&event.BaseEvent{EventType: event.SimulationStarted, Source: s})
}

// Stop marks the simulation as stopped
func (s *Simulation) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	if !wasRunning {
		return
	}
	s.logger.Info(s.ctx, "simulation stopped", "steps", s.Stats().Step)
	s.EventBus.Publish(&event.BaseEvent{EventType: event.SimulationStopped, Source: s})
}

// Running reports whether Start has been called without a matching Stop
func (s *Simulation) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Close stops the simulation. State is purely in memory, so there is
// nothing else to release.
func (s *Simulation) Close() error {
	s.Stop()
	return nil
}

// Spawn validates p and adds a new body, returning its ID
func (s *Simulation) Spawn(p SpawnParams) (physics.BodyID, error) {
	if err := validation.ValidateSpawn(p.Position, p.Velocity, p.Mass, p.Radius, p.Heat); err != nil {
		return 0, fmt.Errorf("spawn rejected: %w", err)
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.bodies = append(s.bodies, physics.NewBody(id, p.Position, p.Velocity, p.Mass, p.Radius, p.Heat))
	s.mu.Unlock()

	s.EventBus.Publish(event.NewBodyEvent(event.BodySpawned, s, id, p.Position))
	return id, nil
}

// Launch spawns a default body at start moving along the drag towards end,
// with speed proportional to the drag length
func (s *Simulation) Launch(start, end physics.Vector2D) (physics.BodyID, error) {
	if err := validation.ValidateLaunch(start, end); err != nil {
		return 0, err
	}
	if s.limiter != nil && !s.limiter.Allow("launch") {
		return 0, validation.ErrRateLimited
	}

	return s.Spawn(SpawnParams{
		Position: start,
		Velocity: LaunchVelocity(start, end),
		Mass:     s.Config.ParticleMass,
		Radius:   s.Config.ParticleRadius,
	})
}

// LaunchVelocity converts a drag into a launch velocity
func LaunchVelocity(start, end physics.Vector2D) physics.Vector2D {
	drag := end.Sub(start)
	return drag.Normalize().Scale(drag.Length() / LaunchScale)
}

// Tick advances the simulation by dt seconds: integrate, rebuild the tree,
// apply gravity, resolve collisions, then drop bodies outside the domain.
// Dropped bodies still took part in this step.
func (s *Simulation) Tick(dt float64) {
	s.mu.Lock()
	events := s.step(dt)
	s.mu.Unlock()

	for _, e := range events {
		s.EventBus.Publish(e)
	}
}

func (s *Simulation) step(dt float64) []event.Event {
	started := time.Now()

	advance := s.Config.Physics.IntegrationStep
	if advance == 0 {
		advance = dt
	}
	for _, b := range s.bodies {
		b.Integrate(advance, s.Config.Physics.HeatRetention)
	}

	s.tree.Build(s.bodies)
	s.gravity.Apply(s.tree, s.bodies, dt)
	contacts := s.collision.Resolve(s.tree, s.bodies)

	var events []event.Event
	if s.EventBus.HasSubscribers(event.BodiesCollided) {
		for _, c := range contacts {
			events = append(events, event.NewCollisionEvent(s, c.A, c.B, c.Depth))
		}
	}

	kept := s.bodies[:0]
	removed := 0
	for _, b := range s.bodies {
		if s.Config.Domain.Contains(b.Position) {
			kept = append(kept, b)
			continue
		}
		removed++
		events = append(events, event.NewBodyEvent(event.BodyRemoved, s, b.ID, b.Position))
	}
	for i := len(kept); i < len(s.bodies); i++ {
		s.bodies[i] = nil
	}
	s.bodies = kept

	s.stats = Stats{
		Step:     s.stats.Step + 1,
		Bodies:   len(s.bodies),
		Removed:  removed,
		Contacts: len(contacts),
		Nodes:    s.tree.Len(),
		Duration: time.Since(started),
	}
	if removed > 0 {
		s.logger.Debug(s.ctx, "bodies left the domain", "step", s.stats.Step, "removed", removed)
	}

	st := s.stats
	return append(events, event.NewStepEvent(s, st.Step, st.Bodies, st.Removed, st.Contacts, st.Nodes, st.Duration))
}

// Snapshot returns the render view of every active body
func (s *Simulation) Snapshot() []BodyState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]BodyState, len(s.bodies))
	for i, b := range s.bodies {
		states[i] = BodyState{ID: b.ID, Position: b.Position, Radius: b.Radius, Heat: b.Heat}
	}
	return states
}

// Bodies returns copies of the active bodies
func (s *Simulation) Bodies() []*physics.Body {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copies := make([]*physics.Body, len(s.bodies))
	for i, b := range s.bodies {
		c := *b
		copies[i] = &c
	}
	return copies
}

// Len returns the number of active bodies
func (s *Simulation) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bodies)
}

// Stats returns the counters of the last step
func (s *Simulation) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Tree returns the quadtree of the last step. It is rebuilt by every Tick
// and must not be read concurrently with one.
func (s *Simulation) Tree() *quadtree.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}
