// Package engine provides unit tests for simulation.go
package engine

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/go-nbody/pkg/config"
	"github.com/opd-ai/go-nbody/pkg/diagnostics"
	"github.com/opd-ai/go-nbody/pkg/event"
	"github.com/opd-ai/go-nbody/pkg/logging"
	"github.com/opd-ai/go-nbody/pkg/physics"
	"github.com/opd-ai/go-nbody/pkg/validation"
)

func testConfig() *config.SimulationConfig {
	cfg := config.DefaultConfig()
	cfg.Physics.IntegrationStep = 0
	return cfg
}

func newTestSimulation(t testing.TB, cfg *config.SimulationConfig, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewLoggerWithWriter(io.Discard, slog.LevelError))}, opts...)
	sim, err := NewSimulation(cfg, opts...)
	if err != nil {
		t.Fatalf("NewSimulation failed: %v", err)
	}
	return sim
}

func mustSpawn(t testing.TB, sim *Simulation, p SpawnParams) physics.BodyID {
	t.Helper()
	id, err := sim.Spawn(p)
	if err != nil {
		t.Fatalf("Spawn(%+v) failed: %v", p, err)
	}
	return id
}

func TestNewSimulation(t *testing.T) {
	t.Run("nil_config_uses_defaults", func(t *testing.T) {
		sim := newTestSimulation(t, nil)
		if sim.Config.ParticleCount != config.DefaultConfig().ParticleCount {
			t.Errorf("Config = %+v, expected defaults", sim.Config)
		}
		if sim.Len() != 0 || sim.EventBus == nil || sim.Tree() == nil {
			t.Error("simulation not initialised")
		}
	})

	t.Run("invalid_config_rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.ParticleRadius = -1
		if _, err := NewSimulation(cfg); err == nil {
			t.Error("expected an error for a negative radius")
		}
	})
}

func TestSimulation_StartStop_Transitions(t *testing.T) {
	sim := newTestSimulation(t, testConfig())
	var started, stopped int
	sim.EventBus.Subscribe(event.SimulationStarted, func(event.Event) { started++ })
	sim.EventBus.Subscribe(event.SimulationStopped, func(event.Event) { stopped++ })

	sim.Start()
	if !sim.Running() {
		t.Error("simulation did not start")
	}
	if err := sim.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	sim.Stop()

	if sim.Running() {
		t.Error("simulation did not stop")
	}
	if started != 1 || stopped != 1 {
		t.Errorf("started/stopped events = %d/%d, expected 1/1", started, stopped)
	}
}

func TestSimulation_Spawn(t *testing.T) {
	sim := newTestSimulation(t, testConfig())
	var spawned []physics.BodyID
	sim.EventBus.Subscribe(event.BodySpawned, func(e event.Event) {
		spawned = append(spawned, e.(*event.BodyEvent).BodyID)
	})

	tests := []struct {
		name    string
		params  SpawnParams
		wantErr error
	}{
		{"valid", SpawnParams{Position: physics.Vector2D{X: 1}, Mass: 2, Radius: 5}, nil},
		{"hot", SpawnParams{Mass: 1, Radius: 1, Heat: 3}, nil},
		{"zero_mass", SpawnParams{Mass: 0, Radius: 5}, validation.ErrInvalidMass},
		{"zero_radius", SpawnParams{Mass: 2, Radius: 0}, validation.ErrInvalidRadius},
		{"negative_heat", SpawnParams{Mass: 2, Radius: 5, Heat: -1}, validation.ErrInvalidHeat},
		{"nan_velocity", SpawnParams{Velocity: physics.Vector2D{Y: math.NaN()}, Mass: 2, Radius: 5}, validation.ErrNonFiniteVelocity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := sim.Len()
			_, err := sim.Spawn(tt.params)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Spawn() error = %v, want %v", err, tt.wantErr)
				}
				if sim.Len() != before {
					t.Error("rejected body was added")
				}
				return
			}
			if err != nil {
				t.Fatalf("Spawn() error = %v", err)
			}
			if sim.Len() != before+1 {
				t.Errorf("Len() = %d, expected %d", sim.Len(), before+1)
			}
		})
	}

	if len(spawned) != 2 || spawned[0] != 1 || spawned[1] != 2 {
		t.Errorf("spawned IDs = %v, expected [1 2]", spawned)
	}
}

func TestSimulation_Launch(t *testing.T) {
	t.Run("velocity_from_drag", func(t *testing.T) {
		sim := newTestSimulation(t, testConfig())
		start := physics.Vector2D{X: 100, Y: 100}

		id, err := sim.Launch(start, physics.Vector2D{X: 160, Y: 180})
		if err != nil {
			t.Fatalf("Launch() error = %v", err)
		}

		bodies := sim.Bodies()
		if len(bodies) != 1 || bodies[0].ID != id {
			t.Fatalf("Bodies() = %v, expected the launched body", bodies)
		}
		b := bodies[0]
		want := physics.Vector2D{X: 2, Y: 80.0 / 30}
		if b.Velocity.Sub(want).Length() > 1e-12 {
			t.Errorf("Velocity = %v, expected %v", b.Velocity, want)
		}
		if b.Position != start || b.Mass != sim.Config.ParticleMass || b.Radius != sim.Config.ParticleRadius || b.Heat != 0 {
			t.Errorf("unexpected launched body %+v", *b)
		}
	})

	t.Run("short_drag_rejected", func(t *testing.T) {
		sim := newTestSimulation(t, testConfig())
		_, err := sim.Launch(physics.Vector2D{X: 1, Y: 1}, physics.Vector2D{X: 2, Y: 2})
		if !errors.Is(err, validation.ErrDragTooShort) {
			t.Errorf("Launch() error = %v, want %v", err, validation.ErrDragTooShort)
		}
		if sim.Len() != 0 {
			t.Error("short drag spawned a body")
		}
	})

	t.Run("rate_limited", func(t *testing.T) {
		sim := newTestSimulation(t, testConfig(), WithLaunchLimiter(validation.NewRateLimiter(1, time.Hour)))
		if _, err := sim.Launch(physics.Vector2D{}, physics.Vector2D{X: 50}); err != nil {
			t.Fatalf("first Launch() error = %v", err)
		}
		if _, err := sim.Launch(physics.Vector2D{}, physics.Vector2D{X: 50}); !errors.Is(err, validation.ErrRateLimited) {
			t.Errorf("second Launch() error = %v, want %v", err, validation.ErrRateLimited)
		}
	})
}

func TestLaunchVelocity(t *testing.T) {
	tests := []struct {
		name       string
		start, end physics.Vector2D
		expected   physics.Vector2D
	}{
		{"right", physics.Vector2D{}, physics.Vector2D{X: 30}, physics.Vector2D{X: 1}},
		{"left", physics.Vector2D{X: 60, Y: 60}, physics.Vector2D{Y: 60}, physics.Vector2D{X: -2}},
		{"diagonal", physics.Vector2D{}, physics.Vector2D{X: 90, Y: 120}, physics.Vector2D{X: 3, Y: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LaunchVelocity(tt.start, tt.end); got.Sub(tt.expected).Length() > 1e-12 {
				t.Errorf("LaunchVelocity() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestSimulation_Tick_HeatDecay(t *testing.T) {
	tests := []struct {
		name string
		dt   float64
	}{
		{"sixtieth", 1.0 / 60},
		{"one_second", 1},
		{"zero", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSimulation(t, testConfig())
			heat := 10.0
			mustSpawn(t, sim, SpawnParams{Mass: 2, Radius: 5, Heat: heat})

			sim.Tick(tt.dt)

			if got, want := sim.Snapshot()[0].Heat, heat*physics.DefaultHeatRetention; got != want {
				t.Errorf("Heat = %v, expected %v", got, want)
			}
		})
	}
}

func TestSimulation_Tick_IntegrationStep(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.IntegrationStep = 1
	sim := newTestSimulation(t, cfg)
	mustSpawn(t, sim, SpawnParams{Velocity: physics.Vector2D{X: 0.5}, Mass: 2, Radius: 5})

	sim.Tick(0.016)

	if got := sim.Snapshot()[0].Position; got != (physics.Vector2D{X: 0.5}) {
		t.Errorf("Position = %v, expected a whole-velocity step", got)
	}
}

func TestSimulation_Tick_RestingPairStaysPut(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.G = 0
	sim := newTestSimulation(t, cfg)
	a := physics.Vector2D{X: 100, Y: 100}
	b := physics.Vector2D{X: 110 + 1e-6, Y: 100}
	mustSpawn(t, sim, SpawnParams{Position: a, Mass: 2, Radius: 5})
	mustSpawn(t, sim, SpawnParams{Position: b, Mass: 2, Radius: 5})

	for i := 0; i < 1000; i++ {
		sim.Tick(1.0 / 60)
		if c := sim.Stats().Contacts; c != 0 {
			t.Fatalf("step %d: %d contacts, expected none", i, c)
		}
	}

	snap := sim.Snapshot()
	if snap[0].Position != a || snap[1].Position != b {
		t.Errorf("positions moved to %v and %v", snap[0].Position, snap[1].Position)
	}
}

func TestSimulation_Tick_CollisionEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.G = 0
	sim := newTestSimulation(t, cfg)
	mustSpawn(t, sim, SpawnParams{Position: physics.Vector2D{X: 100}, Velocity: physics.Vector2D{X: 1}, Mass: 2, Radius: 5})
	mustSpawn(t, sim, SpawnParams{Position: physics.Vector2D{X: 108}, Velocity: physics.Vector2D{X: -1}, Mass: 2, Radius: 5})

	var collisions []*event.CollisionEvent
	sim.EventBus.Subscribe(event.BodiesCollided, func(e event.Event) {
		collisions = append(collisions, e.(*event.CollisionEvent))
	})

	// dt 0 keeps the pair where it was spawned for this step.
	sim.Tick(0)

	if len(collisions) != 2 {
		t.Fatalf("got %d collision events, expected 2", len(collisions))
	}
	if collisions[0].Depth != 2 {
		t.Errorf("Depth = %v, expected 2", collisions[0].Depth)
	}
	snap := sim.Snapshot()
	if gap := snap[1].Position.X - snap[0].Position.X; math.Abs(gap-10) > 1e-9 {
		t.Errorf("separation after resolution = %v, expected 10", gap)
	}
}

func TestSimulation_Tick_RemovesBodiesOutsideDomain(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.G = 0
	cfg.Domain = physics.Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	sim := newTestSimulation(t, cfg)

	leaving := mustSpawn(t, sim, SpawnParams{Position: physics.Vector2D{X: 99, Y: 50}, Velocity: physics.Vector2D{X: 5}, Mass: 2, Radius: 1})
	mustSpawn(t, sim, SpawnParams{Position: physics.Vector2D{X: 50, Y: 50}, Mass: 2, Radius: 1})

	var removed []physics.BodyID
	sim.EventBus.Subscribe(event.BodyRemoved, func(e event.Event) {
		removed = append(removed, e.(*event.BodyEvent).BodyID)
		// Handlers may call back into the simulation.
		_ = sim.Len()
	})

	sim.Tick(1)

	if sim.Len() != 1 || sim.Stats().Removed != 1 {
		t.Fatalf("Len/Removed = %d/%d, expected 1/1", sim.Len(), sim.Stats().Removed)
	}
	if len(removed) != 1 || removed[0] != leaving {
		t.Errorf("removed = %v, expected [%d]", removed, leaving)
	}

	for i := 0; i < 50; i++ {
		sim.Tick(1)
		for _, s := range sim.Snapshot() {
			if s.ID == leaving {
				t.Fatalf("removed body reappeared at step %d", i)
			}
		}
	}
	if len(removed) != 1 {
		t.Errorf("removal reported %d times, expected once", len(removed))
	}
}

func TestSimulation_Tick_EmptySimulation(t *testing.T) {
	sim := newTestSimulation(t, testConfig())
	steps := 0
	sim.EventBus.Subscribe(event.StepCompleted, func(event.Event) { steps++ })

	for i := 0; i < 3; i++ {
		sim.Tick(1.0 / 60)
	}

	stats := sim.Stats()
	if stats.Step != 3 || stats.Bodies != 0 || stats.Contacts != 0 {
		t.Errorf("Stats() = %+v, expected three empty steps", stats)
	}
	if steps != 3 {
		t.Errorf("StepCompleted published %d times, expected 3", steps)
	}
}

func TestSimulation_Tick_OrbitConservation(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.G = 1
	cfg.Domain = physics.Bounds{MinX: -1e4, MinY: -1e4, MaxX: 1e4, MaxY: 1e4}
	sim := newTestSimulation(t, cfg)

	const (
		bigMass   = 1000.0
		smallMass = 1.0
		radius    = 100.0
		dt        = 0.01
	)
	speed := math.Sqrt(cfg.Physics.G * bigMass / radius)
	mustSpawn(t, sim, SpawnParams{Velocity: physics.Vector2D{Y: -speed * smallMass / bigMass}, Mass: bigMass, Radius: 10})
	mustSpawn(t, sim, SpawnParams{Position: physics.Vector2D{X: radius}, Velocity: physics.Vector2D{Y: speed}, Mass: smallMass, Radius: 1})

	measure := func() (energy, angular float64) {
		bodies := sim.Bodies()
		return diagnostics.MechanicalEnergy(bodies, cfg.Physics.G),
			diagnostics.AngularMomentum(bodies, diagnostics.CenterOfMass(bodies))
	}
	energy0, angular0 := measure()

	// Roughly one full revolution.
	for i := 0; i < 20000; i++ {
		sim.Tick(dt)
	}

	energy, angular := measure()
	if sim.Len() != 2 {
		t.Fatalf("Len() = %d, expected both bodies to remain", sim.Len())
	}
	if drift := diagnostics.RelativeDrift(energy0, energy); drift > 0.01 {
		t.Errorf("energy drifted by %.4f%% (%v -> %v)", drift*100, energy0, energy)
	}
	if drift := diagnostics.RelativeDrift(angular0, angular); drift > 0.01 {
		t.Errorf("angular momentum drifted by %.4f%% (%v -> %v)", drift*100, angular0, angular)
	}
}

func TestSimulation_WorkersMatchSequential(t *testing.T) {
	run := func(workers int) []BodyState {
		cfg := testConfig()
		cfg.ParticleCount = 200
		cfg.SpawnExtent = 300
		cfg.InitialSpeed = 0.5
		cfg.Workers = workers
		sim := newTestSimulation(t, cfg)
		if err := sim.Seed(NewRand(21)); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
		for i := 0; i < 30; i++ {
			sim.Tick(1.0 / 60)
		}
		return sim.Snapshot()
	}

	sequential, parallel := run(1), run(4)
	if len(sequential) != len(parallel) {
		t.Fatalf("body counts differ: %d vs %d", len(sequential), len(parallel))
	}
	for i := range sequential {
		if sequential[i] != parallel[i] {
			t.Fatalf("body %d differs: %+v vs %+v", i, sequential[i], parallel[i])
		}
	}
}

func TestSimulation_Seed(t *testing.T) {
	cfg := testConfig()
	cfg.ParticleCount = 50
	cfg.InitialSpeed = 0.25

	sim := newTestSimulation(t, cfg)
	if err := sim.Seed(NewRand(7)); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if sim.Len() != 50 {
		t.Fatalf("Len() = %d, expected 50", sim.Len())
	}

	limit := cfg.SpawnExtent - cfg.ParticleRadius
	for _, b := range sim.Bodies() {
		p, v := b.Position, b.Velocity
		if p.X < 0 || p.X > limit || p.Y < 0 || p.Y > limit {
			t.Errorf("body %d spawned outside the spawn area at %v", b.ID, p)
		}
		if math.Abs(v.X) > cfg.InitialSpeed || math.Abs(v.Y) > cfg.InitialSpeed {
			t.Errorf("body %d spawned too fast: %v", b.ID, v)
		}
		if b.Mass != cfg.ParticleMass || b.Radius != cfg.ParticleRadius || b.Heat != 0 {
			t.Errorf("body %d has unexpected properties %+v", b.ID, *b)
		}
	}

	again := newTestSimulation(t, cfg)
	if err := again.Seed(NewRand(7)); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	first, second := sim.Snapshot(), again.Snapshot()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("seeding is not reproducible at body %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSimulation_TreeCenterFollowsConfig(t *testing.T) {
	tests := []struct {
		name         string
		massWeighted bool
		expected     physics.Vector2D
	}{
		{"mean_position", false, physics.Vector2D{X: 5, Y: 0}},
		{"center_of_mass", true, physics.Vector2D{X: 9, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Tree.MassWeightedCenter = tt.massWeighted
			sim := newTestSimulation(t, cfg)
			mustSpawn(t, sim, SpawnParams{Position: physics.Vector2D{X: 0, Y: 0}, Mass: 1, Radius: 1})
			mustSpawn(t, sim, SpawnParams{Position: physics.Vector2D{X: 10, Y: 0}, Mass: 9, Radius: 1})

			sim.Tick(0)

			if got := sim.Tree().Center(0); got.Sub(tt.expected).Length() > 1e-12 {
				t.Errorf("root Center() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestSimulation_SnapshotAndBodiesAreCopies(t *testing.T) {
	sim := newTestSimulation(t, testConfig())
	id := mustSpawn(t, sim, SpawnParams{Position: physics.Vector2D{X: 3, Y: 4}, Mass: 2, Radius: 5, Heat: 1})

	snap := sim.Snapshot()
	want := BodyState{ID: id, Position: physics.Vector2D{X: 3, Y: 4}, Radius: 5, Heat: 1}
	if len(snap) != 1 || snap[0] != want {
		t.Fatalf("Snapshot() = %+v, expected [%+v]", snap, want)
	}

	bodies := sim.Bodies()
	bodies[0].Position = physics.Vector2D{X: 999}
	if sim.Snapshot()[0].Position != want.Position {
		t.Error("mutating Bodies() result changed the simulation")
	}
}

func TestSimulation_ConcurrentAccess(t *testing.T) {
	cfg := testConfig()
	cfg.ParticleCount = 100
	sim := newTestSimulation(t, cfg)
	if err := sim.Seed(NewRand(3)); err != nil {
		t.Fatal(err)
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
				sim.Tick(1.0 / 60)
			}
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				pos := physics.Vector2D{X: float64(10 * i), Y: float64(10 * j)}
				if _, err := sim.Spawn(SpawnParams{Position: pos, Mass: 2, Radius: 5}); err != nil {
					t.Errorf("Spawn failed: %v", err)
				}
				_ = sim.Snapshot()
				_ = sim.Stats()
			}
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(done)
	wg.Wait()

	if sim.Len() == 0 {
		t.Error("all bodies disappeared")
	}
}

func BenchmarkSimulation_Tick(b *testing.B) {
	cfg := testConfig()
	cfg.ParticleCount = 1000
	sim := newTestSimulation(b, cfg)
	if err := sim.Seed(NewRand(1)); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sim.Tick(1.0 / 60)
	}
}
