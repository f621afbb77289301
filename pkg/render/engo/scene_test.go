// pkg/render/engo/scene_test.go
package engo

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/opd-ai/go-nbody/pkg/engine"
	"github.com/opd-ai/go-nbody/pkg/logging"
	"github.com/opd-ai/go-nbody/pkg/physics"
)

func newTestSimulation(t *testing.T) *engine.Simulation {
	t.Helper()
	logger := logging.NewLoggerWithWriter(&bytes.Buffer{}, slog.LevelError)
	sim, err := engine.NewSimulation(nil, engine.WithLogger(logger))
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	return sim
}

func TestSimulationScene_Type(t *testing.T) {
	scene := NewSimulationScene(newTestSimulation(t), 100*time.Millisecond, nil)

	if got := scene.Type(); got != "SimulationScene" {
		t.Errorf("Expected Type() to return %q, got %q", "SimulationScene", got)
	}
}

func TestStepSystem_Update(t *testing.T) {
	sim := newTestSimulation(t)
	for i := 0; i < 3; i++ {
		_, err := sim.Spawn(engine.SpawnParams{
			Position: physics.Vector2D{X: float64(i) * 50, Y: 0},
			Mass:     2,
			Radius:   5,
		})
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}

	sys := newFakeSystem()
	r := NewEngoRenderer(sys)
	stepper := NewStepSystem(sim, r, engine.NewFrameClock(100*time.Millisecond))

	stepper.Update(1.0 / 60)
	stepper.Update(1.0 / 60)

	if got := sim.Stats().Step; got != 2 {
		t.Errorf("expected 2 steps, got %d", got)
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 drawn bodies, got %d", r.Len())
	}
}
