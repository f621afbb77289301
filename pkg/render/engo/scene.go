// pkg/render/engo/scene.go
package engo

import (
	"context"
	"image/color"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-nbody/pkg/engine"
	"github.com/opd-ai/go-nbody/pkg/logging"
	"github.com/opd-ai/go-nbody/pkg/render"
)

// SimulationScene shows a running simulation and launches bodies on drag
type SimulationScene struct {
	sim      *engine.Simulation
	maxDelta time.Duration
	logger   *logging.Logger

	renderer *EngoRenderer
	stepper  *StepSystem
	input    *LaunchSystem
}

// NewSimulationScene creates a scene for sim whose steps never exceed maxDelta
func NewSimulationScene(sim *engine.Simulation, maxDelta time.Duration, logger *logging.Logger) *SimulationScene {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &SimulationScene{
		sim:      sim,
		maxDelta: maxDelta,
		logger:   logger.Component("scene"),
	}
}

// Type returns the scene type (required by Engo)
func (scene *SimulationScene) Type() string {
	return "SimulationScene"
}

// Preload is called before the scene starts (required by Engo)
func (scene *SimulationScene) Preload() {}

// Setup is called when the scene starts (required by Engo)
func (scene *SimulationScene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)
	common.SetBackground(color.Black)

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)

	scene.renderer = NewEngoRenderer(renderSystem)
	scene.stepper = NewStepSystem(scene.sim, scene.renderer, engine.NewFrameClock(scene.maxDelta))
	scene.input = NewLaunchSystem(scene.sim, scene.logger)
	world.AddSystem(scene.stepper)
	world.AddSystem(scene.input)

	scene.sim.Start()
	scene.logger.Info(context.Background(), "scene started", "bodies", scene.sim.Len())
}

// Exit is called when the scene is exiting (required by Engo)
func (scene *SimulationScene) Exit() {
	scene.sim.Stop()
}

// StepSystem advances the simulation once per frame and redraws it
type StepSystem struct {
	sim      *engine.Simulation
	renderer render.Renderer
	clock    *engine.FrameClock
}

// NewStepSystem creates a system stepping sim by clock and drawing into renderer
func NewStepSystem(sim *engine.Simulation, renderer render.Renderer, clock *engine.FrameClock) *StepSystem {
	return &StepSystem{sim: sim, renderer: renderer, clock: clock}
}

// Remove satisfies the ecs.System interface
func (s *StepSystem) Remove(basic ecs.BasicEntity) {}

// Update ticks the simulation and draws the resulting snapshot. The frame
// time Engo reports is ignored in favor of the capped frame clock.
func (s *StepSystem) Update(dt float32) {
	s.sim.Tick(s.clock.Delta())
	render.Frame(s.renderer, s.sim.Snapshot())
}
