// cmd/headless/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-nbody/pkg/config"
	"github.com/opd-ai/go-nbody/pkg/diagnostics"
	"github.com/opd-ai/go-nbody/pkg/engine"
	"github.com/opd-ai/go-nbody/pkg/event"
	"github.com/opd-ai/go-nbody/pkg/health"
	"github.com/opd-ai/go-nbody/pkg/logging"
	"github.com/opd-ai/go-nbody/pkg/physics"
	"github.com/opd-ai/go-nbody/pkg/render"
)

func main() {
	// Frames go to stdout, so logs must not share it.
	logger := logging.NewEnvLogger(os.Stderr)
	ctx := logging.WithRunID(context.Background(), logging.GenerateRunID())

	configPath := flag.String("config", "config.json", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	width := flag.Int("width", 80, "Terminal grid width")
	height := flag.Int("height", 40, "Terminal grid height")
	scale := flag.Float64("scale", 20, "World units per terminal cell")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	simConfig, err := loadConfig(ctx, logger, *configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		os.Exit(1)
	}

	envConfig, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Failed to load environment configuration", err)
		os.Exit(1)
	}
	envConfig.Apply(simConfig)
	if simConfig.Seed == 0 {
		simConfig.Seed = uint64(time.Now().UnixNano())
	}
	if err := simConfig.Validate(); err != nil {
		logger.Error(ctx, "Invalid configuration", err)
		os.Exit(1)
	}

	sim, err := engine.NewSimulation(simConfig,
		engine.WithLogger(logger),
		engine.WithContext(ctx),
	)
	if err != nil {
		logger.Error(ctx, "Failed to create simulation", err)
		os.Exit(1)
	}
	defer sim.Close()

	if err := sim.Seed(engine.NewRand(simConfig.Seed)); err != nil {
		logger.Error(ctx, "Failed to seed simulation", err)
		os.Exit(1)
	}

	sim.EventBus.Subscribe(event.BodyRemoved, func(e event.Event) {
		if be, ok := e.(*event.BodyEvent); ok {
			logger.Debug(ctx, "Body left the domain", "body_id", be.BodyID, "x", be.Position.X, "y", be.Position.Y)
		}
	})

	var healthServer *http.Server
	if envConfig.HealthAddr != "" {
		healthServer = startHealthServer(ctx, logger, envConfig, sim)
	}

	renderer := newRenderer(envConfig.Renderer, logger, os.Stdout, *width, *height, *scale)
	if tr, ok := renderer.(*render.TerminalRenderer); ok {
		half := simConfig.SpawnExtent / 2
		tr.SetCenter(physics.Vector2D{X: half, Y: half})
	}

	initial := diagnostics.Measure(sim.Bodies(), simConfig.Physics.G)
	logger.Info(ctx, "Starting simulation",
		"bodies", initial.Bodies,
		"seed", simConfig.Seed,
		"workers", simConfig.Workers,
		"frame_rate", envConfig.FrameRate,
		"max_steps", envConfig.MaxSteps,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	run(ctx, sim, renderer, envConfig, sigChan)

	final := diagnostics.Measure(sim.Bodies(), simConfig.Physics.G)
	logger.Info(ctx, "Simulation finished",
		"steps", sim.Stats().Step,
		"bodies", final.Bodies,
		"energy_drift", diagnostics.RelativeDrift(initial.Mechanical, final.Mechanical),
		"mean_heat", final.MeanHeat,
		"max_heat", final.MaxHeat,
	)

	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Health check server shutdown failed", err)
		}
	}
}

// run steps the simulation once per frame until MaxSteps is reached or a
// signal arrives.
func run(ctx context.Context, sim *engine.Simulation, renderer render.Renderer, env *config.EnvironmentConfig, stop <-chan os.Signal) {
	clock := engine.NewFrameClock(env.MaxDelta)
	ticker := time.NewTicker(env.FrameInterval())
	defer ticker.Stop()

	sim.Start()
	defer sim.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		sim.Tick(clock.Delta())
		stats := sim.Stats()
		if tr, ok := renderer.(*render.TerminalRenderer); ok {
			tr.SetStatus(fmt.Sprintf("step %d  bodies %d  contacts %d  nodes %d  %v",
				stats.Step, stats.Bodies, stats.Contacts, stats.Nodes, stats.Duration))
		}
		render.Frame(renderer, sim.Snapshot())

		if env.MaxSteps > 0 && stats.Step >= uint64(env.MaxSteps) {
			return
		}
	}
}

func loadConfig(ctx context.Context, logger *logging.Logger, path string) (*config.SimulationConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

func newRenderer(name string, logger *logging.Logger, out io.Writer, width, height int, scale float64) render.Renderer {
	if name == config.RendererNull {
		return render.NewNullRenderer(logger)
	}
	return render.NewTerminalRenderer(out, width, height, scale)
}

func startHealthServer(ctx context.Context, logger *logging.Logger, env *config.EnvironmentConfig, sim *engine.Simulation) *http.Server {
	checker := health.NewHealthChecker()
	checker.AddCheck(health.NewSimulationHealthCheck(sim, 10*env.MaxDelta+5*time.Second))
	checker.AddCheck(health.NewMemoryHealthCheck(int64(env.MaxMemoryMB), health.HeapAllocMB))

	server := &http.Server{
		Addr:         env.HealthAddr,
		Handler:      checker.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx, "Starting health check server", "address", env.HealthAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Health check server failed", err)
		}
	}()
	return server
}
