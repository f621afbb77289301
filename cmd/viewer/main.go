// cmd/viewer/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-nbody/pkg/config"
	"github.com/opd-ai/go-nbody/pkg/engine"
	"github.com/opd-ai/go-nbody/pkg/logging"
	engorender "github.com/opd-ai/go-nbody/pkg/render/engo"
	"github.com/opd-ai/go-nbody/pkg/validation"
)

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithRunID(context.Background(), logging.GenerateRunID())

	configPath := flag.String("config", "config.json", "Path to configuration file")
	fullscreen := flag.Bool("fullscreen", false, "Run in fullscreen mode")
	width := flag.Int("width", 800, "Window width")
	height := flag.Int("height", 800, "Window height")
	launchRate := flag.Int("launch-rate", 10, "Maximum launches per second")
	flag.Parse()

	var simConfig *config.SimulationConfig
	if _, err := os.Stat(*configPath); errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", *configPath,
		)
		simConfig = config.DefaultConfig()
	} else {
		simConfig, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
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

	sim, err := engine.NewSimulation(simConfig,
		engine.WithLogger(logger),
		engine.WithContext(ctx),
		engine.WithLaunchLimiter(validation.NewRateLimiter(*launchRate, time.Second)),
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

	scene := engorender.NewSimulationScene(sim, envConfig.MaxDelta, logger)

	engo.Run(engo.RunOptions{
		Title:      "N-Body",
		Width:      *width,
		Height:     *height,
		Fullscreen: *fullscreen,
		VSync:      true,
	}, scene)
}
