// pkg/config/env.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Renderer names accepted in NBODY_RENDERER.
const (
	RendererTerminal = "terminal"
	RendererNull     = "null"
)

// EnvironmentConfig holds the runtime settings read from NBODY_* variables.
type EnvironmentConfig struct {
	FrameRate   int
	MaxDelta    time.Duration
	Renderer    string
	MaxSteps    int
	HealthAddr  string
	MaxMemoryMB int

	// Overrides applied to a SimulationConfig. Zero or nil means unset.
	Workers int
	Seed    uint64
	Theta   *float64
	G       *float64
}

// ValidationError reports a single invalid configuration field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// LoadConfigFromEnv reads and validates the environment configuration.
// Malformed values fall back to their defaults.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	config := &EnvironmentConfig{
		FrameRate:   getEnvAsIntOrDefault("NBODY_FRAME_RATE", 60),
		MaxDelta:    getEnvAsDurationOrDefault("NBODY_MAX_DELTA", 100*time.Millisecond),
		Renderer:    getEnvOrDefault("NBODY_RENDERER", RendererTerminal),
		MaxSteps:    getEnvAsIntOrDefault("NBODY_MAX_STEPS", 0),
		HealthAddr:  getEnvOrDefault("NBODY_HEALTH_ADDR", ""),
		MaxMemoryMB: getEnvAsIntOrDefault("NBODY_MAX_MEMORY_MB", 500),
		Workers:     getEnvAsIntOrDefault("NBODY_WORKERS", 0),
		Seed:        getEnvAsUintOrDefault("NBODY_SEED", 0),
		Theta:       getEnvAsFloatPtr("NBODY_THETA"),
		G:           getEnvAsFloatPtr("NBODY_G"),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, fmt.Errorf("environment configuration validation failed: %w", err)
	}
	return config, nil
}

func validateEnvironmentConfig(config *EnvironmentConfig) error {
	if config.FrameRate < 1 || config.FrameRate > 1000 {
		return &ValidationError{Field: "FrameRate", Value: config.FrameRate, Message: "must be between 1 and 1000"}
	}
	if config.MaxDelta <= 0 {
		return &ValidationError{Field: "MaxDelta", Value: config.MaxDelta, Message: "must be positive"}
	}
	if config.Renderer != RendererTerminal && config.Renderer != RendererNull {
		return &ValidationError{Field: "Renderer", Value: config.Renderer, Message: "must be terminal or null"}
	}
	if config.MaxSteps < 0 {
		return &ValidationError{Field: "MaxSteps", Value: config.MaxSteps, Message: "must not be negative"}
	}
	if config.MaxMemoryMB < 1 {
		return &ValidationError{Field: "MaxMemoryMB", Value: config.MaxMemoryMB, Message: "must be at least 1"}
	}
	if config.Workers < 0 {
		return &ValidationError{Field: "Workers", Value: config.Workers, Message: "must not be negative"}
	}
	if config.Theta != nil && !nonNegative(*config.Theta) {
		return &ValidationError{Field: "Theta", Value: *config.Theta, Message: "must not be negative"}
	}
	if config.G != nil && !nonNegative(*config.G) {
		return &ValidationError{Field: "G", Value: *config.G, Message: "must not be negative"}
	}
	return nil
}

// ApplyEnvironmentOverrides applies NBODY_* overrides to config and
// validates the result.
func ApplyEnvironmentOverrides(config *SimulationConfig) error {
	env, err := LoadConfigFromEnv()
	if err != nil {
		return err
	}
	env.Apply(config)
	return config.Validate()
}

// Apply copies the set overrides into config.
func (e *EnvironmentConfig) Apply(config *SimulationConfig) {
	if e.Workers > 0 {
		config.Workers = e.Workers
	}
	if e.Seed != 0 {
		config.Seed = e.Seed
	}
	if e.Theta != nil {
		config.Physics.Theta = *e.Theta
	}
	if e.G != nil {
		config.Physics.G = *e.G
	}
}

// FrameInterval returns the wall-clock time between frames.
func (e *EnvironmentConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(e.FrameRate)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsUintOrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsFloatPtr(key string) *float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return &floatValue
		}
	}
	return nil
}
