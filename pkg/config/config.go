// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/opd-ai/go-nbody/pkg/physics"
)

// SimulationConfig contains the tunable parameters of a simulation run
type SimulationConfig struct {
	ParticleCount  int     `json:"particleCount"`
	ParticleRadius float64 `json:"particleRadius"`
	ParticleMass   float64 `json:"particleMass"`
	// SpawnExtent is the side of the square, anchored at the origin, that
	// seeded bodies are spread over.
	SpawnExtent  float64 `json:"spawnExtent"`
	InitialSpeed float64 `json:"initialSpeed"`
	Seed         uint64  `json:"seed"`
	Workers      int     `json:"workers"`

	Physics PhysicsConfig  `json:"physics"`
	Tree    TreeConfig     `json:"tree"`
	Domain  physics.Bounds `json:"domain"`
}

// PhysicsConfig contains the constants of the force and collision models
type PhysicsConfig struct {
	G                float64 `json:"g"`
	Theta            float64 `json:"theta"`
	Restitution      float64 `json:"restitution"`
	HeatRetention    float64 `json:"heatRetention"`
	HeatGain         float64 `json:"heatGain"`
	CloseRangeFactor float64 `json:"closeRangeFactor"`
	// IntegrationStep replaces the frame delta when advancing positions.
	// Zero integrates with the frame delta.
	IntegrationStep float64 `json:"integrationStep"`
}

// TreeConfig bounds quadtree subdivision
type TreeConfig struct {
	MaxDepth           int     `json:"maxDepth"`
	MinWidth           float64 `json:"minWidth"`
	CoincidenceEpsilon float64 `json:"coincidenceEpsilon"`
	// MassWeightedCenter approximates far nodes at their center of mass
	// instead of the mean body position.
	MassWeightedCenter bool `json:"massWeightedCenter"`
}

// LoadConfig loads a configuration from a file
func LoadConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults.
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *SimulationConfig, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a default simulation configuration
func DefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		ParticleCount:  100,
		ParticleRadius: 5,
		ParticleMass:   2,
		SpawnExtent:    800,
		InitialSpeed:   0.005,
		Seed:           1,
		Workers:        1,
		Physics: PhysicsConfig{
			G:                0.05,
			Theta:            0.4,
			Restitution:      0.12,
			HeatRetention:    physics.DefaultHeatRetention,
			HeatGain:         0.1,
			CloseRangeFactor: 2,
			IntegrationStep:  1,
		},
		Tree: TreeConfig{
			MaxDepth:           32,
			MinWidth:           1,
			CoincidenceEpsilon: 1e-9,
		},
		Domain: physics.Bounds{
			MinX: -800,
			MinY: -800,
			MaxX: 1600,
			MaxY: 1600,
		},
	}
}

// Validate checks that every parameter is usable by the simulation.
func (c *SimulationConfig) Validate() error {
	switch {
	case c.ParticleCount < 0:
		return &ValidationError{Field: "ParticleCount", Value: c.ParticleCount, Message: "must not be negative"}
	case !positive(c.ParticleRadius):
		return &ValidationError{Field: "ParticleRadius", Value: c.ParticleRadius, Message: "must be positive"}
	case !positive(c.ParticleMass):
		return &ValidationError{Field: "ParticleMass", Value: c.ParticleMass, Message: "must be positive"}
	case !positive(c.SpawnExtent):
		return &ValidationError{Field: "SpawnExtent", Value: c.SpawnExtent, Message: "must be positive"}
	case !nonNegative(c.InitialSpeed):
		return &ValidationError{Field: "InitialSpeed", Value: c.InitialSpeed, Message: "must not be negative"}
	case c.Workers < 1:
		return &ValidationError{Field: "Workers", Value: c.Workers, Message: "must be at least 1"}
	}

	if err := c.Physics.validate(); err != nil {
		return err
	}
	if err := c.Tree.validate(); err != nil {
		return err
	}

	d := c.Domain
	if !(d.MinX < d.MaxX) || !(d.MinY < d.MaxY) {
		return &ValidationError{Field: "Domain", Value: d, Message: "minimum corner must be below maximum corner"}
	}
	return nil
}

func (p PhysicsConfig) validate() error {
	switch {
	case !nonNegative(p.G):
		return &ValidationError{Field: "Physics.G", Value: p.G, Message: "must not be negative"}
	case !nonNegative(p.Theta):
		return &ValidationError{Field: "Physics.Theta", Value: p.Theta, Message: "must not be negative"}
	case !nonNegative(p.Restitution) || p.Restitution > 1:
		return &ValidationError{Field: "Physics.Restitution", Value: p.Restitution, Message: "must be in [0, 1]"}
	case !positive(p.HeatRetention) || p.HeatRetention > 1:
		return &ValidationError{Field: "Physics.HeatRetention", Value: p.HeatRetention, Message: "must be in (0, 1]"}
	case !nonNegative(p.HeatGain):
		return &ValidationError{Field: "Physics.HeatGain", Value: p.HeatGain, Message: "must not be negative"}
	case !nonNegative(p.CloseRangeFactor):
		return &ValidationError{Field: "Physics.CloseRangeFactor", Value: p.CloseRangeFactor, Message: "must not be negative"}
	case !nonNegative(p.IntegrationStep):
		return &ValidationError{Field: "Physics.IntegrationStep", Value: p.IntegrationStep, Message: "must not be negative"}
	}
	return nil
}

func (t TreeConfig) validate() error {
	switch {
	case t.MaxDepth < 1:
		return &ValidationError{Field: "Tree.MaxDepth", Value: t.MaxDepth, Message: "must be at least 1"}
	case !positive(t.MinWidth):
		return &ValidationError{Field: "Tree.MinWidth", Value: t.MinWidth, Message: "must be positive"}
	case !positive(t.CoincidenceEpsilon):
		return &ValidationError{Field: "Tree.CoincidenceEpsilon", Value: t.CoincidenceEpsilon, Message: "must be positive"}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
