package engine

import (
	"golang.org/x/exp/rand"

	"github.com/opd-ai/go-nbody/pkg/physics"
)

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Seed spawns Config.ParticleCount bodies uniformly over the spawn area with
// velocity components uniform in [-InitialSpeed, InitialSpeed].
func (s *Simulation) Seed(rng *rand.Rand) error {
	cfg := s.Config
	span := cfg.SpawnExtent - cfg.ParticleRadius
	if span < 0 {
		span = 0
	}

	for i := 0; i < cfg.ParticleCount; i++ {
		p := SpawnParams{
			Position: physics.Vector2D{
				X: rng.Float64() * span,
				Y: rng.Float64() * span,
			},
			Velocity: physics.Vector2D{
				X: uniform(rng, cfg.InitialSpeed),
				Y: uniform(rng, cfg.InitialSpeed),
			},
			Mass:   cfg.ParticleMass,
			Radius: cfg.ParticleRadius,
		}
		if _, err := s.Spawn(p); err != nil {
			return err
		}
	}

	s.logger.Info(s.ctx, "seeded bodies", "count", cfg.ParticleCount, "extent", cfg.SpawnExtent)
	return nil
}

func uniform(rng *rand.Rand, limit float64) float64 {
	return (rng.Float64()*2 - 1) * limit
}
