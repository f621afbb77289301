// Package validation checks externally supplied spawn and launch input before
// it reaches the simulation.
package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/opd-ai/go-nbody/pkg/physics"
)

// MinDragLength is the shortest pointer drag, in pixels, that launches a body.
const MinDragLength = 2.0

// Sentinel errors returned by the validators. Use errors.Is to test for them.
var (
	ErrNonFinitePosition = errors.New("position must be finite")
	ErrNonFiniteVelocity = errors.New("velocity must be finite")
	ErrInvalidMass       = errors.New("mass must be positive and finite")
	ErrInvalidRadius     = errors.New("radius must be positive and finite")
	ErrInvalidHeat       = errors.New("heat must be non-negative and finite")
	ErrDragTooShort      = errors.New("drag too short")
	ErrRateLimited       = errors.New("launch rate limit exceeded")
)

// ValidateSpawn checks the parameters of a new body.
func ValidateSpawn(position, velocity physics.Vector2D, mass, radius, heat float64) error {
	if !position.IsFinite() {
		return fmt.Errorf("%w: %v", ErrNonFinitePosition, position)
	}
	if !velocity.IsFinite() {
		return fmt.Errorf("%w: %v", ErrNonFiniteVelocity, velocity)
	}
	if !(mass > 0) || math.IsInf(mass, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidMass, mass)
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	if !(heat >= 0) || math.IsInf(heat, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidHeat, heat)
	}
	return nil
}

// ValidateLaunch checks a pointer drag from start to end.
func ValidateLaunch(start, end physics.Vector2D) error {
	if !start.IsFinite() || !end.IsFinite() {
		return fmt.Errorf("%w: drag from %v to %v", ErrNonFinitePosition, start, end)
	}
	if length := start.Distance(end); length <= MinDragLength {
		return fmt.Errorf("%w: %.2f px (min %.0f)", ErrDragTooShort, length, MinDragLength)
	}
	return nil
}
