// Package diagnostics computes conserved quantities and heat statistics of a
// body set, used to monitor integration drift.
package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/opd-ai/go-nbody/pkg/physics"
)

// Report is a snapshot of the diagnostics of one body set.
type Report struct {
	Bodies          int
	Kinetic         float64
	Potential       float64
	Mechanical      float64
	Momentum        physics.Vector2D
	AngularMomentum float64
	CenterOfMass    physics.Vector2D
	MeanHeat        float64
	MaxHeat         float64
}

// Measure computes every diagnostic. Angular momentum is taken about the
// center of mass. Potential energy is an exact pairwise sum and costs O(N^2).
func Measure(bodies []*physics.Body, g float64) Report {
	com := CenterOfMass(bodies)
	kinetic := KineticEnergy(bodies)
	potential := PotentialEnergy(bodies, g)
	meanHeat, maxHeat := HeatStats(bodies)
	return Report{
		Bodies:          len(bodies),
		Kinetic:         kinetic,
		Potential:       potential,
		Mechanical:      kinetic + potential,
		Momentum:        Momentum(bodies),
		AngularMomentum: AngularMomentum(bodies, com),
		CenterOfMass:    com,
		MeanHeat:        meanHeat,
		MaxHeat:         maxHeat,
	}
}

// KineticEnergy returns the total kinetic energy.
func KineticEnergy(bodies []*physics.Body) float64 {
	terms := make([]float64, len(bodies))
	for i, b := range bodies {
		terms[i] = b.KineticEnergy()
	}
	return floats.Sum(terms)
}

// Momentum returns the total linear momentum.
func Momentum(bodies []*physics.Body) physics.Vector2D {
	xs := make([]float64, len(bodies))
	ys := make([]float64, len(bodies))
	for i, b := range bodies {
		p := b.Momentum()
		xs[i], ys[i] = p.X, p.Y
	}
	return physics.Vector2D{X: floats.Sum(xs), Y: floats.Sum(ys)}
}

// AngularMomentum returns the total angular momentum about point, positive
// for counter-clockwise motion in a y-up frame.
func AngularMomentum(bodies []*physics.Body, point physics.Vector2D) float64 {
	terms := make([]float64, len(bodies))
	for i, b := range bodies {
		r := b.Position.Sub(point)
		terms[i] = b.Mass * (r.X*b.Velocity.Y - r.Y*b.Velocity.X)
	}
	return floats.Sum(terms)
}

// PotentialEnergy returns -G * sum(m_i * m_j / r_ij) over distinct pairs.
// Coincident pairs are skipped.
func PotentialEnergy(bodies []*physics.Body, g float64) float64 {
	var terms []float64
	for i, a := range bodies {
		for _, b := range bodies[i+1:] {
			d := a.Position.Distance(b.Position)
			if d < physics.Epsilon {
				continue
			}
			terms = append(terms, -g*a.Mass*b.Mass/d)
		}
	}
	return floats.Sum(terms)
}

// MechanicalEnergy returns kinetic plus potential energy.
func MechanicalEnergy(bodies []*physics.Body, g float64) float64 {
	return KineticEnergy(bodies) + PotentialEnergy(bodies, g)
}

// CenterOfMass returns the mass-weighted mean position, or the zero vector
// for an empty set.
func CenterOfMass(bodies []*physics.Body) physics.Vector2D {
	if len(bodies) == 0 {
		return physics.Vector2D{}
	}
	xs := make([]float64, len(bodies))
	ys := make([]float64, len(bodies))
	masses := make([]float64, len(bodies))
	for i, b := range bodies {
		xs[i], ys[i], masses[i] = b.Position.X, b.Position.Y, b.Mass
	}
	return physics.Vector2D{X: stat.Mean(xs, masses), Y: stat.Mean(ys, masses)}
}

// HeatStats returns the mean and maximum heat, both zero for an empty set.
func HeatStats(bodies []*physics.Body) (mean, max float64) {
	if len(bodies) == 0 {
		return 0, 0
	}
	heats := make([]float64, len(bodies))
	for i, b := range bodies {
		heats[i] = b.Heat
	}
	return stat.Mean(heats, nil), floats.Max(heats)
}

// RelativeDrift returns |current - initial| / |initial|, or the absolute
// difference when initial is zero.
func RelativeDrift(initial, current float64) float64 {
	if initial == 0 {
		return math.Abs(current)
	}
	return math.Abs(current-initial) / math.Abs(initial)
}
