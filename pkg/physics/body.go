package physics

// DefaultHeatRetention is the fraction of heat a body keeps every step.
const DefaultHeatRetention = 0.997

// BodyID identifies a body for the lifetime of a simulation.
type BodyID uint64

// Body is a simulated circular particle. The Next* fields hold staged state
// written during collision resolution and committed once per step.
type Body struct {
	ID       BodyID
	Position Vector2D
	Velocity Vector2D
	Mass     float64
	Radius   float64
	Heat     float64

	NextPosition Vector2D
	NextVelocity Vector2D
	NextHeat     float64
}

// NewBody creates a body with its staged state matching its current state.
func NewBody(id BodyID, position, velocity Vector2D, mass, radius, heat float64) *Body {
	b := &Body{
		ID:       id,
		Position: position,
		Velocity: velocity,
		Mass:     mass,
		Radius:   radius,
		Heat:     heat,
	}
	b.Stage()
	return b
}

// Integrate advances the position by velocity*dt and cools the body.
// Cooling is applied once per call independent of dt.
func (b *Body) Integrate(dt, heatRetention float64) {
	b.Position.AddInPlace(b.Velocity.Scale(dt))
	b.Heat *= heatRetention
}

// Stage copies the current state into the staged fields.
func (b *Body) Stage() {
	b.NextPosition = b.Position
	b.NextVelocity = b.Velocity
	b.NextHeat = b.Heat
}

// Commit replaces the current state with the staged state.
func (b *Body) Commit() {
	b.Position = b.NextPosition
	b.Velocity = b.NextVelocity
	b.Heat = b.NextHeat
}

// Circle returns the collision shape of the body at its current position.
func (b *Body) Circle() Circle {
	return Circle{Center: b.Position, Radius: b.Radius}
}

// KineticEnergy returns 0.5 * m * |v|^2.
func (b *Body) KineticEnergy() float64 {
	return 0.5 * b.Mass * b.Velocity.LengthSquared()
}

// Momentum returns m * v.
func (b *Body) Momentum() Vector2D {
	return b.Velocity.Scale(b.Mass)
}
