// pkg/physics/collision.go
package physics

// Circle represents a circular collision shape
type Circle struct {
	Center Vector2D
	Radius float64
}

// Collides checks if two circles overlap or touch
func (c Circle) Collides(other Circle) bool {
	return c.Center.DistanceSquared(other.Center) <= (c.Radius+other.Radius)*(c.Radius+other.Radius)
}

// CollisionResult contains information about a collision
type CollisionResult struct {
	Collided    bool
	Normal      Vector2D
	Penetration float64
	Distance    float64
}

// CheckCollision performs detailed collision detection between two circles.
// Normal points from a to b. When the centers coincide, fallback is used as
// the normal.
func CheckCollision(a, b Circle, fallback Vector2D) CollisionResult {
	// Vector from A to B
	normal := b.Center.Sub(a.Center)
	distance := normal.Length()

	if !a.Collides(b) {
		return CollisionResult{Collided: false, Distance: distance}
	}

	if distance < Epsilon {
		normal = fallback
	} else {
		normal = normal.Scale(1 / distance)
	}

	return CollisionResult{
		Collided:    true,
		Normal:      normal,
		Penetration: a.Radius + b.Radius - distance,
		Distance:    distance,
	}
}

// Square is an axis-aligned square with its top-left corner at (X, Y).
type Square struct {
	X     float64
	Y     float64
	Width float64
}

// Mid returns the center of the square.
func (s Square) Mid() Vector2D {
	half := s.Width * 0.5
	return Vector2D{X: s.X + half, Y: s.Y + half}
}

// Near reports whether any point of the square lies within the axis-aligned
// box of half-size reach around center. With zero reach it is a containment
// test, edges included.
func (s Square) Near(center Vector2D, reach float64) bool {
	return !(center.X+reach < s.X ||
		center.X-reach > s.X+s.Width ||
		center.Y+reach < s.Y ||
		center.Y-reach > s.Y+s.Width)
}

// Bounds is an axis-aligned rectangle given by its corners.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Contains reports whether point lies inside the bounds, edges included.
// Non-finite points are never contained.
func (b Bounds) Contains(point Vector2D) bool {
	return point.X >= b.MinX && point.X <= b.MaxX &&
		point.Y >= b.MinY && point.Y <= b.MaxY
}
