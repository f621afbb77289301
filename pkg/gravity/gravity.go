// Package gravity accumulates Barnes-Hut approximated gravitational pulls
// into body velocities.
package gravity

import (
	"math"
	"sync"

	"github.com/opd-ai/go-nbody/pkg/physics"
	"github.com/opd-ai/go-nbody/pkg/quadtree"
)

// Default tuning values.
const (
	DefaultG                = 0.05
	DefaultTheta            = 0.4
	DefaultCloseRangeFactor = 2.0
)

// Engine applies gravity using a quadtree built from the current positions.
type Engine struct {
	// G is the gravitational constant.
	G float64
	// Theta is the width/distance ratio below which a subtree is treated as
	// a single point mass.
	Theta float64
	// CloseRangeFactor skips pulls whose squared distance is at most
	// CloseRangeFactor * radius^2 of the pulled body.
	CloseRangeFactor float64
	// Workers shards bodies across goroutines when greater than one.
	Workers int
}

// NewEngine creates an engine with the default close-range cutoff and a
// single worker.
func NewEngine(g, theta float64) *Engine {
	return &Engine{
		G:                g,
		Theta:            theta,
		CloseRangeFactor: DefaultCloseRangeFactor,
		Workers:          1,
	}
}

// Apply adds dt-scaled gravitational acceleration to every body's velocity.
// Positions are only read, so the result does not depend on body order.
func (e *Engine) Apply(tree *quadtree.Tree, bodies []*physics.Body, dt float64) {
	workers := e.Workers
	if workers > len(bodies) {
		workers = len(bodies)
	}
	if workers <= 1 {
		for _, b := range bodies {
			e.applyTo(tree, b, dt)
		}
		return
	}

	// Concurrent readers must never populate the lazy center cache.
	tree.PrecomputeCenters()

	var wg sync.WaitGroup
	chunk := (len(bodies) + workers - 1) / workers
	for start := 0; start < len(bodies); start += chunk {
		end := start + chunk
		if end > len(bodies) {
			end = len(bodies)
		}
		wg.Add(1)
		go func(shard []*physics.Body) {
			defer wg.Done()
			for _, b := range shard {
				e.applyTo(tree, b, dt)
			}
		}(bodies[start:end])
	}
	wg.Wait()
}

func (e *Engine) applyTo(tree *quadtree.Tree, b *physics.Body, dt float64) {
	if !b.Position.IsFinite() {
		return
	}
	e.gravitate(tree, quadtree.Root, b, dt, &b.Velocity)
}

// Acceleration returns the dt-scaled velocity change gravity would apply to
// b, without modifying it.
func (e *Engine) Acceleration(tree *quadtree.Tree, b *physics.Body, dt float64) physics.Vector2D {
	var acc physics.Vector2D
	if b.Position.IsFinite() {
		e.gravitate(tree, quadtree.Root, b, dt, &acc)
	}
	return acc
}

func (e *Engine) gravitate(tree *quadtree.Tree, idx int32, b *physics.Body, dt float64, acc *physics.Vector2D) {
	n := tree.Node(idx)
	if n.Count == 0 {
		return
	}

	if n.IsLeaf() {
		for s := tree.LeafHead(idx); s >= 0; s = tree.NextInLeaf(s) {
			other := tree.BodyAt(s)
			if other == b {
				continue
			}
			acc.AddInPlace(e.pull(other.Position, other.Mass, b, dt))
		}
		return
	}

	center := tree.Center(idx)
	if n.Square.Width/b.Position.Distance(center) < e.Theta {
		acc.AddInPlace(e.pull(center, n.TotalMass, b, dt))
		return
	}

	for q := 0; q < 4; q++ {
		e.gravitate(tree, tree.Child(idx, q), b, dt, acc)
	}
}

// pull is the velocity change on b from a point mass at source.
func (e *Engine) pull(source physics.Vector2D, mass float64, b *physics.Body, dt float64) physics.Vector2D {
	d := source.Sub(b.Position)
	distSq := d.LengthSquared()
	if distSq <= e.CloseRangeFactor*b.Radius*b.Radius {
		return physics.Vector2D{}
	}
	return d.Scale(dt * e.G * mass / (distSq * math.Sqrt(distSq)))
}
