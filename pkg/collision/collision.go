// Package collision resolves overlapping bodies found through the quadtree.
//
// Resolution runs in three phases over a frozen tree: every body is staged,
// each body computes its own corrected next state from the unmodified current
// state of its neighbours, and finally every body commits. No body's result
// depends on the order in which bodies are visited.
package collision

import (
	"math"
	"sync"

	"github.com/opd-ai/go-nbody/pkg/physics"
	"github.com/opd-ai/go-nbody/pkg/quadtree"
)

// Default tuning values.
const (
	DefaultRestitution = 0.12
	DefaultHeatGain    = 0.1
)

// Contact records one resolved overlap from A's point of view.
type Contact struct {
	A     physics.BodyID
	B     physics.BodyID
	Depth float64
}

// Engine resolves collisions between circular bodies.
type Engine struct {
	Restitution float64
	HeatGain    float64
	Workers     int
}

// NewEngine creates a single-worker engine with the default heat gain.
func NewEngine(restitution float64) *Engine {
	return &Engine{
		Restitution: restitution,
		HeatGain:    DefaultHeatGain,
		Workers:     1,
	}
}

// Resolve stages, resolves and commits every body, returning the contacts
// that were corrected. The tree must have been built from the bodies'
// current positions.
func (e *Engine) Resolve(tree *quadtree.Tree, bodies []*physics.Body) []Contact {
	for _, b := range bodies {
		b.Stage()
	}

	var contacts []Contact
	workers := e.Workers
	if workers > len(bodies) {
		workers = len(bodies)
	}
	if workers <= 1 {
		for _, b := range bodies {
			contacts = e.resolveBody(tree, b, contacts)
		}
	} else {
		contacts = e.resolveParallel(tree, bodies, workers)
	}

	for _, b := range bodies {
		b.Commit()
	}
	return contacts
}

func (e *Engine) resolveParallel(tree *quadtree.Tree, bodies []*physics.Body, workers int) []Contact {
	chunk := (len(bodies) + workers - 1) / workers
	shards := make([][]Contact, 0, workers)
	var wg sync.WaitGroup
	for start := 0; start < len(bodies); start += chunk {
		end := start + chunk
		if end > len(bodies) {
			end = len(bodies)
		}
		shards = append(shards, nil)
		wg.Add(1)
		go func(slot int, shard []*physics.Body) {
			defer wg.Done()
			var found []Contact
			for _, b := range shard {
				found = e.resolveBody(tree, b, found)
			}
			shards[slot] = found
		}(len(shards)-1, bodies[start:end])
	}
	wg.Wait()

	var contacts []Contact
	for _, found := range shards {
		contacts = append(contacts, found...)
	}
	return contacts
}

func (e *Engine) resolveBody(tree *quadtree.Tree, b *physics.Body, contacts []Contact) []Contact {
	if !b.Position.IsFinite() || tree.BodyCount() == 0 {
		return contacts
	}
	reach := b.Radius + tree.MaxRadius()
	return e.descend(tree, quadtree.Root, b, reach, contacts)
}

func (e *Engine) descend(tree *quadtree.Tree, idx int32, b *physics.Body, reach float64, contacts []Contact) []Contact {
	n := tree.Node(idx)
	if n.Count == 0 || !n.Square.Near(b.Position, reach) {
		return contacts
	}

	if !n.IsLeaf() {
		for q := 0; q < 4; q++ {
			contacts = e.descend(tree, tree.Child(idx, q), b, reach, contacts)
		}
		return contacts
	}

	for s := tree.LeafHead(idx); s >= 0; s = tree.NextInLeaf(s) {
		other := tree.BodyAt(s)
		if other == b {
			continue
		}
		if depth, ok := e.separate(b, other); ok {
			contacts = append(contacts, Contact{A: b.ID, B: other.ID, Depth: depth})
		}
	}
	return contacts
}

// separate writes b's share of the correction for its overlap with other
// into b's staged fields and returns the penetration depth.
func (e *Engine) separate(b, other *physics.Body) (float64, bool) {
	hit := physics.CheckCollision(other.Circle(), b.Circle(), fallbackAxis(b.ID, other.ID))
	if !hit.Collided {
		return 0, false
	}
	n := hit.Normal

	invB := 1 / (b.Heat + 1)
	invO := 1 / (other.Heat + 1)
	b.NextPosition.AddInPlace(n.Scale(hit.Penetration * invB / (invB + invO)))

	impact := b.Velocity.Dot(n)
	b.NextHeat += e.HeatGain * math.Abs(impact)
	if impact > 0 {
		return hit.Penetration, true
	}
	b.NextVelocity.SubInPlace(n.Scale(impact * (1 + e.Restitution) * 0.5))
	return hit.Penetration, true
}

// fallbackAxis separates coincident bodies along x, pushing the body with the
// larger ID towards +x so that both sides of a pair agree.
func fallbackAxis(self, other physics.BodyID) physics.Vector2D {
	if self > other {
		return physics.Vector2D{X: 1}
	}
	return physics.Vector2D{X: -1}
}
