// Package quadtree implements the Barnes-Hut region index rebuilt every frame.
//
// Nodes live in a single arena slice and are addressed by index. An internal
// node stores the index of its first child; its four children (NW, NE, SW, SE)
// are always allocated contiguously. A leaf stores the head of an intrusive
// chain of body indices, which holds more than one body only when bodies are
// coincident or the depth limit is reached.
package quadtree

import (
	"github.com/opd-ai/go-nbody/pkg/physics"
)

const (
	// Root is the arena index of the root node.
	Root int32 = 0

	none int32 = -1
)

// Quadrant indices of the four children of an internal node.
const (
	NorthWest = iota
	NorthEast
	SouthWest
	SouthEast
)

// Options bounds the tree against degenerate input.
type Options struct {
	// MaxDepth is the deepest level a leaf may split to.
	MaxDepth int
	// MinWidth is the smallest root width used for a frame.
	MinWidth float64
	// CoincidenceEpsilon is the distance below which two bodies share a leaf.
	CoincidenceEpsilon float64
	// MassWeightedCenter makes Center the center of mass instead of the mean
	// position of the contained bodies.
	MassWeightedCenter bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxDepth:           32,
		MinWidth:           1,
		CoincidenceEpsilon: 1e-9,
	}
}

// Node is one square region of the tree. Nodes returned by Tree.Node must be
// treated as read-only.
type Node struct {
	Square physics.Square
	Depth  int

	// TotalCenter is the running sum of contained positions.
	TotalCenter physics.Vector2D
	// TotalMoment is the running sum of mass-weighted positions.
	TotalMoment physics.Vector2D
	TotalMass   float64
	Count       int

	firstChild  int32
	head        int32
	center      physics.Vector2D
	centerReady bool
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.firstChild == none
}

func (n *Node) accumulate(b *physics.Body) {
	n.TotalCenter.AddInPlace(b.Position)
	n.TotalMoment.AddInPlace(b.Position.Scale(b.Mass))
	n.TotalMass += b.Mass
	n.Count++
}

// quadrant picks the child containing p. Points on a midline go to the
// lower-index side.
func (n *Node) quadrant(p physics.Vector2D) int32 {
	mid := n.Square.Mid()
	q := int32(NorthWest)
	if p.X > mid.X {
		q |= NorthEast
	}
	if p.Y > mid.Y {
		q |= SouthWest
	}
	return q
}

// Tree is a Barnes-Hut quadtree over one frame's bodies. Bodies are
// referenced, never owned.
type Tree struct {
	opts      Options
	nodes     []Node
	bodies    []*physics.Body
	next      []int32
	maxRadius float64
}

// New creates an empty tree. Zero-valued option fields fall back to
// DefaultOptions.
func New(opts Options) *Tree {
	def := DefaultOptions()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MinWidth <= 0 {
		opts.MinWidth = def.MinWidth
	}
	if opts.CoincidenceEpsilon <= 0 {
		opts.CoincidenceEpsilon = def.CoincidenceEpsilon
	}
	t := &Tree{opts: opts}
	t.Reset(physics.Square{Width: opts.MinWidth})
	return t
}

// Reset discards all nodes and bodies and starts a single empty leaf root
// covering bounds. Backing storage is kept for reuse.
func (t *Tree) Reset(bounds physics.Square) {
	if bounds.Width < t.opts.MinWidth {
		bounds.Width = t.opts.MinWidth
	}
	t.nodes = append(t.nodes[:0], newNode(bounds, 0))
	t.bodies = t.bodies[:0]
	t.next = t.next[:0]
	t.maxRadius = 0
}

// Build rebuilds the tree from scratch over bodies. Bodies with non-finite
// positions are left out so they cannot poison the aggregates.
func (t *Tree) Build(bodies []*physics.Body) {
	t.Reset(BoundingSquare(bodies, t.opts.MinWidth))
	for _, b := range bodies {
		if !b.Position.IsFinite() {
			continue
		}
		t.Insert(b)
	}
}

// BoundingSquare returns the square anchored at the minimum corner of the
// bodies' bounding box whose side is the larger box dimension, but never
// smaller than minWidth. Non-finite positions are ignored.
func BoundingSquare(bodies []*physics.Body, minWidth float64) physics.Square {
	found := false
	var minX, minY, maxX, maxY float64
	for _, b := range bodies {
		p := b.Position
		if !p.IsFinite() {
			continue
		}
		if !found {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			found = true
			continue
		}
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	width := maxX - minX
	if h := maxY - minY; h > width {
		width = h
	}
	if width < minWidth {
		width = minWidth
	}
	return physics.Square{X: minX, Y: minY, Width: width}
}

// Insert adds b to the tree, updating the aggregates of every node on its
// insertion path.
func (t *Tree) Insert(b *physics.Body) {
	bi := int32(len(t.bodies))
	t.bodies = append(t.bodies, b)
	t.next = append(t.next, none)
	if b.Radius > t.maxRadius {
		t.maxRadius = b.Radius
	}

	eps2 := t.opts.CoincidenceEpsilon * t.opts.CoincidenceEpsilon
	idx := Root
	for {
		n := &t.nodes[idx]

		if !n.IsLeaf() {
			n.accumulate(b)
			idx = n.firstChild + n.quadrant(b.Position)
			continue
		}

		if n.head == none {
			n.head = bi
			n.accumulate(b)
			return
		}

		resident := t.bodies[n.head]
		if n.Depth >= t.opts.MaxDepth || resident.Position.DistanceSquared(b.Position) <= eps2 {
			t.next[bi] = n.head
			n.head = bi
			n.accumulate(b)
			return
		}

		// Push the resident chain one level down and retry from this node,
		// which is now internal.
		t.split(idx)
		n = &t.nodes[idx]
		child := &t.nodes[n.firstChild+n.quadrant(resident.Position)]
		child.head = n.head
		child.TotalCenter = n.TotalCenter
		child.TotalMoment = n.TotalMoment
		child.TotalMass = n.TotalMass
		child.Count = n.Count
		n.head = none
	}
}

func (t *Tree) split(idx int32) {
	parent := t.nodes[idx].Square
	depth := t.nodes[idx].Depth + 1
	half := parent.Width * 0.5
	first := int32(len(t.nodes))
	t.nodes = append(t.nodes,
		newNode(physics.Square{X: parent.X, Y: parent.Y, Width: half}, depth),
		newNode(physics.Square{X: parent.X + half, Y: parent.Y, Width: half}, depth),
		newNode(physics.Square{X: parent.X, Y: parent.Y + half, Width: half}, depth),
		newNode(physics.Square{X: parent.X + half, Y: parent.Y + half, Width: half}, depth),
	)
	t.nodes[idx].firstChild = first
}

func newNode(sq physics.Square, depth int) Node {
	return Node{
		Square:     sq,
		Depth:      depth,
		firstChild: none,
		head:       none,
	}
}

// Node returns the node at idx.
func (t *Tree) Node(idx int32) *Node {
	return &t.nodes[idx]
}

// Child returns the arena index of quadrant q of the internal node idx.
func (t *Tree) Child(idx int32, q int) int32 {
	return t.nodes[idx].firstChild + int32(q)
}

// Children returns the arena indices of the four children of the internal
// node idx, in quadrant order.
func (t *Tree) Children(idx int32) [4]int32 {
	f := t.nodes[idx].firstChild
	return [4]int32{f, f + 1, f + 2, f + 3}
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// BodyCount returns the number of inserted bodies.
func (t *Tree) BodyCount() int {
	return len(t.bodies)
}

// MaxRadius returns the largest radius among inserted bodies.
func (t *Tree) MaxRadius() float64 {
	return t.maxRadius
}

// LeafHead returns the first body slot of leaf idx, or -1 if it is empty.
func (t *Tree) LeafHead(idx int32) int32 {
	return t.nodes[idx].head
}

// NextInLeaf returns the body slot chained after slot, or -1.
func (t *Tree) NextInLeaf(slot int32) int32 {
	return t.next[slot]
}

// BodyAt returns the body stored in slot.
func (t *Tree) BodyAt(slot int32) *physics.Body {
	return t.bodies[slot]
}

// LeafBodies appends the bodies held by leaf idx to dst.
func (t *Tree) LeafBodies(idx int32, dst []*physics.Body) []*physics.Body {
	for s := t.nodes[idx].head; s != none; s = t.next[s] {
		dst = append(dst, t.bodies[s])
	}
	return dst
}

// Center returns the mean position of the bodies in node idx, or their center
// of mass when Options.MassWeightedCenter is set. It is computed on first use
// and cached for the lifetime of the current build.
func (t *Tree) Center(idx int32) physics.Vector2D {
	n := &t.nodes[idx]
	if !n.centerReady {
		n.center = t.centerOf(n)
		n.centerReady = true
	}
	return n.center
}

// PrecomputeCenters fills every node's center cache so that concurrent
// readers of Center never write.
func (t *Tree) PrecomputeCenters() {
	for i := range t.nodes {
		n := &t.nodes[i]
		if !n.centerReady {
			n.center = t.centerOf(n)
			n.centerReady = true
		}
	}
}

func (t *Tree) centerOf(n *Node) physics.Vector2D {
	switch {
	case t.opts.MassWeightedCenter && n.TotalMass > 0:
		return n.TotalMoment.Scale(1 / n.TotalMass)
	case n.Count > 0:
		return n.TotalCenter.Scale(1 / float64(n.Count))
	default:
		return n.Square.Mid()
	}
}

// Walk visits nodes depth-first from the root. Returning false from fn skips
// the node's children.
func (t *Tree) Walk(fn func(idx int32, n *Node) bool) {
	t.walk(Root, fn)
}

func (t *Tree) walk(idx int32, fn func(idx int32, n *Node) bool) {
	n := &t.nodes[idx]
	if !fn(idx, n) || n.IsLeaf() {
		return
	}
	for _, c := range t.Children(idx) {
		t.walk(c, fn)
	}
}
