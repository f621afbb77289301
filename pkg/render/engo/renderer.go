// pkg/render/engo/renderer.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-nbody/pkg/engine"
	"github.com/opd-ai/go-nbody/pkg/physics"
	"github.com/opd-ai/go-nbody/pkg/render"
)

// entityAdder is the part of common.RenderSystem the renderer drives.
type entityAdder interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

type bodyEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// EngoRenderer implements render.Renderer by keeping one circle entity per
// body in an Engo render system.
type EngoRenderer struct {
	system entityAdder
	bodies map[physics.BodyID]*bodyEntity
	seen   map[physics.BodyID]bool
}

var _ render.Renderer = (*EngoRenderer)(nil)

// NewEngoRenderer creates a renderer adding entities to system
func NewEngoRenderer(system entityAdder) *EngoRenderer {
	return &EngoRenderer{
		system: system,
		bodies: make(map[physics.BodyID]*bodyEntity),
		seen:   make(map[physics.BodyID]bool),
	}
}

// Clear implements render.Renderer
func (r *EngoRenderer) Clear() {
	for id := range r.seen {
		delete(r.seen, id)
	}
}

// RenderBody implements render.Renderer
func (r *EngoRenderer) RenderBody(body engine.BodyState) {
	e, ok := r.bodies[body.ID]
	if !ok {
		e = &bodyEntity{BasicEntity: ecs.NewBasic()}
		e.RenderComponent.Drawable = common.Circle{
			BorderWidth: 2,
			BorderColor: color.White,
		}
		r.bodies[body.ID] = e
		r.system.Add(&e.BasicEntity, &e.RenderComponent, &e.SpaceComponent)
	}
	r.seen[body.ID] = true

	diameter := float32(2 * body.Radius)
	e.SpaceComponent.Position = engo.Point{
		X: float32(body.Position.X - body.Radius),
		Y: float32(body.Position.Y - body.Radius),
	}
	e.SpaceComponent.Width = diameter
	e.SpaceComponent.Height = diameter
	e.RenderComponent.Color = render.HeatColor(body.Heat)
}

// Present implements render.Renderer. Bodies not drawn since the last Clear
// have left the simulation and their entities are removed.
func (r *EngoRenderer) Present() {
	for id, e := range r.bodies {
		if r.seen[id] {
			continue
		}
		r.system.Remove(e.BasicEntity)
		delete(r.bodies, id)
	}
}

// Len returns the number of live body entities
func (r *EngoRenderer) Len() int {
	return len(r.bodies)
}
