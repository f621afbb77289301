// pkg/render/engo/renderer_test.go
package engo

import (
	"image/color"
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-nbody/pkg/engine"
	"github.com/opd-ai/go-nbody/pkg/physics"
	"github.com/opd-ai/go-nbody/pkg/render"
)

// fakeSystem records entities added to and removed from it
type fakeSystem struct {
	added   map[uint64]*common.SpaceComponent
	colors  map[uint64]*common.RenderComponent
	removed []uint64
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		added:  make(map[uint64]*common.SpaceComponent),
		colors: make(map[uint64]*common.RenderComponent),
	}
}

func (f *fakeSystem) Add(basic *ecs.BasicEntity, rc *common.RenderComponent, sc *common.SpaceComponent) {
	f.added[basic.ID()] = sc
	f.colors[basic.ID()] = rc
}

func (f *fakeSystem) Remove(basic ecs.BasicEntity) {
	f.removed = append(f.removed, basic.ID())
	delete(f.added, basic.ID())
}

func TestEngoRenderer_RenderBody(t *testing.T) {
	sys := newFakeSystem()
	r := NewEngoRenderer(sys)

	body := engine.BodyState{ID: 1, Position: physics.Vector2D{X: 100, Y: 50}, Radius: 5, Heat: render.MaxDisplayHeat}
	render.Frame(r, []engine.BodyState{body})

	if len(sys.added) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(sys.added))
	}
	for id, sc := range sys.added {
		if sc.Position.X != 95 || sc.Position.Y != 45 {
			t.Errorf("expected top-left (95,45), got (%v,%v)", sc.Position.X, sc.Position.Y)
		}
		if sc.Width != 10 || sc.Height != 10 {
			t.Errorf("expected 10x10, got %vx%v", sc.Width, sc.Height)
		}
		want := color.RGBA{R: 255, G: 40, B: 0, A: 255}
		if got := sys.colors[id].Color; got != want {
			t.Errorf("expected hot color %v, got %v", want, got)
		}
		if _, ok := sys.colors[id].Drawable.(common.Circle); !ok {
			t.Errorf("expected circle drawable, got %T", sys.colors[id].Drawable)
		}
	}
}

func TestEngoRenderer_ReusesEntities(t *testing.T) {
	sys := newFakeSystem()
	r := NewEngoRenderer(sys)

	render.Frame(r, []engine.BodyState{{ID: 1, Radius: 5}})
	render.Frame(r, []engine.BodyState{{ID: 1, Position: physics.Vector2D{X: 10, Y: 10}, Radius: 5}})

	if len(sys.added) != 1 {
		t.Fatalf("expected entity to be reused, got %d entities", len(sys.added))
	}
	for _, sc := range sys.added {
		if sc.Position.X != 5 || sc.Position.Y != 5 {
			t.Errorf("expected moved entity at (5,5), got (%v,%v)", sc.Position.X, sc.Position.Y)
		}
	}
}

func TestEngoRenderer_RemovesVanishedBodies(t *testing.T) {
	sys := newFakeSystem()
	r := NewEngoRenderer(sys)

	render.Frame(r, []engine.BodyState{{ID: 1, Radius: 5}, {ID: 2, Radius: 5}})
	if r.Len() != 2 {
		t.Fatalf("expected 2 entities, got %d", r.Len())
	}

	render.Frame(r, []engine.BodyState{{ID: 2, Radius: 5}})

	if r.Len() != 1 {
		t.Errorf("expected 1 entity, got %d", r.Len())
	}
	if len(sys.removed) != 1 {
		t.Errorf("expected 1 removal, got %d", len(sys.removed))
	}
	if len(sys.added) != 1 {
		t.Errorf("expected 1 entity left in system, got %d", len(sys.added))
	}
}
