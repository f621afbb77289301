// pkg/render/engo/input.go
package engo

import (
	"context"
	"errors"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-nbody/pkg/logging"
	"github.com/opd-ai/go-nbody/pkg/physics"
	"github.com/opd-ai/go-nbody/pkg/validation"
)

// Launcher spawns a body from a pointer drag.
type Launcher interface {
	Launch(start, end physics.Vector2D) (physics.BodyID, error)
}

// LaunchSystem turns a left-button drag into a launched body: the body
// appears where the drag started and moves along the drag.
type LaunchSystem struct {
	launcher Launcher
	logger   *logging.Logger

	dragging  bool
	dragStart physics.Vector2D
}

// NewLaunchSystem creates a launch system feeding launcher
func NewLaunchSystem(launcher Launcher, logger *logging.Logger) *LaunchSystem {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &LaunchSystem{
		launcher: launcher,
		logger:   logger.Component("input"),
	}
}

// Remove satisfies the ecs.System interface
func (ls *LaunchSystem) Remove(basic ecs.BasicEntity) {}

// Update reads the mouse state for this frame
func (ls *LaunchSystem) Update(dt float32) {
	m := engo.Input.Mouse
	if m.Button != engo.MouseButtonLeft {
		return
	}
	ls.handle(m.Action, m.X, m.Y)
}

func (ls *LaunchSystem) handle(action engo.Action, x, y float32) {
	pos := physics.Vector2D{X: float64(x), Y: float64(y)}

	switch action {
	case engo.Press:
		ls.dragging = true
		ls.dragStart = pos
	case engo.Release:
		if !ls.dragging {
			return
		}
		ls.dragging = false

		ctx := context.Background()
		id, err := ls.launcher.Launch(ls.dragStart, pos)
		switch {
		case errors.Is(err, validation.ErrDragTooShort):
			ls.logger.Debug(ctx, "drag ignored", "start", ls.dragStart, "end", pos)
		case err != nil:
			ls.logger.Warn(ctx, "launch rejected", "error", err)
		default:
			ls.logger.Debug(ctx, "body launched", "body_id", id)
		}
	}
}

// Dragging reports whether a drag is in progress
func (ls *LaunchSystem) Dragging() bool {
	return ls.dragging
}
