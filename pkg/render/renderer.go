// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-nbody/pkg/engine"
	"github.com/opd-ai/go-nbody/pkg/logging"
)

// Renderer draws one frame of body states. A frame is Clear, any number of
// RenderBody calls, then Present.
type Renderer interface {
	Clear()
	RenderBody(body engine.BodyState)
	Present()
}

// Frame draws every state in bodies as one frame.
func Frame(r Renderer, bodies []engine.BodyState) {
	r.Clear()
	for _, b := range bodies {
		r.RenderBody(b)
	}
	r.Present()
}

// NullRenderer discards frames, logging each call at debug level.
type NullRenderer struct {
	logger *logging.Logger
	bodies int
}

// NewNullRenderer creates a NullRenderer writing to logger. A nil logger
// uses the default one.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{
		logger: logger.Component("render"),
	}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {
	d.bodies = 0
	d.logger.Debug(context.Background(), "Clear called")
}

// RenderBody implements Renderer.
func (d *NullRenderer) RenderBody(body engine.BodyState) {
	d.bodies++
	d.logger.Debug(context.Background(), "RenderBody called",
		"body_id", body.ID,
		"x", body.Position.X,
		"y", body.Position.Y,
		"heat", body.Heat,
	)
}

// Present implements Renderer.
func (d *NullRenderer) Present() {
	d.logger.Debug(context.Background(), "Present called", "bodies", d.bodies)
}
