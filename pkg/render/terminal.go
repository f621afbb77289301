package render

import (
	"bufio"
	"io"
	"math"
	"strings"

	"github.com/opd-ai/go-nbody/pkg/engine"
	"github.com/opd-ai/go-nbody/pkg/physics"
)

// TerminalRenderer provides a simple ASCII rendering of the simulation.
// Hotter bodies are drawn with denser glyphs.
type TerminalRenderer struct {
	out       io.Writer
	width     int
	height    int
	buffer    [][]rune
	scale     float64
	centerPos physics.Vector2D
	status    string
}

// NewTerminalRenderer creates a renderer with a width by height character
// grid, where each cell covers scale world units.
func NewTerminalRenderer(out io.Writer, width, height int, scale float64) *TerminalRenderer {
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}

	return &TerminalRenderer{
		out:    out,
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
	}
}

// SetCenter sets the world position drawn in the middle of the grid
func (r *TerminalRenderer) SetCenter(pos physics.Vector2D) {
	r.centerPos = pos
}

// SetStatus sets a line printed below the frame
func (r *TerminalRenderer) SetStatus(s string) {
	r.status = s
}

func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	screenX := math.Floor((pos.X-r.centerPos.X)/r.scale + float64(r.width)/2)
	screenY := math.Floor((pos.Y-r.centerPos.Y)/r.scale + float64(r.height)/2)
	if math.IsNaN(screenX) || math.IsNaN(screenY) {
		return -1, -1
	}
	return int(math.Max(-1, math.Min(screenX, float64(r.width)))),
		int(math.Max(-1, math.Min(screenY, float64(r.height))))
}

// Clear implements Renderer
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = ' '
		}
	}
}

// RenderBody implements Renderer. Bodies outside the grid are not drawn;
// when two share a cell the hotter glyph wins.
func (r *TerminalRenderer) RenderBody(body engine.BodyState) {
	x, y := r.worldToScreen(body.Position)
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return
	}
	g := Glyph(body.Heat)
	if rank(g) > rank(r.buffer[y][x]) {
		r.buffer[y][x] = g
	}
}

func rank(g rune) int {
	for i, c := range glyphRamp {
		if c == g {
			return i
		}
	}
	return -1
}

// Present implements Renderer
func (r *TerminalRenderer) Present() {
	w := bufio.NewWriter(r.out)
	border := "+" + strings.Repeat("-", r.width) + "+\n"

	w.WriteString("\033[H\033[2J")
	w.WriteString(border)
	for y := range r.buffer {
		w.WriteByte('|')
		w.WriteString(string(r.buffer[y]))
		w.WriteString("|\n")
	}
	w.WriteString(border)
	if r.status != "" {
		w.WriteString(r.status)
		w.WriteByte('\n')
	}
	w.Flush()
}
