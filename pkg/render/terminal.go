package render

import (
	"bufio"
	"io"
	"math"
	"strings"

	"github.com/opd-ai/go-isonav/pkg/engine"
	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
)

// Glyphs drawn by TerminalRenderer.
const (
	GlyphEmpty   = ' '
	GlyphTerrain = '#'
	GlyphPath    = '.'
	GlyphGoal    = 'x'
	GlyphPlayer  = '@'
	GlyphEnemy   = 'E'
	GlyphUnknown = '?'
)

// rowAspect is how many columns of world distance one text row covers.
// Terminal cells are roughly twice as tall as they are wide.
const rowAspect = 2

// TerminalRenderer draws into a rune buffer with one glyph per character
// cell. Present writes the buffer as plain text to out.
type TerminalRenderer struct {
	width     int
	height    int
	buffer    [][]rune
	scale     float64
	centerPos physics.Vector2D
	out       io.Writer
}

// NewTerminalRenderer creates a renderer of width by height characters. Each
// column spans scale world units. A nil out makes Present a no-op.
func NewTerminalRenderer(width, height int, scale float64, out io.Writer) *TerminalRenderer {
	r := &TerminalRenderer{
		scale: scale,
		out:   out,
	}
	r.Resize(width, height)
	return r
}

// Resize reallocates the buffer. The contents are cleared.
func (r *TerminalRenderer) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	r.width, r.height = width, height
	r.buffer = make([][]rune, height)
	for i := range r.buffer {
		r.buffer[i] = make([]rune, width)
	}
	r.Clear()
}

// Size returns the buffer dimensions.
func (r *TerminalRenderer) Size() (int, int) {
	return r.width, r.height
}

// SetCenter sets the world position drawn at the middle of the buffer.
func (r *TerminalRenderer) SetCenter(pos physics.Vector2D) {
	r.centerPos = pos
}

// Center returns the world position at the middle of the buffer.
func (r *TerminalRenderer) Center() physics.Vector2D {
	return r.centerPos
}

// SetScale sets the world units per column. Non-positive values are ignored.
func (r *TerminalRenderer) SetScale(scale float64) {
	if scale > 0 {
		r.scale = scale
	}
}

// Scale returns the world units per column.
func (r *TerminalRenderer) Scale() float64 {
	return r.scale
}

func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	screenX := int(math.Floor((pos.X-r.centerPos.X)/r.scale + float64(r.width)/2))
	screenY := int(math.Floor((pos.Y-r.centerPos.Y)/(r.scale*rowAspect) + float64(r.height)/2))
	return screenX, screenY
}

// ScreenToWorld returns the world position at the middle of a character cell.
func (r *TerminalRenderer) ScreenToWorld(x, y int) physics.Vector2D {
	return physics.Vector2D{
		X: (float64(x)+0.5-float64(r.width)/2)*r.scale + r.centerPos.X,
		Y: (float64(y)+0.5-float64(r.height)/2)*r.scale*rowAspect + r.centerPos.Y,
	}
}

func (r *TerminalRenderer) inBounds(x, y int) bool {
	return x >= 0 && x < r.width && y >= 0 && y < r.height
}

func (r *TerminalRenderer) plot(x, y int, g rune) {
	if r.inBounds(x, y) {
		r.buffer[y][x] = g
	}
}

// Glyph returns the rune at a character cell, or GlyphEmpty out of bounds.
func (r *TerminalRenderer) Glyph(x, y int) rune {
	if !r.inBounds(x, y) {
		return GlyphEmpty
	}
	return r.buffer[y][x]
}

// Clear implements Renderer.
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = GlyphEmpty
		}
	}
}

// RenderTerrain fills every character cell whose center lies in a diamond.
func (r *TerminalRenderer) RenderTerrain(cells []terrain.Cell, shape terrain.Shape) {
	if shape.HalfWidth <= 0 || shape.HalfHeight <= 0 {
		return
	}
	for _, c := range cells {
		x0, y0 := r.worldToScreen(physics.Vector2D{X: c.X - shape.HalfWidth, Y: c.Y - shape.HalfHeight})
		x1, y1 := r.worldToScreen(physics.Vector2D{X: c.X + shape.HalfWidth, Y: c.Y + shape.HalfHeight})
		x0, y0 = max(x0, 0), max(y0, 0)
		x1, y1 = min(x1, r.width-1), min(y1, r.height-1)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				p := r.ScreenToWorld(x, y)
				if math.Abs(p.X-c.X)/shape.HalfWidth+math.Abs(p.Y-c.Y)/shape.HalfHeight <= 1 {
					r.buffer[y][x] = GlyphTerrain
				}
			}
		}
	}
}

// RenderPath draws the polyline through the waypoints and marks the last
// one as the goal.
func (r *TerminalRenderer) RenderPath(path []physics.Vector2D) {
	for i := 1; i < len(path); i++ {
		r.line(path[i-1], path[i])
	}
	if len(path) > 0 {
		x, y := r.worldToScreen(path[len(path)-1])
		r.plot(x, y, GlyphGoal)
	}
}

func (r *TerminalRenderer) line(from, to physics.Vector2D) {
	steps := int(math.Ceil(from.Distance(to) / r.scale))
	for s := 0; s <= steps; s++ {
		t := 1.0
		if steps > 0 {
			t = float64(s) / float64(steps)
		}
		x, y := r.worldToScreen(from.Lerp(to, t))
		if r.inBounds(x, y) && r.buffer[y][x] == GlyphEmpty {
			r.buffer[y][x] = GlyphPath
		}
	}
}

// RenderAgent draws the agent and, when it has one, its goal.
func (r *TerminalRenderer) RenderAgent(agent engine.AgentState) {
	if agent.Goal != nil {
		gx, gy := r.worldToScreen(*agent.Goal)
		r.plot(gx, gy, GlyphGoal)
	}
	x, y := r.worldToScreen(agent.Position)
	r.plot(x, y, agentGlyph(agent.Kind))
}

func agentGlyph(kind string) rune {
	switch kind {
	case "player":
		return GlyphPlayer
	case "enemy":
		return GlyphEnemy
	default:
		return GlyphUnknown
	}
}

// Lines returns the buffer as strings, one per row.
func (r *TerminalRenderer) Lines() []string {
	lines := make([]string, len(r.buffer))
	for y, row := range r.buffer {
		lines[y] = string(row)
	}
	return lines
}

// Present writes the buffer inside a border, preceded by a clear-screen
// sequence.
func (r *TerminalRenderer) Present() error {
	if r.out == nil {
		return nil
	}
	w := bufio.NewWriter(r.out)
	border := "+" + strings.Repeat("-", r.width) + "+\n"

	w.WriteString("\033[H\033[2J")
	w.WriteString(border)
	for _, line := range r.Lines() {
		w.WriteString("|")
		w.WriteString(line)
		w.WriteString("|\n")
	}
	w.WriteString(border)
	return w.Flush()
}
