package render

import (
	"github.com/gdamore/tcell/v2"
)

// glyphStyles colors each glyph on a tcell screen.
var glyphStyles = map[rune]tcell.Style{
	GlyphTerrain: tcell.StyleDefault.Foreground(tcell.ColorGray),
	GlyphPath:    tcell.StyleDefault.Foreground(tcell.ColorBlue),
	GlyphGoal:    tcell.StyleDefault.Foreground(tcell.ColorYellow),
	GlyphPlayer:  tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true),
	GlyphEnemy:   tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
}

// StyleFor returns the screen style of a glyph.
func StyleFor(g rune) tcell.Style {
	if s, ok := glyphStyles[g]; ok {
		return s
	}
	return tcell.StyleDefault
}

// Blit copies the buffer onto screen starting at row top. Rows past the
// screen are dropped. It does not call Show.
func (r *TerminalRenderer) Blit(screen tcell.Screen, top int) {
	sw, sh := screen.Size()
	for y := 0; y < r.height && y+top < sh; y++ {
		for x := 0; x < r.width && x < sw; x++ {
			g := r.buffer[y][x]
			screen.SetContent(x, y+top, g, nil, StyleFor(g))
		}
	}
}

// DrawText writes s at (x, y) in style, clipped to the screen width.
func DrawText(screen tcell.Screen, x, y int, s string, style tcell.Style) {
	sw, _ := screen.Size()
	for _, ch := range s {
		if x >= sw {
			return
		}
		screen.SetContent(x, y, ch, nil, style)
		x++
	}
}
