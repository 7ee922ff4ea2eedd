package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-isonav/pkg/engine"
	"github.com/opd-ai/go-isonav/pkg/entity"
	"github.com/opd-ai/go-isonav/pkg/logging"
	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/render"
)

// mapTop is the first screen row of the map; row 0 holds the status line.
const mapTop = 1

// panColumns is how far one arrow key press pans, in columns.
const panColumns = 8

// viewer maps terminal input onto one controlled agent and draws the world.
// A mouse press sets a click target; dragging with the button held keeps a
// followed target under the cursor.
type viewer struct {
	world    *engine.World
	player   entity.ID
	renderer *render.TerminalRenderer
	logger   *logging.Logger

	held     bool
	tracking bool
	status   string
	reload   func(context.Context) error
}

func newViewer(world *engine.World, player entity.ID, width, height int, scale float64, logger *logging.Logger) *viewer {
	v := &viewer{
		world:    world,
		player:   player,
		renderer: render.NewTerminalRenderer(width, max(height-mapTop, 0), scale, nil),
		logger:   logger,
		tracking: true,
		status:   "click: move  drag: follow  arrows: pan  +/-: zoom  c: track  space: stop  q: quit",
	}
	return v
}

// handleEvent applies one terminal event. It returns false when the viewer
// should exit.
func (v *viewer) handleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, h := ev.Size()
		v.renderer.Resize(w, max(h-mapTop, 0))
	case *tcell.EventKey:
		return v.handleKey(ctx, ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	}
	return true
}

func (v *viewer) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	scale := v.renderer.Scale()
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		v.pan(physics.Vector2D{X: -panColumns * scale})
	case tcell.KeyRight:
		v.pan(physics.Vector2D{X: panColumns * scale})
	case tcell.KeyUp:
		v.pan(physics.Vector2D{Y: -panColumns * scale})
	case tcell.KeyDown:
		v.pan(physics.Vector2D{Y: panColumns * scale})
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case '+', '=':
			v.renderer.SetScale(scale / 2)
		case '-':
			v.renderer.SetScale(scale * 2)
		case 'c':
			v.tracking = true
		case ' ':
			if err := v.world.ClearTarget(v.player); err != nil {
				v.status = err.Error()
			} else {
				v.status = "stopped"
			}
		case 'r':
			if v.reload == nil {
				break
			}
			if err := v.reload(ctx); err != nil {
				v.status = "reload failed: " + err.Error()
				v.logger.Error(ctx, "Scenario reload failed", err)
			} else {
				v.status = "scenario reloaded"
				v.rebindPlayer()
			}
		}
	}
	return true
}

func (v *viewer) pan(d physics.Vector2D) {
	v.tracking = false
	v.renderer.SetCenter(v.renderer.Center().Add(d))
}

func (v *viewer) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	pressed := ev.Buttons()&tcell.Button1 != 0
	if !pressed {
		v.held = false
		return
	}
	if y < mapTop {
		return
	}
	target := v.renderer.ScreenToWorld(x, y-mapTop)

	if !v.held {
		v.held = true
		err := v.world.SetTarget(v.player, target, false)
		switch {
		case errors.Is(err, engine.ErrTargetBlocked):
			v.status = "target is inside terrain"
		case err != nil:
			v.status = err.Error()
		default:
			v.status = fmt.Sprintf("moving to (%.0f, %.0f)", target.X, target.Y)
		}
		return
	}

	if err := v.world.SetTarget(v.player, target, true); err != nil {
		v.status = err.Error()
		return
	}
	v.status = fmt.Sprintf("following (%.0f, %.0f)", target.X, target.Y)
}

// rebindPlayer finds the controlled agent again after a scenario reload.
func (v *viewer) rebindPlayer() {
	for _, a := range v.world.Snapshot().Agents {
		if a.Kind == entity.KindPlayer.String() {
			v.player = a.ID
			return
		}
	}
}

// draw renders the status line and map onto screen and shows it.
func (v *viewer) draw(screen tcell.Screen) {
	snap := v.world.Snapshot()
	if v.tracking {
		for _, a := range snap.Agents {
			if a.ID == v.player {
				v.renderer.SetCenter(a.Position)
				break
			}
		}
	}

	cells, shape := v.world.Cells()
	screen.Clear()
	// Present is a no-op without a writer; Blit puts the buffer on screen.
	_ = render.DrawFrame(v.renderer, cells, shape, snap)
	v.renderer.Blit(screen, mapTop)

	diag := v.world.Diagnostics()
	line := fmt.Sprintf("tick %d  agents %d  cache %.0f%%  breaker %s  | %s",
		diag.Tick, diag.Agents, diag.CacheHitRate*100, diag.Breaker, v.status)
	render.DrawText(screen, 0, 0, line, tcell.StyleDefault.Reverse(true))
	screen.Show()
}
