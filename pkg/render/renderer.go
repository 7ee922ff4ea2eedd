// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-isonav/pkg/engine"
	"github.com/opd-ai/go-isonav/pkg/logging"
	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
)

// Renderer draws one frame of a world snapshot.
type Renderer interface {
	Clear()
	RenderTerrain(cells []terrain.Cell, shape terrain.Shape)
	RenderPath(path []physics.Vector2D)
	RenderAgent(agent engine.AgentState)
	Present() error
}

// DrawFrame renders terrain, then every agent's path, then the agents
// themselves, so agents stay visible over their own paths.
func DrawFrame(r Renderer, cells []terrain.Cell, shape terrain.Shape, snap engine.Snapshot) error {
	r.Clear()
	r.RenderTerrain(cells, shape)
	for _, a := range snap.Agents {
		if len(a.Path) > 0 {
			r.RenderPath(a.Path)
		}
	}
	for _, a := range snap.Agents {
		r.RenderAgent(a)
	}
	return r.Present()
}

// NullRenderer logs draw calls at debug level and draws nothing.
type NullRenderer struct {
	logger *logging.Logger
}

// NewNullRenderer creates a NullRenderer. A nil logger discards output.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NullRenderer{
		logger: logger.With("component", "render"),
	}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {
	d.logger.Debug(context.Background(), "Clear called")
}

// Present implements Renderer.
func (d *NullRenderer) Present() error {
	d.logger.Debug(context.Background(), "Present called")
	return nil
}

// RenderTerrain implements Renderer.
func (d *NullRenderer) RenderTerrain(cells []terrain.Cell, shape terrain.Shape) {
	d.logger.Debug(context.Background(), "RenderTerrain called",
		"cells", len(cells),
		"half_width", shape.HalfWidth,
		"half_height", shape.HalfHeight,
	)
}

// RenderPath implements Renderer.
func (d *NullRenderer) RenderPath(path []physics.Vector2D) {
	d.logger.Debug(context.Background(), "RenderPath called", "waypoints", len(path))
}

// RenderAgent implements Renderer.
func (d *NullRenderer) RenderAgent(agent engine.AgentState) {
	d.logger.Debug(context.Background(), "RenderAgent called",
		"agent_id", agent.ID,
		"agent_name", agent.Name,
		"agent_kind", agent.Kind,
	)
}
