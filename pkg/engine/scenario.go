// pkg/engine/scenario.go
package engine

import (
	"context"
	"fmt"

	"github.com/opd-ai/go-isonav/pkg/config"
	"github.com/opd-ai/go-isonav/pkg/entity"
)

// LoadScenario replaces the terrain with the scenario's cells and spawns its
// agents. Agents already in the world are removed first. The scenario must
// already be validated; terrain that cannot be built leaves the world as it
// was.
func (w *World) LoadScenario(ctx context.Context, s *config.Scenario) error {
	idx, err := w.buildTerrain(s.Cells, s.Shape)
	if err != nil {
		return err
	}
	for _, st := range w.Snapshot().Agents {
		if err := w.RemoveAgent(st.ID); err != nil {
			return err
		}
	}
	w.installTerrain(ctx, idx)

	ids := make(map[string]entity.ID, len(s.Agents))
	for _, spawn := range s.Agents {
		kind, err := spawn.EntityKind()
		if err != nil {
			return fmt.Errorf("agent %q: %w", spawn.Name, err)
		}
		id, err := w.AddAgent(AgentSpec{
			Name:     spawn.Name,
			Kind:     kind,
			Position: spawn.Position(),
			Radius:   spawn.Radius,
			Speed:    spawn.Speed,
			Ghost:    spawn.Ghost,
		})
		if err != nil {
			return fmt.Errorf("agent %q: %w", spawn.Name, err)
		}
		ids[spawn.Name] = id
	}

	for _, spawn := range s.Agents {
		id := ids[spawn.Name]
		switch {
		case spawn.Chase != "":
			if err := w.Chase(id, ids[spawn.Chase]); err != nil {
				return fmt.Errorf("agent %q: %w", spawn.Name, err)
			}
		case spawn.Target != nil:
			if err := w.SetTarget(id, spawn.Target.Center(), false); err != nil {
				return fmt.Errorf("agent %q: %w", spawn.Name, err)
			}
		}
	}

	w.logger.Info(ctx, "scenario loaded",
		"scenario", s.Name,
		"cells", len(s.Cells),
		"agents", len(s.Agents),
	)
	return nil
}
