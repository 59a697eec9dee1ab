package shotgraph

import "fmt"

// ApplyStepChange validates the step, updates its binding, and advances the
// graph generation. Every shot invalidated by the step inherits the new
// generation, which renders started under an older generation use to detect
// that their result is superseded. Returns the new generation.
func (g *Graph) ApplyStepChange(stepID string, value any) (uint64, error) {
	if _, ok := g.steps[stepID]; !ok {
		return 0, fmt.Errorf("apply step change: %w: %s", ErrUnknownStep, stepID)
	}

	affected := g.AffectedShots(stepID)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.bindings[stepID] = value
	g.generation++
	for _, shotID := range affected {
		g.shotGen[shotID] = g.generation
	}
	return g.generation, nil
}

// Generation returns the graph-wide change counter.
func (g *Graph) Generation() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.generation
}

// ShotGeneration returns the generation at which the shot was last invalidated.
func (g *Graph) ShotGeneration(shotID string) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.shotGen[shotID]
}
