package shotgraph

import (
	"encoding/json"
	"fmt"
)

// graphState is the persisted form of a graph, covering both the immutable
// structure and the mutable bindings/generation counters.
type graphState struct {
	Version     string            `json:"version"`
	Shots       []*Shot           `json:"shots"`
	Edges       []Edge            `json:"edges"`
	Checkpoints []Checkpoint      `json:"checkpoints"`
	Bindings    map[string]any    `json:"bindings"`
	Generation  uint64            `json:"generation"`
	ShotGens    map[string]uint64 `json:"shot_generations"`
}

// MarshalJSON serializes the full graph state.
func (g *Graph) MarshalJSON() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return json.Marshal(graphState{
		Version:     g.version,
		Shots:       g.shots,
		Edges:       g.edges,
		Checkpoints: g.Checkpoints(),
		Bindings:    g.bindings,
		Generation:  g.generation,
		ShotGens:    g.shotGen,
	})
}

// Decode rebuilds a graph from its persisted JSON state, revalidating the
// structure and restoring bindings and generation counters.
func Decode(data []byte) (*Graph, error) {
	var state graphState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode shot graph: %w", err)
	}
	g, err := New(state.Version, state.Shots, state.Edges, state.Checkpoints)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, v := range state.Bindings {
		g.bindings[k] = v
	}
	g.generation = state.Generation
	for k, v := range state.ShotGens {
		g.shotGen[k] = v
	}
	return g, nil
}
