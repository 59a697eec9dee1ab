package shotgraph

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Overlay is one visual element layered onto a shot. The "type" key selects
// the element kind (title, figure, caption, map); remaining keys are
// kind-specific and flow into the compositor untouched.
type Overlay map[string]any

// Kind returns the overlay's type discriminator, or "" when absent.
func (o Overlay) Kind() string {
	kind, _ := o["type"].(string)
	return kind
}

// Shot is the immutable structural definition of one video segment. Only the
// step bindings resolved against it change over a quest's lifetime.
type Shot struct {
	ID       string         `json:"id"`
	StepIDs  []string       `json:"step_ids"`
	Seed     int64          `json:"seed"`
	Bindings map[string]any `json:"bindings"`
	Duration float64        `json:"duration"`
	Overlays []Overlay      `json:"overlays"`
}

// Edge declares that To depends on From. It serializes as a two-element
// JSON array to match the planner wire format.
type Edge struct {
	From string
	To   string
}

// MarshalJSON renders the edge as ["from","to"].
func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.From, e.To})
}

// UnmarshalJSON accepts the ["from","to"] pair form.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("edge must be a [from, to] pair: %w", err)
	}
	e.From, e.To = pair[0], pair[1]
	return nil
}

// Checkpoint describes one user-editable step that can invalidate shots.
type Checkpoint struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required"`
	Value       any      `json:"value,omitempty"`
}

// Graph is the DAG of shots plus the current step bindings. The structure is
// fixed at construction; bindings and generation counters mutate in place
// through ApplyStepChange.
type Graph struct {
	mu sync.RWMutex

	version string
	shots   []*Shot
	edges   []Edge
	steps   map[string]Checkpoint

	byID       map[string]*Shot
	dependents map[string][]string // forward adjacency: from -> shots depending on it

	bindings   map[string]any
	generation uint64
	shotGen    map[string]uint64
}

// New validates the planner-supplied structure and builds a graph. Initial
// bindings are seeded from each checkpoint's current value.
func New(version string, shots []*Shot, edges []Edge, checkpoints []Checkpoint) (*Graph, error) {
	g := &Graph{
		version:    version,
		shots:      shots,
		edges:      edges,
		steps:      make(map[string]Checkpoint, len(checkpoints)),
		byID:       make(map[string]*Shot, len(shots)),
		dependents: make(map[string][]string),
		bindings:   make(map[string]any),
		shotGen:    make(map[string]uint64, len(shots)),
	}

	for _, cp := range checkpoints {
		g.steps[cp.ID] = cp
		if cp.Value != nil {
			g.bindings[cp.ID] = cp.Value
		}
	}

	for _, shot := range shots {
		if shot == nil || shot.ID == "" {
			return nil, fmt.Errorf("shot graph: shot without id")
		}
		if _, dup := g.byID[shot.ID]; dup {
			return nil, fmt.Errorf("shot graph: %w: %s", ErrDuplicateShot, shot.ID)
		}
		g.byID[shot.ID] = shot
		for _, stepID := range shot.StepIDs {
			if _, ok := g.steps[stepID]; !ok {
				return nil, fmt.Errorf("shot graph: shot %s references %w %q", shot.ID, ErrUnknownStep, stepID)
			}
		}
	}

	for _, edge := range edges {
		if _, ok := g.byID[edge.From]; !ok {
			return nil, fmt.Errorf("shot graph: edge from %w %q", ErrUnknownShot, edge.From)
		}
		if _, ok := g.byID[edge.To]; !ok {
			return nil, fmt.Errorf("shot graph: edge to %w %q", ErrUnknownShot, edge.To)
		}
		g.dependents[edge.From] = append(g.dependents[edge.From], edge.To)
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkAcyclic runs Kahn's algorithm over the edge set.
func (g *Graph) checkAcyclic() error {
	indegree := make(map[string]int, len(g.byID))
	for id := range g.byID {
		indegree[id] = 0
	}
	for _, edge := range g.edges {
		indegree[edge.To]++
	}

	queue := make([]string, 0, len(indegree))
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range g.dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited != len(g.byID) {
		return fmt.Errorf("shot graph: %w", ErrGraphCycle)
	}
	return nil
}

// Version returns the planner-assigned graph version string.
func (g *Graph) Version() string { return g.version }

// Shot returns the shot with the given id.
func (g *Graph) Shot(id string) (*Shot, bool) {
	shot, ok := g.byID[id]
	return shot, ok
}

// Shots returns shots in canonical (planner) order.
func (g *Graph) Shots() []*Shot {
	out := make([]*Shot, len(g.shots))
	copy(out, g.shots)
	return out
}

// Edges returns a copy of the dependency edge set.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Checkpoints returns the declared steps in a stable order matching the
// planner's checkpoint list where possible.
func (g *Graph) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, 0, len(g.steps))
	seen := make(map[string]bool, len(g.steps))
	for _, shot := range g.shots {
		for _, stepID := range shot.StepIDs {
			if seen[stepID] {
				continue
			}
			seen[stepID] = true
			out = append(out, g.steps[stepID])
		}
	}
	for id, cp := range g.steps {
		if !seen[id] {
			out = append(out, cp)
		}
	}
	return out
}

// HasStep reports whether a checkpoint with the given id is declared.
func (g *Graph) HasStep(stepID string) bool {
	_, ok := g.steps[stepID]
	return ok
}

// Binding returns the current value bound to a step.
func (g *Graph) Binding(stepID string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	value, ok := g.bindings[stepID]
	return value, ok
}

// SnapshotBindings returns a copy of all current step bindings.
func (g *Graph) SnapshotBindings() map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]any, len(g.bindings))
	for k, v := range g.bindings {
		out[k] = v
	}
	return out
}

// ResolvedBindings returns the shot's static binding subset overlaid with the
// current values of every step that can invalidate it.
func (g *Graph) ResolvedBindings(shot *Shot) map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]any, len(shot.Bindings)+len(shot.StepIDs))
	for k, v := range shot.Bindings {
		out[k] = v
	}
	for _, stepID := range shot.StepIDs {
		if value, ok := g.bindings[stepID]; ok {
			out[stepID] = value
		}
	}
	return out
}
