package shotgraph

import "fmt"

// AffectedShots returns the ids of shots directly referencing any changed step
// plus their transitive dependents, in canonical shot order. Shots with no
// path from a changed step are excluded.
func (g *Graph) AffectedShots(changedStepIDs ...string) []string {
	changed := make(map[string]bool, len(changedStepIDs))
	for _, id := range changedStepIDs {
		changed[id] = true
	}

	affected := make(map[string]bool)
	queue := make([]string, 0, len(g.shots))
	for _, shot := range g.shots {
		for _, stepID := range shot.StepIDs {
			if changed[stepID] {
				affected[shot.ID] = true
				queue = append(queue, shot.ID)
				break
			}
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range g.dependents[id] {
			if affected[next] {
				continue
			}
			affected[next] = true
			queue = append(queue, next)
		}
	}

	out := make([]string, 0, len(affected))
	for _, shot := range g.shots {
		if affected[shot.ID] {
			out = append(out, shot.ID)
		}
	}
	return out
}

// TopoOrder arranges the given shot ids so that every shot appears after the
// shots it depends on. Ids outside the graph are an error; the relative order
// of independent shots follows canonical shot order.
func (g *Graph) TopoOrder(ids []string) ([]string, error) {
	include := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := g.byID[id]; !ok {
			return nil, fmt.Errorf("topo order: %w: %s", ErrUnknownShot, id)
		}
		include[id] = true
	}

	indegree := make(map[string]int, len(include))
	for id := range include {
		indegree[id] = 0
	}
	for _, edge := range g.edges {
		if include[edge.From] && include[edge.To] {
			indegree[edge.To]++
		}
	}

	out := make([]string, 0, len(include))
	ready := make(map[string]bool)
	for len(out) < len(include) {
		progressed := false
		for _, shot := range g.shots {
			id := shot.ID
			if !include[id] || ready[id] || indegree[id] != 0 {
				continue
			}
			ready[id] = true
			out = append(out, id)
			progressed = true
			for _, next := range g.dependents[id] {
				if include[next] {
					indegree[next]--
				}
			}
		}
		if !progressed {
			// Unreachable on a validated graph; guards against mutation bugs.
			return nil, fmt.Errorf("topo order: %w", ErrGraphCycle)
		}
	}
	return out, nil
}

// DependsWithin reports whether shot id has at least one dependency edge from
// another shot in the given set.
func (g *Graph) DependsWithin(id string, set map[string]bool) bool {
	for _, edge := range g.edges {
		if edge.To == id && set[edge.From] {
			return true
		}
	}
	return false
}
