package shotgraph

import (
	"encoding/json"
	"errors"
	"testing"
)

func testCheckpoints() []Checkpoint {
	return []Checkpoint{
		{ID: "company", Label: "Company", Type: "text", Required: true, Value: "Acme Corp"},
		{ID: "budget", Label: "Budget", Type: "currency", Required: true, Value: 16000},
		{ID: "timeline", Label: "Timeline", Type: "date", Required: true, Value: "2024-Q2"},
	}
}

func testShots() []*Shot {
	return []*Shot{
		{
			ID: "s1", StepIDs: []string{"company"}, Seed: 12345,
			Bindings: map[string]any{"company": "Acme Corp"}, Duration: 8,
			Overlays: []Overlay{{"type": "title", "text": "Sales Quote"}},
		},
		{
			ID: "s2", StepIDs: []string{"budget"}, Seed: 12346,
			Bindings: map[string]any{"budget": 16000}, Duration: 12,
			Overlays: []Overlay{{"type": "figure", "chart_type": "budget_breakdown"}},
		},
		{
			ID: "s3", StepIDs: []string{"timeline"}, Seed: 12347,
			Bindings: map[string]any{"timeline": "2024-Q2"}, Duration: 10,
			Overlays: []Overlay{{"type": "caption", "text": "Delivery schedule"}},
		},
	}
}

func newTestGraph(t *testing.T, edges []Edge) *Graph {
	t.Helper()
	g, err := New("1.0", testShots(), edges, testCheckpoints())
	if err != nil {
		t.Fatalf("New graph: %v", err)
	}
	return g
}

func TestNewRejectsCycle(t *testing.T) {
	edges := []Edge{{From: "s1", To: "s2"}, {From: "s2", To: "s3"}, {From: "s3", To: "s1"}}
	_, err := New("1.0", testShots(), edges, testCheckpoints())
	if !errors.Is(err, ErrGraphCycle) {
		t.Fatalf("expected ErrGraphCycle, got %v", err)
	}
}

func TestNewRejectsUndeclaredStep(t *testing.T) {
	shots := testShots()
	shots[1].StepIDs = []string{"budget", "currency_code"}
	_, err := New("1.0", shots, nil, testCheckpoints())
	if !errors.Is(err, ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}
}

func TestNewRejectsDuplicateShotID(t *testing.T) {
	shots := testShots()
	shots[2].ID = "s1"
	_, err := New("1.0", shots, nil, testCheckpoints())
	if !errors.Is(err, ErrDuplicateShot) {
		t.Fatalf("expected ErrDuplicateShot, got %v", err)
	}
}

func TestNewRejectsEdgeToMissingShot(t *testing.T) {
	_, err := New("1.0", testShots(), []Edge{{From: "s1", To: "s9"}}, testCheckpoints())
	if !errors.Is(err, ErrUnknownShot) {
		t.Fatalf("expected ErrUnknownShot, got %v", err)
	}
}

func TestApplyStepChangeUpdatesBindingAndGeneration(t *testing.T) {
	g := newTestGraph(t, nil)

	gen, err := g.ApplyStepChange("budget", 14000)
	if err != nil {
		t.Fatalf("ApplyStepChange: %v", err)
	}
	if gen != 1 {
		t.Errorf("generation = %d, want 1", gen)
	}
	value, ok := g.Binding("budget")
	if !ok || value != 14000 {
		t.Errorf("budget binding = %v, want 14000", value)
	}
	if g.ShotGeneration("s2") != 1 {
		t.Errorf("s2 generation = %d, want 1", g.ShotGeneration("s2"))
	}
	if g.ShotGeneration("s1") != 0 {
		t.Errorf("s1 generation = %d, want 0 (unaffected)", g.ShotGeneration("s1"))
	}
}

func TestApplyStepChangeUnknownStepLeavesGraphUnchanged(t *testing.T) {
	g := newTestGraph(t, nil)
	before := g.SnapshotBindings()

	_, err := g.ApplyStepChange("unknown_step", "x")
	if !errors.Is(err, ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}
	if g.Generation() != 0 {
		t.Errorf("generation advanced on rejected change: %d", g.Generation())
	}
	after := g.SnapshotBindings()
	if len(after) != len(before) {
		t.Errorf("bindings changed on rejected change: %v vs %v", before, after)
	}
	for k, v := range before {
		if after[k] != v {
			t.Errorf("binding %q changed: %v -> %v", k, v, after[k])
		}
	}
}

func TestResolvedBindingsOverlayCurrentValues(t *testing.T) {
	g := newTestGraph(t, nil)
	if _, err := g.ApplyStepChange("budget", 14000); err != nil {
		t.Fatalf("ApplyStepChange: %v", err)
	}

	shot, _ := g.Shot("s2")
	resolved := g.ResolvedBindings(shot)
	if resolved["budget"] != 14000 {
		t.Errorf("resolved budget = %v, want 14000", resolved["budget"])
	}
}

func TestEdgeJSONRoundTrip(t *testing.T) {
	raw := []byte(`[["s1","s2"],["s2","s3"]]`)
	var edges []Edge
	if err := json.Unmarshal(raw, &edges); err != nil {
		t.Fatalf("unmarshal edges: %v", err)
	}
	if len(edges) != 2 || edges[0].From != "s1" || edges[1].To != "s3" {
		t.Fatalf("unexpected edges: %+v", edges)
	}
	out, err := json.Marshal(edges)
	if err != nil {
		t.Fatalf("marshal edges: %v", err)
	}
	if string(out) != string(raw) {
		t.Errorf("round trip mismatch: %s vs %s", out, raw)
	}
}

func TestGraphStateRoundTrip(t *testing.T) {
	g := newTestGraph(t, []Edge{{From: "s1", To: "s2"}})
	if _, err := g.ApplyStepChange("budget", 14000); err != nil {
		t.Fatalf("ApplyStepChange: %v", err)
	}

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal graph: %v", err)
	}
	restored, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if restored.Generation() != g.Generation() {
		t.Errorf("generation = %d, want %d", restored.Generation(), g.Generation())
	}
	value, ok := restored.Binding("budget")
	if !ok || value != float64(14000) {
		// JSON numbers decode as float64.
		t.Errorf("restored budget = %v, want 14000", value)
	}
	if restored.ShotGeneration("s2") != g.ShotGeneration("s2") {
		t.Errorf("s2 generation not restored")
	}
}
