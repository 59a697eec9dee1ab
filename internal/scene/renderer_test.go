package scene

import (
	"bytes"
	"testing"

	"flowquest/internal/shotgraph"
)

func titleShot() *shotgraph.Shot {
	return &shotgraph.Shot{
		ID: "s1", Seed: 12345,
		Bindings: map[string]any{"company": "Acme Corp"},
		Duration: 8,
		Overlays: []shotgraph.Overlay{{"type": "title", "text": "Sales Quote"}},
	}
}

func chartShot() *shotgraph.Shot {
	return &shotgraph.Shot{
		ID: "s2", Seed: 12346,
		Bindings: map[string]any{"budget": 16000},
		Duration: 12,
		Overlays: []shotgraph.Overlay{{"type": "figure", "chart_type": "budget_breakdown"}},
	}
}

func TestKindForShot(t *testing.T) {
	if kind := KindForShot(chartShot(), chartShot().Bindings); kind != KindChart {
		t.Errorf("figure overlay => %s, want chart", kind)
	}
	timelineBindings := map[string]any{"timeline": "2024-Q2"}
	if kind := KindForShot(titleShot(), timelineBindings); kind != KindTimeline {
		t.Errorf("timeline binding => %s, want timeline", kind)
	}
	if kind := KindForShot(titleShot(), titleShot().Bindings); kind != KindTitle {
		t.Errorf("plain shot => %s, want title", kind)
	}
}

func TestRenderFrameDeterministic(t *testing.T) {
	r := NewRenderer(1280, 720, "default", nil)
	shot := chartShot()

	a := r.RenderFrame(shot, shot.Bindings, 7, 60)
	b := r.RenderFrame(shot, shot.Bindings, 7, 60)
	if !bytes.Equal(a.Encode(), b.Encode()) {
		t.Error("identical inputs produced different frame bytes")
	}
}

func TestRenderFrameSensitiveToBindings(t *testing.T) {
	r := NewRenderer(1280, 720, "default", nil)
	shot := chartShot()

	a := r.RenderFrame(shot, map[string]any{"budget": 16000}, 30, 60)
	b := r.RenderFrame(shot, map[string]any{"budget": 14000}, 30, 60)
	if bytes.Equal(a.Encode(), b.Encode()) {
		t.Error("different bindings produced identical frame bytes")
	}
}

func TestRenderShotFrameCount(t *testing.T) {
	r := NewRenderer(640, 360, "default", nil)
	shot := titleShot()

	frames, err := r.RenderShot(shot, shot.Bindings, 24)
	if err != nil {
		t.Fatalf("RenderShot: %v", err)
	}
	if len(frames) != 24 {
		t.Fatalf("frame count = %d, want 24", len(frames))
	}
	if _, err := r.RenderShot(shot, shot.Bindings, 0); err == nil {
		t.Fatal("expected error for zero frame count")
	}
}

func TestOverlayOpacityFadeWindows(t *testing.T) {
	overlay := shotgraph.Overlay{"type": "title", "fade_in_end": 0.25, "fade_out_start": 0.75}

	if got := overlayOpacity(overlay, 0); got != 0 {
		t.Errorf("opacity at start = %v, want 0", got)
	}
	if got := overlayOpacity(overlay, 0.5); got != 1 {
		t.Errorf("opacity mid-shot = %v, want 1", got)
	}
	if got := overlayOpacity(overlay, 1); got > 0.0001 {
		t.Errorf("opacity at end = %v, want ~0", got)
	}
	mid := overlayOpacity(overlay, 0.125)
	if mid <= 0 || mid >= 1 {
		t.Errorf("opacity during fade-in = %v, want strictly between 0 and 1", mid)
	}
}

func TestUnknownOverlayKindFallsBack(t *testing.T) {
	r := NewRenderer(1280, 720, "default", nil)
	shot := &shotgraph.Shot{
		ID: "sx", Seed: 1,
		Bindings: map[string]any{},
		Overlays: []shotgraph.Overlay{{"type": "hologram"}},
	}

	frame := r.RenderFrame(shot, shot.Bindings, 0, 10)
	if len(frame.Layers) < 2 {
		t.Fatalf("expected background plus fallback layer, got %d layers", len(frame.Layers))
	}
	fallback := frame.Layers[1]
	if fallback.Kind != "title" || fallback.Text != "" {
		t.Errorf("fallback layer = %+v, want blank title", fallback)
	}
}

func TestFrameEncodeQuantizesOpacity(t *testing.T) {
	f := Frame{Index: 0, Total: 1, Width: 10, Height: 10, Layers: []Layer{{Kind: "title", Opacity: 0.12341}}}
	g := Frame{Index: 0, Total: 1, Width: 10, Height: 10, Layers: []Layer{{Kind: "title", Opacity: 0.12344}}}
	if !bytes.Equal(f.Encode(), g.Encode()) {
		t.Error("sub-precision opacity difference changed frame bytes")
	}
}
