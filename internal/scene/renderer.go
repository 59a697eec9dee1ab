package scene

import (
	"fmt"
	"log/slog"
	"sort"

	"flowquest/internal/logging"
	"flowquest/internal/shotgraph"
)

// Renderer composites shots into frames. Rendering is a pure function of
// (seed, bindings, frameIndex, frameCount): no clock, no randomness, no
// shared temp state, so identical fingerprints yield byte-identical frames.
type Renderer struct {
	width  int
	height int
	style  string
	logger *slog.Logger
}

// NewRenderer builds a renderer for the given frame geometry and style.
func NewRenderer(width, height int, style string, logger *slog.Logger) *Renderer {
	return &Renderer{
		width:  width,
		height: height,
		style:  style,
		logger: logging.NewComponentLogger(logger, "scene"),
	}
}

// Style returns the style token the renderer composites with. It participates
// in shot fingerprints so restyled output never collides with cached entries.
func (r *Renderer) Style() string { return r.style }

// RenderShot produces the full frame sequence for a shot.
func (r *Renderer) RenderShot(shot *shotgraph.Shot, bindings map[string]any, frameCount int) ([]Frame, error) {
	if frameCount <= 0 {
		return nil, fmt.Errorf("scene: frame count must be positive, got %d", frameCount)
	}
	frames := make([]Frame, frameCount)
	for i := 0; i < frameCount; i++ {
		frames[i] = r.RenderFrame(shot, bindings, i, frameCount)
	}
	return frames, nil
}

// RenderFrame composites a single frame. Progress runs over [0,1] across the
// shot; each overlay fades in and out inside its own windows.
func (r *Renderer) RenderFrame(shot *shotgraph.Shot, bindings map[string]any, frameIndex, frameCount int) Frame {
	progress := 0.0
	if frameCount > 1 {
		progress = float64(frameIndex) / float64(frameCount-1)
	}

	frame := Frame{
		Index:  frameIndex,
		Total:  frameCount,
		Width:  r.width,
		Height: r.height,
	}

	kind := KindForShot(shot, bindings)
	frame.Layers = append(frame.Layers, Layer{
		Kind: "background",
		Text: fmt.Sprintf("%s/%s/seed:%d", r.style, kind, shot.Seed),
	})

	switch kind {
	case KindChart:
		frame.Layers = append(frame.Layers, r.chartLayers(shot, bindings, progress)...)
	case KindTimeline:
		frame.Layers = append(frame.Layers, r.timelineLayers(bindings, progress)...)
	default:
		frame.Layers = append(frame.Layers, r.titleLayers(shot, bindings, progress)...)
	}
	return frame
}

func (r *Renderer) titleLayers(shot *shotgraph.Shot, bindings map[string]any, progress float64) []Layer {
	layers := make([]Layer, 0, len(shot.Overlays))
	for i, overlay := range shot.Overlays {
		text := overlayText(overlay, bindings)
		switch overlay.Kind() {
		case "title", "caption":
			layers = append(layers, Layer{
				Kind:    overlay.Kind(),
				Text:    text,
				Opacity: overlayOpacity(overlay, progress),
				OffsetY: r.height/4 + i*(r.height/8),
			})
		default:
			// Unknown overlay kinds degrade to a blank title card.
			r.logger.Warn("unknown overlay kind, rendering fallback",
				logging.String(logging.FieldShotID, shot.ID),
				logging.String("overlay_kind", overlay.Kind()),
				logging.String(logging.FieldEventType, "overlay_fallback"),
			)
			layers = append(layers, Layer{
				Kind:    "title",
				Text:    "",
				Opacity: overlayOpacity(overlay, progress),
				OffsetY: r.height / 4,
			})
		}
	}
	return layers
}

func (r *Renderer) chartLayers(shot *shotgraph.Shot, bindings map[string]any, progress float64) []Layer {
	layers := make([]Layer, 0, 4)
	for _, overlay := range shot.Overlays {
		if overlay.Kind() != "figure" {
			continue
		}
		chartType, _ := overlay["chart_type"].(string)
		layers = append(layers, Layer{
			Kind:    "figure",
			Text:    chartType,
			Opacity: overlayOpacity(overlay, progress),
			OffsetY: r.height / 6,
		})
	}

	// Bars grow with eased progress toward their bound value.
	for _, key := range sortedKeys(bindings) {
		value, ok := asFloat(bindings[key])
		if !ok {
			continue
		}
		grown := value * easeInOut(progress)
		layers = append(layers, Layer{
			Kind:    "bar",
			Text:    fmt.Sprintf("%s=%.2f", key, grown),
			Opacity: 1,
			OffsetY: r.height / 2,
		})
	}
	return layers
}

func (r *Renderer) timelineLayers(bindings map[string]any, progress float64) []Layer {
	layers := make([]Layer, 0, len(bindings))
	for i, key := range sortedKeys(bindings) {
		text, ok := bindings[key].(string)
		if !ok {
			text = fmt.Sprint(bindings[key])
		}
		// Milestones slide in left-to-right as progress advances.
		reveal := easeInOut(progress)*float64(len(bindings)) - float64(i)
		layers = append(layers, Layer{
			Kind:    "milestone",
			Text:    fmt.Sprintf("%s:%s", key, text),
			Opacity: reveal,
			OffsetY: r.height/3 + i*(r.height/10),
		})
	}
	return layers
}

// overlayText resolves the overlay's text, substituting a bound value when the
// overlay names a binding instead of carrying literal text.
func overlayText(overlay shotgraph.Overlay, bindings map[string]any) string {
	if text, ok := overlay["text"].(string); ok {
		return text
	}
	if key, ok := overlay["binding"].(string); ok {
		if value, found := bindings[key]; found {
			return fmt.Sprint(value)
		}
	}
	return ""
}

// overlayOpacity applies the overlay's fade windows with ease-in/ease-out
// curves. Defaults: fade in over the first 20%, fade out over the last 20%.
func overlayOpacity(overlay shotgraph.Overlay, progress float64) float64 {
	fadeInEnd := overlayFloat(overlay, "fade_in_end", 0.2)
	fadeOutStart := overlayFloat(overlay, "fade_out_start", 0.8)

	switch {
	case fadeInEnd > 0 && progress < fadeInEnd:
		return easeIn(progress / fadeInEnd)
	case fadeOutStart < 1 && progress > fadeOutStart:
		return easeOut(1 - (progress-fadeOutStart)/(1-fadeOutStart))
	default:
		return 1
	}
}

func overlayFloat(overlay shotgraph.Overlay, key string, fallback float64) float64 {
	if value, ok := asFloat(overlay[key]); ok {
		return value
	}
	return fallback
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func easeIn(t float64) float64 { return clamp01(t) * clamp01(t) }

func easeOut(t float64) float64 {
	t = clamp01(t)
	return t * (2 - t)
}

func easeInOut(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
