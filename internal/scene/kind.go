package scene

import "flowquest/internal/shotgraph"

// Kind identifies one of the closed set of scene behaviors. New behaviors are
// added here, not via an open extension point.
type Kind string

const (
	KindTitle    Kind = "title"
	KindChart    Kind = "chart"
	KindTimeline Kind = "timeline"
)

// KindForShot selects a scene kind structurally: a figure overlay makes the
// shot a chart, schedule-shaped bindings make it a timeline, everything else
// renders as a title card. The selection depends only on shot structure so it
// is stable for a given fingerprint.
func KindForShot(shot *shotgraph.Shot, bindings map[string]any) Kind {
	for _, overlay := range shot.Overlays {
		if overlay.Kind() == "figure" {
			return KindChart
		}
	}
	for _, key := range []string{"timeline", "schedule", "milestones"} {
		if _, ok := bindings[key]; ok {
			return KindTimeline
		}
	}
	return KindTitle
}
