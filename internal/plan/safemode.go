package plan

import (
	"errors"
	"fmt"

	"flowquest/internal/shotgraph"
)

// ErrUnknownTemplate is returned for template keys without a safe-mode plan.
var ErrUnknownTemplate = errors.New("unknown template")

// TemplateSalesQuote is the built-in sales quote walkthrough.
const TemplateSalesQuote = "sales_quote_v1"

// Templates lists the template keys the safe-mode planner can serve.
func Templates() []string {
	return []string{TemplateSalesQuote}
}

// SafeMode deterministically plans a shot graph for a built-in template
// without calling any external model. Inputs pre-fill matching checkpoint
// values; unknown input keys are ignored.
func SafeMode(templateKey string, inputs map[string]any) (*shotgraph.Graph, error) {
	switch templateKey {
	case TemplateSalesQuote:
		return salesQuoteGraph(inputs)
	default:
		return nil, fmt.Errorf("plan: %w: %s", ErrUnknownTemplate, templateKey)
	}
}

func salesQuoteGraph(inputs map[string]any) (*shotgraph.Graph, error) {
	value := func(key string, fallback any) any {
		if v, ok := inputs[key]; ok && v != nil {
			return v
		}
		return fallback
	}

	shots := []*shotgraph.Shot{
		{
			ID:       "s1",
			StepIDs:  []string{"company"},
			Seed:     12345,
			Bindings: map[string]any{},
			Duration: 8,
			Overlays: []shotgraph.Overlay{
				{"type": "title", "text": "Sales Quote", "fade_in_end": 0.2},
				{"type": "caption", "binding": "company"},
			},
		},
		{
			ID:       "s2",
			StepIDs:  []string{"budget", "scope"},
			Seed:     12346,
			Bindings: map[string]any{},
			Duration: 12,
			Overlays: []shotgraph.Overlay{
				{"type": "figure", "chart_type": "budget_breakdown"},
			},
		},
		{
			ID:       "s3",
			StepIDs:  []string{"timeline"},
			Seed:     12347,
			Bindings: map[string]any{},
			Duration: 10,
			Overlays: []shotgraph.Overlay{
				{"type": "caption", "binding": "timeline"},
			},
		},
	}
	edges := []shotgraph.Edge{
		{From: "s1", To: "s2"},
		{From: "s1", To: "s3"},
	}
	minBudget, maxBudget := 1000.0, 1000000.0
	checkpoints := []shotgraph.Checkpoint{
		{
			ID: "company", Label: "Company name", Type: "text",
			Placeholder: "Acme Corp", Required: true,
			Value: value("company", nil),
		},
		{
			ID: "budget", Label: "Project budget", Type: "number",
			Min: &minBudget, Max: &maxBudget, Required: true,
			Value: value("budget", nil),
		},
		{
			ID: "scope", Label: "Scope of work", Type: "text",
			Placeholder: "Implementation and onboarding", Required: true,
			Value: value("scope", nil),
		},
		{
			ID: "timeline", Label: "Delivery timeline", Type: "text",
			Placeholder: "2024-Q2", Required: true,
			Value: value("timeline", nil),
		},
	}
	return shotgraph.New("v1", shots, edges, checkpoints)
}
