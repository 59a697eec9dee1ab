package shotgraph

import "errors"

var (
	// ErrGraphCycle reports that the shot dependency edges contain a cycle.
	ErrGraphCycle = errors.New("shot graph contains a cycle")
	// ErrUnknownStep reports a reference to a step id with no declared checkpoint.
	ErrUnknownStep = errors.New("unknown step")
	// ErrUnknownShot reports an edge endpoint or lookup for a shot id not in the graph.
	ErrUnknownShot = errors.New("unknown shot")
	// ErrDuplicateShot reports two shots sharing an id.
	ErrDuplicateShot = errors.New("duplicate shot id")
)
