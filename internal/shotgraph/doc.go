// Package shotgraph models the dependency graph over video shots: the shots
// themselves, the edges between them, the checkpoints whose values drive
// them, and the fingerprints that identify each shot's exact renderable state.
//
// The graph is structurally immutable after construction. Step values mutate
// in place through ApplyStepChange, which also advances the generation
// counters the delta engine uses to discard superseded renders. Fingerprints
// are RFC 8785 canonical JSON digests, so an identical seed, binding set, and
// style always hash identically regardless of process or map ordering.
package shotgraph
