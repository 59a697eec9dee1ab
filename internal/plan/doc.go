// Package plan turns a quest template into a shot graph. External planner
// payloads are validated against an embedded JSON schema before graph
// construction; the safe-mode planner builds the graph for built-in
// templates deterministically with no external calls.
package plan
