// Package verify runs the outcome ruleset over a quest's bindings before
// export: required fields, budget bounds, timeline formats, URL sanity, and
// STAR structure for deliverable descriptions.
package verify
