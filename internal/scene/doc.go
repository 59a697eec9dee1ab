// Package scene is the deterministic compositor. It maps each shot to one of
// a closed set of scene kinds (title, chart, timeline) selected from the
// shot's structure, then composites overlay layers with eased fade windows
// into canonical frames. Nothing in the render path reads the clock or any
// global state, so a fingerprint fully determines the frame bytes.
package scene
