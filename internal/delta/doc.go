// Package delta orchestrates incremental re-rendering. A checkpoint change
// bumps the graph generation, maps to the affected shot set, and re-renders
// only those shots through the content-addressed cache before patching the
// published manifest. Renders overtaken by a newer change are discarded, so
// the manifest always reflects the latest accepted value for every step.
package delta
