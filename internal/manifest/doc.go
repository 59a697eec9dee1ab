// Package manifest maintains the HLS-style playlist for a quest's preview
// video. Manifests are immutable snapshots: a delta render patches exactly
// the entries for the shots that changed and publishes the new snapshot
// atomically, so players re-fetch only the patched segments.
package manifest
