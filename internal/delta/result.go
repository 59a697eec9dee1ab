package delta

import "flowquest/internal/segment"

// Status classifies the outcome of one shot within a delta render.
type Status string

const (
	// StatusRendered means the shot was re-rendered and encoded.
	StatusRendered Status = "rendered"
	// StatusCached means the segment came straight from the render cache.
	StatusCached Status = "cached"
	// StatusDegraded means the shot missed its deadline and shipped a
	// preview-quality fallback.
	StatusDegraded Status = "degraded"
	// StatusFailed means the shot kept its previous segment; Err says why.
	StatusFailed Status = "failed"
	// StatusSuperseded means a newer change landed mid-render and this
	// shot's output was discarded.
	StatusSuperseded Status = "superseded"
)

// ShotStatus is the per-shot outcome reported to callers.
type ShotStatus struct {
	ID          string `json:"id"`
	Status      Status `json:"status"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Err         string `json:"error,omitempty"`
	ElapsedMS   int64  `json:"elapsed_ms"`
}

// shotOutcome carries the segment alongside the reportable status while the
// engine decides what to publish.
type shotOutcome struct {
	ShotStatus
	seg      segment.Segment
	cacheKey string
}

// Result summarizes one applied step change.
type Result struct {
	Generation      uint64       `json:"generation"`
	UpdatedShots    []string     `json:"updated_shots"`
	ManifestVersion int          `json:"manifest_version"`
	Shots           []ShotStatus `json:"shots"`
	ElapsedMS       int64        `json:"elapsed_ms"`
}
