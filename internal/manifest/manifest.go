package manifest

import (
	"errors"
	"fmt"
	"math"

	"flowquest/internal/segment"
	"flowquest/internal/shotgraph"
)

// ErrUnknownShot is returned when a patch names a shot the manifest does not carry.
var ErrUnknownShot = errors.New("shot not present in manifest")

// Entry is one media segment reference in playback order.
type Entry struct {
	Index       int     `json:"index"`
	ShotID      string  `json:"shot_id"`
	Fingerprint string  `json:"fingerprint"`
	Duration    float64 `json:"duration"`
	URI         string  `json:"uri"`
}

// Variant is one rendition in the master playlist.
type Variant struct {
	Bandwidth int    `json:"bandwidth"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	URI       string `json:"uri"`
}

// Manifest is an immutable playlist snapshot. Patch produces a new snapshot;
// existing snapshots are never mutated, so readers need no locking.
type Manifest struct {
	Version  int       `json:"version"`
	Entries  []Entry   `json:"entries"`
	Variants []Variant `json:"variants,omitempty"`
}

// Update carries the replacement data for one shot during a patch.
type Update struct {
	Fingerprint string
	Duration    float64
}

// EntryURI names the segment file for a shot at a manifest version. A fresh
// version token on every patched URI defeats stale player caches.
func EntryURI(shotID string, version int) string {
	return fmt.Sprintf("%s_v%d.ts", shotID, version)
}

// Build assembles the initial manifest from shots in playback order and their
// encoded segments. Shots and segments must be index-aligned.
func Build(shots []*shotgraph.Shot, fingerprints []string, segments []segment.Segment) (*Manifest, error) {
	if len(shots) != len(segments) || len(shots) != len(fingerprints) {
		return nil, fmt.Errorf("manifest: shot/segment count mismatch: %d shots, %d fingerprints, %d segments",
			len(shots), len(fingerprints), len(segments))
	}
	m := &Manifest{Version: 1, Entries: make([]Entry, len(shots))}
	for i, shot := range shots {
		m.Entries[i] = Entry{
			Index:       i,
			ShotID:      shot.ID,
			Fingerprint: fingerprints[i],
			Duration:    segments[i].Duration,
			URI:         EntryURI(shot.ID, 1),
		}
	}
	if len(segments) > 0 {
		m.Variants = variantsFor(segments[0].Metadata)
	}
	return m, nil
}

// variantsFor lists the master playlist renditions, one per quality preset.
// All renditions share the segment geometry; only the bandwidth differs.
func variantsFor(meta segment.Metadata) []Variant {
	qualities := []segment.Quality{segment.QualityPreview, segment.QualityHigh}
	variants := make([]Variant, len(qualities))
	for i, q := range qualities {
		variants[i] = Variant{
			Bandwidth: q.Bitrate(),
			Width:     meta.Width,
			Height:    meta.Height,
			URI:       string(q) + ".m3u8",
		}
	}
	return variants
}

// Patch returns a new manifest where exactly the entries for the shots in
// updates differ from the receiver. Every patched URI carries the new version
// token; untouched entries are copied verbatim.
func (m *Manifest) Patch(updates map[string]Update) (*Manifest, error) {
	if m == nil {
		return nil, errors.New("manifest: patch on nil manifest")
	}
	for shotID := range updates {
		if m.indexOf(shotID) < 0 {
			return nil, fmt.Errorf("manifest: %w: %s", ErrUnknownShot, shotID)
		}
	}

	next := &Manifest{
		Version:  m.Version + 1,
		Entries:  make([]Entry, len(m.Entries)),
		Variants: m.Variants,
	}
	copy(next.Entries, m.Entries)
	for shotID, update := range updates {
		i := m.indexOf(shotID)
		next.Entries[i].Fingerprint = update.Fingerprint
		next.Entries[i].Duration = update.Duration
		next.Entries[i].URI = EntryURI(shotID, next.Version)
	}
	return next, nil
}

func (m *Manifest) indexOf(shotID string) int {
	for i, e := range m.Entries {
		if e.ShotID == shotID {
			return i
		}
	}
	return -1
}

// Entry returns the entry for a shot, or false if absent.
func (m *Manifest) Entry(shotID string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	i := m.indexOf(shotID)
	if i < 0 {
		return Entry{}, false
	}
	return m.Entries[i], true
}

// Fingerprints lists the cache fingerprints the manifest currently references.
func (m *Manifest) Fingerprints() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		if e.Fingerprint != "" {
			out = append(out, e.Fingerprint)
		}
	}
	return out
}

// TotalDuration sums the entry durations.
func (m *Manifest) TotalDuration() float64 {
	if m == nil {
		return 0
	}
	var total float64
	for _, e := range m.Entries {
		total += e.Duration
	}
	return total
}

func (m *Manifest) targetDuration() int {
	var max float64
	for _, e := range m.Entries {
		if e.Duration > max {
			max = e.Duration
		}
	}
	return int(math.Ceil(max))
}
