package shotgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// fingerprintInput is the canonical renderable state of one shot. Identical
// inputs must digest identically across processes, so the JSON form is run
// through RFC 8785 canonicalization before hashing.
type fingerprintInput struct {
	Seed     int64          `json:"seed"`
	Bindings map[string]any `json:"bindings"`
	Style    string         `json:"style"`
}

// Fingerprint digests a shot's seed, resolved bindings, and render style.
func (g *Graph) Fingerprint(shot *Shot, style string) (string, error) {
	return fingerprintBindings(shot.Seed, g.ResolvedBindings(shot), style)
}

// FingerprintByID is Fingerprint keyed by shot id.
func (g *Graph) FingerprintByID(shotID, style string) (string, error) {
	shot, ok := g.byID[shotID]
	if !ok {
		return "", fmt.Errorf("fingerprint: %w: %s", ErrUnknownShot, shotID)
	}
	return g.Fingerprint(shot, style)
}

func fingerprintBindings(seed int64, bindings map[string]any, style string) (string, error) {
	raw, err := json.Marshal(fingerprintInput{Seed: seed, Bindings: bindings, Style: style})
	if err != nil {
		return "", fmt.Errorf("fingerprint: marshal input: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
