package receipt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"

	"flowquest/internal/shotgraph"
)

// Artifacts carries the exported document paths, keyed by format.
type Artifacts struct {
	PDF string `json:"pdf,omitempty"`
	ICS string `json:"ics,omitempty"`
	MD  string `json:"md,omitempty"`
	CSV string `json:"csv,omitempty"`
}

// Versions pins the tool versions that produced the outcome.
type Versions struct {
	Planner  string `json:"planner"`
	Renderer string `json:"renderer"`
	Exporter string `json:"exporter"`
	Template string `json:"template"`
}

// Check records one verification rule outcome.
type Check struct {
	ID     string `json:"id"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// StepTaken records one answered checkpoint.
type StepTaken struct {
	StepID string `json:"step_id"`
	Value  any    `json:"value"`
}

// OutcomeReceipt is the verifiable record bound to a finished quest. The
// shotgraph hash ties it to the exact rendered content: any change to a
// binding, seed, or style yields a different hash.
type OutcomeReceipt struct {
	QuestID       string      `json:"quest_id"`
	Template      string      `json:"template"`
	ShotGraphHash string      `json:"shotgraph_hash"`
	StepsTaken    []StepTaken `json:"steps_taken"`
	Checks        []Check     `json:"checks"`
	Artifacts     Artifacts   `json:"artifacts"`
	Versions      Versions    `json:"versions"`
	Signature     string      `json:"signature,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// clock is swapped in tests for stable timestamps.
var clock = time.Now

// ShotGraphHash digests the graph's rendered identity: the canonical JSON of
// ordered [shotID, fingerprint] pairs. Shot order is the canonical graph
// order, so the hash is stable across runs for identical bindings.
func ShotGraphHash(g *shotgraph.Graph, style string) (string, error) {
	shots := g.Shots()
	pairs := make([][2]string, len(shots))
	for i, shot := range shots {
		fp, err := g.Fingerprint(shot, style)
		if err != nil {
			return "", fmt.Errorf("receipt: fingerprint shot %s: %w", shot.ID, err)
		}
		pairs[i] = [2]string{shot.ID, fp}
	}
	raw, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("receipt: marshal hash input: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("receipt: canonicalize hash input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// BindParams collects everything beyond the graph needed to bind a receipt.
type BindParams struct {
	QuestID    string
	Template   string
	Style      string
	StepsTaken []StepTaken
	Checks     []Check
	Artifacts  Artifacts
	Versions   Versions
}

// Bind produces the outcome receipt for the graph's current state.
func Bind(g *shotgraph.Graph, params BindParams) (*OutcomeReceipt, error) {
	hash, err := ShotGraphHash(g, params.Style)
	if err != nil {
		return nil, err
	}
	return &OutcomeReceipt{
		QuestID:       params.QuestID,
		Template:      params.Template,
		ShotGraphHash: hash,
		StepsTaken:    params.StepsTaken,
		Checks:        params.Checks,
		Artifacts:     params.Artifacts,
		Versions:      params.Versions,
		Timestamp:     clock().UTC(),
	}, nil
}

// Canonical returns the receipt's canonical JSON form with the signature
// field cleared; signatures are computed over these bytes.
func (r *OutcomeReceipt) Canonical() ([]byte, error) {
	unsigned := *r
	unsigned.Signature = ""
	raw, err := json.Marshal(&unsigned)
	if err != nil {
		return nil, fmt.Errorf("receipt: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("receipt: canonicalize: %w", err)
	}
	return canonical, nil
}

// Sign sets the receipt signature to an HMAC-SHA256 over its canonical bytes.
func (r *OutcomeReceipt) Sign(secret []byte) error {
	canonical, err := r.Canonical()
	if err != nil {
		return err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(canonical)
	r.Signature = hex.EncodeToString(mac.Sum(nil))
	return nil
}

// VerifySignature checks the signature against the canonical bytes.
func (r *OutcomeReceipt) VerifySignature(secret []byte) (bool, error) {
	if r.Signature == "" {
		return false, nil
	}
	canonical, err := r.Canonical()
	if err != nil {
		return false, err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(canonical)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(r.Signature)), nil
}
