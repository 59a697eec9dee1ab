package quest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"flowquest/internal/logging"
	"flowquest/internal/queststore"
	"flowquest/internal/receipt"
	"flowquest/internal/shotgraph"
	"flowquest/internal/verify"
)

// ErrVerificationFailed blocks export while the ruleset reports issues.
var ErrVerificationFailed = errors.New("verification failed")

// Snapshot freezes the exported quest state.
type Snapshot struct {
	Bindings      map[string]any `json:"bindings"`
	ShotGraphHash string         `json:"shotgraph_hash"`
}

// ExportResult reports a completed export.
type ExportResult struct {
	QuestID   string                  `json:"quest_id"`
	Snapshot  Snapshot                `json:"snapshot"`
	Receipt   *receipt.OutcomeReceipt `json:"receipt"`
	Artifacts receipt.Artifacts       `json:"artifacts"`
}

// Export verifies the quest, writes the outcome documents, binds the receipt,
// and marks the quest exported. A quest with open verification issues is
// rejected before any artifact is written.
func (s *Service) Export(ctx context.Context, questID string) (*ExportResult, error) {
	engine, record, err := s.engineFor(ctx, questID)
	if err != nil {
		return nil, err
	}
	graph := engine.Graph()
	bindings := graph.SnapshotBindings()

	verdict := verify.Run(bindings)
	if !verdict.Passed {
		return nil, fmt.Errorf("quest %s: %w: %s", questID, ErrVerificationFailed, strings.Join(verdict.Issues, "; "))
	}

	exportDir := filepath.Join(s.cfg.Paths.DataDir, "exports", questID)
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("quest: create export dir: %w", err)
	}
	artifacts, err := writeArtifacts(exportDir, record.Template, bindings)
	if err != nil {
		return nil, err
	}

	bound, err := receipt.Bind(graph, receipt.BindParams{
		QuestID:    questID,
		Template:   record.Template,
		Style:      s.cfg.Render.Style,
		StepsTaken: stepsTaken(graph.Checkpoints(), bindings),
		Checks:     verdict.Checks,
		Artifacts:  artifacts,
		Versions: receipt.Versions{
			Planner:  s.cfg.Versions.Planner,
			Renderer: s.cfg.Versions.Renderer,
			Exporter: s.cfg.Versions.Exporter,
			Template: record.Template,
		},
	})
	if err != nil {
		return nil, err
	}

	receiptJSON, err := json.Marshal(bound)
	if err != nil {
		return nil, fmt.Errorf("quest: marshal receipt: %w", err)
	}
	record.Status = queststore.StatusExported
	record.ReceiptJSON = string(receiptJSON)
	if err := s.store.Save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("quest exported",
		logging.String(logging.FieldQuestID, questID),
		logging.String("shotgraph_hash", bound.ShotGraphHash),
	)
	return &ExportResult{
		QuestID:   questID,
		Snapshot:  Snapshot{Bindings: bindings, ShotGraphHash: bound.ShotGraphHash},
		Receipt:   bound,
		Artifacts: artifacts,
	}, nil
}

// Receipt returns the bound receipt for an exported quest.
func (s *Service) Receipt(ctx context.Context, questID string) (*receipt.OutcomeReceipt, error) {
	record, err := s.Get(ctx, questID)
	if err != nil {
		return nil, err
	}
	if record.ReceiptJSON == "" {
		return nil, fmt.Errorf("quest %s has no bound receipt", questID)
	}
	var bound receipt.OutcomeReceipt
	if err := json.Unmarshal([]byte(record.ReceiptJSON), &bound); err != nil {
		return nil, fmt.Errorf("quest: decode stored receipt: %w", err)
	}
	return &bound, nil
}

func stepsTaken(checkpoints []shotgraph.Checkpoint, bindings map[string]any) []receipt.StepTaken {
	var steps []receipt.StepTaken
	for _, cp := range checkpoints {
		if value, ok := bindings[cp.ID]; ok {
			steps = append(steps, receipt.StepTaken{StepID: cp.ID, Value: value})
		}
	}
	return steps
}

// writeArtifacts renders the outcome documents. Markdown carries the quote
// summary, CSV the raw bindings, ICS a delivery placeholder event.
func writeArtifacts(dir, template string, bindings map[string]any) (receipt.Artifacts, error) {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var md strings.Builder
	fmt.Fprintf(&md, "# Outcome: %s\n\n", template)
	for _, k := range keys {
		fmt.Fprintf(&md, "- **%s**: %v\n", k, bindings[k])
	}
	mdPath := filepath.Join(dir, "outcome.md")
	if err := os.WriteFile(mdPath, []byte(md.String()), 0o644); err != nil {
		return receipt.Artifacts{}, fmt.Errorf("quest: write markdown artifact: %w", err)
	}

	csvPath := filepath.Join(dir, "outcome.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return receipt.Artifacts{}, fmt.Errorf("quest: create csv artifact: %w", err)
	}
	writer := csv.NewWriter(csvFile)
	_ = writer.Write([]string{"field", "value"})
	for _, k := range keys {
		_ = writer.Write([]string{k, fmt.Sprintf("%v", bindings[k])})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = csvFile.Close()
		return receipt.Artifacts{}, fmt.Errorf("quest: write csv artifact: %w", err)
	}
	if err := csvFile.Close(); err != nil {
		return receipt.Artifacts{}, fmt.Errorf("quest: close csv artifact: %w", err)
	}

	icsPath := filepath.Join(dir, "outcome.ics")
	if err := os.WriteFile(icsPath, icsEvent(template, bindings), 0o644); err != nil {
		return receipt.Artifacts{}, fmt.Errorf("quest: write ics artifact: %w", err)
	}

	return receipt.Artifacts{MD: mdPath, CSV: csvPath, ICS: icsPath}, nil
}

func icsEvent(template string, bindings map[string]any) []byte {
	summary := template
	if timeline, ok := bindings["timeline"].(string); ok && timeline != "" {
		summary = fmt.Sprintf("%s delivery (%s)", template, timeline)
	}
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//flowquest//EN\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(&b, "UID:%d@flowquest\r\n", time.Now().UnixNano())
	fmt.Fprintf(&b, "DTSTAMP:%s\r\n", time.Now().UTC().Format("20060102T150405Z"))
	fmt.Fprintf(&b, "SUMMARY:%s\r\n", summary)
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}
