package quest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flowquest/internal/plan"
	"flowquest/internal/queststore"
	"flowquest/internal/shotgraph"
	"flowquest/internal/testsupport"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := queststore.Open(cfg)
	if err != nil {
		t.Fatalf("queststore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(cfg, store, nil)
}

func fullInputs() map[string]any {
	return map[string]any{
		"company":  "Acme Corp",
		"budget":   16000,
		"scope":    "Implementation plus onboarding",
		"timeline": "2024-Q2",
	}
}

func TestGenerateCreatesQuest(t *testing.T) {
	s := newTestService(t)
	res, err := s.Generate(context.Background(), plan.TemplateSalesQuote, fullInputs())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(res.QuestID, "q_") || len(res.QuestID) != 10 {
		t.Errorf("quest id = %q, want q_ plus 8 hex chars", res.QuestID)
	}
	if len(res.Checkpoints) != 4 {
		t.Errorf("checkpoints = %d, want 4", len(res.Checkpoints))
	}
	if _, err := os.Stat(res.ManifestURL); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
	master := filepath.Join(filepath.Dir(res.ManifestURL), "master.m3u8")
	data, err := os.ReadFile(master)
	if err != nil {
		t.Fatalf("master playlist not written: %v", err)
	}
	if !strings.Contains(string(data), "#EXT-X-STREAM-INF:") {
		t.Errorf("master playlist lists no renditions: %q", data)
	}

	record, err := s.Get(context.Background(), res.QuestID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Status != queststore.StatusActive {
		t.Errorf("status = %s, want active", record.Status)
	}
}

func TestGenerateFromPlan(t *testing.T) {
	payload := `{
	  "version": "v2",
	  "shots": [
	    {"id": "intro", "step_ids": ["company"], "seed": 101, "duration": 4,
	     "overlays": [{"type": "title", "binding": "company"}]},
	    {"id": "numbers", "step_ids": ["budget"], "seed": 102, "duration": 6,
	     "overlays": [{"type": "figure", "chart_type": "budget_breakdown"}]}
	  ],
	  "edges": [["intro", "numbers"]],
	  "checkpoints": [
	    {"id": "company", "type": "text", "required": true, "value": "Initech"},
	    {"id": "budget", "type": "number", "required": true}
	  ]
	}`
	s := newTestService(t)
	res, err := s.GenerateFromPlan(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("GenerateFromPlan: %v", err)
	}
	if res.Template != TemplateExternal {
		t.Errorf("template = %q, want %q", res.Template, TemplateExternal)
	}
	if len(res.Checkpoints) != 2 {
		t.Errorf("checkpoints = %d, want 2", len(res.Checkpoints))
	}
	if _, err := os.Stat(res.ManifestURL); err != nil {
		t.Errorf("manifest not written: %v", err)
	}

	// The external graph drives delta renders like any template plan.
	ans, err := s.AnswerStep(context.Background(), res.QuestID, "budget", 25000)
	if err != nil {
		t.Fatalf("AnswerStep: %v", err)
	}
	if len(ans.UpdatedShots) != 1 || ans.UpdatedShots[0] != "numbers" {
		t.Errorf("updated shots = %v, want [numbers]", ans.UpdatedShots)
	}
}

func TestGenerateFromPlanRejectsBadPayload(t *testing.T) {
	s := newTestService(t)
	_, err := s.GenerateFromPlan(context.Background(), []byte(`{"version": "v2", "shots": []}`))
	if err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("err = %v, want schema rejection", err)
	}
}

func TestGenerateUnknownTemplate(t *testing.T) {
	s := newTestService(t)
	_, err := s.Generate(context.Background(), "mystery_v1", nil)
	if !errors.Is(err, plan.ErrUnknownTemplate) {
		t.Fatalf("err = %v, want ErrUnknownTemplate", err)
	}
}

func TestAnswerStepUpdatesOnlyAffectedShot(t *testing.T) {
	s := newTestService(t)
	gen, err := s.Generate(context.Background(), plan.TemplateSalesQuote, fullInputs())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	res, err := s.AnswerStep(context.Background(), gen.QuestID, "budget", 14000)
	if err != nil {
		t.Fatalf("AnswerStep: %v", err)
	}
	if len(res.UpdatedShots) != 1 || res.UpdatedShots[0] != "s2" {
		t.Errorf("updated shots = %v, want [s2]", res.UpdatedShots)
	}

	record, _ := s.Get(context.Background(), gen.QuestID)
	graph, err := shotgraph.Decode([]byte(record.GraphJSON))
	if err != nil {
		t.Fatalf("decode persisted graph: %v", err)
	}
	if v, _ := graph.Binding("budget"); v != float64(14000) && v != 14000 {
		t.Errorf("persisted budget = %v, want 14000", v)
	}
}

func TestAnswerStepUnknownStep(t *testing.T) {
	s := newTestService(t)
	gen, err := s.Generate(context.Background(), plan.TemplateSalesQuote, fullInputs())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, err = s.AnswerStep(context.Background(), gen.QuestID, "discount", 10)
	if !errors.Is(err, shotgraph.ErrUnknownStep) {
		t.Fatalf("err = %v, want ErrUnknownStep", err)
	}
}

func TestAnswerStepAfterReload(t *testing.T) {
	s := newTestService(t)
	gen, err := s.Generate(context.Background(), plan.TemplateSalesQuote, fullInputs())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Drop the resident engine to force a rebuild from the stored graph.
	s.mu.Lock()
	delete(s.engines, gen.QuestID)
	s.mu.Unlock()

	res, err := s.AnswerStep(context.Background(), gen.QuestID, "timeline", "2024-Q3")
	if err != nil {
		t.Fatalf("AnswerStep after reload: %v", err)
	}
	if len(res.UpdatedShots) != 1 || res.UpdatedShots[0] != "s3" {
		t.Errorf("updated shots = %v, want [s3]", res.UpdatedShots)
	}
}

func TestVerifyReportsMissingFields(t *testing.T) {
	s := newTestService(t)
	gen, err := s.Generate(context.Background(), plan.TemplateSalesQuote, map[string]any{"company": "Acme Corp"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	verdict, err := s.Verify(context.Background(), gen.QuestID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verdict.Passed {
		t.Fatal("expected verification issues for missing fields")
	}
}

func TestExportBlockedUntilVerified(t *testing.T) {
	s := newTestService(t)
	gen, err := s.Generate(context.Background(), plan.TemplateSalesQuote, map[string]any{"company": "Acme Corp"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := s.Export(context.Background(), gen.QuestID); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("err = %v, want ErrVerificationFailed", err)
	}

	for step, value := range map[string]any{"budget": 16000, "scope": "Implementation", "timeline": "2024-Q2"} {
		if _, err := s.AnswerStep(context.Background(), gen.QuestID, step, value); err != nil {
			t.Fatalf("AnswerStep %s: %v", step, err)
		}
	}

	res, err := s.Export(context.Background(), gen.QuestID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Receipt.ShotGraphHash != res.Snapshot.ShotGraphHash {
		t.Error("receipt and snapshot hashes disagree")
	}
	for _, path := range []string{res.Artifacts.MD, res.Artifacts.CSV, res.Artifacts.ICS} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact missing: %v", err)
		}
	}

	record, _ := s.Get(context.Background(), gen.QuestID)
	if record.Status != queststore.StatusExported {
		t.Errorf("status = %s, want exported", record.Status)
	}
	bound, err := s.Receipt(context.Background(), gen.QuestID)
	if err != nil {
		t.Fatalf("Receipt: %v", err)
	}
	if bound.ShotGraphHash != res.Receipt.ShotGraphHash {
		t.Error("stored receipt hash differs from export result")
	}
}

func TestExportHashStableForSameAnswers(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	var hashes []string
	for range 2 {
		gen, err := s.Generate(ctx, plan.TemplateSalesQuote, fullInputs())
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		res, err := s.Export(ctx, gen.QuestID)
		if err != nil {
			t.Fatalf("Export: %v", err)
		}
		hashes = append(hashes, res.Receipt.ShotGraphHash)
	}
	if hashes[0] != hashes[1] {
		t.Errorf("hashes differ for identical answers: %s vs %s", hashes[0], hashes[1])
	}
}
