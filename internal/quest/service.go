package quest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"flowquest/internal/config"
	"flowquest/internal/delta"
	"flowquest/internal/logging"
	"flowquest/internal/manifest"
	"flowquest/internal/plan"
	"flowquest/internal/queststore"
	"flowquest/internal/shotgraph"
	"flowquest/internal/verify"
)

// ErrQuestNotFound is returned when a quest id has no stored record.
var ErrQuestNotFound = errors.New("quest not found")

// TemplateExternal labels quests seeded from an external planner payload
// rather than a built-in template.
const TemplateExternal = "external_plan"

// Service coordinates quest lifecycle: planning, rendering, answering,
// verification, and export. One delta engine is held per active quest.
type Service struct {
	cfg    *config.Config
	store  *queststore.Store
	logger *slog.Logger

	mu      sync.Mutex
	engines map[string]*delta.Engine
}

// NewService builds the quest service on top of an open store.
func NewService(cfg *config.Config, store *queststore.Store, logger *slog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "quest"),
		engines: make(map[string]*delta.Engine),
	}
}

// GenerateResult reports a newly planned quest.
type GenerateResult struct {
	QuestID     string                 `json:"quest_id"`
	Template    string                 `json:"template"`
	Checkpoints []shotgraph.Checkpoint `json:"checkpoints"`
	ManifestURL string                 `json:"manifest_url"`
}

// AnswerResult reports one applied checkpoint answer.
type AnswerResult struct {
	QuestID      string             `json:"quest_id"`
	UpdatedShots []string           `json:"updated_shots"`
	Shots        []delta.ShotStatus `json:"shots"`
	ManifestURL  string             `json:"manifest_url"`
	RenderTimeMS int64              `json:"render_time_ms"`
}

// Generate plans a quest from a template, renders the initial preview, and
// persists the draft.
func (s *Service) Generate(ctx context.Context, templateKey string, inputs map[string]any) (*GenerateResult, error) {
	graph, err := plan.SafeMode(templateKey, inputs)
	if err != nil {
		return nil, err
	}
	return s.startQuest(ctx, templateKey, graph, inputs)
}

// GenerateFromPlan plans a quest from an externally produced shot-graph
// payload. The payload is schema-validated before anything renders; checkpoint
// values baked into the payload become the initial inputs.
func (s *Service) GenerateFromPlan(ctx context.Context, payload []byte) (*GenerateResult, error) {
	graph, err := plan.Parse(payload)
	if err != nil {
		return nil, err
	}
	inputs := make(map[string]any)
	for _, cp := range graph.Checkpoints() {
		if cp.Value != nil {
			inputs[cp.ID] = cp.Value
		}
	}
	return s.startQuest(ctx, TemplateExternal, graph, inputs)
}

// startQuest renders and persists a freshly planned graph under a new quest id.
func (s *Service) startQuest(ctx context.Context, templateKey string, graph *shotgraph.Graph, inputs map[string]any) (*GenerateResult, error) {
	questID := newQuestID()

	engine := delta.New(s.cfg, graph, s.logger)
	m, err := engine.InitialRender(ctx)
	if err != nil {
		return nil, fmt.Errorf("quest %s: initial render: %w", questID, err)
	}
	manifestURL, err := s.writeManifest(questID, m)
	if err != nil {
		return nil, err
	}

	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("quest: marshal inputs: %w", err)
	}
	if err := s.persistGraph(ctx, questID, templateKey, queststore.StatusActive, graph, string(inputsJSON)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.engines[questID] = engine
	s.mu.Unlock()

	s.logger.Info("quest generated",
		logging.String(logging.FieldQuestID, questID),
		logging.String("template", templateKey),
		logging.Int("shots", len(graph.Shots())),
		logging.Float64("duration_seconds", m.TotalDuration()),
	)
	return &GenerateResult{
		QuestID:     questID,
		Template:    templateKey,
		Checkpoints: graph.Checkpoints(),
		ManifestURL: manifestURL,
	}, nil
}

// AnswerStep applies one checkpoint answer and republishes the patched
// preview manifest. Unknown steps are rejected with no state change.
func (s *Service) AnswerStep(ctx context.Context, questID, stepID string, value any) (*AnswerResult, error) {
	engine, record, err := s.engineFor(ctx, questID)
	if err != nil {
		return nil, err
	}

	res, err := engine.ApplyStepChange(ctx, stepID, value)
	if err != nil {
		return nil, err
	}
	manifestURL, err := s.writeManifest(questID, engine.Manifest())
	if err != nil {
		return nil, err
	}
	if err := s.persistGraph(ctx, questID, record.Template, record.Status, engine.Graph(), record.InputsJSON); err != nil {
		return nil, err
	}

	var degraded, failed int
	for _, st := range res.Shots {
		switch st.Status {
		case delta.StatusDegraded:
			degraded++
		case delta.StatusFailed:
			failed++
		}
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldQuestID, questID),
		logging.String(logging.FieldStepID, stepID),
		logging.Any("value", value),
		logging.Int64("render_time_ms", res.ElapsedMS),
		logging.Bool("degraded", degraded > 0),
	}
	if failed > 0 {
		attrs = append(attrs, logging.Int("failed_shots", failed))
	}
	s.logger.Info("step answered", logging.Args(attrs...)...)

	return &AnswerResult{
		QuestID:      questID,
		UpdatedShots: res.UpdatedShots,
		Shots:        res.Shots,
		ManifestURL:  manifestURL,
		RenderTimeMS: res.ElapsedMS,
	}, nil
}

// Verify runs the outcome ruleset over the quest's current bindings.
func (s *Service) Verify(ctx context.Context, questID string) (verify.Result, error) {
	engine, _, err := s.engineFor(ctx, questID)
	if err != nil {
		return verify.Result{}, err
	}
	return verify.Run(engine.Graph().SnapshotBindings()), nil
}

// Get returns the stored quest record.
func (s *Service) Get(ctx context.Context, questID string) (*queststore.Quest, error) {
	record, err := s.store.Get(ctx, questID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("quest: %w: %s", ErrQuestNotFound, questID)
	}
	return record, nil
}

// List returns all stored quests.
func (s *Service) List(ctx context.Context) ([]*queststore.Quest, error) {
	return s.store.List(ctx)
}

// CacheStats returns the render cache counters for an active quest.
func (s *Service) CacheStats(ctx context.Context, questID string) (map[string]uint64, error) {
	engine, _, err := s.engineFor(ctx, questID)
	if err != nil {
		return nil, err
	}
	stats := engine.CacheStats()
	return map[string]uint64{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"shared":      stats.Shared,
		"evictions":   stats.Evictions,
		"corruptions": stats.Corruptions,
	}, nil
}

// engineFor returns the live engine for a quest, rebuilding it from the
// persisted graph when the quest is not resident.
func (s *Service) engineFor(ctx context.Context, questID string) (*delta.Engine, *queststore.Quest, error) {
	record, err := s.Get(ctx, questID)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	engine, ok := s.engines[questID]
	s.mu.Unlock()
	if ok {
		return engine, record, nil
	}

	graph, err := shotgraph.Decode([]byte(record.GraphJSON))
	if err != nil {
		return nil, nil, fmt.Errorf("quest %s: decode stored graph: %w", questID, err)
	}
	engine = delta.New(s.cfg, graph, s.logger)
	if _, err := engine.InitialRender(ctx); err != nil {
		return nil, nil, fmt.Errorf("quest %s: rebuild render state: %w", questID, err)
	}

	s.mu.Lock()
	s.engines[questID] = engine
	s.mu.Unlock()
	return engine, record, nil
}

func (s *Service) persistGraph(ctx context.Context, questID, template string, status queststore.Status, graph *shotgraph.Graph, inputsJSON string) error {
	graphJSON, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("quest: marshal graph: %w", err)
	}
	existing, err := s.store.Get(ctx, questID)
	if err != nil {
		return err
	}
	record := &queststore.Quest{
		ID:         questID,
		Template:   template,
		Status:     status,
		InputsJSON: inputsJSON,
		GraphJSON:  string(graphJSON),
	}
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
		record.ReceiptJSON = existing.ReceiptJSON
	}
	return s.store.Save(ctx, record)
}

// writeManifest publishes the media playlist for the configured quality plus
// the master playlist listing every rendition. Both land via atomic rename so
// players never read a torn file.
func (s *Service) writeManifest(questID string, m *manifest.Manifest) (string, error) {
	dir := filepath.Join(s.cfg.Paths.SegmentDir, questID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("quest: create manifest dir: %w", err)
	}
	target := filepath.Join(dir, s.cfg.Render.Quality+".m3u8")
	if err := writeFileAtomic(target, m.Render()); err != nil {
		return "", err
	}
	if err := writeFileAtomic(filepath.Join(dir, "master.m3u8"), m.RenderMaster()); err != nil {
		return "", err
	}
	return target, nil
}

func writeFileAtomic(target string, data []byte) error {
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("quest: write manifest: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("quest: publish manifest: %w", err)
	}
	return nil
}

func newQuestID() string {
	return "q_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
