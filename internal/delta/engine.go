package delta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"flowquest/internal/config"
	"flowquest/internal/logging"
	"flowquest/internal/manifest"
	"flowquest/internal/rendercache"
	"flowquest/internal/scene"
	"flowquest/internal/segment"
	"flowquest/internal/shotgraph"
)

// ErrNoManifest is returned when a step change arrives before the initial render.
var ErrNoManifest = errors.New("no manifest published yet")

// Engine drives delta renders for one quest: it maps a step change to the
// affected shot set, re-renders exactly those shots through the cache, and
// publishes a locally patched manifest.
type Engine struct {
	graph     *shotgraph.Graph
	cache     *rendercache.Cache
	renderer  *scene.Renderer
	encoder   *segment.Encoder
	publisher *manifest.Publisher
	logger    *slog.Logger

	workers     int
	fps         int
	quality     segment.Quality
	shotTimeout time.Duration

	mu sync.Mutex // serializes publish decisions, not rendering
}

// New wires an engine for the given graph from configuration.
func New(cfg *config.Config, graph *shotgraph.Graph, logger *slog.Logger) *Engine {
	cache := rendercache.New(cfg.Cache.Capacity, time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)
	e := &Engine{
		graph:       graph,
		cache:       cache,
		renderer:    scene.NewRenderer(cfg.Render.Width, cfg.Render.Height, cfg.Render.Style, logger),
		encoder:     segment.NewEncoder(cfg.Render.EncodeRetries, time.Duration(cfg.Render.EncodeBackoffMS)*time.Millisecond, logger),
		logger:      logging.NewComponentLogger(logger, "delta"),
		workers:     cfg.Render.Workers,
		fps:         cfg.Render.FPS,
		quality:     segment.Quality(cfg.Render.Quality),
		shotTimeout: time.Duration(cfg.Render.ShotTimeoutSeconds) * time.Second,
	}
	e.publisher = manifest.NewPublisher(func(previous, next *manifest.Manifest) {
		for _, key := range next.Fingerprints() {
			cache.Pin(key)
		}
		if previous != nil {
			for _, key := range previous.Fingerprints() {
				cache.Unpin(key)
			}
		}
	})
	return e
}

// Graph returns the engine's shot graph.
func (e *Engine) Graph() *shotgraph.Graph { return e.graph }

// Manifest returns the current published manifest, nil before InitialRender.
func (e *Engine) Manifest() *manifest.Manifest { return e.publisher.Current() }

// CacheStats exposes cache counters for status reporting.
func (e *Engine) CacheStats() rendercache.Stats { return e.cache.Stats() }

// InitialRender renders every shot and publishes the first manifest.
func (e *Engine) InitialRender(ctx context.Context) (*manifest.Manifest, error) {
	shots := e.graph.Shots()
	order := make([]string, len(shots))
	gens := make(map[string]uint64, len(shots))
	for i, shot := range shots {
		order[i] = shot.ID
		gens[shot.ID] = e.graph.ShotGeneration(shot.ID)
	}
	statuses := e.renderSet(ctx, order, gens)

	fingerprints := make([]string, len(shots))
	segments := make([]segment.Segment, len(shots))
	for i, st := range statuses {
		if st.Status == StatusFailed || st.Status == StatusSuperseded {
			return nil, fmt.Errorf("delta: initial render of shot %s: %s", st.ID, st.Err)
		}
		fingerprints[i] = st.cacheKey
		segments[i] = st.seg
	}
	m, err := manifest.Build(shots, fingerprints, segments)
	if err != nil {
		return nil, err
	}
	e.publisher.Publish(m)
	return m, nil
}

// ApplyStepChange applies one checkpoint value, re-renders the affected shot
// set, and publishes the patched manifest. An unknown step is rejected with
// the graph, cache, and manifest untouched.
func (e *Engine) ApplyStepChange(ctx context.Context, stepID string, value any) (*Result, error) {
	start := time.Now()
	gen, err := e.graph.ApplyStepChange(stepID, value)
	if err != nil {
		return nil, err
	}
	affected := e.graph.AffectedShots(stepID)
	order, err := e.graph.TopoOrder(affected)
	if err != nil {
		return nil, err
	}

	e.logger.Info("step change accepted",
		logging.String(logging.FieldStepID, stepID),
		logging.Uint64(logging.FieldGeneration, gen),
		logging.Int("affected_shots", len(order)),
	)

	gens := make(map[string]uint64, len(order))
	for _, id := range order {
		gens[id] = gen
	}
	statuses := e.renderSet(ctx, order, gens)
	result := &Result{Generation: gen}
	if err := e.publishOutcomes(statuses, gens, result); err != nil {
		return nil, err
	}

	result.ElapsedMS = time.Since(start).Milliseconds()
	e.logger.Info("step change published",
		logging.Uint64(logging.FieldGeneration, gen),
		logging.Int("updated_shots", len(result.UpdatedShots)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// publishOutcomes folds render outcomes into a manifest patch under the
// publish lock. Generations are re-checked there: a render that passed its
// in-flight check but reaches the lock after a later change has published is
// dropped as superseded, so the change that advanced the shot keeps the final
// word in the manifest.
func (e *Engine) publishOutcomes(statuses []shotOutcome, gens map[string]uint64, result *Result) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.publisher.Current()
	if current == nil {
		return ErrNoManifest
	}

	updates := make(map[string]manifest.Update)
	for i := range statuses {
		st := &statuses[i]
		if st.Status != StatusFailed && e.graph.ShotGeneration(st.ID) != gens[st.ID] {
			st.Status = StatusSuperseded
		}
		result.Shots = append(result.Shots, st.ShotStatus)
		if st.Status == StatusFailed || st.Status == StatusSuperseded {
			continue
		}
		if entry, ok := current.Entry(st.ID); ok && entry.Fingerprint == st.cacheKey {
			continue
		}
		updates[st.ID] = manifest.Update{Fingerprint: st.cacheKey, Duration: st.seg.Duration}
		result.UpdatedShots = append(result.UpdatedShots, st.ID)
	}

	if len(updates) == 0 {
		result.ManifestVersion = current.Version
		return nil
	}
	patched, err := current.Patch(updates)
	if err != nil {
		return err
	}
	e.publisher.Publish(patched)
	result.ManifestVersion = patched.Version
	return nil
}

// renderSet renders shots in dependency waves: each wave holds shots whose
// remaining in-set dependencies are all complete, and runs through a bounded
// worker pool. Statuses come back index-aligned with order.
func (e *Engine) renderSet(ctx context.Context, order []string, gens map[string]uint64) []shotOutcome {
	position := make(map[string]int, len(order))
	pending := make(map[string]bool, len(order))
	for i, id := range order {
		position[id] = i
		pending[id] = true
	}
	outcomes := make([]shotOutcome, len(order))

	sem := make(chan struct{}, max(1, e.workers))
	remaining := order
	for len(remaining) > 0 {
		var wave, next []string
		for _, id := range remaining {
			if e.graph.DependsWithin(id, pending) {
				next = append(next, id)
			} else {
				wave = append(wave, id)
			}
		}

		var wg sync.WaitGroup
		for _, id := range wave {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				outcomes[position[id]] = e.renderShot(ctx, id, gens[id])
			}()
		}
		wg.Wait()

		for _, id := range wave {
			delete(pending, id)
		}
		remaining = next
	}
	return outcomes
}

// renderShot renders one shot at the configured quality, falling back once to
// a preview-quality pass when the shot deadline is exceeded. A shot whose
// generation advanced while rendering is reported superseded and discarded.
func (e *Engine) renderShot(ctx context.Context, shotID string, gen uint64) shotOutcome {
	start := time.Now()
	outcome := shotOutcome{ShotStatus: ShotStatus{ID: shotID}}
	finish := func(status Status, err error) shotOutcome {
		outcome.Status = status
		if err != nil {
			outcome.Err = err.Error()
		}
		outcome.ElapsedMS = time.Since(start).Milliseconds()
		return outcome
	}

	if e.graph.ShotGeneration(shotID) != gen {
		return finish(StatusSuperseded, nil)
	}
	shot, ok := e.graph.Shot(shotID)
	if !ok {
		return finish(StatusFailed, fmt.Errorf("delta: %w: %s", shotgraph.ErrUnknownShot, shotID))
	}
	fp, err := e.graph.Fingerprint(shot, e.renderer.Style())
	if err != nil {
		return finish(StatusFailed, err)
	}
	outcome.Fingerprint = fp

	seg, cached, err := e.renderAt(ctx, shot, fp, e.quality)
	degraded := false
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		e.logger.Warn("shot deadline exceeded, retrying at preview quality",
			logging.String(logging.FieldShotID, shotID),
			logging.String(logging.FieldFingerprint, fp),
		)
		seg, cached, err = e.renderAt(ctx, shot, fp, segment.QualityPreview)
		degraded = err == nil && e.quality != segment.QualityPreview
	}
	if err != nil {
		e.logger.Error("shot render failed",
			logging.String(logging.FieldShotID, shotID),
			logging.Error(err),
		)
		return finish(StatusFailed, err)
	}
	if e.graph.ShotGeneration(shotID) != gen {
		return finish(StatusSuperseded, nil)
	}

	quality := e.quality
	if degraded {
		quality = segment.QualityPreview
	}
	outcome.seg = seg
	outcome.cacheKey = cacheKey(fp, quality)
	switch {
	case degraded:
		return finish(StatusDegraded, nil)
	case cached:
		return finish(StatusCached, nil)
	default:
		return finish(StatusRendered, nil)
	}
}

// renderAt runs the cached render-and-encode pipeline for one quality level
// under the per-shot deadline.
func (e *Engine) renderAt(ctx context.Context, shot *shotgraph.Shot, fp string, quality segment.Quality) (segment.Segment, bool, error) {
	shotCtx := ctx
	if e.shotTimeout > 0 {
		var cancel context.CancelFunc
		shotCtx, cancel = context.WithTimeout(ctx, e.shotTimeout)
		defer cancel()
	}

	rendered := false
	seg, err := e.cache.GetOrRender(shotCtx, cacheKey(fp, quality), func(rctx context.Context) (segment.Segment, error) {
		rendered = true
		bindings := e.graph.ResolvedBindings(shot)
		frames, rerr := e.renderer.RenderShot(shot, bindings, e.frameCount(shot))
		if rerr != nil {
			return segment.Segment{}, rerr
		}
		if cerr := rctx.Err(); cerr != nil {
			return segment.Segment{}, cerr
		}
		return e.encoder.Encode(rctx, frames, e.fps, quality)
	})
	return seg, err == nil && !rendered, err
}

func (e *Engine) frameCount(shot *shotgraph.Shot) int {
	n := int(math.Round(shot.Duration * float64(e.fps)))
	if n < 1 {
		n = 1
	}
	return n
}

func cacheKey(fp string, quality segment.Quality) string {
	return fp + ":" + string(quality)
}
