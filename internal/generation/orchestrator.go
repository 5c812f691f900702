package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
	"github.com/place5-inc/pinkroom-api-sub000/internal/metrics"
	"github.com/place5-inc/pinkroom-api-sub000/internal/notify"
	"github.com/place5-inc/pinkroom-api-sub000/internal/providers/image"
	"github.com/place5-inc/pinkroom-api-sub000/internal/publish"
)

// Config tunes the retry loop.
type Config struct {
	// MaxRounds bounds how many passes over the missing designs one run
	// performs before giving up and leaving the photo pending.
	MaxRounds int
	// InterRoundDelay is slept between partial rounds so provider-side
	// effects can settle.
	InterRoundDelay time.Duration
	// CallTimeout caps one generate call. Zero means the provider's own
	// client timeout applies.
	CallTimeout time.Duration
	// AssetBaseURL resolves stored keys (design samples) to fetchable URLs.
	AssetBaseURL string
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Photos      domain.PhotoRepository
	Designs     domain.DesignRepository
	Results     domain.ResultRepository
	ErrorLog    domain.ErrorLogRepository
	Collections domain.CollectionLogRepository
	Generator   image.Generator
	Publisher   publish.Publisher
	Notifier    notify.Notifier
	Metrics     *metrics.Metrics
	Logger      infra.Logger
}

// Orchestrator converges one photo to a fully generated design collection.
// Each run is strictly sequential: designs are attempted one at a time, in
// ascending id order, to stay under provider rate limits. Runs for the same
// photo are not mutually excluded; the unique (photo_id, design_id) upsert
// keeps state consistent under races and the photo's atomic pending->complete
// transition keeps downstream triggers single-fire.
type Orchestrator struct {
	deps Deps
	cfg  Config
}

// Summary reports the outcome of a full-generation run.
type Summary struct {
	PhotoID   string `json:"photo_id"`
	Rounds    int    `json:"rounds"`
	Total     int    `json:"total"`
	Complete  int    `json:"complete"`
	Converged bool   `json:"converged"`
}

// NewOrchestrator constructs an orchestrator with defaults applied.
func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 5
	}
	if cfg.InterRoundDelay <= 0 {
		cfg.InterRoundDelay = 2 * time.Second
	}
	return &Orchestrator{deps: deps, cfg: cfg}
}

// RunFullGeneration drives a photo through up to MaxRounds generation rounds
// until every published design has a complete result. Per-design failures
// are recorded and retried in later rounds; only a missing photo, a missing
// source image, an empty catalog or a persistence fault abort the run.
func (o *Orchestrator) RunFullGeneration(ctx context.Context, photoID string) (Summary, error) {
	photo, err := o.deps.Photos.GetByID(ctx, photoID)
	if err != nil {
		return Summary{}, fmt.Errorf("load photo %s: %w", photoID, err)
	}
	if photo.SourceURL == "" && photo.SourceKey == "" {
		return Summary{}, domain.ErrSourceMissing
	}

	// The published count is the canonical collection size; the listed
	// designs drive the pass itself.
	total, err := o.deps.Designs.CountPublished(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count design catalog: %w", err)
	}
	if total == 0 {
		return Summary{}, domain.ErrEmptyCatalog
	}
	designs, err := o.deps.Designs.ListPublished(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load design catalog: %w", err)
	}
	if total != domain.ExpectedDesignCount {
		o.deps.Logger.Warn().
			Int("published", total).
			Int("expected", domain.ExpectedDesignCount).
			Msg("generation: design catalog size drifted from expected count")
	}

	summary := Summary{PhotoID: photoID, Total: total}
	for round := 1; round <= o.cfg.MaxRounds; round++ {
		results, err := o.deps.Results.ListByPhoto(ctx, photoID)
		if err != nil {
			return summary, fmt.Errorf("load results: %w", err)
		}
		completed := make(map[int]bool, len(results))
		for _, r := range results {
			if r.Status == domain.ResultStatusComplete {
				completed[r.DesignID] = true
			}
		}
		summary.Complete = len(completed)

		// A re-entered run over an already converged photo short-circuits
		// here without touching the provider.
		if IsComplete(len(completed), total) {
			summary.Converged = true
			return summary, o.finishPhoto(ctx, photo)
		}

		summary.Rounds = round
		o.deps.Logger.Info().
			Str("photo_id", photoID).
			Int("round", round).
			Int("missing", total-len(completed)).
			Msg("generation: starting round")

		for _, design := range designs {
			if completed[design.ID] {
				continue
			}
			if _, err := o.attemptDesign(ctx, photo, design); err != nil {
				o.deps.Logger.Error().Err(err).
					Str("photo_id", photoID).
					Int("design_id", design.ID).
					Msg("generation: persist attempt outcome failed")
			}
			if err := ctx.Err(); err != nil {
				return summary, err
			}
		}

		// Re-check right after the pass so a fully successful final round
		// does not leave the photo pending until the next sweep.
		count, err := o.deps.Results.CountComplete(ctx, photoID)
		if err != nil {
			return summary, fmt.Errorf("count results: %w", err)
		}
		summary.Complete = count
		if IsComplete(count, total) {
			summary.Converged = true
			return summary, o.finishPhoto(ctx, photo)
		}

		if round < o.cfg.MaxRounds {
			if err := sleepCtx(ctx, o.cfg.InterRoundDelay); err != nil {
				return summary, err
			}
		}
	}

	if o.deps.Metrics != nil {
		o.deps.Metrics.RoundsExhausted.Inc()
	}
	o.deps.Logger.Warn().
		Str("photo_id", photoID).
		Int("rounds", o.cfg.MaxRounds).
		Int("complete", summary.Complete).
		Int("total", total).
		Msg("generation: rounds exhausted, photo left pending")
	return summary, nil
}

// RunSingleDesign performs exactly one generate/publish/upsert cycle for one
// design, bypassing the round loop. Used by the manual retry path. When the
// attempt fills the last gap the photo is completed and triggers fire.
func (o *Orchestrator) RunSingleDesign(ctx context.Context, photoID string, designID int) (*domain.DesignResult, error) {
	photo, err := o.deps.Photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("load photo %s: %w", photoID, err)
	}
	if photo.SourceURL == "" && photo.SourceKey == "" {
		return nil, domain.ErrSourceMissing
	}

	designs, err := o.deps.Designs.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("load design catalog: %w", err)
	}
	var design *domain.HairDesign
	for i := range designs {
		if designs[i].ID == designID {
			design = &designs[i]
			break
		}
	}
	if design == nil {
		return nil, fmt.Errorf("design %d: %w", designID, domain.ErrNotFound)
	}

	result, err := o.attemptDesign(ctx, photo, *design)
	if err != nil {
		return result, err
	}

	if result.Status == domain.ResultStatusComplete {
		total, err := o.deps.Designs.CountPublished(ctx)
		if err != nil {
			return result, fmt.Errorf("count design catalog: %w", err)
		}
		count, err := o.deps.Results.CountComplete(ctx, photoID)
		if err != nil {
			return result, fmt.Errorf("count results: %w", err)
		}
		if IsComplete(count, total) {
			if err := o.finishPhoto(ctx, photo); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

// attemptDesign runs one generate/publish/upsert cycle. Provider and storage
// failures are persisted as fail results plus an error log row; only
// persistence faults are returned as errors.
func (o *Orchestrator) attemptDesign(ctx context.Context, photo *domain.Photo, design domain.HairDesign) (*domain.DesignResult, error) {
	genCtx := ctx
	if o.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
	}

	asset, err := o.deps.Generator.Generate(genCtx, image.GenerateRequest{
		PhotoID:   photo.ID,
		DesignID:  design.ID,
		SourceURL: o.sourceURL(photo),
		Prompt:    design.Prompt,
		SampleURL: o.resolveAssetURL(design.SampleKey),
	})
	if err != nil {
		return o.recordFailure(ctx, photo, design.ID, image.ClassifyFault(err), err)
	}

	obj, err := o.deps.Publisher.Publish(ctx, resultKey(photo.ID, design.ID, asset.Format), asset.Format, asset.Data)
	if err != nil {
		return o.recordFailure(ctx, photo, design.ID, domain.FailureStorage, err)
	}

	result, err := o.deps.Results.Upsert(ctx, photo.ID, design.ID, obj.Key, obj.URL, "")
	if err != nil {
		return nil, fmt.Errorf("persist result for design %d: %w", design.ID, err)
	}
	if o.deps.Metrics != nil {
		o.deps.Metrics.GenerationAttempts.WithLabelValues("complete").Inc()
	}
	o.deps.Logger.Info().
		Str("photo_id", photo.ID).
		Int("design_id", design.ID).
		Str("result_key", obj.Key).
		Msg("generation: design complete")
	return result, nil
}

// recordFailure persists the fail outcome and the append-only diagnostic
// row. The attempt error itself is swallowed so the round can continue.
func (o *Orchestrator) recordFailure(ctx context.Context, photo *domain.Photo, designID int, kind domain.FailureKind, cause error) (*domain.DesignResult, error) {
	o.deps.Logger.Error().
		Err(cause).
		Str("photo_id", photo.ID).
		Int("design_id", designID).
		Str("failure_kind", string(kind)).
		Msg("generation: design attempt failed")

	if o.deps.Metrics != nil {
		o.deps.Metrics.GenerationAttempts.WithLabelValues("fail").Inc()
		o.deps.Metrics.GenerationFailures.WithLabelValues(string(kind)).Inc()
	}

	if err := o.deps.ErrorLog.Append(ctx, photo.ID, designID, cause.Error()); err != nil {
		o.deps.Logger.Error().Err(err).
			Str("photo_id", photo.ID).
			Int("design_id", designID).
			Msg("generation: append error log failed")
	}

	result, err := o.deps.Results.Upsert(ctx, photo.ID, designID, "", "", kind)
	if err != nil {
		return nil, fmt.Errorf("persist failure for design %d: %w", designID, err)
	}
	return result, nil
}

// finishPhoto flips the photo to complete and fires downstream triggers.
// MarkComplete is the single-fire gate: only the run that performed the
// pending->complete transition touches the collection log and the notifier,
// so concurrent last-variant races cannot double-fire. Trigger failures are
// logged and swallowed.
func (o *Orchestrator) finishPhoto(ctx context.Context, photo *domain.Photo) error {
	flipped, err := o.deps.Photos.MarkComplete(ctx, photo.ID)
	if err != nil {
		return fmt.Errorf("mark photo complete: %w", err)
	}
	if !flipped {
		return nil
	}

	if o.deps.Metrics != nil {
		o.deps.Metrics.PhotosCompleted.Inc()
	}
	o.deps.Logger.Info().
		Str("photo_id", photo.ID).
		Str("customer_id", photo.CustomerID).
		Msg("generation: photo complete")

	if err := o.deps.Collections.RecordFirstCompletion(ctx, photo.ID, photo.CustomerID); err != nil {
		o.deps.Logger.Error().Err(err).
			Str("photo_id", photo.ID).
			Msg("generation: record collection log failed")
	}

	if err := o.deps.Notifier.Notify(ctx, photo.CustomerID, notify.EventCollectionReady, map[string]any{
		"photo_id": photo.ID,
	}); err != nil {
		o.deps.Logger.Error().Err(err).
			Str("photo_id", photo.ID).
			Msg("generation: owner notification failed")
	} else if err := o.deps.Collections.MarkNotified(ctx, photo.ID); err != nil {
		o.deps.Logger.Error().Err(err).
			Str("photo_id", photo.ID).
			Msg("generation: mark notified failed")
	}
	return nil
}

func (o *Orchestrator) sourceURL(photo *domain.Photo) string {
	if photo.SourceURL != "" {
		return photo.SourceURL
	}
	return o.resolveAssetURL(photo.SourceKey)
}

func (o *Orchestrator) resolveAssetURL(key string) string {
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	base := strings.TrimRight(o.cfg.AssetBaseURL, "/")
	if base == "" {
		return key
	}
	return base + "/" + strings.TrimLeft(key, "/")
}

func resultKey(photoID string, designID int, mime string) string {
	ext := extensionForMIME(mime)
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("photos/%s/designs/%02d%s", photoID, designID, ext)
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
