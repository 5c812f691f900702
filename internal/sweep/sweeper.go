package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/generation"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
	"github.com/place5-inc/pinkroom-api-sub000/internal/metrics"
)

// FullGenerationRunner is the slice of the orchestrator the sweeper needs.
type FullGenerationRunner interface {
	RunFullGeneration(ctx context.Context, photoID string) (generation.Summary, error)
}

// Config tunes the sweep pass.
type Config struct {
	// Schedule is a cron spec (robfig/cron syntax, @every supported).
	Schedule string
	// Concurrency bounds how many photos are re-driven at once.
	Concurrency int
	// GracePeriod skips photos newer than this so freshly uploaded photos
	// are left to their own upload-path run.
	GracePeriod time.Duration
	// BatchSize caps how many photos one pass picks up.
	BatchSize int
}

// Sweeper periodically re-invokes full generation for photos stuck in a
// partial state. Each pass submits photo ids to a bounded runner instead of
// firing unbounded goroutines, so overload stays capped and per-photo
// failures are observed and logged.
type Sweeper struct {
	photos  domain.PhotoRepository
	runner  FullGenerationRunner
	metrics *metrics.Metrics
	logger  infra.Logger
	cfg     Config
}

// NewSweeper constructs a sweeper with defaults applied.
func NewSweeper(photos domain.PhotoRepository, runner FullGenerationRunner, m *metrics.Metrics, logger infra.Logger, cfg Config) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 10m"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 15 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Sweeper{photos: photos, runner: runner, metrics: m, logger: logger, cfg: cfg}
}

// SweepOnce performs one pass: list stuck photos and re-drive each through
// full generation under the concurrency bound. Per-photo failures are logged
// and never abort the pass.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	olderThan := time.Now().Add(-s.cfg.GracePeriod)
	photos, err := s.photos.ListIncomplete(ctx, olderThan, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list incomplete photos: %w", err)
	}
	if len(photos) == 0 {
		s.logger.Debug().Msg("sweep: nothing to do")
		return nil
	}

	s.logger.Info().Int("photos", len(photos)).Msg("sweep: pass started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, photo := range photos {
		photoID := photo.ID
		g.Go(func() error {
			summary, err := s.runner.RunFullGeneration(gctx, photoID)
			if err != nil {
				s.logger.Error().Err(err).
					Str("photo_id", photoID).
					Msg("sweep: full generation failed")
				return nil
			}
			s.logger.Info().
				Str("photo_id", photoID).
				Int("rounds", summary.Rounds).
				Bool("converged", summary.Converged).
				Msg("sweep: photo processed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.SweepRuns.Inc()
	}
	s.logger.Info().Msg("sweep: pass finished")
	return nil
}

// Start schedules SweepOnce on the configured cron spec and returns the
// running scheduler. Callers stop it on shutdown.
func (s *Sweeper) Start(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		if err := s.SweepOnce(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sweep: pass failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	c.Start()
	return c, nil
}
