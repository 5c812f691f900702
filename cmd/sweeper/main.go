package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/place5-inc/pinkroom-api-sub000/internal/adapter/repo"
	"github.com/place5-inc/pinkroom-api-sub000/internal/generation"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
	"github.com/place5-inc/pinkroom-api-sub000/internal/metrics"
	"github.com/place5-inc/pinkroom-api-sub000/internal/notify"
	"github.com/place5-inc/pinkroom-api-sub000/internal/providers/image"
	"github.com/place5-inc/pinkroom-api-sub000/internal/publish"
	"github.com/place5-inc/pinkroom-api-sub000/internal/sweep"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "sweeper")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: db connection failed")
	}
	defer pool.Close()

	publisher, assetBase, err := newPublisher(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: failed to configure publisher")
	}

	generator, err := image.NewGeminiGenerator(image.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: &http.Client{Timeout: cfg.GenerationTimeout},
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: failed to configure gemini generator")
	}

	var notifier notify.Notifier
	if cfg.NotifyWebhookURL != "" {
		notifier, err = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, nil)
		if err != nil {
			logger.Fatal().Err(err).Msg("sweeper: failed to configure notifier")
		}
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	m := metrics.NewDefault()
	photos := repo.NewPhotoRepository(pool)

	orchestrator := generation.NewOrchestrator(generation.Deps{
		Photos:      photos,
		Designs:     repo.NewDesignRepository(pool),
		Results:     repo.NewResultRepository(pool),
		ErrorLog:    repo.NewErrorLogRepository(pool),
		Collections: repo.NewCollectionLogRepository(pool),
		Generator:   generator,
		Publisher:   publisher,
		Notifier:    notifier,
		Metrics:     m,
		Logger:      logger,
	}, generation.Config{
		MaxRounds:       cfg.GenerationRounds,
		InterRoundDelay: cfg.InterRoundDelay,
		CallTimeout:     cfg.GenerationTimeout,
		AssetBaseURL:    assetBase,
	})

	sweeper := sweep.NewSweeper(photos, orchestrator, m, logger, sweep.Config{
		Schedule:    cfg.SweepSchedule,
		Concurrency: cfg.SweepConcurrency,
		GracePeriod: cfg.SweepGracePeriod,
		BatchSize:   cfg.SweepBatchSize,
	})

	// One pass on boot so photos stranded by a restart are picked up
	// immediately instead of waiting for the first tick.
	if err := sweeper.SweepOnce(ctx); err != nil {
		logger.Error().Err(err).Msg("sweeper: boot pass failed")
	}

	c, err := sweeper.Start(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: failed to start schedule")
	}
	logger.Info().Str("schedule", cfg.SweepSchedule).Msg("sweeper: started")

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info().Msg("sweeper: stopped")
}

// newPublisher mirrors the API server's storage selection.
func newPublisher(cfg *infra.Config) (publish.Publisher, string, error) {
	if cfg.S3Endpoint != "" {
		p, err := publish.NewS3Publisher(publish.S3Config{
			Endpoint:   cfg.S3Endpoint,
			Region:     cfg.S3Region,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Bucket:     cfg.S3Bucket,
			UseSSL:     cfg.S3UseSSL,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			return nil, "", err
		}
		base := cfg.S3PublicBase
		if base == "" {
			scheme := "http"
			if cfg.S3UseSSL {
				scheme = "https"
			}
			base = scheme + "://" + cfg.S3Endpoint + "/" + cfg.S3Bucket
		}
		return p, base, nil
	}
	store, err := publish.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.StorageBaseURL, nil
}
