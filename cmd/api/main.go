package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/place5-inc/pinkroom-api-sub000/internal/adapter/repo"
	"github.com/place5-inc/pinkroom-api-sub000/internal/generation"
	"github.com/place5-inc/pinkroom-api-sub000/internal/http/handlers"
	"github.com/place5-inc/pinkroom-api-sub000/internal/http/httpapi"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
	"github.com/place5-inc/pinkroom-api-sub000/internal/metrics"
	"github.com/place5-inc/pinkroom-api-sub000/internal/notify"
	"github.com/place5-inc/pinkroom-api-sub000/internal/providers/image"
	"github.com/place5-inc/pinkroom-api-sub000/internal/publish"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	publisher, assetBase, err := newPublisher(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure publisher")
	}

	generator, err := image.NewGeminiGenerator(image.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: &http.Client{Timeout: cfg.GenerationTimeout},
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure gemini generator")
	}

	var notifier notify.Notifier
	if cfg.NotifyWebhookURL != "" {
		notifier, err = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, nil)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure notifier")
		}
	} else {
		logger.Warn().Msg("NOTIFY_WEBHOOK_URL not set, notifications will be logged only")
		notifier = notify.NewLogNotifier(logger)
	}

	m := metrics.NewDefault()

	orchestrator := generation.NewOrchestrator(generation.Deps{
		Photos:      repo.NewPhotoRepository(pool),
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

	app := &handlers.App{
		Photos:     repo.NewPhotoRepository(pool),
		Results:    repo.NewResultRepository(pool),
		Generation: orchestrator,
		Publisher:  publisher,
		Logger:     logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		MetricsHandler:  m.Handler(),
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// newPublisher selects object storage when configured, the local filesystem
// otherwise. Returns the base URL under which published keys resolve.
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
