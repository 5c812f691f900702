package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Generation loop tuning.
	GenerationRounds  int
	InterRoundDelay   time.Duration
	GenerationTimeout time.Duration

	// Sweep daemon.
	SweepSchedule    string
	SweepConcurrency int
	SweepGracePeriod time.Duration
	SweepBatchSize   int

	// Gemini image provider.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Object storage. When S3Endpoint is empty the filesystem publisher is
	// used instead (development and tests).
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UseSSL       bool
	S3PublicBase   string
	StoragePath    string
	StorageBaseURL string

	// Notification webhook (SMS/chat relay). Empty disables delivery.
	NotifyWebhookURL string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	// Origins allowed to call the API from a browser. Empty disables the
	// CORS middleware entirely (server-to-server deployments).
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		GenerationRounds:  getEnvInt("GENERATION_ROUNDS", 5),
		InterRoundDelay:   time.Second * time.Duration(getEnvInt("GENERATION_ROUND_DELAY_SECONDS", 2)),
		GenerationTimeout: time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 90)),

		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@every 10m"),
		SweepConcurrency: getEnvInt("SWEEP_CONCURRENCY", 4),
		SweepGracePeriod: time.Minute * time.Duration(getEnvInt("SWEEP_GRACE_MINUTES", 15)),
		SweepBatchSize:   getEnvInt("SWEEP_BATCH_SIZE", 50),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Region:       getEnv("S3_REGION", "ap-northeast-1"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3Bucket:       getEnv("S3_BUCKET", "pinkroom-photos"),
		S3UseSSL:       getEnvBool("S3_USE_SSL", true),
		S3PublicBase:   os.Getenv("S3_PUBLIC_BASE_URL"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),

		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.GenerationRounds < 1 {
		return nil, fmt.Errorf("GENERATION_ROUNDS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
