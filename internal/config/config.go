package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	GeminiAPIKey     string
	GeminiAPIKeyFile string
	GeminiBaseURL    string
	GeminiAPIVersion string

	TelegramToken string
	WebAddr       string

	LogLevel string
	Debug    bool

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	DBPath     string
	QuotaBytes int64

	HistoryCapacity int
	MaxUploads      int
	CatalogFile     string

	BatchMode        string
	BatchInterval    time.Duration
	RetryMaxAttempts int
	TrendsCacheTTL   time.Duration
	VideoPoll        time.Duration

	MaxConcurrent      int
	MediaGroupDebounce time.Duration
}

// Load reads the environment. It never requires a Gemini key: a missing key
// is a runtime "not connected" state, not a startup failure.
func Load() (Config, error) {
	cfg := Config{
		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiAPIKeyFile:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY_FILE")),
		GeminiBaseURL:      strings.TrimSpace(getEnv("GEMINI_BASE_URL", "")),
		GeminiAPIVersion:   strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		TelegramToken:      strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		WebAddr:            strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 300)) * time.Second,
		DBPath:             strings.TrimSpace(getEnv("STUDIO_DB_PATH", defaultDBPath())),
		QuotaBytes:         int64(getEnvInt("STUDIO_QUOTA_BYTES", 5<<20)),
		HistoryCapacity:    getEnvInt("HISTORY_CAPACITY", 50),
		MaxUploads:         getEnvInt("MAX_UPLOADS", 4),
		CatalogFile:        strings.TrimSpace(os.Getenv("CATALOG_FILE")),
		BatchMode:          strings.ToLower(strings.TrimSpace(getEnv("BATCH_MODE", "sequential"))),
		BatchInterval:      time.Duration(getEnvInt("BATCH_INTERVAL_MS", 0)) * time.Millisecond,
		RetryMaxAttempts:   getEnvInt("RETRY_MAX_ATTEMPTS", 2),
		TrendsCacheTTL:     time.Duration(getEnvInt("TRENDS_CACHE_MINUTES", 30)) * time.Minute,
		VideoPoll:          time.Duration(getEnvInt("VIDEO_POLL_SECONDS", 10)) * time.Second,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
	}

	switch cfg.BatchMode {
	case "sequential", "concurrent":
	default:
		return Config{}, errors.New("BATCH_MODE must be sequential or concurrent")
	}

	if cfg.HistoryCapacity < 1 {
		cfg.HistoryCapacity = 1
	}
	if cfg.MaxUploads < 1 {
		cfg.MaxUploads = 1
	}
	if cfg.MaxUploads > 4 {
		cfg.MaxUploads = 4
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RetryMaxAttempts < 0 {
		cfg.RetryMaxAttempts = 0
	}
	if cfg.QuotaBytes <= 0 {
		cfg.QuotaBytes = 5 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 300 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.TrendsCacheTTL <= 0 {
		cfg.TrendsCacheTTL = 30 * time.Minute
	}
	if cfg.VideoPoll <= 0 {
		cfg.VideoPoll = 10 * time.Second
	}

	return cfg, nil
}

// RequireTelegram is the extra check the bot binary makes.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "studio.db"
	}
	return filepath.Join(dir, "affiliate-studio", "studio.db")
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
