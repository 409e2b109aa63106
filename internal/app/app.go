// Package app wires the studio from configuration. Every binary (bot, web,
// CLI) builds the same graph through New.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"affiliate-studio/internal/batch"
	"affiliate-studio/internal/config"
	"affiliate-studio/internal/credential"
	"affiliate-studio/internal/gemini"
	"affiliate-studio/internal/history"
	"affiliate-studio/internal/httpclient"
	"affiliate-studio/internal/localstore"
	"affiliate-studio/internal/media"
	"affiliate-studio/internal/prompt"
	"affiliate-studio/internal/studio"
)

type Options struct {
	Config config.Config
	Logger *slog.Logger
	// NewModels replaces the genai-backed factory; tests use it.
	NewModels gemini.ModelsFactory
}

type App struct {
	Config      config.Config
	Logger      *slog.Logger
	HTTPClient  *http.Client
	Store       *localstore.Store
	Credentials *credential.Resolver
	Gemini      *gemini.Client
	History     *history.Store
	Registry    *media.Registry
	Studio      *studio.Service
}

func New(opts Options) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	catalog := prompt.Default()
	if cfg.CatalogFile != "" {
		c, err := prompt.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		catalog = c
	}

	mode, err := batch.ParseMode(cfg.BatchMode)
	if err != nil {
		return nil, err
	}

	store, err := localstore.Open(localstore.Options{Path: cfg.DBPath, QuotaBytes: cfg.QuotaBytes})
	if err != nil {
		return nil, err
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Logger:     debugLogger(cfg, logger),
	})

	creds := credential.NewResolver(credential.Options{
		Store:  store,
		EnvKey: cfg.GeminiAPIKey,
		Picker: credential.NewFilePicker(cfg.GeminiAPIKeyFile),
		Logger: logger,
	})

	newModels := opts.NewModels
	if newModels == nil {
		newModels = gemini.SDKModels(httpClient, cfg.GeminiBaseURL, cfg.GeminiAPIVersion)
	}
	gem := gemini.New(gemini.Options{
		Keys:         creds,
		NewModels:    newModels,
		PollInterval: cfg.VideoPoll,
		Logger:       logger,
	})

	hist := history.Open(store, history.Options{
		Capacity: cfg.HistoryCapacity,
		Logger:   logger,
	})

	svc := studio.New(studio.Options{
		Generator:   gem,
		Credentials: creds,
		History:     hist,
		Catalog:     catalog,
		BatchMode:   mode,
		Retry:       batch.RetryUpTo(cfg.RetryMaxAttempts),
		Limiter:     Limiter(cfg.BatchInterval),
		TrendsTTL:   cfg.TrendsCacheTTL,
		Logger:      logger,
	})

	logger.Info("studio ready",
		"db", cfg.DBPath,
		"batch_mode", mode.String(),
		"history_capacity", hist.Capacity(),
		"credential", string(creds.State().Source),
	)

	return &App{
		Config:      cfg,
		Logger:      logger,
		HTTPClient:  httpClient,
		Store:       store,
		Credentials: creds,
		Gemini:      gem,
		History:     hist,
		Registry:    media.NewRegistry(),
		Studio:      svc,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

// Limiter spaces batch calls by interval; zero means unpaced.
func Limiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// NewLogger builds the JSON logger every binary uses.
func NewLogger(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
}

func debugLogger(cfg config.Config, logger *slog.Logger) *slog.Logger {
	if !cfg.Debug {
		return nil
	}
	return logger
}
