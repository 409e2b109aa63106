package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"affiliate-studio/internal/app"
	"affiliate-studio/internal/config"
	"affiliate-studio/internal/handlers"
	"affiliate-studio/internal/mediagroup"
	"affiliate-studio/internal/prompt"
	"affiliate-studio/internal/session"
	"affiliate-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)

	a, err := app.New(app.Options{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error("studio init failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: a.HTTPClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	sessions := session.NewStore(session.Options{
		MaxUploads: cfg.MaxUploads,
		Registry:   a.Registry,
		Defaults: session.Form{
			Category:    prompt.CategoryCommercial,
			Quality:     "1K",
			AspectRatio: "1:1",
		},
	})

	handler := handlers.New(handlers.Options{
		Telegram: tg,
		Studio:   a.Studio,
		Sessions: sessions,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onAlbum := func(album mediagroup.Album) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleAlbum(reqCtx, album)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		MaxFiles: cfg.MaxUploads,
		OnFlush:  onAlbum,
	})
	defer aggregator.Stop()
	handler.SetMediaGroupAggregator(aggregator)

	go pruneSessions(ctx, sessions, logger)

	logger.Info("bot started", "username", tg.Username())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}

// pruneSessions drops chats idle for a day so their uploads are released.
func pruneSessions(ctx context.Context, sessions *session.Store, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(24 * time.Hour); n > 0 {
				logger.Info("sessions pruned", "count", n)
			}
		}
	}
}
