package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"affiliate-studio/internal/app"
	"affiliate-studio/internal/config"
	"affiliate-studio/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)

	a, err := app.New(app.Options{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error("studio init failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.New(web.Options{
		Studio:         a.Studio,
		Registry:       a.Registry,
		MaxUploads:     cfg.MaxUploads,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})
	if err := srv.ListenAndServe(ctx, cfg.WebAddr); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
