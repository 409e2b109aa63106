// Package cli is the studio command line: the same actions as the bot and
// the web console, driven from flags and files.
package cli

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"affiliate-studio/internal/app"
	"affiliate-studio/internal/config"
	"affiliate-studio/internal/fault"
	"affiliate-studio/internal/gemini"
)

type Options struct {
	// LoadConfig defaults to config.Load.
	LoadConfig func() (config.Config, error)
	// NewModels replaces the genai-backed factory; tests use it.
	NewModels gemini.ModelsFactory
}

type env struct {
	opts     Options
	dbPath   string
	logLevel string
}

func NewRootCmd(opts Options) *cobra.Command {
	e := &env{opts: opts}

	cmd := &cobra.Command{
		Use:   "studio",
		Short: "Affiliate content studio powered by Gemini",
		Long: `Studio turns product photos into affiliate marketing content.

It renders product shots across camera angles, writes copy, runs
search-grounded trend research and animates short product videos.
Generated images are kept in a local history shared with the bot and
the web console.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&e.dbPath, "db", "", "Path to the local studio database (defaults to STUDIO_DB_PATH)")
	cmd.PersistentFlags().StringVar(&e.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	cmd.AddCommand(newGenerateCmd(e))
	cmd.AddCommand(newCopyCmd(e))
	cmd.AddCommand(newTrendsCmd(e))
	cmd.AddCommand(newVideoCmd(e))
	cmd.AddCommand(newHistoryCmd(e))
	cmd.AddCommand(newKeyCmd(e))
	cmd.AddCommand(newCatalogCmd(e))
	cmd.AddCommand(newServeCmd(e))

	return cmd
}

// open builds the studio for one command run. The caller closes it.
func (e *env) open(cmd *cobra.Command) (*app.App, error) {
	load := e.opts.LoadConfig
	if load == nil {
		load = config.Load
	}
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if e.dbPath != "" {
		cfg.DBPath = e.dbPath
	}
	if e.logLevel != "" {
		cfg.LogLevel = e.logLevel
	}

	return app.New(app.Options{
		Config:    cfg,
		Logger:    app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel),
		NewModels: e.opts.NewModels,
	})
}

// present turns an action error into the notice text plus the command that
// fixes it, if there is one.
func present(a *app.App, err error) error {
	n := a.Studio.Present(err)
	switch n.Remedy {
	case fault.RemedyOpenPicker:
		return fmt.Errorf("%s\nRun: studio key set <api-key>", n.Message)
	case fault.RemedyLowerQuality:
		return fmt.Errorf("%s\nRetry with: --quality 1K", n.Message)
	}
	return errors.New(n.Message)
}
