package cli

import (
	"github.com/spf13/cobra"

	"affiliate-studio/internal/web"
)

func newServeCmd(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web console API",
		Example: `  studio serve
  studio serve --addr 127.0.0.1:3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.Config.WebAddr
			}
			srv := web.New(web.Options{
				Studio:         a.Studio,
				Registry:       a.Registry,
				MaxUploads:     a.Config.MaxUploads,
				RequestTimeout: a.Config.RequestTimeout,
				Logger:         a.Logger,
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to WEB_ADDR)")
	return cmd
}
