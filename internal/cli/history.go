package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"affiliate-studio/internal/app"
	"affiliate-studio/internal/history"
)

func newHistoryCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse, export and prune generated images",
	}

	cmd.AddCommand(newHistoryListCmd(e))
	cmd.AddCommand(newHistorySaveCmd(e))
	cmd.AddCommand(newHistoryDeleteCmd(e))
	cmd.AddCommand(newHistoryClearCmd(e))
	cmd.AddCommand(newHistoryExportCmd(e))

	return cmd
}

func newHistoryListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			items := a.History.List()
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "History is empty.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tID\tANGLE\tCATEGORY\tMODE\tCREATED")
			for i, it := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					i+1, it.ID, it.Angle, it.Category, it.Mode, it.Time().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

// lookup accepts a 1-based position from "history list" or an item id.
func lookup(a *app.App, ref string) (history.Item, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		items := a.History.List()
		if n < 1 || n > len(items) {
			return history.Item{}, fmt.Errorf("no history item #%d", n)
		}
		return items[n-1], nil
	}
	it, ok := a.History.Get(ref)
	if !ok {
		return history.Item{}, fmt.Errorf("no history item %q", ref)
	}
	return it, nil
}

func newHistorySaveCmd(e *env) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "save <n|id>",
		Short: "Write a history item to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := lookup(a, args[0])
			if err != nil {
				return err
			}
			path, err := writeDataURI(outDir, slug(it.Angle)+"-"+shortID(it.ID), it.URL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}

func newHistoryDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <n|id>",
		Aliases: []string{"rm"},
		Short:   "Remove one history item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := lookup(a, args[0])
			if err != nil {
				return err
			}
			a.History.Delete(it.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s). %d left.\n", it.ID, it.Angle, a.History.Len())
			return nil
		},
	}
}

func newHistoryClearCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every history item",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.History.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}

func newHistoryExportCmd(e *env) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as JSON, YAML or Parquet",
		Example: `  studio history export --format yaml
  studio history export --format parquet --out history.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := history.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if out == "" || out == "-" {
				return a.History.Export(cmd.OutOrStdout(), f)
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := a.History.Export(file, f); err != nil {
				file.Close()
				return err
			}
			return file.Close()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: json, yaml or parquet")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}
