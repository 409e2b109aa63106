package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"affiliate-studio/internal/prompt"
)

type catalogView struct {
	Categories []categoryView `yaml:"categories" json:"categories"`
	Styles     []string       `yaml:"styles" json:"styles"`
	Angles     []string       `yaml:"angles" json:"angles"`
	Qualities  []string       `yaml:"qualities" json:"qualities"`
	Ratios     []string       `yaml:"aspect_ratios" json:"aspect_ratios"`
	CopyKinds  []string       `yaml:"copy_kinds" json:"copy_kinds"`
}

type categoryView struct {
	ID        string   `yaml:"id" json:"id"`
	Label     string   `yaml:"label" json:"label"`
	NoSubject bool     `yaml:"no_subject,omitempty" json:"no_subject,omitempty"`
	Modes     []string `yaml:"modes" json:"modes"`
}

func newCatalogCmd(e *env) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List categories, modes, styles and angles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			v := newCatalogView(a.Studio.Catalog())
			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			case "yaml", "yml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(v); err != nil {
					return err
				}
				return enc.Close()
			}
			return fmt.Errorf("unknown format %q", format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	return cmd
}

func newCatalogView(c *prompt.Catalog) catalogView {
	v := catalogView{
		Qualities: []string{"1K", "2K", "4K"},
		Ratios:    []string{"1:1", "16:9", "9:16"},
		CopyKinds: prompt.CopyKinds(),
	}
	for _, cat := range c.Categories() {
		cv := categoryView{ID: cat.ID, Label: cat.Label, NoSubject: cat.NoSubject}
		for _, m := range cat.Modes {
			cv.Modes = append(cv.Modes, m.ID)
		}
		v.Categories = append(v.Categories, cv)
	}
	for _, s := range c.Styles() {
		v.Styles = append(v.Styles, s.ID)
	}
	for _, o := range c.Angles() {
		v.Angles = append(v.Angles, o.ID)
	}
	return v
}
