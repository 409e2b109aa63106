package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"affiliate-studio/internal/media"
	"affiliate-studio/internal/prompt"
	"affiliate-studio/internal/studio"
)

func newCopyCmd(e *env) *cobra.Command {
	var (
		image string
		kind  string
		html  bool
	)

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Write marketing copy for a product photo",
		Example: `  studio copy -i bottle.jpg --kind hook
  studio copy -i bottle.jpg --kind caption --html > caption.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readImage(image)
			if err != nil {
				return err
			}

			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.Studio.Copywrite(cmd.Context(), f, kind)
			if err != nil {
				return present(a, err)
			}
			if html {
				fmt.Fprint(cmd.OutOrStdout(), c.HTML)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(c.Text))
			return nil
		},
	}

	cmd.Flags().StringVarP(&image, "image", "i", "", "Product photo")
	cmd.Flags().StringVar(&kind, "kind", "caption", "Copy kind: "+strings.Join(prompt.CopyKinds(), ", "))
	cmd.Flags().BoolVar(&html, "html", false, "Print the copy rendered as HTML")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func newTrendsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "trends <query>",
		Short: "Search-grounded market trends for a niche",
		Example: `  studio trends skincare serum
  studio trends "wireless earbuds"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Studio.Trends(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return present(a, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.TrimSpace(report.Text))
			if len(report.Sources) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Sources:")
				for _, s := range report.Sources {
					fmt.Fprintf(out, "  - %s %s\n", s.Title, s.URI)
				}
			}
			return nil
		},
	}
}

func newVideoCmd(e *env) *cobra.Command {
	var (
		image    string
		category string
		mode     string
		style    string
		text     string
		ratio    string
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "video",
		Short: "Animate a short product video",
		Long: `Video starts a long-running generation and polls until the clip is ready.
The photo is optional; without it the clip is rendered from the prompt alone.`,
		Example: `  studio video -i bottle.jpg -p "slow orbit around the bottle" --ratio 9:16`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var img *media.File
			if image != "" {
				f, err := readImage(image)
				if err != nil {
					return err
				}
				img = &f
			}

			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.ErrOrStderr(), "rendering video, this can take a few minutes")
			url, err := a.Studio.Video(cmd.Context(), studio.VideoInput{
				Image:       img,
				Category:    category,
				Mode:        mode,
				Style:       style,
				Prompt:      text,
				AspectRatio: ratio,
			})
			if err != nil {
				return present(a, err)
			}

			if !strings.HasPrefix(url, "data:") {
				// The model returned a hosted file instead of inline bytes.
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			}
			path, err := writeDataURI(outDir, "video-"+slug(category), url)
			if err != nil {
				return fmt.Errorf("save video: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&image, "image", "i", "", "Product photo to animate")
	cmd.Flags().StringVar(&category, "category", prompt.CategoryCommercial, "Category id")
	cmd.Flags().StringVar(&mode, "mode", "", "Mode id within the category")
	cmd.Flags().StringVar(&style, "style", "", "Visual style id or label")
	cmd.Flags().StringVarP(&text, "prompt", "p", "", "Motion and scene direction")
	cmd.Flags().StringVar(&ratio, "ratio", "16:9", "Aspect ratio: 16:9 or 9:16")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the video file")

	return cmd
}
