package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"affiliate-studio/internal/batch"
	"affiliate-studio/internal/media"
	"affiliate-studio/internal/prompt"
	"affiliate-studio/internal/studio"
)

func newGenerateCmd(e *env) *cobra.Command {
	var (
		images    []string
		reference string
		category  string
		mode      string
		style     string
		angles    []string
		text      string
		quality   string
		ratio     string
		batchMode string
		outDir    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render product shots, one per camera angle",
		Long: `Generate sends up to four product photos, an optional style reference and
the composed prompt to the image model. Each --angle becomes one image;
all of them are written to --out and recorded in history.`,
		Example: `  # One UGC shot per angle
  studio generate -i bottle.jpg -a front -a top --category ugc

  # Match the look of a reference photo in 2K
  studio generate -i shoe.png --ref mood.jpg --quality 2K --ratio 9:16`,
		RunE: func(cmd *cobra.Command, args []string) error {
			subjects, err := readImages(images)
			if err != nil {
				return err
			}
			var ref *media.File
			if reference != "" {
				f, err := readImage(reference)
				if err != nil {
					return err
				}
				ref = &f
			}
			var modeOverride *batch.Mode
			if batchMode != "" {
				m, err := batch.ParseMode(strings.ToLower(batchMode))
				if err != nil {
					return err
				}
				modeOverride = &m
			}

			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stderr := cmd.ErrOrStderr()
			out, err := a.Studio.Generate(cmd.Context(), studio.GenerateInput{
				Subjects:    subjects,
				Reference:   ref,
				Category:    category,
				Mode:        mode,
				Style:       style,
				Angles:      angles,
				Prompt:      text,
				Quality:     quality,
				AspectRatio: ratio,
				BatchMode:   modeOverride,
				OnResult: func(r batch.Result) {
					fmt.Fprintf(stderr, "rendered %s\n", r.Label)
				},
			})
			if err != nil {
				return present(a, err)
			}

			for i, it := range out.Items {
				base := fmt.Sprintf("%02d-%s-%s", i+1, slug(it.Angle), shortID(it.ID))
				path, err := writeDataURI(outDir, base, it.URL)
				if err != nil {
					return fmt.Errorf("save %s: %w", it.Angle, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&images, "image", "i", nil, "Product photo (repeatable, up to 4)")
	cmd.Flags().StringVar(&reference, "ref", "", "Style reference photo")
	cmd.Flags().StringVar(&category, "category", prompt.CategoryCommercial, "Category id (see: studio catalog)")
	cmd.Flags().StringVar(&mode, "mode", "", "Mode id within the category")
	cmd.Flags().StringVar(&style, "style", "", "Visual style id or label")
	cmd.Flags().StringSliceVarP(&angles, "angle", "a", nil, "Camera angle id or label (repeatable)")
	cmd.Flags().StringVarP(&text, "prompt", "p", "", "Extra direction for the scene")
	cmd.Flags().StringVar(&quality, "quality", "1K", "Output quality: 1K, 2K or 4K")
	cmd.Flags().StringVar(&ratio, "ratio", "1:1", "Aspect ratio: 1:1, 16:9 or 9:16")
	cmd.Flags().StringVar(&batchMode, "batch", "", "Batch mode override: sequential or concurrent")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the generated images")

	return cmd
}
