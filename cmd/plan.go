package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/tilewall/pkg/tile"
)

var planCmd = &cobra.Command{
	Use:   "plan [image]",
	Short: "Print the tiling plan without rendering",
	Long: `Compute how a photo is tiled across the canvas and print the result.

The image dimensions are read from the image file, or given directly with
--image-width and --image-height.

Examples:
  # Plan for a photo on the default wall
  tilewall plan photo.jpg

  # Plan for a 1000x1080 image on a 3500x1080 wall, as JSON
  tilewall plan --image-width 1000 --image-height 1080 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().Int("image-width", 0, "image width in pixels (instead of an image file)")
	planCmd.Flags().Int("image-height", 0, "image height in pixels (instead of an image file)")
	planCmd.Flags().Bool("json", false, "print the plan as JSON")

	viper.BindPFlag("plan.json", planCmd.Flags().Lookup("json"))
}

func runPlan(cmd *cobra.Command, args []string) error {
	canvas, err := canvasSize()
	if err != nil {
		return err
	}

	var img tile.Size
	switch {
	case len(args) == 1:
		src, err := tile.LoadImage(args[0], viper.GetInt64("max-pixels"))
		if err != nil {
			return err
		}
		b := src.Bounds()
		img = tile.Size{Width: b.Dx(), Height: b.Dy()}
	case cmd.Flags().Changed("image-width") || cmd.Flags().Changed("image-height"):
		img.Width, _ = cmd.Flags().GetInt("image-width")
		img.Height, _ = cmd.Flags().GetInt("image-height")
	default:
		return fmt.Errorf("an image file or --image-width and --image-height are required")
	}

	plan, err := tile.ComputeSize(img, canvas)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if viper.GetBool("plan.json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Image  tile.Size `json:"image"`
			Canvas tile.Size `json:"canvas"`
			tile.Plan
			CoveredWidth float64 `json:"covered_width"`
		}{img, canvas, plan, plan.CoveredWidth()})
	}

	fmt.Fprintf(out, "Image Size: %s\n", img)
	fmt.Fprintf(out, "Canvas Size: %s\n", canvas)
	fmt.Fprintf(out, "Scale: %.17g\n", plan.Scale)
	fmt.Fprintf(out, "Tile Count: %d\n", plan.TileCount)
	fmt.Fprintf(out, "Tile Size: %.17gx%.17g\n", plan.TileWidth, plan.TileHeight)
	fmt.Fprintf(out, "Vertical Offset: %.17g\n", plan.VerticalOffset)
	fmt.Fprintf(out, "Covered Width: %.17g\n", plan.CoveredWidth())
	return nil
}
