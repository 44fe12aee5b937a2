package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/kiesman99/tilewall/internal/render"
	"github.com/kiesman99/tilewall/internal/stitch"
	"github.com/kiesman99/tilewall/pkg/tile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tilewall [image]",
	Short: "Tile a photo seamlessly across an LED wall canvas",
	Long: `tilewall repeats a photo horizontally across a canvas of any size, such as
the pixel dimensions of an LED wall.

The photo is scaled to the canvas height, the number of repeats is rounded up,
and the photo is then shrunk just enough that the repeats fill the canvas width
exactly. Any leftover height is split evenly above and below the tiles. The
result is written as a PNG; uncovered areas stay transparent.

Examples:
  # Tile a photo across the default 3500x1080 wall (writes tiled-3500x1080.png)
  tilewall photo.jpg

  # Custom wall size and output file
  tilewall photo.jpg --width 5760 --height 1152 -o wall.png

  # Write a 1000 pixel wide preview with a transparency checkerboard
  tilewall photo.jpg --preview

  # Write to stdout
  tilewall photo.jpg -o - > wall.png

  # Show the tiling plan only
  tilewall plan photo.jpg

  # Start HTTP server
  tilewall serve --port 8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no args, show help
		if len(args) == 0 {
			return cmd.Help()
		}
		return runTile(cmd, args[0])
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tilewall.yaml)")

	// Canvas options
	rootCmd.PersistentFlags().IntP("width", "W", tile.DefaultCanvasWidth, "canvas width in pixels")
	rootCmd.PersistentFlags().IntP("height", "H", tile.DefaultCanvasHeight, "canvas height in pixels")
	rootCmd.PersistentFlags().String("size", "", "canvas size as 'WIDTHxHEIGHT' (overrides --width/--height)")

	// Rendering options
	rootCmd.PersistentFlags().String("interpolation", "bilinear", "scaling filter (nearest|approx-bilinear|bilinear|catmull-rom)")
	rootCmd.PersistentFlags().String("compression", "default", "PNG compression (none|fast|default|best)")
	rootCmd.PersistentFlags().Int64("max-pixels", render.DefaultMaxPixels, "largest canvas or source image area accepted, in pixels")

	// Output options
	rootCmd.Flags().StringP("output", "o", "", "output file, '-' for stdout (default: <prefix>-<width>x<height>.png)")
	rootCmd.Flags().String("prefix", tile.DefaultPrefix, "file name prefix for generated output names")

	// Preview options
	rootCmd.Flags().Bool("preview", false, "render the checkerboard preview instead of the export")
	rootCmd.Flags().Int("container-width", 0, "width available to the preview (default: canvas width)")
	rootCmd.Flags().Int("preview-max-width", tile.DefaultPreviewMaxWidth, "widest preview to render")
	rootCmd.Flags().Bool("center", true, "center tiles vertically in the preview; --center=false top-aligns them as the web preview does")

	// Bind flags to viper
	viper.BindPFlag("width", rootCmd.PersistentFlags().Lookup("width"))
	viper.BindPFlag("height", rootCmd.PersistentFlags().Lookup("height"))
	viper.BindPFlag("size", rootCmd.PersistentFlags().Lookup("size"))
	viper.BindPFlag("interpolation", rootCmd.PersistentFlags().Lookup("interpolation"))
	viper.BindPFlag("compression", rootCmd.PersistentFlags().Lookup("compression"))
	viper.BindPFlag("max-pixels", rootCmd.PersistentFlags().Lookup("max-pixels"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("prefix", rootCmd.Flags().Lookup("prefix"))
	viper.BindPFlag("preview.enabled", rootCmd.Flags().Lookup("preview"))
	viper.BindPFlag("preview.container-width", rootCmd.Flags().Lookup("container-width"))
	viper.BindPFlag("preview.max-width", rootCmd.Flags().Lookup("preview-max-width"))
	viper.BindPFlag("preview.center", rootCmd.Flags().Lookup("center"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".tilewall" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tilewall")
	}

	// TILEWALL_WIDTH, TILEWALL_PREVIEW_MAX_WIDTH, ...
	viper.SetEnvPrefix("tilewall")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// canvasSize resolves the canvas from --size or --width/--height
func canvasSize() (tile.Size, error) {
	if size := viper.GetString("size"); size != "" {
		return tile.ParseSize(size)
	}

	canvas := tile.Size{Width: viper.GetInt("width"), Height: viper.GetInt("height")}
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return canvas, fmt.Errorf("width and height must be positive, got %s", canvas)
	}
	return canvas, nil
}

// newRenderer builds a renderer from the rendering options
func newRenderer() (*render.Renderer, error) {
	interp, err := render.ParseInterpolation(viper.GetString("interpolation"))
	if err != nil {
		return nil, err
	}
	compression, err := tile.ParseCompression(viper.GetString("compression"))
	if err != nil {
		return nil, err
	}

	return render.New(&render.Options{
		Interpolation: interp,
		Compression:   compression,
		MaxPixels:     viper.GetInt64("max-pixels"),
	}), nil
}

func runTile(cmd *cobra.Command, path string) error {
	canvas, err := canvasSize()
	if err != nil {
		return err
	}

	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	opts := &stitch.Options{
		Output:           viper.GetString("output"),
		Prefix:           viper.GetString("prefix"),
		Canvas:           canvas,
		Preview:          viper.GetBool("preview.enabled"),
		ContainerWidth:   viper.GetInt("preview.container-width"),
		PreviewMaxWidth:  viper.GetInt("preview.max-width"),
		CenterVertically: viper.GetBool("preview.center"),
		Stdout:           cmd.OutOrStdout(),
		Log:              cmd.ErrOrStderr(),
	}

	_, err = stitch.NewStitcher(renderer, opts).StitchFile(path)
	return err
}
