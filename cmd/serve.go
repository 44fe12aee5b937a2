package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/tilewall/internal/server"
	"github.com/kiesman99/tilewall/pkg/tile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the tiling API",
	Long: `Start an HTTP server that provides a REST API for tiling photos.

The server computes tiling plans and renders exports and checkerboard
previews. Images are uploaded as the raw request body or as the 'image' field
of a multipart form; the canvas size defaults to --width/--height.

Examples:
  # Start server on default port 8080
  tilewall serve

  # Start server on custom port
  tilewall serve --port 3000

  # Start server with custom bind address and a 3840x1080 default wall
  tilewall serve --bind 0.0.0.0 --port 8080 --width 3840 --height 1080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	serveCmd.Flags().Int64("max-upload", 32<<20, "largest accepted upload in bytes")
	serveCmd.Flags().String("prefix", tile.DefaultPrefix, "file name prefix for download names")
	serveCmd.Flags().Int("preview-max-width", tile.DefaultPreviewMaxWidth, "widest preview to render")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.max-upload", serveCmd.Flags().Lookup("max-upload"))
	viper.BindPFlag("server.prefix", serveCmd.Flags().Lookup("prefix"))
	viper.BindPFlag("server.preview-max-width", serveCmd.Flags().Lookup("preview-max-width"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)

	canvas, err := canvasSize()
	if err != nil {
		return err
	}
	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	// Create server implementation
	apiServer := server.NewServer(Version, renderer, server.Config{
		DefaultCanvas:   canvas,
		PreviewMaxWidth: viper.GetInt("server.preview-max-width"),
		MaxUploadBytes:  viper.GetInt64("server.max-upload"),
		Prefix:          viper.GetString("server.prefix"),
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(apiServer, timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintf(cmd.ErrOrStderr(), "\nShutting down server...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting tilewall server on %s\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Default canvas: %s\n", canvas)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Tile endpoint: http://%s/api/v1/tile\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Preview endpoint: http://%s/api/v1/preview\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}
