package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiesman99/tilewall/internal/api"
	"github.com/kiesman99/tilewall/internal/render"
	"github.com/kiesman99/tilewall/pkg/tile"
)

// Config holds request defaults and limits
type Config struct {
	DefaultCanvas   tile.Size
	PreviewMaxWidth int
	MaxUploadBytes  int64
	Prefix          string
}

// DefaultConfig returns the server defaults
func DefaultConfig() Config {
	return Config{
		DefaultCanvas:   tile.Size{Width: tile.DefaultCanvasWidth, Height: tile.DefaultCanvasHeight},
		PreviewMaxWidth: tile.DefaultPreviewMaxWidth,
		MaxUploadBytes:  32 << 20,
		Prefix:          tile.DefaultPrefix,
	}
}

// Server implements the ServerInterface from the api package
type Server struct {
	startTime time.Time
	version   string
	renderer  *render.Renderer
	config    Config
}

// NewServer creates a new server instance
func NewServer(version string, renderer *render.Renderer, config Config) *Server {
	if renderer == nil {
		renderer = render.New(nil)
	}
	defaults := DefaultConfig()
	if config.DefaultCanvas.Width <= 0 || config.DefaultCanvas.Height <= 0 {
		config.DefaultCanvas = defaults.DefaultCanvas
	}
	if config.PreviewMaxWidth <= 0 {
		config.PreviewMaxWidth = defaults.PreviewMaxWidth
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaults.MaxUploadBytes
	}

	return &Server{
		startTime: time.Now(),
		version:   version,
		renderer:  renderer,
		config:    config,
	}
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

// CreatePlan computes a tiling plan without rendering
func (s *Server) CreatePlan(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFor(r)

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	var req api.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isTooLarge(err) {
			s.writeTooLarge(w, &requestID)
			return
		}
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body", &requestID, nil)
		return
	}

	plan, err := tile.Compute(req.ImageWidth, req.ImageHeight, req.CanvasWidth, req.CanvasHeight)
	if err != nil {
		s.handleRenderError(w, err, &requestID)
		return
	}

	response := api.PlanResponse{
		Scale:          plan.Scale,
		TileWidth:      plan.TileWidth,
		TileHeight:     plan.TileHeight,
		TileCount:      plan.TileCount,
		VerticalOffset: plan.VerticalOffset,
		CoveredWidth:   plan.CoveredWidth(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding plan response: %v", err)
	}
}

// CreateTiledImage implements the main export endpoint
func (s *Server) CreateTiledImage(w http.ResponseWriter, r *http.Request, params api.CreateTiledImageParams) {
	requestID := requestIDFor(r)

	canvas, err := s.canvasFor(params.Width, params.Height)
	if err != nil {
		s.writeValidationErrorResponse(w, err, &requestID)
		return
	}

	img, ok := s.readImage(w, r, &requestID)
	if !ok {
		return
	}

	data, err := s.renderer.RenderExport(img, canvas.Width, canvas.Height)
	if err != nil {
		s.handleRenderError(w, err, &requestID)
		return
	}

	if plan, err := tile.ComputeSize(sizeOf(img), canvas); err == nil {
		w.Header().Set("X-Tile-Count", strconv.Itoa(plan.TileCount))
	}
	filename := tile.OutputFilename(s.config.Prefix, canvas.Width, canvas.Height)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	s.writePNG(w, data, requestID)
}

// CreatePreview renders the checkerboard preview at a container-fitted size
func (s *Server) CreatePreview(w http.ResponseWriter, r *http.Request, params api.CreatePreviewParams) {
	requestID := requestIDFor(r)

	canvas, err := s.canvasFor(params.Width, params.Height)
	if err != nil {
		s.writeValidationErrorResponse(w, err, &requestID)
		return
	}

	containerWidth := 0
	if params.ContainerWidth != nil {
		if *params.ContainerWidth <= 0 {
			s.writeValidationErrorResponse(w, &tile.DimensionError{Field: "container_width", Value: float64(*params.ContainerWidth)}, &requestID)
			return
		}
		containerWidth = *params.ContainerWidth
	}
	// Centered unless the client asks for top-aligned tiles
	center := true
	if params.Center != nil {
		center = *params.Center
	}

	img, ok := s.readImage(w, r, &requestID)
	if !ok {
		return
	}

	target := tile.FitPreview(canvas, containerWidth, s.config.PreviewMaxWidth)
	surface, err := s.renderer.NewSurface(target.Width, target.Height)
	if err != nil {
		s.handleRenderError(w, err, &requestID)
		return
	}
	if err := s.renderer.RenderPreview(img, surface, target.Width, target.Height, center); err != nil {
		s.handleRenderError(w, err, &requestID)
		return
	}
	data, err := s.renderer.Encode(surface.Image())
	if err != nil {
		s.handleRenderError(w, err, &requestID)
		return
	}

	w.Header().Set("X-Preview-Size", target.String())
	s.writePNG(w, data, requestID)
}

// HandleParamError reports query parameters that failed to bind
func (s *Server) HandleParamError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestIDFor(r)
	s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), &requestID, nil)
}

func (s *Server) canvasFor(width, height *int) (tile.Size, error) {
	canvas := s.config.DefaultCanvas
	if width != nil {
		canvas.Width = *width
	}
	if height != nil {
		canvas.Height = *height
	}

	if canvas.Width <= 0 {
		return canvas, &tile.DimensionError{Field: "width", Value: float64(canvas.Width)}
	}
	if canvas.Height <= 0 {
		return canvas, &tile.DimensionError{Field: "height", Value: float64(canvas.Height)}
	}
	return canvas, nil
}

// readImage decodes the uploaded image, either the raw request body or the
// "image" field of a multipart form. On failure the response is written.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request, requestID *string) (image.Image, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	var body io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("image")
		if err != nil {
			if isTooLarge(err) {
				s.writeTooLarge(w, requestID)
				return nil, false
			}
			s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST",
				"multipart request must contain an 'image' file field", requestID, nil)
			return nil, false
		}
		defer file.Close()
		body = file
	}

	data, err := io.ReadAll(body)
	if err != nil {
		if isTooLarge(err) {
			s.writeTooLarge(w, requestID)
			return nil, false
		}
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST",
			"Failed to read request body", requestID, nil)
		return nil, false
	}

	img, err := tile.DecodeImage(bytes.NewReader(data), s.renderer.MaxPixels())
	if err != nil {
		if errors.Is(err, tile.ErrInvalidDimension) || errors.Is(err, tile.ErrSurfaceUnavailable) {
			s.handleRenderError(w, err, requestID)
			return nil, false
		}
		s.writeErrorResponse(w, http.StatusUnsupportedMediaType, "INVALID_IMAGE",
			err.Error(), requestID, nil)
		return nil, false
	}
	return img, true
}

func (s *Server) writePNG(w http.ResponseWriter, data []byte, requestID string) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// handleRenderError maps geometry, surface and encoding errors to responses
func (s *Server) handleRenderError(w http.ResponseWriter, err error, requestID *string) {
	switch {
	case errors.Is(err, tile.ErrInvalidDimension):
		s.writeValidationErrorResponse(w, err, requestID)
	case errors.Is(err, tile.ErrSurfaceUnavailable):
		s.writeErrorResponse(w, http.StatusRequestEntityTooLarge, "SURFACE_UNAVAILABLE",
			err.Error(), requestID, nil)
	case errors.Is(err, tile.ErrEncodeFailure):
		log.Printf("Error encoding image: %v", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "ENCODE_FAILURE",
			"Failed to encode image", requestID, nil)
	default:
		log.Printf("Error rendering image: %v", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Internal server error", requestID, nil)
	}
}

func (s *Server) writeTooLarge(w http.ResponseWriter, requestID *string) {
	s.writeErrorResponse(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
		"Request body is too large", requestID, map[string]interface{}{
			"max_bytes": s.config.MaxUploadBytes,
		})
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// writeValidationErrorResponse writes a validation error response
func (s *Server) writeValidationErrorResponse(w http.ResponseWriter, err error, requestID *string) {
	field := "request"
	var dimErr *tile.DimensionError
	if errors.As(err, &dimErr) {
		field = strings.ReplaceAll(dimErr.Field, " ", "_")
	}

	response := api.ValidationErrorResponse{
		Error:     api.VALIDATIONERROR,
		Message:   err.Error(),
		RequestId: requestID,
		ValidationErrors: []api.ValidationError{
			{
				Field:   field,
				Message: err.Error(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(response)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func sizeOf(img image.Image) tile.Size {
	b := img.Bounds()
	return tile.Size{Width: b.Dx(), Height: b.Dy()}
}

// requestIDFor prefers the id assigned by the RequestID middleware
func requestIDFor(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return generateRequestID()
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
