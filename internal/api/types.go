// Package api defines the wire types and routing of the tilewall HTTP API.
package api

import (
	"time"
)

// Defines values for HealthResponseStatus.
const (
	Healthy   HealthResponseStatus = "healthy"
	Unhealthy HealthResponseStatus = "unhealthy"
)

// Defines values for ValidationErrorResponseError.
const (
	VALIDATIONERROR ValidationErrorResponseError = "VALIDATION_ERROR"
)

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// ValidationErrorResponseError defines model for ValidationErrorResponse.Error.
type ValidationErrorResponseError string

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
}

// PlanRequest defines model for PlanRequest.
type PlanRequest struct {
	ImageWidth   float64 `json:"image_width"`
	ImageHeight  float64 `json:"image_height"`
	CanvasWidth  float64 `json:"canvas_width"`
	CanvasHeight float64 `json:"canvas_height"`
}

// PlanResponse defines model for PlanResponse.
type PlanResponse struct {
	Scale          float64 `json:"scale"`
	TileWidth      float64 `json:"tile_width"`
	TileHeight     float64 `json:"tile_height"`
	TileCount      int     `json:"tile_count"`
	VerticalOffset float64 `json:"vertical_offset"`
	CoveredWidth   float64 `json:"covered_width"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Details   *map[string]interface{} `json:"details,omitempty"`
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
}

// ValidationError is a single failed field in a ValidationErrorResponse.
type ValidationError struct {
	Code    *string `json:"code,omitempty"`
	Field   string  `json:"field"`
	Message string  `json:"message"`
}

// ValidationErrorResponse defines model for ValidationErrorResponse.
type ValidationErrorResponse struct {
	Error            ValidationErrorResponseError `json:"error"`
	Message          string                       `json:"message"`
	RequestId        *string                      `json:"request_id,omitempty"`
	ValidationErrors []ValidationError            `json:"validation_errors"`
}

// CreateTiledImageParams defines parameters for CreateTiledImage.
type CreateTiledImageParams struct {
	// Width of the target canvas in pixels
	Width *int `form:"width,omitempty" json:"width,omitempty"`

	// Height of the target canvas in pixels
	Height *int `form:"height,omitempty" json:"height,omitempty"`
}

// CreatePreviewParams defines parameters for CreatePreview.
type CreatePreviewParams struct {
	Width  *int `form:"width,omitempty" json:"width,omitempty"`
	Height *int `form:"height,omitempty" json:"height,omitempty"`

	// ContainerWidth is the width available to display the preview
	ContainerWidth *int `form:"container_width,omitempty" json:"container_width,omitempty"`

	// Center vertically centers the tiles (default true); top-aligned when
	// false, matching the web preview
	Center *bool `form:"center,omitempty" json:"center,omitempty"`
}
