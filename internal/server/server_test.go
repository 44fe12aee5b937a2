package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kiesman99/tilewall/internal/api"
	"github.com/kiesman99/tilewall/internal/render"
	"github.com/kiesman99/tilewall/pkg/tile"
)

// Test server setup
func setupTestServer(config Config) *httptest.Server {
	apiServer := NewServer("2.0.0-test", render.New(nil), config)
	return httptest.NewServer(NewRouter(apiServer, 30*time.Second))
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 30, G: 144, B: 255, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// pngHeader builds a PNG that declares a w x h image but carries no pixel data
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	var buf bytes.Buffer
	buf.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestServer(DefaultConfig())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	// Check content type
	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	// Parse response
	var healthResp api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	// Validate response
	if healthResp.Status != api.Healthy {
		t.Errorf("Expected status 'healthy', got %s", healthResp.Status)
	}

	if healthResp.Version == nil || *healthResp.Version != "2.0.0-test" {
		t.Errorf("Expected version '2.0.0-test', got %v", healthResp.Version)
	}

	if healthResp.Uptime == nil || *healthResp.Uptime < 0 {
		t.Errorf("Expected valid uptime, got %v", healthResp.Uptime)
	}

	// Check timestamp is recent
	if time.Since(healthResp.Timestamp) > time.Minute {
		t.Errorf("Timestamp seems too old: %v", healthResp.Timestamp)
	}
}

func TestLegacyHealthRedirect(t *testing.T) {
	server := setupTestServer(DefaultConfig())
	defer server.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("Expected status 301, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/v1/health" {
		t.Errorf("Expected redirect to /api/v1/health, got %s", loc)
	}
}

func TestPlanEndpoint(t *testing.T) {
	server := setupTestServer(DefaultConfig())
	defer server.Close()

	request := api.PlanRequest{
		ImageWidth:   1000,
		ImageHeight:  1080,
		CanvasWidth:  3500,
		CanvasHeight: 1080,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	resp, err := http.Post(server.URL+"/api/v1/plan", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var plan api.PlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if plan.TileCount != 4 {
		t.Errorf("Expected 4 tiles, got %d", plan.TileCount)
	}
	if plan.Scale != 0.875 || plan.TileWidth != 875 || plan.TileHeight != 945 {
		t.Errorf("Unexpected geometry: %+v", plan)
	}
	if plan.VerticalOffset != 67.5 {
		t.Errorf("Expected vertical offset 67.5, got %v", plan.VerticalOffset)
	}
	if plan.CoveredWidth != 3500 {
		t.Errorf("Expected covered width 3500, got %v", plan.CoveredWidth)
	}
}

func TestTileEndpoint_RawBody(t *testing.T) {
	server := setupTestServer(DefaultConfig())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/tile?width=350&height=108", "image/png",
		bytes.NewReader(testPNG(t, 100, 108)))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	// Check content type
	contentType := resp.Header.Get("Content-Type")
	if contentType != "image/png" {
		t.Errorf("Expected Content-Type image/png, got %s", contentType)
	}

	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "tiled-350x108.png") {
		t.Errorf("Expected attachment filename tiled-350x108.png, got %s", cd)
	}

	if count := resp.Header.Get("X-Tile-Count"); count != "4" {
		t.Errorf("Expected X-Tile-Count 4, got %s", count)
	}

	// Check request ID header
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	// Check PNG signature
	if len(imageData) < 8 || !bytes.Equal(imageData[:8], []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}) {
		t.Fatal("Response does not appear to be a valid PNG file")
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if cfg.Width != 350 || cfg.Height != 108 {
		t.Errorf("Expected 350x108 image, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestTileEndpoint_MultipartDefaults(t *testing.T) {
	server := setupTestServer(Config{
		DefaultCanvas: tile.Size{Width: 300, Height: 100},
		Prefix:        "wall",
	})
	defer server.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(testPNG(t, 50, 50))
	mw.Close()

	resp, err := http.Post(server.URL+"/api/v1/tile", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(respBody))
	}

	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "wall-300x100.png") {
		t.Errorf("Expected attachment filename wall-300x100.png, got %s", cd)
	}

	cfg, err := png.DecodeConfig(resp.Body)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 100 {
		t.Errorf("Expected 300x100 image, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	server := setupTestServer(DefaultConfig())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/preview?width=3500&height=1080&container_width=700&center=false",
		"image/png", bytes.NewReader(testPNG(t, 100, 108)))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	if size := resp.Header.Get("X-Preview-Size"); size != "700x216" {
		t.Errorf("Expected X-Preview-Size 700x216, got %s", size)
	}

	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if img.Bounds().Dx() != 700 || img.Bounds().Dy() != 216 {
		t.Errorf("Expected 700x216 image, got %v", img.Bounds())
	}

	// Top-aligned: the first row is covered by the tile, the last shows the checkerboard
	if got := color.RGBAModel.Convert(img.At(5, 0)); got == render.CheckerEven {
		t.Errorf("Expected tile at top edge, got checkerboard")
	}
	if got := color.RGBAModel.Convert(img.At(5, 215)); got != render.CheckerOdd {
		t.Errorf("Expected checkerboard at bottom edge, got %v", got)
	}
}

func TestEndpoint_Errors(t *testing.T) {
	server := setupTestServer(Config{MaxUploadBytes: 4096})
	defer server.Close()

	testCases := []struct {
		name           string
		path           string
		contentType    string
		body           []byte
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Invalid JSON",
			path:           "/api/v1/plan",
			contentType:    "application/json",
			body:           []byte(`{"invalid": json}`),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_JSON",
		},
		{
			name:           "Zero image height in plan",
			path:           "/api/v1/plan",
			contentType:    "application/json",
			body:           []byte(`{"image_width": 100, "image_height": 0, "canvas_width": 300, "canvas_height": 100}`),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Non-numeric width",
			path:           "/api/v1/tile?width=wide",
			contentType:    "image/png",
			body:           testPNG(t, 10, 10),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_PARAMETER",
		},
		{
			name:           "Negative height",
			path:           "/api/v1/tile?height=-5",
			contentType:    "image/png",
			body:           testPNG(t, 10, 10),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Zero container width",
			path:           "/api/v1/preview?container_width=0",
			contentType:    "image/png",
			body:           testPNG(t, 10, 10),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Not an image",
			path:           "/api/v1/tile",
			contentType:    "text/plain",
			body:           []byte("hello, wall"),
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedError:  "INVALID_IMAGE",
		},
		{
			name:           "Missing multipart field",
			path:           "/api/v1/tile",
			contentType:    "multipart/form-data; boundary=xyz",
			body:           []byte("--xyz--\r\n"),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_REQUEST",
		},
		{
			name:           "Upload too large",
			path:           "/api/v1/tile",
			contentType:    "image/png",
			body:           bytes.Repeat([]byte{0}, 8192),
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedError:  "PAYLOAD_TOO_LARGE",
		},
		{
			name:           "Oversized plan body",
			path:           "/api/v1/plan",
			contentType:    "application/json",
			body:           []byte(`{"image_width": 100,` + strings.Repeat(" ", 8192) + `"image_height": 100}`),
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedError:  "PAYLOAD_TOO_LARGE",
		},
		{
			name:           "Plan with overflowing tile count",
			path:           "/api/v1/plan",
			contentType:    "application/json",
			body:           []byte(`{"image_width": 1, "image_height": 1, "canvas_width": 1e20, "canvas_height": 1}`),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Source image declares too many pixels",
			path:           "/api/v1/tile",
			contentType:    "image/png",
			body:           pngHeader(60000, 60000),
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedError:  "SURFACE_UNAVAILABLE",
		},
		{
			name:           "Tiles narrower than a pixel",
			path:           "/api/v1/tile?width=4000&height=1",
			contentType:    "image/png",
			body:           testPNG(t, 1, 4000),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Canvas too large",
			path:           "/api/v1/tile?width=200000&height=100000",
			contentType:    "image/png",
			body:           testPNG(t, 10, 10),
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedError:  "SURFACE_UNAVAILABLE",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+tc.path, tc.contentType, bytes.NewReader(tc.body))
			if err != nil {
				t.Fatalf("Failed to make request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.expectedStatus {
				responseBody, _ := io.ReadAll(resp.Body)
				t.Fatalf("Expected status %d, got %d. Body: %s", tc.expectedStatus, resp.StatusCode, string(responseBody))
			}

			// Parse error response
			var errorResp map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}

			if errorCode, ok := errorResp["error"].(string); !ok || errorCode != tc.expectedError {
				t.Errorf("Expected error code %s, got %v", tc.expectedError, errorResp["error"])
			}
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	server := setupTestServer(DefaultConfig())
	defer server.Close()

	// Test OPTIONS request
	req, err := http.NewRequest("OPTIONS", server.URL+"/api/v1/tile", nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	// Check CORS headers
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected Access-Control-Allow-Origin: *")
	}

	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "POST") {
		t.Error("Expected Access-Control-Allow-Methods to include POST")
	}

	if !strings.Contains(resp.Header.Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Error("Expected Access-Control-Expose-Headers to include Content-Disposition")
	}
}
