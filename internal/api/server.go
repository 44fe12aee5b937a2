package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Health check
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// Compute a tiling plan
	// (POST /plan)
	CreatePlan(w http.ResponseWriter, r *http.Request)
	// Render a preview with a transparency checkerboard
	// (POST /preview)
	CreatePreview(w http.ResponseWriter, r *http.Request, params CreatePreviewParams)
	// Render the tiled export
	// (POST /tile)
	CreateTiledImage(w http.ResponseWriter, r *http.Request, params CreateTiledImageParams)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetHealth(w, r)
	}))
	siw.serve(handler, w, r)
}

// CreatePlan operation middleware
func (siw *ServerInterfaceWrapper) CreatePlan(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CreatePlan(w, r)
	}))
	siw.serve(handler, w, r)
}

// CreatePreview operation middleware
func (siw *ServerInterfaceWrapper) CreatePreview(w http.ResponseWriter, r *http.Request) {
	var params CreatePreviewParams
	query := r.URL.Query()

	for _, p := range []struct {
		name string
		dest interface{}
	}{
		{"width", &params.Width},
		{"height", &params.Height},
		{"container_width", &params.ContainerWidth},
		{"center", &params.Center},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, query, p.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: p.name, Err: err})
			return
		}
	}

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CreatePreview(w, r, params)
	}))
	siw.serve(handler, w, r)
}

// CreateTiledImage operation middleware
func (siw *ServerInterfaceWrapper) CreateTiledImage(w http.ResponseWriter, r *http.Request) {
	var params CreateTiledImageParams
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "width", query, &params.Width); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "width", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "height", query, &params.Height); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "height", Err: err})
		return
	}

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CreateTiledImage(w, r, params)
	}))
	siw.serve(handler, w, r)
}

func (siw *ServerInterfaceWrapper) serve(handler http.Handler, w http.ResponseWriter, r *http.Request) {
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// InvalidParamFormatError is reported when a parameter cannot be bound
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ChiServerOptions configures Handler
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/plan", wrapper.CreatePlan)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/preview", wrapper.CreatePreview)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/tile", wrapper.CreateTiledImage)
	})

	return r
}
