// Package httpapi exposes the lens and tokenize operations over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lensd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Lens(ctx context.Context, req types.LensRequest) (types.LensResponse, error)
	Tokenize(ctx context.Context, req types.TokenizeRequest) (types.TokenizeResponse, error)
	ListModels() []types.ModelInfo
	Ready() error
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(types.TokenizeRequest)
		if !req.Text.Present() {
			sl.ReportError(req.Text, "text", "Text", "required", "")
		}
	}, types.TokenizeRequest{})
	return v
}()

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   orDefault(corsAllowedMethods, []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"}),
			AllowedHeaders:   orDefault(corsAllowedHeaders, []string{"*"}),
			AllowCredentials: true,
			MaxAge:           3600,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", handleRoot)
	r.Route("/api", func(r chi.Router) {
		r.Post("/lens", lensHandler(svc))
		r.Post("/tokenize", tokenizeHandler(svc))
		r.Get("/models", modelsHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if swaggerEnabled {
		MountSwagger(r)
	}
	return r
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

// handleRoot godoc
// @Summary  Greeting
// @Tags     meta
// @Produce  json
// @Success  200  {object}  types.MessageResponse
// @Router   / [get]
func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.MessageResponse{Message: "Hello World"})
}

// decodeJSON enforces the JSON content type and body limit, decodes into v
// and validates it. On failure the error response is already written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		// An oversized body also lands here; report 400 without size details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: unexpected data after the JSON value")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// lensHandler godoc
// @Summary      Logit lens
// @Description  Decodes every layer's hidden state at the selected token positions of each conversation.
// @Tags         lens
// @Accept       json
// @Produce      json
// @Param        request  body      types.LensRequest  true  "Conversations to analyse"
// @Success      200      {object}  types.LensResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      502      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /api/lens [post]
func lensHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.LensRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, "lens", modelList(req.Conversations))

		ctx, cancel := workContext(r)
		defer cancel()
		resp, err := svc.Lens(ctx, req)
		if err != nil {
			// Client went away: nothing to write.
			if r.Context().Err() != nil {
				return
			}
			status := statusFor(err)
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, "lens", status, start, err)
			return
		}
		writeJSON(w, resp)
		logEnd(r, lvl, "lens", http.StatusOK, start, nil)
	}
}

func modelList(convs []types.Conversation) string {
	seen := make(map[string]bool, len(convs))
	var names []string
	for _, c := range convs {
		if !seen[c.Model] {
			seen[c.Model] = true
			names = append(names, c.Model)
		}
	}
	return strings.Join(names, ",")
}

// tokenizeHandler godoc
// @Summary      Tokenize text
// @Description  text is a string or a list of chat messages rendered through the model's chat template.
// @Tags         tokenize
// @Accept       json
// @Produce      json
// @Param        request  body      types.TokenizeRequest  true  "Text and model"
// @Success      200      {object}  types.TokenizeResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      502      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /api/tokenize [post]
func tokenizeHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.TokenizeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, "tokenize", req.Model)

		ctx, cancel := workContext(r)
		defer cancel()
		resp, err := svc.Tokenize(ctx, req)
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			status := statusFor(err)
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, "tokenize", status, start, err)
			return
		}
		writeJSON(w, resp)
		logEnd(r, lvl, "tokenize", http.StatusOK, start, nil)
	}
}

// modelsHandler godoc
// @Summary  List configured models
// @Tags     models
// @Produce  json
// @Success  200  {object}  types.ModelsResponse
// @Router   /api/models [get]
func modelsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: svc.ListModels()})
	}
}
