package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"lensd/pkg/types"
)

// Service that blocks until the context is done; used to exercise timeout path.
type blockService struct{ mockService }

func (b *blockService) Lens(ctx context.Context, req types.LensRequest) (types.LensResponse, error) {
	<-ctx.Done()
	return types.LensResponse{}, ctx.Err()
}

func TestLensLogsWithZerologInfo(t *testing.T) {
	// Install a zerolog logger to exercise the zlog != nil branches
	SetLogger(zerolog.New(io.Discard))
	defer func() { zlog = nil }()

	h := NewMux(&mockService{})
	w := postJSON(h, "/api/lens?log=info", lensBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with info logging, got %d", w.Code)
	}
	w = postJSON(NewMux(&mockService{lensErr: io.EOF}), "/api/lens?log=debug", lensBody)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"http://localhost:3000"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected Access-Control-Allow-Origin for the web origin, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}

	// preflight
	pre := httptest.NewRequest(http.MethodOptions, "/api/lens", nil)
	pre.Header.Set("Origin", "http://localhost:3000")
	pre.Header.Set("Access-Control-Request-Method", "POST")
	pre.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, pre)
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "3600" {
		t.Fatalf("expected max age 3600, got %q", got)
	}

	// other origins get no CORS headers
	req = httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected Access-Control-Allow-Origin %q", got)
	}
}

func TestLensTimeoutReturns500(t *testing.T) {
	defer SetRequestTimeoutSeconds(0)
	SetRequestTimeoutSeconds(1)

	h := NewMux(&blockService{})
	w := postJSON(h, "/api/lens", lensBody)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on timeout, got %d", w.Code)
	}
}

func TestLensServerShutdownCancels(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)
	cancel()

	w := postJSON(NewMux(&blockService{}), "/api/lens", lensBody)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after shutdown, got %d", w.Code)
	}
}

func TestSwaggerMountedWhenEnabled(t *testing.T) {
	SetSwaggerEnabled(true)
	defer SetSwaggerEnabled(false)
	h := NewMux(&mockService{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for doc.json, got %d", rec.Code)
	}

	SetSwaggerEnabled(false)
	rec = httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with swagger disabled, got %d", rec.Code)
	}
}
