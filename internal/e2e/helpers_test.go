package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"lensd/internal/config"
	"lensd/internal/httpapi"
	"lensd/internal/registry"
	"lensd/internal/service"
)

const modelsTOML = `
[models.tiny]
name = "lensd/tiny"
rename = { "transformer.h" = "model.layers", "transformer.ln_f" = "model.ln_f" }

[models.small]
name = "lensd/small"
rename = { "transformer" = "model", "h" = "layers" }

[models.broken]
name = "lensd/broken"
`

// writeConfig writes a models file into a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func newServer(t *testing.T, cfg config.Config) (*httptest.Server, *service.Service) {
	t.Helper()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	svc, err := service.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv, svc
}

func newServerFromFile(t *testing.T, body string) (*httptest.Server, *service.Service) {
	t.Helper()
	models, err := registry.LoadFile(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load models: %v", err)
	}
	return newServer(t, config.Config{Models: models})
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
