package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"lensd/internal/config"
	"lensd/pkg/types"
)

func TestE2E_LensAcrossModels(t *testing.T) {
	srv, _ := newServerFromFile(t, modelsTOML)

	payload := `{"conversations":[
		{"id":"a","type":"base","model":"lensd/tiny","prompt":"The Eiffel Tower is in the city of","selectedTokenIndices":[0,10,33]},
		{"id":"b","type":"base","model":"lensd/small","prompt":"Hello","selectedTokenIndices":[4]},
		{"id":"c","type":"base","model":"lensd/tiny","prompt":"abc","selectedTokenIndices":[]}
	]}`
	resp, body := httpPostJSON(t, srv.URL+"/api/lens", []byte(payload))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/lens %d %s", resp.StatusCode, string(body))
	}
	var out types.LensResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("json: %v body=%s", err, string(body))
	}
	if len(out.ModelResults) != 2 || out.ModelResults[0].ModelName != "lensd/tiny" || out.ModelResults[1].ModelName != "lensd/small" {
		t.Fatalf("unexpected model order: %+v", out.ModelResults)
	}
	tiny := out.ModelResults[0].LayerResults
	if len(tiny) != 2*6 {
		t.Fatalf("expected 12 layer results for tiny, got %d", len(tiny))
	}
	for i, lr := range tiny {
		wantID, wantN := "a", 3
		if i >= 6 {
			wantID, wantN = "c", 0
		}
		if lr.ConversationID != wantID || lr.LayerIdx != i%6 || len(lr.Preds) != wantN || len(lr.PredProbs) != wantN {
			t.Fatalf("layer result %d: %+v", i, lr)
		}
		for _, p := range lr.PredProbs {
			if p <= 0 || p > 1 {
				t.Fatalf("probability out of range: %v", p)
			}
		}
	}
}

func TestE2E_LensIndexOutOfRange400(t *testing.T) {
	srv, _ := newServerFromFile(t, modelsTOML)
	for _, idx := range []string{"5", "-1"} {
		payload := `{"conversations":[{"model":"lensd/tiny","prompt":"Hello","selectedTokenIndices":[` + idx + `]}]}`
		resp, body := httpPostJSON(t, srv.URL+"/api/lens", []byte(payload))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("index %s: expected 400, got %d %s", idx, resp.StatusCode, string(body))
		}
	}
}

func TestE2E_ModelNotFound404(t *testing.T) {
	srv, _ := newServerFromFile(t, modelsTOML)
	resp, body := httpPostJSON(t, srv.URL+"/api/lens", []byte(`{"conversations":[{"model":"missing","prompt":"hi","selectedTokenIndices":[0]}]}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body=%s", resp.StatusCode, string(body))
	}
	resp, body = httpPostJSON(t, srv.URL+"/api/tokenize", []byte(`{"text":"hi","model":"missing"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body=%s", resp.StatusCode, string(body))
	}
}

func TestE2E_UnresolvableModel503(t *testing.T) {
	srv, _ := newServerFromFile(t, modelsTOML)
	resp, body := httpPostJSON(t, srv.URL+"/api/tokenize", []byte(`{"text":"hi","model":"lensd/broken"}`))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d, body=%s", resp.StatusCode, string(body))
	}
}

func TestE2E_RemoteUnreachable502(t *testing.T) {
	cfg := config.Config{
		Engine: config.EngineConfig{Kind: config.EngineRemote, RemoteURL: "http://127.0.0.1:1", TimeoutSeconds: 2, ConnectTimeoutSec: 1},
		Models: map[string]config.ModelConfig{"m": {Name: "remote/m"}},
	}
	srv, _ := newServer(t, cfg)
	resp, body := httpPostJSON(t, srv.URL+"/api/tokenize", []byte(`{"text":"hi","model":"remote/m"}`))
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d, body=%s", resp.StatusCode, string(body))
	}
}

func TestE2E_TokenizeRoundTrip(t *testing.T) {
	srv, _ := newServerFromFile(t, modelsTOML)
	text := "The Eiffel Tower is in the city of"
	payload, _ := json.Marshal(types.TokenizeRequest{Text: types.PlainText(text), Model: "lensd/tiny"})
	resp, body := httpPostJSON(t, srv.URL+"/api/tokenize", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/tokenize %d %s", resp.StatusCode, string(body))
	}
	var out types.TokenizeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if strings.Join(out.Tokens, "") != text {
		t.Fatalf("round trip mismatch: %q", strings.Join(out.Tokens, ""))
	}

	resp, body = httpPostJSON(t, srv.URL+"/api/tokenize", []byte(`{"text":[{"role":"user","content":"Hi"}],"model":"lensd/tiny"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/tokenize chat %d %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Tokens) == 0 || out.Tokens[0] != "<|user|>" {
		t.Fatalf("chat tokens: %v", out.Tokens)
	}
}

func TestE2E_ModelsAndReadiness(t *testing.T) {
	srv, _ := newServerFromFile(t, modelsTOML)

	resp, body := httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz %d %s", resp.StatusCode, string(body))
	}
	resp, body = httpGet(t, srv.URL+"/api/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/models %d", resp.StatusCode)
	}
	var models types.ModelsResponse
	if err := json.Unmarshal(body, &models); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(models.Models) != 3 {
		t.Fatalf("expected 3 models, got %+v", models.Models)
	}
	for _, m := range models.Models {
		if m.Loaded {
			t.Fatalf("nothing should be loaded before first use: %+v", m)
		}
	}

	httpPostJSON(t, srv.URL+"/api/tokenize", []byte(`{"text":"x","model":"lensd/small"}`))
	_, body = httpGet(t, srv.URL+"/api/models")
	_ = json.Unmarshal(body, &models)
	for _, m := range models.Models {
		if m.Loaded != (m.Name == "lensd/small") {
			t.Fatalf("unexpected load state: %+v", m)
		}
	}

	empty, _ := newServer(t, config.Config{})
	resp, _ = httpGet(t, empty.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz without models: %d", resp.StatusCode)
	}
}

func TestE2E_ConcurrentFirstUse(t *testing.T) {
	srv, svc := newServerFromFile(t, modelsTOML)
	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/api/lens", "application/json", strings.NewReader(`{"conversations":[{"model":"lensd/small","prompt":"abc","selectedTokenIndices":[2]}]}`))
			if err != nil {
				return
			}
			_ = resp.Body.Close()
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()
	for i, c := range codes {
		if c != http.StatusOK {
			t.Fatalf("request %d: status %d", i, c)
		}
	}
	// sorted by name: broken, small, tiny
	if !svc.Registry.List()[1].Loaded {
		t.Fatalf("lensd/small should be loaded: %+v", svc.Registry.List())
	}
}
