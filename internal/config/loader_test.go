package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", `
addr = ":8081"
log_level = "debug"

[engine]
kind = "remote"
remote_url = "http://tracer:9000"
timeout_seconds = 30

[http]
cors_origins = ["http://a", "http://b"]

[models.gptj]
name = "EleutherAI/gpt-j-6b"
rename = { "transformer.h" = "model.layers", "transformer.ln_f" = "model.ln_f" }
`)
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":8081" || cfg.LogLevel != "debug" || cfg.Engine.Kind != EngineRemote || cfg.Engine.TimeoutSeconds != 30 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 { t.Fatalf("cors: %v", cfg.HTTP.CORSOrigins) }
	m, ok := cfg.Models["gptj"]
	if !ok || m.Name != "EleutherAI/gpt-j-6b" || m.Rename["transformer.h"] != "model.layers" {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nengine:\n  kind: local\nmodels:\n  tiny:\n    name: lensd/tiny\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":9999" || cfg.Engine.Kind != EngineLocal || cfg.Models["tiny"].Name != "lensd/tiny" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","tokenize_cache_size":5,"models":{"a":{"name":"m-a","rename":{"x":"y"}}}}`)
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":7070" || cfg.TokenizeCacheSize != 5 || cfg.Models["a"].Rename["x"] != "y" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil { t.Fatalf("expected error on empty path") }
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil { t.Fatalf("expected unsupported extension error") }
	if _, err := Load(filepath.Join(d, "missing.toml")); err == nil { t.Fatalf("expected error for missing file") }
	bad := writeTempFile(t, d, "bad.toml", "addr=:8080\nmodels\n")
	if _, err := Load(bad); err == nil { t.Fatalf("expected TOML unmarshal error") }
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Addr != DefaultAddr || cfg.Engine.Kind != EngineLocal || cfg.HTTP.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("cors default: %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.TokenizeCacheSize != DefaultTokenizeCacheSize { t.Fatalf("cache size: %d", cfg.TokenizeCacheSize) }
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LENSD_ADDR", ":1234")
	t.Setenv("LENSD_ENGINE", "remote")
	t.Setenv("LENSD_REMOTE_URL", "http://x")
	t.Setenv("LENSD_CORS_ORIGINS", "http://a,http://b")
	cfg := Config{Addr: ":1", LogLevel: "error"}
	if err := ApplyEnv(&cfg); err != nil { t.Fatalf("env: %v", err) }
	if cfg.Addr != ":1234" || cfg.Engine.Kind != "remote" || cfg.Engine.RemoteURL != "http://x" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.LogLevel != "error" { t.Fatalf("unset env must not clobber: %q", cfg.LogLevel) }
	if len(cfg.HTTP.CORSOrigins) != 2 { t.Fatalf("cors: %v", cfg.HTTP.CORSOrigins) }
}

func TestValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil { t.Fatalf("default config should validate: %v", err) }

	remote := cfg
	remote.Engine.Kind = EngineRemote
	if err := remote.Validate(); err == nil { t.Fatalf("expected remote_url error") }

	unknown := cfg
	unknown.Engine.Kind = "gpu"
	if err := unknown.Validate(); err == nil { t.Fatalf("expected unknown engine error") }

	dup := cfg
	dup.Models = map[string]ModelConfig{"a": {Name: "m"}, "b": {Name: "m"}}
	if err := dup.Validate(); err == nil { t.Fatalf("expected duplicate name error") }

	noName := cfg
	noName.Models = map[string]ModelConfig{"a": {}}
	if err := noName.Validate(); err == nil { t.Fatalf("expected missing name error") }
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil { t.Skipf("no home dir: %v", err) }
	got, err := ExpandHome("~/x/y.toml")
	if err != nil { t.Fatalf("expand: %v", err) }
	if got != filepath.Join(home, "x/y.toml") { t.Fatalf("got %q", got) }
	if got, _ := ExpandHome("/abs"); got != "/abs" { t.Fatalf("got %q", got) }
}
