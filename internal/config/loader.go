package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Engine kinds.
const (
	EngineLocal  = "local"
	EngineRemote = "remote"
)

// Defaults applied by ApplyDefaults when the corresponding field is unset.
const (
	DefaultAddr              = ":8000"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"
	DefaultMaxBodyBytes      = 1 << 20
	DefaultTokenizeCacheSize = 1024
	DefaultRemoteTimeoutSec  = 120
	DefaultConnectTimeoutSec = 10
)

// DefaultCORSOrigins is the web interface origin used in development.
var DefaultCORSOrigins = []string{"http://localhost:3000"}

// ModelConfig describes one servable model.
type ModelConfig struct {
	// Name is the canonical model name used in requests, e.g. "EleutherAI/gpt-j-6b".
	Name string `json:"name" yaml:"name" toml:"name"`
	// Rename maps engine module paths to the aliases the lens addresses.
	Rename map[string]string `json:"rename" yaml:"rename" toml:"rename"`
}

// EngineConfig selects and configures the tracing engine.
type EngineConfig struct {
	Kind              string `json:"kind" yaml:"kind" toml:"kind" env:"LENSD_ENGINE"`
	RemoteURL         string `json:"remote_url" yaml:"remote_url" toml:"remote_url" env:"LENSD_REMOTE_URL"`
	APIKey            string `json:"api_key" yaml:"api_key" toml:"api_key" env:"LENSD_API_KEY"`
	TimeoutSeconds    int64  `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" env:"LENSD_REMOTE_TIMEOUT_SECONDS"`
	ConnectTimeoutSec int64  `json:"connect_timeout_seconds" yaml:"connect_timeout_seconds" toml:"connect_timeout_seconds" env:"LENSD_REMOTE_CONNECT_TIMEOUT_SECONDS"`
}

// HTTPConfig holds HTTP layer tunables.
type HTTPConfig struct {
	MaxBodyBytes          int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"LENSD_MAX_BODY_BYTES"`
	RequestTimeoutSeconds int64    `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds" env:"LENSD_REQUEST_TIMEOUT_SECONDS"`
	CORSOrigins           []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" env:"LENSD_CORS_ORIGINS" envSeparator:","`
	Swagger               bool     `json:"swagger" yaml:"swagger" toml:"swagger" env:"LENSD_SWAGGER"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr              string `json:"addr" yaml:"addr" toml:"addr" env:"LENSD_ADDR"`
	LogLevel          string `json:"log_level" yaml:"log_level" toml:"log_level" env:"LENSD_LOG_LEVEL"`
	LogFormat         string `json:"log_format" yaml:"log_format" toml:"log_format" env:"LENSD_LOG_FORMAT"`
	TokenizeCacheSize int    `json:"tokenize_cache_size" yaml:"tokenize_cache_size" toml:"tokenize_cache_size" env:"LENSD_TOKENIZE_CACHE_SIZE"`
	// ModelsFile optionally points at a separate models file ([models.<key>] tables).
	ModelsFile string `json:"models_file" yaml:"models_file" toml:"models_file" env:"LENSD_MODELS_FILE"`

	Engine EngineConfig           `json:"engine" yaml:"engine" toml:"engine"`
	HTTP   HTTPConfig             `json:"http" yaml:"http" toml:"http"`
	Models map[string]ModelConfig `json:"models" yaml:"models" toml:"models"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	if err := Decode(b, filepath.Ext(p), &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", p, err)
	}
	return cfg, nil
}

// Decode unmarshals b into v using the format implied by ext.
func Decode(b []byte, ext string, v any) error {
	switch ext = strings.ToLower(ext); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, v)
	case ".json":
		return json.Unmarshal(b, v)
	case ".toml":
		return toml.Unmarshal(b, v)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
}

// ApplyEnv overrides cfg with any LENSD_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.TokenizeCacheSize <= 0 {
		c.TokenizeCacheSize = DefaultTokenizeCacheSize
	}
	if c.Engine.Kind == "" {
		c.Engine.Kind = EngineLocal
	}
	if c.Engine.TimeoutSeconds <= 0 {
		c.Engine.TimeoutSeconds = DefaultRemoteTimeoutSec
	}
	if c.Engine.ConnectTimeoutSec <= 0 {
		c.Engine.ConnectTimeoutSec = DefaultConnectTimeoutSec
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = append([]string(nil), DefaultCORSOrigins...)
	}
}

// Validate reports configuration that cannot be served.
func (c Config) Validate() error {
	switch c.Engine.Kind {
	case EngineLocal:
	case EngineRemote:
		if strings.TrimSpace(c.Engine.RemoteURL) == "" {
			return fmt.Errorf("engine.remote_url is required for the remote engine")
		}
	default:
		return fmt.Errorf("unknown engine kind: %q", c.Engine.Kind)
	}
	seen := make(map[string]string, len(c.Models))
	for key, m := range c.Models {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("models.%s: name is required", key)
		}
		if prev, ok := seen[m.Name]; ok {
			return fmt.Errorf("models.%s: duplicate model name %q (also models.%s)", key, m.Name, prev)
		}
		seen[m.Name] = key
	}
	return nil
}

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
