package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"lensd/internal/config"
)

type modelsFile struct {
	Models map[string]config.ModelConfig `json:"models" yaml:"models" toml:"models"`
}

// LoadFile reads a models file made of [models.<key>] tables. The format is
// chosen by extension like config.Load.
func LoadFile(path string) (map[string]config.ModelConfig, error) {
	p, err := config.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	var f modelsFile
	if err := config.Decode(b, filepath.Ext(abs), &f); err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	return f.Models, nil
}

// MergeModels returns base overlaid with extra. Keys present in both take
// the entry from extra.
func MergeModels(base, extra map[string]config.ModelConfig) map[string]config.ModelConfig {
	out := make(map[string]config.ModelConfig, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
