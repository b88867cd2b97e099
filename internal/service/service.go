// Package service assembles the engine, registry, lens and tokenize
// components from configuration and exposes them to the HTTP layer.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lensd/internal/config"
	"lensd/internal/engine"
	"lensd/internal/lens"
	"lensd/internal/registry"
	"lensd/internal/tokenize"
	"lensd/pkg/types"
)

// Service implements httpapi.Service.
type Service struct {
	Registry *registry.Registry
	lens     *lens.Service
	tok      *tokenize.Service
}

// NewEngine builds the engine selected by cfg.
func NewEngine(cfg config.EngineConfig) (engine.Engine, error) {
	switch cfg.Kind {
	case config.EngineLocal, "":
		return engine.NewLocalEngine(engine.LocalOptions{}), nil
	case config.EngineRemote:
		return engine.NewRemoteEngine(engine.RemoteOptions{
			BaseURL:        cfg.RemoteURL,
			APIKey:         cfg.APIKey,
			Timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
			ConnectTimeout: time.Duration(cfg.ConnectTimeoutSec) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine kind: %q", cfg.Kind)
	}
}

// New wires a Service from cfg. cfg.Models must already include any
// models file entries.
func New(cfg config.Config, log zerolog.Logger, opts ...registry.Option) (*Service, error) {
	eng, err := NewEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	return NewWithEngine(eng, cfg, log, opts...)
}

// NewWithEngine wires a Service over an existing engine.
func NewWithEngine(eng engine.Engine, cfg config.Config, log zerolog.Logger, opts ...registry.Option) (*Service, error) {
	regLog := log.With().Str("component", "registry").Logger()
	opts = append([]registry.Option{
		registry.WithLogger(regLog),
		registry.WithEventPublisher(registry.NewLogPublisher(regLog)),
	}, opts...)
	reg, err := registry.New(eng, cfg.Models, opts...)
	if err != nil {
		return nil, err
	}
	tok, err := tokenize.NewService(reg, cfg.TokenizeCacheSize, log.With().Str("component", "tokenize").Logger())
	if err != nil {
		return nil, err
	}
	return &Service{
		Registry: reg,
		lens:     lens.NewService(reg, log.With().Str("component", "lens").Logger()),
		tok:      tok,
	}, nil
}

func (s *Service) Lens(ctx context.Context, req types.LensRequest) (types.LensResponse, error) {
	return s.lens.Analyze(ctx, req)
}

func (s *Service) Tokenize(ctx context.Context, req types.TokenizeRequest) (types.TokenizeResponse, error) {
	return s.tok.Tokenize(ctx, req)
}

func (s *Service) ListModels() []types.ModelInfo { return s.Registry.List() }

func (s *Service) Ready() error { return s.Registry.Ready() }
