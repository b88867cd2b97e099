// Package registry maps configured model names to open engine models.
// Models open lazily on first use and stay open for the process lifetime.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"lensd/internal/config"
	"lensd/internal/engine"
	"lensd/pkg/types"
)

// Registry holds the configured model specs and the models opened so far.
type Registry struct {
	engine    engine.Engine
	specs     map[string]engine.ModelSpec
	names     []string
	log       zerolog.Logger
	publisher EventPublisher

	mu     sync.RWMutex
	models map[string]engine.Model
	group  singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithEventPublisher sets the lifecycle event sink.
func WithEventPublisher(p EventPublisher) Option {
	return func(r *Registry) {
		if p != nil {
			r.publisher = p
		}
	}
}

// New builds a registry over eng from the configured models, keyed by
// model name.
func New(eng engine.Engine, models map[string]config.ModelConfig, opts ...Option) (*Registry, error) {
	if eng == nil {
		return nil, fmt.Errorf("registry: nil engine")
	}
	r := &Registry{
		engine:    eng,
		specs:     make(map[string]engine.ModelSpec, len(models)),
		log:       zerolog.Nop(),
		publisher: noopPublisher{},
		models:    make(map[string]engine.Model),
	}
	for key, m := range models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("registry: models.%s: empty name", key)
		}
		if _, dup := r.specs[name]; dup {
			return nil, fmt.Errorf("registry: duplicate model name %q", name)
		}
		r.specs[name] = engine.ModelSpec{Name: name, Rename: m.Rename}
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Has reports whether name is configured.
func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Names returns the configured model names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Get returns the open model for name, opening it on first use. Concurrent
// first use of one name results in a single Engine.Open call. A caller whose
// ctx ends stops waiting without aborting the open for the others.
func (r *Registry) Get(ctx context.Context, name string) (engine.Model, error) {
	spec, ok := r.specs[name]
	if !ok {
		r.publisher.Publish(Event{Name: EventModelNotFound, Model: name})
		return nil, ErrModelNotFound(name)
	}
	if m := r.cached(name); m != nil {
		return m, nil
	}
	ch := r.group.DoChan(name, func() (any, error) {
		if m := r.cached(name); m != nil {
			return m, nil
		}
		return r.open(context.WithoutCancel(ctx), spec)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(engine.Model), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) cached(name string) engine.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[name]
}

func (r *Registry) open(ctx context.Context, spec engine.ModelSpec) (engine.Model, error) {
	start := time.Now()
	r.log.Info().Str("model", spec.Name).Msg("registry event=load_start")
	r.publisher.Publish(Event{Name: EventLoadStart, Model: spec.Name, Fields: map[string]any{}})

	m, err := r.engine.Open(ctx, spec)
	if err != nil {
		loadsTotal.WithLabelValues(spec.Name, "error").Inc()
		r.log.Error().Err(err).Str("model", spec.Name).Msg("registry event=load_error")
		r.publisher.Publish(Event{Name: EventLoadError, Model: spec.Name, Fields: map[string]any{"error": err.Error()}})
		return nil, fmt.Errorf("open %s: %w", spec.Name, err)
	}

	r.mu.Lock()
	r.models[spec.Name] = m
	n := len(r.models)
	r.mu.Unlock()

	loadsTotal.WithLabelValues(spec.Name, "ok").Inc()
	loadedModels.Set(float64(n))
	dur := time.Since(start)
	r.log.Info().Str("model", spec.Name).Int("layers", m.Layers()).Dur("took", dur).Msg("registry event=load_ready")
	r.publisher.Publish(Event{Name: EventLoadReady, Model: spec.Name, Fields: map[string]any{"layers": m.Layers(), "duration_ms": dur.Milliseconds()}})
	return m, nil
}

// Preload opens every configured model and returns the first error.
func (r *Registry) Preload(ctx context.Context) error {
	for _, name := range r.names {
		if _, err := r.Get(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// List reports every configured model with its load state.
func (r *Registry) List() []types.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ModelInfo, 0, len(r.names))
	for _, name := range r.names {
		_, loaded := r.models[name]
		out = append(out, types.ModelInfo{Name: name, Loaded: loaded, Rename: r.specs[name].Rename})
	}
	return out
}

// Ready returns an error when no model is configured.
func (r *Registry) Ready() error {
	if len(r.names) == 0 {
		return fmt.Errorf("no models configured")
	}
	return nil
}
