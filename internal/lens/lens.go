// Package lens runs logit lens analysis: conversations are grouped by model,
// each group is traced in one engine session, and the per-layer predictions
// are decoded into layer results.
package lens

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lensd/internal/engine"
	"lensd/internal/observability"
	"lensd/pkg/types"
)

// Models resolves a model name to an open engine model.
type Models interface {
	Get(ctx context.Context, name string) (engine.Model, error)
}

// Service computes logit lens results.
type Service struct {
	models Models
	log    zerolog.Logger
}

// NewService constructs a Service over models.
func NewService(models Models, log zerolog.Logger) *Service {
	return &Service{models: models, log: log}
}

// Analyze runs the logit lens for every conversation in req. Results come
// back per model in first-seen order. Any failure fails the whole request.
func (s *Service) Analyze(ctx context.Context, req types.LensRequest) (types.LensResponse, error) {
	groups := GroupByModel(req.Conversations)
	resp := types.LensResponse{ModelResults: make([]types.ModelResults, 0, len(groups))}
	for _, g := range groups {
		layers, err := s.traceGroup(ctx, g)
		if err != nil {
			return types.LensResponse{}, err
		}
		resp.ModelResults = append(resp.ModelResults, types.ModelResults{
			ModelName:    g.Model,
			LayerResults: layers,
		})
	}
	return resp, nil
}

func (s *Service) traceGroup(ctx context.Context, g Group) (_ []types.LayerResult, err error) {
	ctx, span := observability.StartLensSpan(ctx, g.Model, len(g.Tasks))
	defer func() { observability.End(span, err) }()

	model, err := s.models.Get(ctx, g.Model)
	if err != nil {
		return nil, err
	}
	tok := model.Tokenizer()

	invs := make([]engine.Invocation, 0, len(g.Tasks))
	for _, t := range g.Tasks {
		ids, err := tok.Encode(ctx, t.Prompt)
		if err != nil {
			return nil, fmt.Errorf("encode prompt of conversations[%d]: %w", t.Index, err)
		}
		for _, p := range t.Positions {
			if p < 0 || p >= len(ids) {
				return nil, &IndexError{Conversation: t.Index, ConversationID: t.ConversationID, Index: p, Length: len(ids)}
			}
		}
		positions := t.Positions
		if positions == nil {
			positions = []int{}
		}
		invs = append(invs, engine.Invocation{Prompt: t.Prompt, Positions: positions})
	}

	start := time.Now()
	traces, err := model.Trace(ctx, invs)
	took := time.Since(start)
	traceDuration.WithLabelValues(g.Model).Observe(took.Seconds())
	if err != nil {
		return nil, fmt.Errorf("trace %s: %w", g.Model, err)
	}
	s.log.Debug().Str("model", g.Model).Int("tasks", len(g.Tasks)).Int("layers", model.Layers()).Dur("took", took).Msg("lens trace")

	return project(ctx, tok, g, traces)
}
