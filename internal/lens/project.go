package lens

import (
	"context"
	"fmt"

	"lensd/internal/engine"
	"lensd/pkg/types"
)

// project turns the traces of a group into layer results, task-major then
// layer-minor. Every predicted id of the group is decoded in one
// BatchDecode call.
func project(ctx context.Context, tok engine.Tokenizer, g Group, traces []engine.InvocationTrace) ([]types.LayerResult, error) {
	if len(traces) != len(g.Tasks) {
		return nil, fmt.Errorf("project: %d traces for %d tasks", len(traces), len(g.Tasks))
	}
	var ids []int
	for _, tr := range traces {
		for _, lp := range tr.Layers {
			ids = append(ids, lp.TokenIDs...)
		}
	}
	words, err := tok.BatchDecode(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	if len(words) != len(ids) {
		return nil, fmt.Errorf("decode predictions: got %d strings for %d ids", len(words), len(ids))
	}

	out := make([]types.LayerResult, 0, len(ids))
	next := 0
	for ti, tr := range traces {
		for _, lp := range tr.Layers {
			n := len(lp.TokenIDs)
			probs := make([]float64, n)
			copy(probs, lp.Probs)
			out = append(out, types.LayerResult{
				ConversationID: g.Tasks[ti].ConversationID,
				LayerIdx:       lp.Layer,
				PredProbs:      probs,
				Preds:          words[next : next+n : next+n],
			})
			next += n
		}
	}
	return out, nil
}
