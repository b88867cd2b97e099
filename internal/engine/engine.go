// Package engine is the boundary to the model-tracing engine that executes
// models and exposes their intermediate activations.
//
//   - engine.go: Engine, Model and Tokenizer interfaces plus trace types.
//   - errors.go: typed errors (model unavailable, remote failures).
//   - rename.go: module path aliasing driven by a model's rename mapping.
//   - remote.go: HTTP client for a remote tracing service.
//   - local.go, transformer.go, chartok.go: deterministic in-process engine
//     used for development and tests.
//
// The logit lens addresses three modules on every model: the stack of
// transformer blocks (ModuleLayers), the final norm (ModuleNorm) and the
// unembedding (ModuleHead). Engines resolve these aliases through the
// model's rename mapping.
package engine

import (
	"context"

	"lensd/pkg/types"
)

// Module aliases addressed by the logit lens.
const (
	ModuleLayers = "model.layers"
	ModuleNorm   = "model.ln_f"
	ModuleHead   = "lm_head"
)

// ModelSpec identifies a model and how its modules are aliased.
type ModelSpec struct {
	Name   string
	Rename map[string]string
}

// Engine opens model handles.
type Engine interface {
	Open(ctx context.Context, spec ModelSpec) (Model, error)
}

// Model is an opened model handle. Implementations must be safe for
// concurrent use.
type Model interface {
	Name() string
	Layers() int
	Tokenizer() Tokenizer
	// Trace runs one tracing session covering every invocation. For each
	// invocation and each layer it decodes the layer output through the final
	// norm and the unembedding, applies softmax at the invocation's positions
	// and returns the arg-max token id with its probability.
	Trace(ctx context.Context, invs []Invocation) ([]InvocationTrace, error)
}

// Tokenizer is the tokenizer paired with a model.
type Tokenizer interface {
	Encode(ctx context.Context, text string) ([]int, error)
	// BatchDecode decodes every id on its own, one string per id.
	BatchDecode(ctx context.Context, ids []int) ([]string, error)
	// ApplyChatTemplate renders a transcript to text without a generation prompt.
	ApplyChatTemplate(ctx context.Context, msgs []types.Message) (string, error)
}

// Invocation is one prompt within a tracing session.
type Invocation struct {
	Prompt    string `json:"prompt"`
	Positions []int  `json:"positions"`
}

// LayerPrediction is the lens output of one layer: one id and probability
// per requested position.
type LayerPrediction struct {
	Layer    int       `json:"layer"`
	TokenIDs []int     `json:"token_ids"`
	Probs    []float64 `json:"probs"`
}

// InvocationTrace holds the per-layer predictions of one invocation in layer order.
type InvocationTrace struct {
	Layers []LayerPrediction `json:"layers"`
}
