package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// Defaults for LocalOptions.
const (
	defaultLocalLayers    = 6
	defaultLocalEmbd      = 32
	defaultLocalHeads     = 4
	defaultLocalMaxTokens = 1024
)

// LocalOptions sizes the models created by the local engine.
type LocalOptions struct {
	Layers    int
	Embd      int
	Heads     int
	MaxTokens int
}

func (o LocalOptions) withDefaults() LocalOptions {
	if o.Layers <= 0 {
		o.Layers = defaultLocalLayers
	}
	if o.Embd <= 0 {
		o.Embd = defaultLocalEmbd
	}
	if o.Heads <= 0 {
		o.Heads = defaultLocalHeads
	}
	if o.Embd%o.Heads != 0 {
		o.Heads = 1
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultLocalMaxTokens
	}
	return o
}

// localModules are the native module paths of a local model.
var localModules = []string{"transformer.wte", "transformer.h", "transformer.ln_f", "lm_head"}

// LocalEngine serves deterministic in-process models. Every model name maps
// to its own seeded weights.
type LocalEngine struct {
	opts LocalOptions
}

// NewLocalEngine constructs a LocalEngine.
func NewLocalEngine(opts LocalOptions) *LocalEngine {
	return &LocalEngine{opts: opts.withDefaults()}
}

// Open builds the model named by spec. The rename mapping must expose the
// lens aliases; otherwise the model is unavailable.
func (e *LocalEngine) Open(ctx context.Context, spec ModelSpec) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil, ErrModelUnavailable(spec.Name, "empty model name")
	}
	_, missing := ResolveModules(localModules, spec.Rename, ModuleLayers, ModuleNorm, ModuleHead)
	if len(missing) > 0 {
		return nil, ErrModelUnavailable(spec.Name, "unresolved modules: "+strings.Join(missing, ", "))
	}
	tok := newCharTokenizer()
	cfg := transformerConfig{
		Vocab:  tok.VocabSize(),
		Embd:   e.opts.Embd,
		Heads:  e.opts.Heads,
		Layers: e.opts.Layers,
	}
	return &localModel{
		name:      spec.Name,
		tok:       tok,
		net:       newTransformer(cfg, seedFor(spec.Name)),
		maxTokens: e.opts.MaxTokens,
	}, nil
}

func seedFor(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64() >> 1)
}

type localModel struct {
	name      string
	tok       *charTokenizer
	net       *transformer
	maxTokens int
}

func (m *localModel) Name() string         { return m.name }
func (m *localModel) Layers() int          { return m.net.cfg.Layers }
func (m *localModel) Tokenizer() Tokenizer { return m.tok }

func (m *localModel) Trace(ctx context.Context, invs []Invocation) ([]InvocationTrace, error) {
	out := make([]InvocationTrace, 0, len(invs))
	for i, inv := range invs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, err := m.tok.Encode(ctx, inv.Prompt)
		if err != nil {
			return nil, err
		}
		if len(ids) > m.maxTokens {
			return nil, &InputError{Msg: fmt.Sprintf("invocation %d: prompt has %d tokens, limit is %d", i, len(ids), m.maxTokens)}
		}
		if err := CheckPositions(inv.Positions, len(ids)); err != nil {
			return nil, err
		}
		hidden := m.net.hiddenStates(ids)
		tr := InvocationTrace{Layers: make([]LayerPrediction, len(hidden))}
		for layer, states := range hidden {
			lp := LayerPrediction{
				Layer:    layer,
				TokenIDs: make([]int, len(inv.Positions)),
				Probs:    make([]float64, len(inv.Positions)),
			}
			for k, pos := range inv.Positions {
				probs := softmax(m.net.decode(states[pos]))
				id := argmax(probs)
				lp.TokenIDs[k] = id
				lp.Probs[k] = probs[id]
			}
			tr.Layers[layer] = lp
		}
		out = append(out, tr)
	}
	return out, nil
}
