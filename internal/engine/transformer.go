package engine

import (
	"math"
	"math/rand"
)

// transformerConfig sizes the in-process reference transformer.
type transformerConfig struct {
	Vocab  int
	Embd   int
	Heads  int
	Layers int
}

type block struct {
	ln1, ln2       []float64
	wq, wk, wv, wo [][]float64
	fc1, fc2       [][]float64
}

// transformer is a small decoder-only model with RMSNorm, causal multi-head
// attention, a ReLU MLP and sinusoidal positions. Weights are drawn from a
// seeded source so the same model name always yields the same model.
// Weights are never mutated after construction.
type transformer struct {
	cfg    transformerConfig
	wte    [][]float64
	blocks []block
	lnF    []float64
	lmHead [][]float64
}

func newTransformer(cfg transformerConfig, seed int64) *transformer {
	rng := rand.New(rand.NewSource(seed))
	matrix := func(rows, cols int, std float64) [][]float64 {
		m := make([][]float64, rows)
		for i := range m {
			m[i] = make([]float64, cols)
			for j := range m[i] {
				m[i][j] = rng.NormFloat64() * std
			}
		}
		return m
	}
	gain := func(n int) []float64 {
		g := make([]float64, n)
		for i := range g {
			g[i] = 1 + rng.NormFloat64()*0.05
		}
		return g
	}
	std := 1 / math.Sqrt(float64(cfg.Embd))
	t := &transformer{
		cfg:    cfg,
		wte:    matrix(cfg.Vocab, cfg.Embd, 1),
		lnF:    gain(cfg.Embd),
		lmHead: matrix(cfg.Vocab, cfg.Embd, std*4),
	}
	for i := 0; i < cfg.Layers; i++ {
		t.blocks = append(t.blocks, block{
			ln1: gain(cfg.Embd),
			ln2: gain(cfg.Embd),
			wq:  matrix(cfg.Embd, cfg.Embd, std),
			wk:  matrix(cfg.Embd, cfg.Embd, std),
			wv:  matrix(cfg.Embd, cfg.Embd, std),
			wo:  matrix(cfg.Embd, cfg.Embd, std),
			fc1: matrix(4*cfg.Embd, cfg.Embd, std),
			fc2: matrix(cfg.Embd, 4*cfg.Embd, std/2),
		})
	}
	return t
}

// hiddenStates runs the sequence through every block and returns the output
// of each block at each position, indexed [layer][position].
func (t *transformer) hiddenStates(ids []int) [][][]float64 {
	n := len(ids)
	out := make([][][]float64, t.cfg.Layers)
	xs := make([][]float64, n)
	for pos, id := range ids {
		x := make([]float64, t.cfg.Embd)
		for i := range x {
			x[i] = t.wte[id][i] + positional(pos, i, t.cfg.Embd)
		}
		xs[pos] = x
	}

	headDim := t.cfg.Embd / t.cfg.Heads
	scale := 1 / math.Sqrt(float64(headDim))
	for li, b := range t.blocks {
		keys := make([][]float64, n)
		values := make([][]float64, n)
		next := make([][]float64, n)
		for pos := 0; pos < n; pos++ {
			// attention
			h := rmsNorm(xs[pos], b.ln1)
			q := linear(h, b.wq)
			keys[pos] = linear(h, b.wk)
			values[pos] = linear(h, b.wv)
			attn := make([]float64, 0, t.cfg.Embd)
			for hd := 0; hd < t.cfg.Heads; hd++ {
				hs := hd * headDim
				scores := make([]float64, pos+1)
				for j := 0; j <= pos; j++ {
					var dot float64
					for d := 0; d < headDim; d++ {
						dot += q[hs+d] * keys[j][hs+d]
					}
					scores[j] = dot * scale
				}
				w := softmax(scores)
				for d := 0; d < headDim; d++ {
					var sum float64
					for j := 0; j <= pos; j++ {
						sum += w[j] * values[j][hs+d]
					}
					attn = append(attn, sum)
				}
			}
			x := linear(attn, b.wo)
			for i := range x {
				x[i] += xs[pos][i]
			}

			// mlp
			m := linear(rmsNorm(x, b.ln2), b.fc1)
			for i := range m {
				if m[i] < 0 {
					m[i] = 0
				}
			}
			m = linear(m, b.fc2)
			for i := range m {
				m[i] += x[i]
			}
			next[pos] = m
		}
		xs = next
		out[li] = next
	}
	return out
}

// decode projects a hidden state to vocabulary logits through the final norm
// and the unembedding.
func (t *transformer) decode(h []float64) []float64 {
	return linear(rmsNorm(h, t.lnF), t.lmHead)
}

func positional(pos, i, dim int) float64 {
	freq := math.Pow(10000, -float64(2*(i/2))/float64(dim))
	if i%2 == 0 {
		return math.Sin(float64(pos) * freq)
	}
	return math.Cos(float64(pos) * freq)
}

// linear computes W*x for W shaped [out][in].
func linear(x []float64, w [][]float64) []float64 {
	out := make([]float64, len(w))
	for i, row := range w {
		var sum float64
		for j, xj := range x {
			sum += row[j] * xj
		}
		out[i] = sum
	}
	return out
}

func rmsNorm(x, gain []float64) []float64 {
	var ss float64
	for _, v := range x {
		ss += v * v
	}
	s := 1 / math.Sqrt(ss/float64(len(x))+1e-5)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * s * gain[i]
	}
	return out
}

// softmax subtracts the max logit first for numerical stability.
func softmax(logits []float64) []float64 {
	maxVal := math.Inf(-1)
	for _, l := range logits {
		if l > maxVal {
			maxVal = l
		}
	}
	out := make([]float64, len(logits))
	var total float64
	for i, l := range logits {
		out[i] = math.Exp(l - maxVal)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// argmax returns the first index of the largest value.
func argmax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}
