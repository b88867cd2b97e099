package tokenize

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lensd/internal/engine"
	"lensd/pkg/types"
)

type fakeModels struct {
	eng  *engine.LocalEngine
	gets atomic.Int32
}

var errUnknown = errors.New("unknown model")

func (f *fakeModels) Get(ctx context.Context, name string) (engine.Model, error) {
	f.gets.Add(1)
	if name != "gpt2" {
		return nil, errUnknown
	}
	return f.eng.Open(ctx, engine.ModelSpec{Name: name, Rename: map[string]string{"transformer": "model", "h": "layers"}})
}

func newService(t *testing.T, cacheSize int) (*Service, *fakeModels) {
	t.Helper()
	f := &fakeModels{eng: engine.NewLocalEngine(engine.LocalOptions{Layers: 1, Embd: 8, Heads: 2})}
	s, err := NewService(f, cacheSize, zerolog.Nop())
	require.NoError(t, err)
	return s, f
}

func TestTokenize_PlainRoundTrip(t *testing.T) {
	s, _ := newService(t, 0)
	text := "The Eiffel Tower is in the city of"
	resp, err := s.Tokenize(context.Background(), types.TokenizeRequest{Text: types.PlainText(text), Model: "gpt2"})
	require.NoError(t, err)
	assert.Len(t, resp.Tokens, len(text))
	assert.Equal(t, text, strings.Join(resp.Tokens, ""))
}

func TestTokenize_Chat(t *testing.T) {
	s, _ := newService(t, 0)
	resp, err := s.Tokenize(context.Background(), types.TokenizeRequest{
		Text:  types.ChatText(types.Message{Role: "user", Content: "Hi"}, types.Message{Role: "assistant", Content: "Yo"}),
		Model: "gpt2",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"<|user|>", "\n", "H", "i", "<|end|>", "\n", "<|assistant|>", "\n", "Y", "o", "<|end|>", "\n"}, resp.Tokens)
}

func TestTokenize_ChatBadRole(t *testing.T) {
	s, _ := newService(t, 0)
	_, err := s.Tokenize(context.Background(), types.TokenizeRequest{
		Text:  types.ChatText(types.Message{Role: "system", Content: "x"}),
		Model: "gpt2",
	})
	require.Error(t, err)
	assert.True(t, engine.IsInput(err))
}

func TestTokenize_UnknownModel(t *testing.T) {
	s, _ := newService(t, 8)
	_, err := s.Tokenize(context.Background(), types.TokenizeRequest{Text: types.PlainText("x"), Model: "nope"})
	assert.ErrorIs(t, err, errUnknown)
}

func TestTokenize_Empty(t *testing.T) {
	s, _ := newService(t, 0)
	resp, err := s.Tokenize(context.Background(), types.TokenizeRequest{Text: types.PlainText(""), Model: "gpt2"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Tokens)
	assert.Empty(t, resp.Tokens)
}

func TestTokenize_CacheHit(t *testing.T) {
	s, f := newService(t, 8)
	hits := testutil.ToFloat64(cacheTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(cacheTotal.WithLabelValues("miss"))
	req := types.TokenizeRequest{Text: types.PlainText("abc"), Model: "gpt2"}

	first, err := s.Tokenize(context.Background(), req)
	require.NoError(t, err)
	first.Tokens[0] = "mutated"
	second, err := s.Tokenize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, second.Tokens)
	assert.Equal(t, int32(1), f.gets.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(cacheTotal.WithLabelValues("hit"))-hits)
	assert.Equal(t, 1.0, testutil.ToFloat64(cacheTotal.WithLabelValues("miss"))-misses)
}

func TestCacheKey_DistinguishesKind(t *testing.T) {
	plain, err := cacheKey(types.TokenizeRequest{Model: "m", Text: types.PlainText(`[{"role":"user","content":"x"}]`)})
	require.NoError(t, err)
	chat, err := cacheKey(types.TokenizeRequest{Model: "m", Text: types.ChatText(types.Message{Role: "user", Content: "x"})})
	require.NoError(t, err)
	other, err := cacheKey(types.TokenizeRequest{Model: "m2", Text: types.ChatText(types.Message{Role: "user", Content: "x"})})
	require.NoError(t, err)
	assert.NotEqual(t, plain, chat)
	assert.NotEqual(t, chat, other)
}
