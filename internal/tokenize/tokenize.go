// Package tokenize turns plain text or a chat transcript into a model's
// token strings.
package tokenize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"lensd/internal/engine"
	"lensd/pkg/types"
)

// Models resolves a model name to an open engine model.
type Models interface {
	Get(ctx context.Context, name string) (engine.Model, error)
}

// Service tokenizes text with the tokenizer of the requested model.
// Results are kept in an LRU cache keyed by model, input kind and text.
type Service struct {
	models Models
	cache  *lru.Cache
	log    zerolog.Logger
}

// NewService constructs a Service. A cacheSize <= 0 disables caching.
func NewService(models Models, cacheSize int, log zerolog.Logger) (*Service, error) {
	s := &Service{models: models, log: log}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("tokenize cache: %w", err)
		}
		s.cache = c
	}
	return s, nil
}

// Tokenize returns the token strings of req.Text. A message list is first
// rendered through the model's chat template.
func (s *Service) Tokenize(ctx context.Context, req types.TokenizeRequest) (types.TokenizeResponse, error) {
	key, err := cacheKey(req)
	if err != nil {
		return types.TokenizeResponse{}, err
	}
	if toks, ok := s.lookup(key); ok {
		return types.TokenizeResponse{Tokens: toks}, nil
	}

	model, err := s.models.Get(ctx, req.Model)
	if err != nil {
		return types.TokenizeResponse{}, err
	}
	tok := model.Tokenizer()

	text := req.Text.Plain
	if req.Text.IsChat {
		text, err = tok.ApplyChatTemplate(ctx, req.Text.Messages)
		if err != nil {
			return types.TokenizeResponse{}, fmt.Errorf("chat template: %w", err)
		}
	}
	ids, err := tok.Encode(ctx, text)
	if err != nil {
		return types.TokenizeResponse{}, fmt.Errorf("encode: %w", err)
	}
	toks, err := tok.BatchDecode(ctx, ids)
	if err != nil {
		return types.TokenizeResponse{}, fmt.Errorf("decode: %w", err)
	}
	if s.cache != nil {
		s.cache.Add(key, toks)
	}
	s.log.Debug().Str("model", req.Model).Bool("chat", req.Text.IsChat).Int("tokens", len(toks)).Msg("tokenize")
	return types.TokenizeResponse{Tokens: clone(toks)}, nil
}

// clone copies toks so callers never alias cached slices. The result is
// never nil.
func clone(toks []string) []string {
	out := make([]string, len(toks))
	copy(out, toks)
	return out
}

func (s *Service) lookup(key string) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(key)
	if !ok {
		cacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	cacheTotal.WithLabelValues("hit").Inc()
	return clone(v.([]string)), true
}

func cacheKey(req types.TokenizeRequest) (string, error) {
	h := sha256.New()
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	if req.Text.IsChat {
		b, err := json.Marshal(req.Text.Messages)
		if err != nil {
			return "", err
		}
		h.Write([]byte("chat\x00"))
		h.Write(b)
	} else {
		h.Write([]byte("plain\x00"))
		h.Write([]byte(req.Text.Plain))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
