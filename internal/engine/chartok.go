package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"lensd/pkg/types"
)

// Special tokens of the character tokenizer.
const (
	tokUnk       = "<unk>"
	tokUser      = "<|user|>"
	tokAssistant = "<|assistant|>"
	tokEnd       = "<|end|>"
)

// charTokenizer is a character-level tokenizer: one token per printable
// ASCII character, newline or tab, plus chat specials. Other runes map to
// <unk>.
type charTokenizer struct {
	vocab   []string
	ids     map[string]int
	special []string
	unk     int
}

func newCharTokenizer() *charTokenizer {
	special := []string{tokUser, tokAssistant, tokEnd}
	vocab := []string{tokUnk}
	vocab = append(vocab, special...)
	vocab = append(vocab, "\n", "\t")
	for c := 32; c < 127; c++ {
		vocab = append(vocab, string(rune(c)))
	}
	ids := make(map[string]int, len(vocab))
	for i, v := range vocab {
		ids[v] = i
	}
	return &charTokenizer{vocab: vocab, ids: ids, special: special, unk: 0}
}

// VocabSize returns the number of token ids.
func (t *charTokenizer) VocabSize() int { return len(t.vocab) }

func (t *charTokenizer) Encode(ctx context.Context, text string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(text))
	for i := 0; i < len(text); {
		if sp := t.specialAt(text[i:]); sp != "" {
			ids = append(ids, t.ids[sp])
			i += len(sp)
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if id, ok := t.ids[string(r)]; ok {
			ids = append(ids, id)
		} else {
			ids = append(ids, t.unk)
		}
		i += size
	}
	return ids, nil
}

func (t *charTokenizer) specialAt(s string) string {
	if len(s) == 0 || s[0] != '<' {
		return ""
	}
	for _, sp := range t.special {
		if strings.HasPrefix(s, sp) {
			return sp
		}
	}
	return ""
}

func (t *charTokenizer) BatchDecode(ctx context.Context, ids []int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(t.vocab) {
			return nil, fmt.Errorf("token id out of range: %d", id)
		}
		out[i] = t.vocab[id]
	}
	return out, nil
}

func (t *charTokenizer) ApplyChatTemplate(ctx context.Context, msgs []types.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case "user":
			b.WriteString(tokUser)
		case "assistant":
			b.WriteString(tokAssistant)
		default:
			return "", &InputError{Msg: fmt.Sprintf("unsupported chat role: %q", m.Role)}
		}
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString(tokEnd)
		b.WriteString("\n")
	}
	return b.String(), nil
}
