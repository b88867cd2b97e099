package types

import (
	"bytes"
	"encoding/json"
	"errors"
)

// LensRequest is the payload of POST /api/lens.
type LensRequest struct {
	// Conversations to analyse. Conversations naming the same model are traced together.
	Conversations []Conversation `json:"conversations" validate:"required,dive"`
}

// LensResponse is returned by POST /api/lens, one entry per model in first-seen order.
type LensResponse struct {
	ModelResults []ModelResults `json:"model_results"`
}

// TokenizeText is either a plain string or a chat transcript.
type TokenizeText struct {
	Plain    string
	Messages []Message `validate:"dive"`
	// IsChat is true when the payload was a message list.
	IsChat bool

	set bool
}

// PlainText builds a TokenizeText from a string.
func PlainText(s string) TokenizeText { return TokenizeText{Plain: s, set: true} }

// ChatText builds a TokenizeText from a transcript.
func ChatText(msgs ...Message) TokenizeText {
	return TokenizeText{Messages: msgs, IsChat: true, set: true}
}

// Present reports whether the text was given, either by a constructor or
// by a "text" key in decoded JSON. The zero value is not present.
func (t TokenizeText) Present() bool { return t.set }

func (t *TokenizeText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return errors.New("text is required")
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = PlainText(s)
		return nil
	case '[':
		var msgs []Message
		if err := json.Unmarshal(b, &msgs); err != nil {
			return err
		}
		*t = ChatText(msgs...)
		return nil
	default:
		return errors.New("text must be a string or a list of messages")
	}
}

func (t TokenizeText) MarshalJSON() ([]byte, error) {
	if t.IsChat {
		if t.Messages == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(t.Messages)
	}
	return json.Marshal(t.Plain)
}

// TokenizeRequest is the payload of POST /api/tokenize.
type TokenizeRequest struct {
	// Plain string, or a list of {role, content} messages rendered with the model's chat template.
	Text TokenizeText `json:"text" swaggertype:"string" example:"Hello world"`
	// Model whose tokenizer is used.
	// example: EleutherAI/gpt-j-6b
	Model string `json:"model" validate:"required" example:"EleutherAI/gpt-j-6b"`
}

// TokenizeResponse lists the decoded string of every token id.
type TokenizeResponse struct {
	// example: ["Hello"," world"]
	Tokens []string `json:"tokens" example:"Hello, world"`
}

// ModelsResponse wraps the list of models returned by GET /api/models.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// MessageResponse is the body of GET /.
type MessageResponse struct {
	// example: Hello World
	Message string `json:"message" example:"Hello World"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
