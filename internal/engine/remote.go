package engine

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"lensd/internal/observability"
	"lensd/pkg/types"
)

// maxErrorBody bounds how much of a remote error body is kept.
const maxErrorBody = 4096

// RemoteOptions configures the remote tracing client.
type RemoteOptions struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	ConnectTimeout time.Duration
}

// RemoteEngine talks to a remote tracing service over JSON/HTTP. Each
// Model.Trace call is one tracing session on the service.
type RemoteEngine struct {
	client *resty.Client
}

// NewRemoteEngine constructs a resty-backed remote engine.
func NewRemoteEngine(opts RemoteOptions) *RemoteEngine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	c := resty.New().
		SetTransport(tr).
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout)
	if opts.APIKey != "" {
		c.SetHeader("X-API-Key", opts.APIKey)
	}
	return &RemoteEngine{client: c}
}

type remoteOpenRequest struct {
	Model  string            `json:"model"`
	Rename map[string]string `json:"rename,omitempty"`
}

type remoteOpenResponse struct {
	Model  string `json:"model"`
	Layers int    `json:"layers"`
}

type remoteModules struct {
	Layers string `json:"layers"`
	Norm   string `json:"norm"`
	Head   string `json:"head"`
}

type remoteTraceRequest struct {
	SessionID   string            `json:"session_id"`
	Model       string            `json:"model"`
	Rename      map[string]string `json:"rename,omitempty"`
	Modules     remoteModules     `json:"modules"`
	Invocations []Invocation      `json:"invocations"`
}

type remoteTraceResponse struct {
	SessionID   string            `json:"session_id"`
	Invocations []InvocationTrace `json:"invocations"`
}

type remoteTokenizeRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

type remoteTokenizeResponse struct {
	IDs []int `json:"ids"`
}

type remoteDecodeRequest struct {
	Model string `json:"model"`
	IDs   []int  `json:"ids"`
}

type remoteDecodeResponse struct {
	Tokens []string `json:"tokens"`
}

type remoteChatTemplateRequest struct {
	Model               string          `json:"model"`
	Messages            []types.Message `json:"messages"`
	AddGenerationPrompt bool            `json:"add_generation_prompt"`
	AddSpecialTokens    bool            `json:"add_special_tokens"`
}

type remoteChatTemplateResponse struct {
	Text string `json:"text"`
}

// post sends one JSON request and decodes the result into out.
func (e *RemoteEngine) post(ctx context.Context, op, model, path string, body, out any) (int, error) {
	ctx, span := observability.StartEngineSpan(ctx, op, model)
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		Post(path)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		} else {
			err = &RemoteError{Op: op, Body: err.Error()}
		}
		observability.End(span, err)
		return 0, err
	}
	if resp.IsError() {
		msg := resp.String()
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		err = &RemoteError{Op: op, Status: resp.StatusCode(), Body: strings.TrimSpace(msg)}
		observability.End(span, err)
		return resp.StatusCode(), err
	}
	observability.End(span, nil)
	return resp.StatusCode(), nil
}

// Open asks the service to make spec available and returns a handle to it.
func (e *RemoteEngine) Open(ctx context.Context, spec ModelSpec) (Model, error) {
	var res remoteOpenResponse
	status, err := e.post(ctx, "open", spec.Name, "/v1/models/open", remoteOpenRequest{Model: spec.Name, Rename: spec.Rename}, &res)
	if err != nil {
		if status == http.StatusNotFound || status == http.StatusServiceUnavailable {
			return nil, ErrModelUnavailable(spec.Name, err.Error())
		}
		return nil, err
	}
	if res.Layers <= 0 {
		return nil, &RemoteError{Op: "open", Body: fmt.Sprintf("model %s reported %d layers", spec.Name, res.Layers)}
	}
	m := &remoteModel{engine: e, spec: spec, layers: res.Layers}
	m.tok = &remoteTokenizer{engine: e, model: spec.Name}
	return m, nil
}

type remoteModel struct {
	engine *RemoteEngine
	spec   ModelSpec
	layers int
	tok    *remoteTokenizer
}

func (m *remoteModel) Name() string         { return m.spec.Name }
func (m *remoteModel) Layers() int          { return m.layers }
func (m *remoteModel) Tokenizer() Tokenizer { return m.tok }

func (m *remoteModel) Trace(ctx context.Context, invs []Invocation) ([]InvocationTrace, error) {
	req := remoteTraceRequest{
		SessionID:   uuid.NewString(),
		Model:       m.spec.Name,
		Rename:      m.spec.Rename,
		Modules:     remoteModules{Layers: ModuleLayers, Norm: ModuleNorm, Head: ModuleHead},
		Invocations: invs,
	}
	var res remoteTraceResponse
	if _, err := m.engine.post(ctx, "trace", m.spec.Name, "/v1/trace", req, &res); err != nil {
		return nil, err
	}
	if err := checkTraceShape(invs, res.Invocations, m.layers); err != nil {
		return nil, &RemoteError{Op: "trace", Body: err.Error()}
	}
	return res.Invocations, nil
}

// checkTraceShape verifies that the session returned one trace per
// invocation, every layer in order, and one prediction per requested
// position with a probability in (0, 1].
func checkTraceShape(invs []Invocation, traces []InvocationTrace, layers int) error {
	if len(traces) != len(invs) {
		return fmt.Errorf("got %d invocation traces, sent %d invocations", len(traces), len(invs))
	}
	for i, tr := range traces {
		if len(tr.Layers) != layers {
			return fmt.Errorf("invocation %d: got %d layers, model has %d", i, len(tr.Layers), layers)
		}
		want := len(invs[i].Positions)
		for li, l := range tr.Layers {
			if l.Layer != li {
				return fmt.Errorf("invocation %d: layer %d reported as %d", i, li, l.Layer)
			}
			if len(l.TokenIDs) != want || len(l.Probs) != want {
				return fmt.Errorf("invocation %d layer %d: got %d ids and %d probs, want %d", i, li, len(l.TokenIDs), len(l.Probs), want)
			}
			for k, p := range l.Probs {
				// NaN fails both comparisons.
				if !(p > 0 && p <= 1) {
					return fmt.Errorf("invocation %d layer %d position %d: probability %v outside (0, 1]", i, li, k, p)
				}
			}
		}
	}
	return nil
}

type remoteTokenizer struct {
	engine *RemoteEngine
	model  string
}

func (t *remoteTokenizer) Encode(ctx context.Context, text string) ([]int, error) {
	var res remoteTokenizeResponse
	if _, err := t.engine.post(ctx, "tokenize", t.model, "/v1/tokenize", remoteTokenizeRequest{Model: t.model, Text: text}, &res); err != nil {
		return nil, err
	}
	return res.IDs, nil
}

func (t *remoteTokenizer) BatchDecode(ctx context.Context, ids []int) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	var res remoteDecodeResponse
	if _, err := t.engine.post(ctx, "decode", t.model, "/v1/decode", remoteDecodeRequest{Model: t.model, IDs: ids}, &res); err != nil {
		return nil, err
	}
	if len(res.Tokens) != len(ids) {
		return nil, &RemoteError{Op: "decode", Body: fmt.Sprintf("got %d tokens for %d ids", len(res.Tokens), len(ids))}
	}
	return res.Tokens, nil
}

func (t *remoteTokenizer) ApplyChatTemplate(ctx context.Context, msgs []types.Message) (string, error) {
	var res remoteChatTemplateResponse
	req := remoteChatTemplateRequest{Model: t.model, Messages: msgs}
	if _, err := t.engine.post(ctx, "chat_template", t.model, "/v1/chat_template", req, &res); err != nil {
		return "", err
	}
	return res.Text, nil
}
