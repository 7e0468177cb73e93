package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/allaspectsdev/traduko/internal/tokenizer"
)

// LlamaCpp speaks the llama.cpp server completion protocol (the HTTP
// surface exposed by llama-server). Like Ollama it is local and
// credential-free.
type LlamaCpp struct {
	cfg    Config
	client *http.Client
	tok    *tokenizer.Tokenizer
}

type llamaCppRequest struct {
	Prompt      string  `json:"prompt"`
	NPredict    int     `json:"n_predict"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

type llamaCppResponse struct {
	Content            string `json:"content"`
	TokensEvaluated    int    `json:"tokens_evaluated"`
	TokensPredicted    int    `json:"tokens_predicted"`
	StoppedEOS         bool   `json:"stopped_eos"`
	StoppedLimit       bool   `json:"stopped_limit"`
	GenerationSettings any    `json:"generation_settings"`
}

// NewLlamaCpp creates a llama.cpp server adapter.
func NewLlamaCpp(cfg Config) (*LlamaCpp, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	return &LlamaCpp{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		tok:    tokenizer.New(),
	}, nil
}

// Kind returns the provider family.
func (a *LlamaCpp) Kind() Kind { return KindLlamaCpp }

// Translate performs one completion round-trip.
func (a *LlamaCpp) Translate(ctx context.Context, req *Request) (string, CostInfo, error) {
	payload := llamaCppRequest{
		Prompt:      buildPrompt(req),
		NPredict:    chatMaxTokens,
		Temperature: 0.3,
		Stream:      false,
	}

	var resp llamaCppResponse
	url := strings.TrimSuffix(a.cfg.BaseURL, "/") + "/completion"
	if err := postJSON(ctx, a.client, url, payload, &resp, nil); err != nil {
		return "", CostInfo{}, err
	}

	text := Canonicalize(resp.Content, req.Text)
	if text == "" {
		return "", CostInfo{}, &Error{Kind: ErrEmptyResult, Message: "model returned empty translation"}
	}

	cost := CostInfo{
		TokensIn:  resp.TokensEvaluated,
		TokensOut: resp.TokensPredicted,
	}
	if cost.TokensIn == 0 && cost.TokensOut == 0 {
		cost.TokensIn = a.tok.Count(req.Text)
		cost.TokensOut = a.tok.Count(text)
		cost.Estimated = true
	}

	return text, cost, nil
}
