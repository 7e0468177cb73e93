package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/allaspectsdev/traduko/internal/tokenizer"
)

// Ollama speaks the local Ollama generate protocol. No credential is
// required; the endpoint defaults to the standard local port.
type Ollama struct {
	cfg    Config
	client *http.Client
	tok    *tokenizer.Tokenizer
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewOllama creates an Ollama adapter.
func NewOllama(cfg Config) (*Ollama, error) {
	if cfg.Model == "" {
		cfg.Model = "llama3:8b"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &Ollama{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		tok:    tokenizer.New(),
	}, nil
}

// Kind returns the provider family.
func (a *Ollama) Kind() Kind { return KindOllama }

// Translate performs one generate round-trip.
func (a *Ollama) Translate(ctx context.Context, req *Request) (string, CostInfo, error) {
	payload := ollamaRequest{
		Model:  a.cfg.Model,
		Prompt: buildPrompt(req),
		Stream: false,
	}

	var resp ollamaResponse
	url := strings.TrimSuffix(a.cfg.BaseURL, "/") + "/api/generate"
	if err := postJSON(ctx, a.client, url, payload, &resp, nil); err != nil {
		return "", CostInfo{}, err
	}

	text := Canonicalize(resp.Response, req.Text)
	if text == "" {
		return "", CostInfo{}, &Error{Kind: ErrEmptyResult, Message: "model returned empty translation"}
	}

	cost := CostInfo{
		TokensIn:  resp.PromptEvalCount,
		TokensOut: resp.EvalCount,
	}
	if cost.TokensIn == 0 && cost.TokensOut == 0 {
		cost.TokensIn = a.tok.Count(req.Text)
		cost.TokensOut = a.tok.Count(text)
		cost.Estimated = true
	}
	// Local inference: no dollar cost.

	return text, cost, nil
}
