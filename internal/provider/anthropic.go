package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/allaspectsdev/traduko/internal/tokenizer"
)

// anthropicVersion is the API version header required by the messages
// endpoint.
const anthropicVersion = "2023-06-01"

// Anthropic speaks the Anthropic messages protocol.
type Anthropic struct {
	cfg    Config
	client *http.Client
	tok    *tokenizer.Tokenizer
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropic creates an Anthropic messages adapter.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, &Error{Kind: ErrAuthFailed, Message: "API key is required"}
	}
	if cfg.Model == "" {
		return nil, &Error{Kind: ErrBadRequest, Message: "model is required"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	return &Anthropic{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		tok:    tokenizer.New(),
	}, nil
}

// Kind returns the provider family.
func (a *Anthropic) Kind() Kind { return KindAnthropic }

// Translate performs one messages round-trip.
func (a *Anthropic) Translate(ctx context.Context, req *Request) (string, CostInfo, error) {
	payload := anthropicRequest{
		Model: a.cfg.Model,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildPrompt(req)},
		},
		MaxTokens:   chatMaxTokens,
		Temperature: 0.3,
	}

	var resp anthropicResponse
	url := strings.TrimSuffix(a.cfg.BaseURL, "/") + "/messages"
	err := postJSON(ctx, a.client, url, payload, &resp, func(r *http.Request) {
		r.Header.Set("x-api-key", a.cfg.APIKey)
		r.Header.Set("anthropic-version", anthropicVersion)
	})
	if err != nil {
		return "", CostInfo{}, err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	text := Canonicalize(b.String(), req.Text)
	if text == "" {
		return "", CostInfo{}, &Error{Kind: ErrEmptyResult, Message: "model returned empty translation"}
	}

	cost := CostInfo{
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
	}
	if cost.TokensIn == 0 && cost.TokensOut == 0 {
		cost.TokensIn = a.tok.Count(req.Text)
		cost.TokensOut = a.tok.Count(text)
		cost.Estimated = true
	}
	cost.USD = tokenizer.EstimateCost(a.cfg.Model, cost.TokensIn, cost.TokensOut)

	return text, cost, nil
}
