package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/allaspectsdev/traduko/internal/tokenizer"
)

// OpenAICompat speaks the OpenAI chat-completions protocol. DeepSeek, Qwen,
// Zhipu, and most hosted gateways expose the same surface, so one adapter
// covers the whole family; only BaseURL and Model differ.
type OpenAICompat struct {
	cfg    Config
	client *http.Client
	tok    *tokenizer.Tokenizer
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// chatMaxTokens is sized for book chapters; the OpenAI-compatible providers
// in the pool all accept up to 8192 completion tokens.
const chatMaxTokens = 8192

// NewOpenAICompat creates an OpenAI-compatible adapter.
func NewOpenAICompat(cfg Config) (*OpenAICompat, error) {
	if cfg.APIKey == "" {
		return nil, &Error{Kind: ErrAuthFailed, Message: "API key is required"}
	}
	if cfg.Model == "" {
		return nil, &Error{Kind: ErrBadRequest, Message: "model is required"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &OpenAICompat{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		tok:    tokenizer.New(),
	}, nil
}

// Kind returns the provider family.
func (a *OpenAICompat) Kind() Kind { return KindOpenAICompat }

// Translate performs one chat-completions round-trip.
func (a *OpenAICompat) Translate(ctx context.Context, req *Request) (string, CostInfo, error) {
	payload := chatRequest{
		Model: a.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: 0.3,
		MaxTokens:   chatMaxTokens,
	}

	var resp chatResponse
	url := strings.TrimSuffix(a.cfg.BaseURL, "/") + "/chat/completions"
	err := postJSON(ctx, a.client, url, payload, &resp, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	})
	if err != nil {
		return "", CostInfo{}, err
	}

	if len(resp.Choices) == 0 {
		return "", CostInfo{}, &Error{Kind: ErrEmptyResult, Message: "no choices in response"}
	}

	text := Canonicalize(resp.Choices[0].Message.Content, req.Text)
	if text == "" {
		return "", CostInfo{}, &Error{Kind: ErrEmptyResult, Message: "model returned empty translation"}
	}

	cost := CostInfo{
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}
	if cost.TokensIn == 0 && cost.TokensOut == 0 {
		cost.TokensIn = a.tok.Count(req.Text)
		cost.TokensOut = a.tok.Count(text)
		cost.Estimated = true
	}
	cost.USD = tokenizer.EstimateCost(a.cfg.Model, cost.TokensIn, cost.TokensOut)

	return text, cost, nil
}
