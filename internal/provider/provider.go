// Package provider contains the protocol-specific adapters that wrap one
// remote translation back-end each. The dispatcher sees only the uniform
// Adapter contract; everything provider-shaped (request envelopes, auth
// headers, response parsing, output cleanup) stays in here.
package provider

import (
	"context"
	"time"
)

// Kind names a supported back-end family. A family determines the wire
// protocol and request shape, not credentials.
type Kind string

const (
	// KindOpenAICompat is the OpenAI chat-completions protocol, also spoken
	// by DeepSeek, Qwen, Zhipu, and most hosted inference gateways.
	KindOpenAICompat Kind = "openai-compat"
	// KindAnthropic is the Anthropic messages protocol.
	KindAnthropic Kind = "anthropic"
	// KindOllama is the local Ollama generate protocol.
	KindOllama Kind = "ollama"
	// KindLlamaCpp is the llama.cpp server completion protocol.
	KindLlamaCpp Kind = "llamacpp"
)

// Valid reports whether k names a known provider family.
func (k Kind) Valid() bool {
	switch k {
	case KindOpenAICompat, KindAnthropic, KindOllama, KindLlamaCpp:
		return true
	}
	return false
}

// Request carries one translation attempt's inputs to an adapter.
type Request struct {
	Text       string
	SourceLang string // BCP-47-ish tag; empty means provider auto-detect
	TargetLang string
	Hint       string // optional context hint carried into the prompt
}

// CostInfo reports the token usage and estimated cost of one attempt.
// TokensIn/TokensOut come from the provider's usage envelope when present,
// otherwise from a local estimate.
type CostInfo struct {
	TokensIn  int
	TokensOut int
	USD       float64
	Estimated bool
}

// Adapter is the uniform contract every back-end client implements.
// Translate performs exactly one round-trip; retry and failover live in the
// dispatcher, not here. The returned text is canonicalized: no wrapper
// labels, no code fences, no leaked prompt scaffolding.
type Adapter interface {
	Translate(ctx context.Context, req *Request) (string, CostInfo, error)
	Kind() Kind
}

// Config binds an adapter to one endpoint at construction time.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// MinTimeout is the floor for per-attempt timeouts. Shorter defaults cause
// systemic timeouts on paragraphs of non-trivial length.
const MinTimeout = 180 * time.Second

// effectiveTimeout clamps a configured timeout to the floor.
func effectiveTimeout(d time.Duration) time.Duration {
	if d < MinTimeout {
		return MinTimeout
	}
	return d
}

// New constructs the adapter for the given family.
func New(kind Kind, cfg Config) (Adapter, error) {
	switch kind {
	case KindOpenAICompat:
		return NewOpenAICompat(cfg)
	case KindAnthropic:
		return NewAnthropic(cfg)
	case KindOllama:
		return NewOllama(cfg)
	case KindLlamaCpp:
		return NewLlamaCpp(cfg)
	default:
		return nil, &Error{Kind: ErrBadRequest, Message: "unknown provider kind " + string(kind)}
	}
}
