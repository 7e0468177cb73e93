package tokenizer

import "strings"

// ModelPricing holds the per-million-token costs for a model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Pricing maps model identifiers to their token pricing. Local models
// (ollama, llama.cpp) are deliberately absent; their cost is zero.
var Pricing = map[string]ModelPricing{
	// Anthropic
	"claude-opus-4":   {15.00, 75.00},
	"claude-sonnet-4": {3.00, 15.00},
	"claude-haiku-4":  {0.80, 4.00},

	// OpenAI
	"gpt-4o":      {2.50, 10.00},
	"gpt-4o-mini": {0.15, 0.60},
	"gpt-4-turbo": {10.00, 30.00},

	// OpenAI-compatible hosted providers
	"deepseek-chat":     {0.27, 1.10},
	"deepseek-reasoner": {0.55, 2.19},
	"qwen-plus":         {0.40, 1.20},
	"glm-4":             {1.40, 1.40},
}

// GetPricing returns the pricing for the given model. It first attempts an
// exact match, then falls back to a prefix match so versioned names like
// "claude-sonnet-4-20250514" map to their base model.
func GetPricing(model string) (ModelPricing, bool) {
	if p, ok := Pricing[model]; ok {
		return p, true
	}
	for name, p := range Pricing {
		if strings.HasPrefix(model, name) {
			return p, true
		}
	}
	return ModelPricing{}, false
}

// EstimateCost calculates the estimated cost in USD for the given token
// counts on the specified model. Unknown models cost 0.
func EstimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := GetPricing(model)
	if !ok {
		return 0.0
	}
	return (float64(tokensIn)*p.InputPerMillion + float64(tokensOut)*p.OutputPerMillion) / 1_000_000
}
