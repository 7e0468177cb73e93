package tokenizer

import "testing"

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{"hello world, this is a test", 7},
		// ASCII stays on the byte heuristic, never the rune count.
		{"aaaaaaaaaaaaaaaa", 4},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestEstimateTokensMultibyte(t *testing.T) {
	// Cyrillic sits at two bytes per rune; the byte heuristic still
	// applies. 44 bytes of text, one token per four.
	text := "Здраво свете ово је тест"
	if got := EstimateTokens(text); got != 11 {
		t.Errorf("EstimateTokens(%q) = %d, want 11", text, got)
	}

	// CJK is three bytes per rune and tokenizes near one token per
	// character, so the rune count wins over the byte heuristic.
	cjk := "こんにちは世界です"
	if got := EstimateTokens(cjk); got != 9 {
		t.Errorf("EstimateTokens(%q) = %d, want 9", cjk, got)
	}
}

func TestCountNeverFails(t *testing.T) {
	tok := New()
	// Works with or without a reachable BPE download.
	if got := tok.Count("hello world"); got <= 0 {
		t.Errorf("Count = %d, want positive", got)
	}
	if got := tok.Count(""); got != 0 {
		t.Errorf("Count(empty) = %d, want 0", got)
	}
}

func TestGetPricing(t *testing.T) {
	if _, ok := GetPricing("deepseek-chat"); !ok {
		t.Error("exact match failed")
	}
	if _, ok := GetPricing("claude-sonnet-4-20250514"); !ok {
		t.Error("prefix match failed for versioned model name")
	}
	if _, ok := GetPricing("llama3:8b"); ok {
		t.Error("local model should have no pricing")
	}
}

func TestEstimateCost(t *testing.T) {
	// deepseek-chat: $0.27/M in, $1.10/M out.
	got := EstimateCost("deepseek-chat", 1_000_000, 1_000_000)
	want := 0.27 + 1.10
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("EstimateCost = %v, want %v", got, want)
	}

	if EstimateCost("unknown-model", 1000, 1000) != 0 {
		t.Error("unknown model should cost zero")
	}
	if EstimateCost("llama3:8b", 1000, 1000) != 0 {
		t.Error("local model should cost zero")
	}
}
