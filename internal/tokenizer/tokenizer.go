// Package tokenizer provides token counting and cost estimation for
// providers that do not report usage in their response envelopes.
package tokenizer

import (
	"sync"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens using the cl100k_base tiktoken encoding, which is
// a close enough approximation across the model families the dispatcher
// fronts. The encoding is initialized lazily and cached.
type Tokenizer struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// New creates a new Tokenizer instance.
func New() *Tokenizer {
	return &Tokenizer{}
}

func (t *Tokenizer) encoder() (*tiktoken.Tiktoken, error) {
	t.once.Do(func() {
		t.enc, t.err = tiktoken.GetEncoding("cl100k_base")
	})
	return t.enc, t.err
}

// Count returns the number of tokens in text. If the encoding cannot be
// initialized (e.g. no network for the BPE download), it falls back to the
// rough 4-bytes-per-token heuristic rather than failing the caller.
func (t *Tokenizer) Count(text string) int {
	enc, err := t.encoder()
	if err != nil {
		return EstimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// EstimateTokens is the heuristic token count used when no encoder is
// available: roughly one token per four bytes. Wide scripts (CJK and
// similar, over two bytes per rune on average) tokenize near one token per
// character, so those are counted by rune instead.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	byBytes := (len(text) + 3) / 4
	runes := utf8.RuneCountInString(text)
	if len(text) > runes*2 && runes > byBytes {
		return runes
	}
	return byBytes
}
