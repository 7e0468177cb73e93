package provider

import (
	"fmt"
	"strings"
)

// langNames maps common language tags to display names for the prompt.
// Unknown tags are passed through verbatim; models handle raw BCP-47 tags
// well enough.
var langNames = map[string]string{
	"en": "English",
	"ru": "Russian",
	"sr": "Serbian",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"zh": "Chinese",
	"ja": "Japanese",
	"uk": "Ukrainian",
	"bg": "Bulgarian",
	"mk": "Macedonian",
}

func langName(tag string) string {
	if name, ok := langNames[strings.ToLower(tag)]; ok {
		return name
	}
	return tag
}

// buildPrompt assembles the translation instruction for one request. The
// guidance mirrors what professional literary translation needs: keep the
// register, keep the formatting, output nothing but the translation.
func buildPrompt(req *Request) string {
	var b strings.Builder

	target := langName(req.TargetLang)
	if req.SourceLang == "" {
		fmt.Fprintf(&b, "You are a professional literary translator. Translate the following text into %s, detecting the source language yourself.\n\n", target)
	} else {
		fmt.Fprintf(&b, "You are a professional literary translator. Translate the following text from %s into %s.\n\n", langName(req.SourceLang), target)
	}

	b.WriteString("Guidelines:\n")
	b.WriteString("1. Preserve the literary style, tone, and register of the original.\n")
	b.WriteString("2. Keep names of people and places unchanged unless a standard equivalent exists.\n")
	b.WriteString("3. Preserve formatting, punctuation, and paragraph structure exactly.\n")
	b.WriteString("4. Output ONLY the translation. No preamble, no labels, no commentary.\n")

	if req.Hint != "" {
		fmt.Fprintf(&b, "\nContext: %s\n", req.Hint)
	}

	fmt.Fprintf(&b, "\nText:\n%s", req.Text)
	return b.String()
}
