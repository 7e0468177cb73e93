package provider

import (
	"regexp"
	"strings"
)

// LLM endpoints routinely leak prompt scaffolding into their output: a
// "Translation:" label, a fenced code block, curly quotes the source never
// had. Canonicalize strips all of it so the dispatcher hands callers pure
// target-language text. Each rule is idempotent; applying Canonicalize to
// its own output is a no-op.

// labelLine matches a bare wrapper label on its own line, e.g. "Translation:".
var labelLine = regexp.MustCompile(`(?i)^(translation|translated|output|serbian|answer)\s*:?\s*$`)

// fenceOpen matches an opening triple-backtick fence with an optional
// language tag.
var fenceOpen = regexp.MustCompile("^```[a-zA-Z0-9_-]*\n")

// Canonicalize normalizes raw adapter output. The original text is consulted
// so structural properties it carried (a trailing newline, Markdown tokens)
// survive the cleanup untouched.
func Canonicalize(raw, original string) string {
	out := strings.TrimSpace(raw)

	// Drop a leading wrapper label line.
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		if labelLine.MatchString(strings.TrimSpace(out[:idx])) {
			out = strings.TrimLeft(out[idx+1:], "\n")
		}
	}

	// Unwrap a whole-output code fence.
	if fenceOpen.MatchString(out) && strings.HasSuffix(out, "```") {
		out = fenceOpen.ReplaceAllString(out, "")
		out = strings.TrimSuffix(out, "```")
		out = strings.TrimSpace(out)
	}

	// Normalize curly quotes the model introduced.
	out = strings.NewReplacer(
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	).Replace(out)

	// Preserve the original's paragraph-final newline.
	if strings.HasSuffix(original, "\n") && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	return out
}
