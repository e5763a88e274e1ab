package jsonutil

import (
	"strings"
)

const codeFence = "```"

// Unfence trims raw and, when the whole answer is one markdown code fence
// (```json ... ```), returns the fence body. Anything else is returned trimmed
// and otherwise untouched.
func Unfence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, codeFence) || !strings.HasSuffix(raw, codeFence) || len(raw) < 2*len(codeFence) {
		return raw
	}
	body := raw[len(codeFence) : len(raw)-len(codeFence)]
	if strings.Contains(body, codeFence) {
		return raw
	}
	// Drop an info string such as "json" on the opening line.
	if idx := strings.IndexByte(body, '\n'); idx != -1 {
		if first := strings.TrimSpace(body[:idx]); first != "" && !strings.ContainsAny(first, "[{") {
			body = body[idx+1:]
		}
	}
	return strings.TrimSpace(body)
}

// IsObject reports whether s, ignoring surrounding whitespace, starts as a
// JSON object. Callers still validate the whole text.
func IsObject(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "{")
}
