package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Pretty re-indents raw when it is valid JSON and returns it unchanged otherwise.
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !json.Valid([]byte(raw)) {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
