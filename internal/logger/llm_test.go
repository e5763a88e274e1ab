package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLLMRequestWritesSections(t *testing.T) {
	var buf bytes.Buffer
	SetLLMWriter(&buf)
	t.Cleanup(func() { SetLLMWriter(nil) })

	LogLLMRequest("gemini-flash", "refine", "sys", "usr", []string{"image/png 12B"})
	LogLLMResponse("gemini-flash", "refine", `{"prompt":"x"}`)

	out := buf.String()
	assert.Contains(t, out, "[LLM][request][gemini-flash][refine]")
	assert.Contains(t, out, "--- SYSTEM ---\nsys")
	assert.Contains(t, out, "--- IMAGE#1 ---\nimage/png 12B")
	assert.Contains(t, out, "--- RAW ---\n{\"prompt\":\"x\"}")
}

func TestLogLLMPayloadRespectsToggle(t *testing.T) {
	var buf bytes.Buffer
	SetLLMWriter(&buf)
	t.Cleanup(func() {
		SetLLMWriter(nil)
		EnableLLMPayloadDump(false)
	})

	LogLLMPayload("groq", `{"model":"m"}`)
	assert.Empty(t, buf.String())

	EnableLLMPayloadDump(true)
	LogLLMPayload("groq", `{"model":"m"}`)
	assert.Contains(t, buf.String(), "--- PAYLOAD ---")
	assert.Contains(t, buf.String(), "{\n  \"model\": \"m\"\n}")
}

func TestLLMWriterDisabledIsNoop(t *testing.T) {
	SetLLMWriter(nil)
	assert.NotPanics(t, func() {
		LogLLMResponse("p", "s", "raw")
	})
}
