package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"kcourse/internal/pkg/jsonutil"
)

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

// SetLLMWriter routes model request/response transcripts to w. A nil writer disables them.
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

// EnableLLMPayloadDump toggles inclusion of raw HTTP payloads in transcripts.
func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

type llmSection struct {
	Title string
	Body  string
}

func writeLLM(kind, provider, stage string, sections []llmSection) {
	llmMu.Lock()
	l := llmLog
	llmMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range []string{kind, provider, stage} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogLLMRequest records the prompts sent for one model call. images carries short
// summaries (mime type and size); image bytes are never written.
func LogLLMRequest(provider, stage, systemPrompt, userPrompt string, images []string) {
	sections := []llmSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	}
	for i, img := range images {
		sections = append(sections, llmSection{Title: fmt.Sprintf("IMAGE#%d", i+1), Body: img})
	}
	writeLLM("request", provider, stage, sections)
}

func LogLLMResponse(provider, stage, raw string) {
	writeLLM("response", provider, stage, []llmSection{{Title: "RAW", Body: raw}})
}

// LogLLMPayload writes the encoded request body when payload dumping is enabled.
func LogLLMPayload(provider, payload string) {
	llmMu.Lock()
	enabled := llmDumpPayload
	llmMu.Unlock()
	if !enabled {
		return
	}
	text := strings.TrimSpace(payload)
	if text == "" {
		return
	}
	writeLLM("payload", provider, "", []llmSection{{Title: "PAYLOAD", Body: jsonutil.Pretty(text)}})
}
