package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"kcourse/internal/logger"

	"github.com/tidwall/gjson"
)

// GeminiClient calls the Google Generative Language generateContent endpoint.
// It serves as both a chat model and an image generator.
type GeminiClient struct {
	ProviderID   string
	BaseURL      string
	APIKey       string
	Model        string
	Vision       bool
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

var (
	_ ModelProvider  = (*GeminiClient)(nil)
	_ ImageGenerator = (*GeminiClient)(nil)
)

func (c *GeminiClient) ID() string           { return c.ProviderID }
func (c *GeminiClient) SupportsVision() bool { return c.Vision }

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType   string         `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any `json:"responseSchema,omitempty"`
	ResponseModalities []string       `json:"responseModalities,omitempty"`
	MaxOutputTokens    int            `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

func (c *GeminiClient) endpoint() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	return fmt.Sprintf("%s/models/%s:generateContent", base, url.PathEscape(c.Model))
}

func (c *GeminiClient) Call(ctx context.Context, payload ChatPayload) (string, error) {
	if len(payload.Images) > 0 && !c.Vision {
		return "", &ProviderError{Provider: c.ProviderID, Message: "model does not accept images"}
	}
	req := c.buildRequest(payload, false)
	logged := req
	if len(payload.Images) > 0 {
		logged = c.buildRequest(payload, true)
	}
	raw, err := c.post(ctx, req, logged)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, p := range gjson.GetBytes(raw, "candidates.0.content.parts").Array() {
		sb.WriteString(p.Get("text").String())
	}
	if sb.Len() == 0 && !gjson.GetBytes(raw, "candidates.0").Exists() {
		return "", &ProviderError{Provider: c.ProviderID, Message: "response has no candidates"}
	}
	return sb.String(), nil
}

// buildRequest renders payload for the wire. With redact set, inline image
// data is replaced by the image Summary so the result is safe to dump.
func (c *GeminiClient) buildRequest(payload ChatPayload, redact bool) geminiRequest {
	parts := make([]geminiPart, 0, len(payload.Images)+1)
	for _, img := range payload.Images {
		data := img.Base64()
		if redact {
			data = img.Summary()
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MIMEType: img.MIMEType, Data: data}})
	}
	parts = append(parts, geminiPart{Text: payload.User})
	req := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: parts}}}
	if payload.System != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: payload.System}}}
	}
	gen := &geminiGenerationConfig{MaxOutputTokens: payload.MaxTokens}
	if payload.ExpectJSON || payload.Schema != nil {
		gen.ResponseMIMEType = "application/json"
		gen.ResponseSchema = payload.Schema
	}
	if gen.MaxOutputTokens > 0 || gen.ResponseMIMEType != "" {
		req.GenerationConfig = gen
	}
	return req
}

// GenerateImage asks for a mixed TEXT/IMAGE answer and returns the parts in
// the order the model produced them.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) ([]Part, error) {
	req := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}
	raw, err := c.post(ctx, req, req)
	if err != nil {
		return nil, err
	}
	var parts []Part
	for _, p := range gjson.GetBytes(raw, "candidates.0.content.parts").Array() {
		inline := p.Get("inlineData")
		if !inline.Exists() {
			inline = p.Get("inline_data")
		}
		if inline.Exists() {
			data, err := base64.StdEncoding.DecodeString(inline.Get("data").String())
			if err != nil {
				return nil, &ProviderError{Provider: c.ProviderID, Message: "decode inline image: " + err.Error()}
			}
			mime := inline.Get("mimeType").String()
			if mime == "" {
				mime = inline.Get("mime_type").String()
			}
			parts = append(parts, ImagePart{MIMEType: mime, Data: data})
			continue
		}
		if t := p.Get("text"); t.Exists() {
			parts = append(parts, TextPart{Text: t.String()})
		}
	}
	return parts, nil
}

// post sends body; logged is what goes to the payload dump.
func (c *GeminiClient) post(ctx context.Context, body, logged geminiRequest) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}
	endpoint := c.endpoint()
	logger.Debugf("[AI] POST %s provider=%s headers=%v", endpoint, c.ProviderID, maskHeaders("", c.headers()))
	if dump, err := json.Marshal(logged); err == nil {
		logger.LogLLMPayload(c.ProviderID, string(dump))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return doRequest(client, req, c.ProviderID)
}

func (c *GeminiClient) headers() map[string]string {
	out := make(map[string]string, len(c.ExtraHeaders)+1)
	for k, v := range c.ExtraHeaders {
		out[k] = v
	}
	if c.APIKey != "" {
		out["x-goog-api-key"] = c.APIKey
	}
	return out
}
