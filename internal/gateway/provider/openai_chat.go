package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kcourse/internal/logger"

	"github.com/tidwall/gjson"
)

// OpenAIChatClient speaks the OpenAI-compatible /chat/completions protocol
// (OpenAI, Groq and similar gateways).
type OpenAIChatClient struct {
	ProviderID   string
	BaseURL      string
	APIKey       string
	Model        string
	Vision       bool
	Temperature  *float64
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

var _ ModelProvider = (*OpenAIChatClient)(nil)

func (c *OpenAIChatClient) ID() string           { return c.ProviderID }
func (c *OpenAIChatClient) SupportsVision() bool { return c.Vision }

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

func (c *OpenAIChatClient) endpoint() string {
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	// tolerate configs that already carry the full path
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

// buildRequest renders payload for the wire. With redact set, inline images
// are replaced by their Summary so the result is safe to dump.
func (c *OpenAIChatClient) buildRequest(payload ChatPayload, redact bool) openAIRequest {
	messages := make([]openAIMessage, 0, 2)
	if payload.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: payload.System})
	}
	if len(payload.Images) == 0 {
		messages = append(messages, openAIMessage{Role: "user", Content: payload.User})
	} else {
		parts := []openAIContentPart{{Type: "text", Text: payload.User}}
		for _, img := range payload.Images {
			url := img.DataURI()
			if redact {
				url = img.Summary()
			}
			parts = append(parts, openAIContentPart{Type: "image_url", ImageURL: &openAIImageURL{URL: url}})
		}
		messages = append(messages, openAIMessage{Role: "user", Content: parts})
	}
	req := openAIRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: c.Temperature,
		MaxTokens:   payload.MaxTokens,
	}
	if payload.ExpectJSON || payload.Schema != nil {
		req.ResponseFormat = map[string]string{"type": "json_object"}
	}
	return req
}

func (c *OpenAIChatClient) Call(ctx context.Context, payload ChatPayload) (string, error) {
	if len(payload.Images) > 0 && !c.Vision {
		return "", &ProviderError{Provider: c.ProviderID, Message: "model does not accept images"}
	}
	body, err := json.Marshal(c.buildRequest(payload, false))
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}
	url := c.endpoint()
	logger.Debugf("[AI] POST %s provider=%s model=%s headers=%v", url, c.ProviderID, c.Model, maskHeaders(c.APIKey, c.ExtraHeaders))
	if len(payload.Images) == 0 {
		logger.LogLLMPayload(c.ProviderID, string(body))
	} else if dump, err := json.Marshal(c.buildRequest(payload, true)); err == nil {
		logger.LogLLMPayload(c.ProviderID, string(dump))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		req.Header.Set(k, v)
	}
	raw, err := doRequest(c.httpClient(), req, c.ProviderID)
	if err != nil {
		return "", err
	}
	choices := gjson.GetBytes(raw, "choices")
	if !choices.IsArray() || len(choices.Array()) == 0 {
		return "", &ProviderError{Provider: c.ProviderID, Message: "response has no choices"}
	}
	return gjson.GetBytes(raw, "choices.0.message.content").String(), nil
}

func (c *OpenAIChatClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// doRequest executes req and returns the body of a 2xx response. Non-2xx
// responses become a ProviderError carrying the upstream error message.
func doRequest(client *http.Client, req *http.Request, providerID string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: providerID, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: providerID, Status: resp.StatusCode, Message: "read body: " + err.Error(), Err: err}
	}
	if resp.StatusCode/100 == 2 {
		return raw, nil
	}
	msg := strings.TrimSpace(gjson.GetBytes(raw, "error.message").String())
	if msg == "" {
		msg = resp.Status
	}
	return nil, &ProviderError{
		Provider:   providerID,
		Status:     resp.StatusCode,
		Message:    msg,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// maskHeaders renders request headers for debug logs with secrets reduced to their last 4 characters.
func maskHeaders(apiKey string, extra map[string]string) map[string]string {
	out := map[string]string{"Content-Type": "application/json"}
	if apiKey != "" {
		out["Authorization"] = "Bearer " + maskSecret(apiKey)
	}
	for k, v := range extra {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = maskSecret(v)
		}
		out[k] = v
	}
	return out
}

func maskSecret(v string) string {
	if len(v) > 4 {
		return "****" + v[len(v)-4:]
	}
	return "****"
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
