package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestGeminiClient_CallInlinesImagesAndSchema(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-goog-api-key"))
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"prompt\":"},{"text":"\"p\"}"}]}}]}`))
	}))
	defer srv.Close()

	client := &GeminiClient{ProviderID: "gemini-flash", BaseURL: srv.URL + "/v1beta", APIKey: "key-1", Model: "gemini-2.5-flash", Vision: true}
	schema := map[string]any{"type": "object"}
	out, err := client.Call(context.Background(), ChatPayload{
		System: "sys",
		User:   "user",
		Images: []ImagePayload{{MIMEType: "image/jpeg", Data: []byte("img")}},
		Schema: schema,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"prompt":"p"}`, out)

	parsed := gjson.ParseBytes(body)
	assert.Equal(t, "sys", parsed.Get("systemInstruction.parts.0.text").String())
	assert.Equal(t, "image/jpeg", parsed.Get("contents.0.parts.0.inline_data.mime_type").String())
	assert.Equal(t, "aW1n", parsed.Get("contents.0.parts.0.inline_data.data").String())
	assert.Equal(t, "user", parsed.Get("contents.0.parts.1.text").String())
	assert.Equal(t, "application/json", parsed.Get("generationConfig.responseMimeType").String())
	assert.Equal(t, "object", parsed.Get("generationConfig.responseSchema.type").String())
}

func TestGeminiClient_PlainTextOmitsGenerationConfig(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`))
	}))
	defer srv.Close()

	client := &GeminiClient{ProviderID: "lite", BaseURL: srv.URL, Model: "lite"}
	out, err := client.Call(context.Background(), ChatPayload{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.False(t, gjson.GetBytes(body, "generationConfig").Exists())
	assert.False(t, gjson.GetBytes(body, "systemInstruction").Exists())
}

func TestGeminiClient_GenerateImageKeepsPartOrder(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[
			{"text":"here you go"},
			{"inlineData":{"mimeType":"image/png","data":"AQI="}},
			{"inlineData":{"mimeType":"image/jpeg","data":"Aw=="}}
		]}}]}`))
	}))
	defer srv.Close()

	client := &GeminiClient{ProviderID: "gemini-image", BaseURL: srv.URL, Model: "img"}
	parts, err := client.GenerateImage(context.Background(), "서울의 아름다운 풍경")
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, TextPart{Text: "here you go"}, parts[0])

	img, ok := FirstImage(parts)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte{1, 2}, img.Data)

	assert.Equal(t, []any{"TEXT", "IMAGE"}, gjson.GetBytes(body, "generationConfig.responseModalities").Value())
}

func TestGeminiClient_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	client := &GeminiClient{ProviderID: "gemini-flash", BaseURL: srv.URL, Model: "m"}
	_, err := client.Call(context.Background(), ChatPayload{User: "u"})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 400, pe.Status)
	assert.Equal(t, "API key not valid", pe.Message)
	assert.False(t, IsTransient(err))
}

func TestFirstImageSkipsEmptyParts(t *testing.T) {
	parts := []Part{TextPart{Text: "a"}, ImagePart{MIMEType: "image/png"}, ImagePart{MIMEType: "image/webp", Data: []byte{9}}}
	img, ok := FirstImage(parts)
	require.True(t, ok)
	assert.Equal(t, "image/webp", img.MIMEType)

	_, ok = FirstImage([]Part{TextPart{Text: "only text"}})
	assert.False(t, ok)
}

func TestGeminiClient_PayloadDumpOmitsImageData(t *testing.T) {
	dump := captureLLMDump(t)
	img := ImagePayload{MIMEType: "image/jpeg", Data: bytes.Repeat([]byte("kcourse"), 430)}
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"한옥 마을"}]}}]}`))
	}))
	defer srv.Close()

	client := &GeminiClient{ProviderID: "gemini-flash", BaseURL: srv.URL, Model: "gemini-2.5-flash", Vision: true}
	_, err := client.Call(context.Background(), ChatPayload{User: "describe", Images: []ImagePayload{img}})
	require.NoError(t, err)

	assert.Equal(t, img.Base64(), gjson.GetBytes(body, "contents.0.parts.0.inline_data.data").String())
	out := dump.String()
	assert.Contains(t, out, "--- PAYLOAD ---")
	assert.Contains(t, out, img.Summary())
	assert.NotContains(t, out, img.Base64()[:64])
}

func TestSummarizeImages(t *testing.T) {
	assert.Nil(t, SummarizeImages(nil))
	assert.Equal(t, []string{"image/png 3B", "image/jpeg 0B"}, SummarizeImages([]ImagePayload{
		{MIMEType: "image/png", Data: []byte{1, 2, 3}},
		{MIMEType: "image/jpeg"},
	}))
}
