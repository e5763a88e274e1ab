package provider

import (
	"context"
	"encoding/base64"
	"fmt"
)

// ImagePayload is an inline image sent alongside a prompt.
type ImagePayload struct {
	MIMEType string
	Data     []byte
}

func (p ImagePayload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// DataURI renders the image as a data: URL, the form OpenAI-compatible APIs accept.
func (p ImagePayload) DataURI() string {
	return "data:" + p.MIMEType + ";base64," + p.Base64()
}

// Summary is a log-safe description of the image.
func (p ImagePayload) Summary() string {
	return fmt.Sprintf("%s %dB", p.MIMEType, len(p.Data))
}

// ChatPayload is one model invocation. Schema, when set, is a JSON schema the
// provider should constrain its output to; providers without schema support fall
// back to plain JSON mode when ExpectJSON is set.
type ChatPayload struct {
	System     string
	User       string
	Images     []ImagePayload
	ExpectJSON bool
	Schema     map[string]any
	MaxTokens  int
}

// ModelProvider is a text (and optionally vision) capable model endpoint.
type ModelProvider interface {
	ID() string
	SupportsVision() bool
	Call(ctx context.Context, payload ChatPayload) (string, error)
}

// Part is one element of an image synthesis response: TextPart or ImagePart.
type Part interface {
	isPart()
}

type TextPart struct {
	Text string
}

type ImagePart struct {
	MIMEType string
	Data     []byte
}

func (TextPart) isPart()  {}
func (ImagePart) isPart() {}

// ImageGenerator is a model endpoint that can answer with generated images.
type ImageGenerator interface {
	ID() string
	GenerateImage(ctx context.Context, prompt string) ([]Part, error)
}

// FirstImage scans parts in order and returns the first non-empty image.
func FirstImage(parts []Part) (ImagePart, bool) {
	for _, p := range parts {
		if img, ok := p.(ImagePart); ok && len(img.Data) > 0 {
			return img, true
		}
	}
	return ImagePart{}, false
}

// SummarizeImages returns the Summary of each image, nil when there are none.
func SummarizeImages(images []ImagePayload) []string {
	if len(images) == 0 {
		return nil
	}
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.Summary()
	}
	return out
}
