package synthesis

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"kcourse/internal/gateway/provider"
	"kcourse/internal/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// VisualExtractor turns a photo into two descriptions, or synthesises a
// representative image when there is no photo.
type VisualExtractor struct {
	Vision  []provider.ModelProvider
	Images  provider.ImageGenerator
	Objects ObjectStore
	Prompts PromptSource
	Now     func() time.Time
}

func NewVisualExtractor(vision []provider.ModelProvider, images provider.ImageGenerator, objects ObjectStore, prompts PromptSource) (*VisualExtractor, error) {
	if len(vision) != 2 {
		return nil, fmt.Errorf("visual extractor needs exactly 2 vision models, got %d", len(vision))
	}
	for _, p := range vision {
		if !p.SupportsVision() {
			return nil, fmt.Errorf("model %s does not accept images", p.ID())
		}
	}
	if images == nil {
		return nil, fmt.Errorf("visual extractor needs an image model")
	}
	if objects == nil {
		return nil, fmt.Errorf("visual extractor needs an object store")
	}
	return &VisualExtractor{Vision: vision, Images: images, Objects: objects, Prompts: prompts, Now: time.Now}, nil
}

// Extract dispatches on whether req carries a photo.
func (x *VisualExtractor) Extract(ctx context.Context, req *TripRequest) (VisualContext, error) {
	if req.HasPhoto() {
		a, b, err := x.DescribePhoto(ctx, req.Photo)
		if err != nil {
			return VisualContext{}, err
		}
		return VisualContext{DescriptionA: a, DescriptionB: b}, nil
	}
	url, key, err := x.SynthesizeImage(ctx, req)
	if err != nil {
		return VisualContext{}, err
	}
	return VisualContext{GeneratedImageURL: url, GeneratedKey: key}, nil
}

// DescribePhoto asks both vision models about the photo concurrently and
// waits for both. Either failure fails the call and cancels the other.
func (x *VisualExtractor) DescribePhoto(ctx context.Context, photo *Photo) (string, string, error) {
	prompts := x.prompts()
	payload := provider.ChatPayload{
		User:   prompts.Set().Vision,
		Images: []provider.ImagePayload{photo.payload()},
	}
	var out [2]string
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range x.Vision[:2] {
		i, p := i, p
		g.Go(func() error {
			raw, err := invoke(gctx, p, StageVision, payload)
			if err != nil {
				return &VisionProviderError{Provider: p.ID(), Err: err}
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				return &VisionProviderError{Provider: p.ID(), Err: fmt.Errorf("empty description")}
			}
			out[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return out[0], out[1], nil
}

// SynthesizeImage generates a destination image, stores it and returns its
// public URL and object key.
func (x *VisualExtractor) SynthesizeImage(ctx context.Context, req *TripRequest) (string, string, error) {
	prompt := x.prompts().ImagePrompt(req)
	id := x.Images.ID()
	logger.LogLLMRequest(id, string(StageImage), "", prompt, nil)
	start := time.Now()
	parts, err := x.Images.GenerateImage(ctx, prompt)
	if err != nil {
		logger.Warnf("image model %s failed elapsed=%s err=%v", id, time.Since(start).Truncate(time.Millisecond), err)
		return "", "", &ImageSynthesisError{Provider: id, Err: err}
	}
	img, ok := provider.FirstImage(parts)
	if !ok {
		return "", "", &ImageSynthesisError{Provider: id, Reason: fmt.Sprintf("response has no image among %d parts", len(parts))}
	}
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	key := GeneratedImageKey(x.now(), mimeType)
	url, err := x.Objects.Upload(ctx, key, img.Data, mimeType)
	if err != nil {
		return "", "", &StorageError{Op: "upload", Key: key, Err: err}
	}
	logger.Infof("generated image stored key=%s bytes=%d", key, len(img.Data))
	return url, key, nil
}

func (x *VisualExtractor) prompts() *Prompts {
	if x.Prompts == nil {
		return DefaultPrompts()
	}
	return x.Prompts.Prompts()
}

func (x *VisualExtractor) now() time.Time {
	if x.Now == nil {
		return time.Now()
	}
	return x.Now()
}

// PhotoKey is the object key of an uploaded photo: <unix-millis>_<filename>.
func PhotoKey(now time.Time, filename string) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), sanitizeFilename(filename))
}

// GeneratedImageKey is gen_<unix-millis>_<8 hex>.<ext>.
func GeneratedImageKey(now time.Time, mimeType string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("gen_%d_%s.%s", now.UnixMilli(), suffix, extensionFor(mimeType))
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20, r == '/', r == '?', r == '#', r == '%':
			return -1
		default:
			return r
		}
	}, name)
	if name == "" || name == "." || name == "/" {
		return "photo"
	}
	return name
}
