package provider

import (
	"fmt"
	"sort"
	"time"

	"kcourse/internal/config"
	"kcourse/internal/logger"
)

// Registry holds guarded providers keyed by model ID.
type Registry struct {
	chat   map[string]ModelProvider
	images map[string]ImageGenerator
}

func NewRegistry() *Registry {
	return &Registry{
		chat:   make(map[string]ModelProvider),
		images: make(map[string]ImageGenerator),
	}
}

// RegisterChat adds p under its ID. Later registrations replace earlier ones.
func (r *Registry) RegisterChat(p ModelProvider) {
	r.chat[p.ID()] = p
}

func (r *Registry) RegisterImages(g ImageGenerator) {
	r.images[g.ID()] = g
}

func (r *Registry) Chat(id string) (ModelProvider, error) {
	p, ok := r.chat[id]
	if !ok {
		return nil, fmt.Errorf("model %s not configured", id)
	}
	return p, nil
}

func (r *Registry) Images(id string) (ImageGenerator, error) {
	g, ok := r.images[id]
	if !ok {
		return nil, fmt.Errorf("model %s cannot generate images", id)
	}
	return g, nil
}

// ChatAll resolves ids in order.
func (r *Registry) ChatAll(ids []string) ([]ModelProvider, error) {
	out := make([]ModelProvider, 0, len(ids))
	for _, id := range ids {
		p, err := r.Chat(id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.chat))
	for id := range r.chat {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GuardSettingsFromConfig maps the ai call policy onto GuardSettings.
func GuardSettingsFromConfig(ai config.AIConfig) GuardSettings {
	return GuardSettings{
		Timeout:          time.Duration(ai.CallTimeoutSeconds) * time.Second,
		MaxAttempts:      ai.Retry.MaxAttempts,
		BaseDelay:        time.Duration(ai.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:         time.Duration(ai.Retry.MaxDelayMS) * time.Millisecond,
		FailureThreshold: ai.Breaker.FailureThreshold,
		OpenTimeout:      time.Duration(ai.Breaker.OpenSeconds) * time.Second,
		RPS:              ai.RateLimit.RPS,
		Burst:            ai.RateLimit.Burst,
	}
}

// BuildRegistry constructs one guarded client per resolved model. Gemini
// models are registered both as chat models and image generators; the
// image and chat views share one guard.
func BuildRegistry(models []config.ResolvedModelConfig, settings GuardSettings) (*Registry, error) {
	reg := NewRegistry()
	// The per-attempt timeout lives in the guard; the client timeout is a backstop.
	httpClient := defaultHTTPClient(backstopTimeout(settings.Timeout))
	for _, m := range models {
		guard := NewGuard(m.ID, settings)
		switch m.Kind {
		case config.KindOpenAI:
			reg.RegisterChat(Guarded(&OpenAIChatClient{
				ProviderID:   m.ID,
				BaseURL:      m.APIURL,
				APIKey:       m.APIKey,
				Model:        m.Model,
				Vision:       m.SupportsVision,
				ExtraHeaders: m.Headers,
				HTTPClient:   httpClient,
			}, guard))
		case config.KindGemini:
			client := &GeminiClient{
				ProviderID:   m.ID,
				BaseURL:      m.APIURL,
				APIKey:       m.APIKey,
				Model:        m.Model,
				Vision:       m.SupportsVision,
				ExtraHeaders: m.Headers,
				HTTPClient:   httpClient,
			}
			reg.RegisterChat(Guarded(client, guard))
			reg.RegisterImages(GuardedImages(client, guard))
		default:
			return nil, fmt.Errorf("model %s: unsupported kind %q", m.ID, m.Kind)
		}
		logger.Debugf("[AI] registered model id=%s kind=%s model=%s vision=%v", m.ID, m.Kind, m.Model, m.SupportsVision)
	}
	return reg, nil
}

func backstopTimeout(perCall time.Duration) time.Duration {
	if perCall <= 0 {
		return 2 * time.Minute
	}
	return perCall + 5*time.Second
}
