package config

import (
	"fmt"
	"strings"
)

// ResolveModelConfigs merges every enabled model with its preset.
func (a AIConfig) ResolveModelConfigs() ([]ResolvedModelConfig, error) {
	out := make([]ResolvedModelConfig, 0, len(a.Models))
	seen := make(map[string]bool, len(a.Models))
	for idx, m := range a.Models {
		if m.Disabled {
			continue
		}
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, fmt.Errorf("ai.models[%d] missing id", idx)
		}
		if seen[id] {
			return nil, fmt.Errorf("ai.models contains duplicate id %s", id)
		}
		seen[id] = true
		res := ResolvedModelConfig{ID: id}
		if name := strings.TrimSpace(m.Preset); name != "" {
			preset, ok := a.Presets[name]
			if !ok {
				return nil, fmt.Errorf("ai.models.%s references unknown preset %s", id, name)
			}
			res.Kind = preset.Kind
			res.APIURL = preset.APIURL
			res.APIKey = preset.APIKey
			res.SupportsVision = preset.SupportsVision
			res.Headers = cloneHeaders(preset.Headers)
		}
		if v := strings.TrimSpace(m.Kind); v != "" {
			res.Kind = v
		}
		if v := strings.TrimSpace(m.APIURL); v != "" {
			res.APIURL = v
		}
		if v := strings.TrimSpace(m.APIKey); v != "" {
			res.APIKey = v
		}
		if m.SupportsVision != nil {
			res.SupportsVision = *m.SupportsVision
		}
		for k, v := range m.Headers {
			if res.Headers == nil {
				res.Headers = make(map[string]string)
			}
			res.Headers[k] = v
		}
		res.Kind = strings.ToLower(strings.TrimSpace(res.Kind))
		res.Model = strings.TrimSpace(m.Model)
		out = append(out, res)
	}
	return out, nil
}

// ModelByID looks up a resolved model entry.
func (a AIConfig) ModelByID(id string) (ResolvedModelConfig, bool) {
	models, err := a.ResolveModelConfigs()
	if err != nil {
		return ResolvedModelConfig{}, false
	}
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ResolvedModelConfig{}, false
}

func cloneHeaders(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
