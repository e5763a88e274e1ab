package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.AI.validate(); err != nil {
		return err
	}
	return c.Storage.validate(c.Supabase)
}

func (a *AppConfig) validate() error {
	if a.MaxUploadMB <= 0 {
		return fmt.Errorf("app.max_upload_mb must be > 0")
	}
	return nil
}

func (a *AIConfig) validate() error {
	if a.CallTimeoutSeconds < 0 {
		return fmt.Errorf("ai.call_timeout_seconds must be >= 0")
	}
	if a.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("ai.retry.max_attempts must be > 0")
	}
	if a.Retry.MaxDelayMS < a.Retry.BaseDelayMS {
		return fmt.Errorf("ai.retry.max_delay_ms must be >= base_delay_ms")
	}
	if a.RateLimit.RPS < 0 || a.RateLimit.Burst < 0 {
		return fmt.Errorf("ai.rate_limit values must be >= 0")
	}
	if a.Budget.MaxPlausible < 0 {
		return fmt.Errorf("ai.budget.max_plausible must be >= 0")
	}
	models, err := a.ResolveModelConfigs()
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return fmt.Errorf("ai.models requires at least one enabled model")
	}
	byID := make(map[string]ResolvedModelConfig, len(models))
	for _, m := range models {
		if m.Model == "" {
			return fmt.Errorf("ai.models.%s missing model", m.ID)
		}
		if m.APIURL == "" {
			return fmt.Errorf("ai.models.%s missing api_url (can inherit from preset)", m.ID)
		}
		if m.Kind != KindOpenAI && m.Kind != KindGemini {
			return fmt.Errorf("ai.models.%s kind must be %q or %q, got %q", m.ID, KindOpenAI, KindGemini, m.Kind)
		}
		byID[m.ID] = m
	}
	return a.Roles.validate(byID)
}

func (r *RolesConfig) validate(models map[string]ResolvedModelConfig) error {
	single := map[string]string{
		"refine_prompt": r.RefinePrompt,
		"plan_text":     r.PlanText,
		"image":         r.Image,
		"itinerary":     r.Itinerary,
	}
	for role, id := range single {
		if _, ok := models[id]; !ok {
			return fmt.Errorf("ai.roles.%s references unconfigured model id: %s", role, id)
		}
	}
	if models[r.Image].Kind != KindGemini {
		return fmt.Errorf("ai.roles.image requires a %s model, got %s", KindGemini, r.Image)
	}
	if len(r.Vision) != 2 {
		return fmt.Errorf("ai.roles.vision requires exactly two models, got %d", len(r.Vision))
	}
	if r.Vision[0] == r.Vision[1] {
		return fmt.Errorf("ai.roles.vision models must be distinct")
	}
	for _, id := range r.Vision {
		m, ok := models[id]
		if !ok {
			return fmt.Errorf("ai.roles.vision references unconfigured model id: %s", id)
		}
		if !m.SupportsVision {
			return fmt.Errorf("ai.roles.vision model %s does not support vision", id)
		}
	}
	if len(r.Budget) == 0 {
		return fmt.Errorf("ai.roles.budget requires at least one model")
	}
	seen := make(map[string]bool, len(r.Budget))
	for _, id := range r.Budget {
		if _, ok := models[id]; !ok {
			return fmt.Errorf("ai.roles.budget references unconfigured model id: %s", id)
		}
		if seen[id] {
			return fmt.Errorf("ai.roles.budget lists %s twice", id)
		}
		seen[id] = true
	}
	return nil
}

func (s *StorageConfig) validate(sb SupabaseConfig) error {
	needSupabase := false
	switch s.Objects.Backend {
	case "sqlite":
		if strings.TrimSpace(s.Objects.SQLitePath) == "" {
			return fmt.Errorf("storage.objects.sqlite_path cannot be empty")
		}
	case "supabase":
		needSupabase = true
	default:
		return fmt.Errorf("storage.objects.backend must be sqlite or supabase, got %q", s.Objects.Backend)
	}
	switch s.Records.Backend {
	case "sqlite":
		if strings.TrimSpace(s.Records.SQLitePath) == "" {
			return fmt.Errorf("storage.records.sqlite_path cannot be empty")
		}
	case "postgres":
		if strings.TrimSpace(s.Records.PostgresDSN) == "" {
			return fmt.Errorf("storage.records.postgres_dsn cannot be empty")
		}
	case "supabase":
		needSupabase = true
	default:
		return fmt.Errorf("storage.records.backend must be sqlite, postgres or supabase, got %q", s.Records.Backend)
	}
	if !isIdentifier(s.Records.Table) {
		return fmt.Errorf("storage.records.table must be a plain identifier, got %q", s.Records.Table)
	}
	if needSupabase && (sb.URL == "" || strings.TrimSpace(sb.Key) == "") {
		return fmt.Errorf("supabase backend selected but supabase.url or key is missing")
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
