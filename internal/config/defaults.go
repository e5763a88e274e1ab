package config

import (
	"strings"
)

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppLogFormat    = "text"
	defaultAppHTTPAddr     = ":3000"
	defaultAppMaxUploadMB  = 10
	defaultCallTimeout     = 30
	defaultRetryAttempts   = 3
	defaultRetryBaseMS     = 800
	defaultRetryMaxMS      = 8000
	defaultBreakerFailures = 5
	defaultBreakerOpenSecs = 30
	defaultBudgetCurrency  = "KRW"
	defaultBudgetMax       = 100_000_000
	defaultObjectBackend   = "sqlite"
	defaultObjectBucket    = "tour-images"
	defaultObjectSQLite    = "data/objects.db"
	defaultRecordBackend   = "sqlite"
	defaultRecordSQLite    = "data/plans.db"
	defaultRecordTable     = "tour_plan"
	defaultSupabaseKeyEnv  = "SUPABASE_KEY"
)

const (
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

// defaultPresets mirror the hosted APIs the service was designed against.
func defaultPresets() map[string]ModelPreset {
	return map[string]ModelPreset{
		"gemini": {
			Kind:           KindGemini,
			APIURL:         "https://generativelanguage.googleapis.com/v1beta",
			APIKeyEnv:      "GEMINI_API_KEY",
			SupportsVision: true,
		},
		"groq": {
			Kind:      KindOpenAI,
			APIURL:    "https://api.groq.com/openai/v1",
			APIKeyEnv: "GROQ_API_KEY",
		},
		"openai": {
			Kind:      KindOpenAI,
			APIURL:    "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
		},
	}
}

func boolPtr(b bool) *bool { return &b }

func defaultModels() []AIModelConfig {
	return []AIModelConfig{
		{ID: "gemini-flash", Preset: "gemini", Model: "gemini-2.5-flash"},
		{ID: "gemini-flash-lite", Preset: "gemini", Model: "gemini-2.5-flash-lite"},
		{ID: "gemini-image", Preset: "gemini", Model: "gemini-2.0-flash-preview-image-generation"},
		{ID: "groq-scout", Preset: "groq", Model: "meta-llama/llama-4-scout-17b-16e-instruct", SupportsVision: boolPtr(true)},
		{ID: "groq-kimi", Preset: "groq", Model: "moonshotai/kimi-k2-instruct-0905"},
		{ID: "groq-gpt-oss", Preset: "groq", Model: "openai/gpt-oss-120b"},
		{ID: "groq-maverick", Preset: "groq", Model: "meta-llama/llama-4-maverick-17b-128e-instruct"},
		{ID: "openai-mini", Preset: "openai", Model: "gpt-5-mini"},
	}
}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.Supabase.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		intFieldDefault("app.max_upload_mb", &a.MaxUploadMB, defaultAppMaxUploadMB),
	)
	if len(a.CORSOrigins) == 0 {
		a.CORSOrigins = []string{"*"}
	}
	if strings.TrimSpace(a.PublicURL) == "" {
		a.PublicURL = "http://localhost" + a.HTTPAddr
	}
	a.PublicURL = strings.TrimRight(a.PublicURL, "/")
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	if a.Presets == nil {
		a.Presets = make(map[string]ModelPreset)
	}
	for name, preset := range defaultPresets() {
		if _, ok := a.Presets[name]; !ok {
			a.Presets[name] = preset
		}
	}
	if len(a.Models) == 0 {
		a.Models = defaultModels()
	}
	applyFieldDefaults(keys,
		intFieldDefault("ai.call_timeout_seconds", &a.CallTimeoutSeconds, defaultCallTimeout),
		intFieldDefault("ai.retry.max_attempts", &a.Retry.MaxAttempts, defaultRetryAttempts),
		intFieldDefault("ai.retry.base_delay_ms", &a.Retry.BaseDelayMS, defaultRetryBaseMS),
		intFieldDefault("ai.retry.max_delay_ms", &a.Retry.MaxDelayMS, defaultRetryMaxMS),
		intFieldDefault("ai.breaker.failure_threshold", &a.Breaker.FailureThreshold, defaultBreakerFailures),
		intFieldDefault("ai.breaker.open_seconds", &a.Breaker.OpenSeconds, defaultBreakerOpenSecs),
		stringFieldDefault("ai.budget.currency", &a.Budget.Currency, defaultBudgetCurrency),
		fieldDefault{
			key:   "ai.budget.max_plausible",
			need:  func() bool { return a.Budget.MaxPlausible == 0 },
			apply: func() { a.Budget.MaxPlausible = defaultBudgetMax },
		},
	)
	a.Roles.applyDefaults()
}

func (r *RolesConfig) applyDefaults() {
	if strings.TrimSpace(r.RefinePrompt) == "" {
		r.RefinePrompt = "gemini-flash"
	}
	if strings.TrimSpace(r.PlanText) == "" {
		r.PlanText = "gemini-flash-lite"
	}
	if len(r.Vision) == 0 {
		r.Vision = []string{"gemini-flash", "groq-scout"}
	}
	if strings.TrimSpace(r.Image) == "" {
		r.Image = "gemini-image"
	}
	if len(r.Budget) == 0 {
		r.Budget = []string{"groq-kimi", "groq-gpt-oss", "groq-maverick"}
	}
	if strings.TrimSpace(r.Itinerary) == "" {
		r.Itinerary = "openai-mini"
	}
	r.Vision = normalizeIDList(r.Vision)
	r.Budget = normalizeIDList(r.Budget)
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("storage.objects.backend", &s.Objects.Backend, defaultObjectBackend),
		stringFieldDefault("storage.objects.bucket", &s.Objects.Bucket, defaultObjectBucket),
		stringFieldDefault("storage.objects.sqlite_path", &s.Objects.SQLitePath, defaultObjectSQLite),
		stringFieldDefault("storage.records.backend", &s.Records.Backend, defaultRecordBackend),
		stringFieldDefault("storage.records.sqlite_path", &s.Records.SQLitePath, defaultRecordSQLite),
		stringFieldDefault("storage.records.table", &s.Records.Table, defaultRecordTable),
	)
	s.Objects.Backend = strings.ToLower(strings.TrimSpace(s.Objects.Backend))
	s.Records.Backend = strings.ToLower(strings.TrimSpace(s.Records.Backend))
}

func (s *SupabaseConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("supabase.key_env", &s.KeyEnv, defaultSupabaseKeyEnv),
	)
	s.URL = strings.TrimRight(strings.TrimSpace(s.URL), "/")
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}

func normalizeIDList(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
