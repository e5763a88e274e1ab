package config

import "strings"

// Config is the root configuration for the kcourse service.
type Config struct {
	App      AppConfig      `toml:"app"`
	AI       AIConfig       `toml:"ai"`
	Storage  StorageConfig  `toml:"storage"`
	Supabase SupabaseConfig `toml:"supabase"`
}

type AppConfig struct {
	Env         string   `toml:"env"`
	LogLevel    string   `toml:"log_level"`
	LogFormat   string   `toml:"log_format"`
	HTTPAddr    string   `toml:"http_addr"`
	PublicURL   string   `toml:"public_url"`
	LogPath     string   `toml:"log_path"`
	LLMLog      string   `toml:"llm_log_path"`
	LLMDump     bool     `toml:"llm_dump_payload"`
	CORSOrigins []string `toml:"cors_origins"`
	MaxUploadMB int      `toml:"max_upload_mb"`
}

// AIConfig holds the model catalogue, the role bindings and the call policy
// shared by every provider.
type AIConfig struct {
	CallTimeoutSeconds int                    `toml:"call_timeout_seconds"`
	Retry              RetryConfig            `toml:"retry"`
	Breaker            BreakerConfig          `toml:"breaker"`
	RateLimit          RateLimitConfig        `toml:"rate_limit"`
	Presets            map[string]ModelPreset `toml:"presets"`
	Models             []AIModelConfig        `toml:"models"`
	Roles              RolesConfig            `toml:"roles"`
	Budget             BudgetConfig           `toml:"budget"`
	PromptsPath        string                 `toml:"prompts_path"`
}

type RetryConfig struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

type BreakerConfig struct {
	FailureThreshold int `toml:"failure_threshold"`
	OpenSeconds      int `toml:"open_seconds"`
}

// RateLimitConfig is a per-model token bucket. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// ModelPreset is a reusable API connection shared by several models.
type ModelPreset struct {
	Kind           string            `toml:"kind"`
	APIURL         string            `toml:"api_url"`
	APIKey         string            `toml:"api_key"`
	APIKeyEnv      string            `toml:"api_key_env"`
	Headers        map[string]string `toml:"headers"`
	SupportsVision bool              `toml:"supports_vision"`
}

// AIModelConfig is one model entry. Empty fields inherit from Preset.
type AIModelConfig struct {
	ID        string            `toml:"id"`
	Preset    string            `toml:"preset"`
	Kind      string            `toml:"kind"`
	Disabled  bool              `toml:"disabled"`
	APIURL    string            `toml:"api_url"`
	APIKey    string            `toml:"api_key"`
	APIKeyEnv string            `toml:"api_key_env"`
	Model     string            `toml:"model"`
	Headers   map[string]string `toml:"headers"`
	// SupportsVision is a pointer so an explicit false can override the preset.
	SupportsVision *bool `toml:"supports_vision"`
}

// ResolvedModelConfig is a model entry merged with its preset.
type ResolvedModelConfig struct {
	ID             string
	Kind           string
	APIURL         string
	APIKey         string
	Model          string
	Headers        map[string]string
	SupportsVision bool
}

// RolesConfig binds pipeline stages to model IDs.
type RolesConfig struct {
	RefinePrompt string   `toml:"refine_prompt"`
	PlanText     string   `toml:"plan_text"`
	Vision       []string `toml:"vision"`
	Image        string   `toml:"image"`
	Budget       []string `toml:"budget"`
	Itinerary    string   `toml:"itinerary"`
}

type BudgetConfig struct {
	Currency string `toml:"currency"`
	// MaxPlausible rejects member estimates above this amount. 0 disables the check.
	MaxPlausible float64 `toml:"max_plausible"`
}

type StorageConfig struct {
	Objects ObjectStoreConfig `toml:"objects"`
	Records RecordStoreConfig `toml:"records"`
}

// ObjectStoreConfig selects where uploaded and generated images live.
// Backend is "sqlite" or "supabase".
type ObjectStoreConfig struct {
	Backend    string `toml:"backend"`
	Bucket     string `toml:"bucket"`
	SQLitePath string `toml:"sqlite_path"`
}

// RecordStoreConfig selects the trip plan store. Backend is "sqlite", "postgres" or "supabase".
type RecordStoreConfig struct {
	Backend     string `toml:"backend"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
	Table       string `toml:"table"`
}

type SupabaseConfig struct {
	URL    string `toml:"url"`
	Key    string `toml:"key"`
	KeyEnv string `toml:"key_env"`
}

// keySet tracks the config paths explicitly present in the loaded files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
