package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Chat     ChatConfig     `mapstructure:"chat" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Image    ImageConfig    `mapstructure:"image" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"required,oneof=json text"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// ChatConfig controls conversation scoping and model selection.
type ChatConfig struct {
	// Scope is "global" (one conversation for everyone) or "session"
	// (one conversation per client cookie)
	Scope string `mapstructure:"scope" validate:"required,oneof=global session"`

	// ImagePrefix routes a submitted message to image generation
	ImagePrefix string `mapstructure:"image_prefix" validate:"required"`

	Models       []string `mapstructure:"models" validate:"required,min=1,dive,required"`
	StrictModels bool     `mapstructure:"strict_models"`

	// SessionSecret signs session cookies; required in session scope
	SessionSecret   string        `mapstructure:"session_secret"`
	SessionCookie   string        `mapstructure:"session_cookie" validate:"required"`
	SessionLifetime time.Duration `mapstructure:"session_lifetime" validate:"gt=0"`
}

// LLMConfig selects and configures the text inference backend.
type LLMConfig struct {
	Provider string        `mapstructure:"provider" validate:"required,oneof=llm7 openai gemini ollama"`
	BaseURL  string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// ImageConfig configures the image generation Space and where images are kept.
type ImageConfig struct {
	SpaceURL string        `mapstructure:"space_url" validate:"required,url"`
	APIName  string        `mapstructure:"api_name" validate:"required"`
	HFToken  string        `mapstructure:"hf_token"`
	Dir      string        `mapstructure:"dir" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`

	NegativePrompt string  `mapstructure:"negative_prompt"`
	Seed           int     `mapstructure:"seed" validate:"gte=0"`
	RandomizeSeed  bool    `mapstructure:"randomize_seed"`
	Width          int     `mapstructure:"width" validate:"gt=0"`
	Height         int     `mapstructure:"height" validate:"gt=0"`
	GuidanceScale  float64 `mapstructure:"guidance_scale" validate:"gte=0"`
	Steps          int     `mapstructure:"steps" validate:"gt=0"`
}

// TaskConfig sizes the background job machinery.
type TaskConfig struct {
	WorkerCount         int           `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize           int           `mapstructure:"queue_size" validate:"gt=0"`
	MaxPendingJobs      int           `mapstructure:"max_pending_jobs" validate:"gte=0"`
	OrphanTTL           time.Duration `mapstructure:"orphan_ttl" validate:"gte=0"`
	OrphanCheckInterval time.Duration `mapstructure:"orphan_check_interval" validate:"gt=0"`
}

// SnapshotConfig selects where conversations are persisted.
type SnapshotConfig struct {
	Backend     string        `mapstructure:"backend" validate:"required,oneof=none file sqlite postgres redis"`
	Path        string        `mapstructure:"path"`
	DatabaseURL string        `mapstructure:"database_url"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	RedisDB     int           `mapstructure:"redis_db" validate:"gte=0"`
	RedisKey    string        `mapstructure:"redis_key"`
	Interval    time.Duration `mapstructure:"interval" validate:"gte=0"`
	Debounce    time.Duration `mapstructure:"debounce" validate:"gte=0"`
}
