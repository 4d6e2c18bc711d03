package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the service reads.
const EnvPrefix = "SCRYCHAT"

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("configuration validation failed")

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory is loaded first when present.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Chat.Scope == "session" && len(c.Chat.SessionSecret) < 32 {
		return fmt.Errorf("%w: chat.session_secret must be at least 32 characters in session scope", ErrInvalidConfig)
	}

	switch c.Snapshot.Backend {
	case "file", "sqlite":
		if c.Snapshot.Path == "" {
			return fmt.Errorf("%w: snapshot.path is required for the %s backend", ErrInvalidConfig, c.Snapshot.Backend)
		}
	case "postgres":
		if c.Snapshot.DatabaseURL == "" {
			return fmt.Errorf("%w: snapshot.database_url is required for the postgres backend", ErrInvalidConfig)
		}
	case "redis":
		if c.Snapshot.RedisAddr == "" {
			return fmt.Errorf("%w: snapshot.redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	}
	return nil
}

// setDefaults registers a default for every key so that AutomaticEnv can
// resolve each one from the environment during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("chat.scope", "global")
	v.SetDefault("chat.image_prefix", "/img")
	v.SetDefault("chat.models", []string{
		"deepseek-v3", "gpt-4.1", "bidara", "deepseek-r1", "mirexa", "sur", "gpt-4.1-mini",
	})
	v.SetDefault("chat.strict_models", false)
	v.SetDefault("chat.session_secret", "")
	v.SetDefault("chat.session_cookie", "scrychat_session")
	v.SetDefault("chat.session_lifetime", "720h")

	v.SetDefault("llm.provider", "llm7")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", "120s")

	v.SetDefault("image.space_url", "https://heartsync-nsfw-uncensored-photo.hf.space")
	v.SetDefault("image.api_name", "infer")
	v.SetDefault("image.hf_token", "")
	v.SetDefault("image.dir", "static/images")
	v.SetDefault("image.timeout", "300s")
	v.SetDefault("image.negative_prompt", "text, watermark, signature, cartoon, anime, illustration, painting, drawing, low quality, blurry")
	v.SetDefault("image.seed", 0)
	v.SetDefault("image.randomize_seed", true)
	v.SetDefault("image.width", 512)
	v.SetDefault("image.height", 512)
	v.SetDefault("image.guidance_scale", 4.0)
	v.SetDefault("image.steps", 28)

	v.SetDefault("task.worker_count", 4)
	v.SetDefault("task.queue_size", 64)
	v.SetDefault("task.max_pending_jobs", 256)
	v.SetDefault("task.orphan_ttl", "0s")
	v.SetDefault("task.orphan_check_interval", "1m")

	v.SetDefault("snapshot.backend", "file")
	v.SetDefault("snapshot.path", "data/conversations.json")
	v.SetDefault("snapshot.database_url", "")
	v.SetDefault("snapshot.redis_addr", "")
	v.SetDefault("snapshot.redis_db", 0)
	v.SetDefault("snapshot.redis_key", "scrychat:snapshot")
	v.SetDefault("snapshot.interval", "5m")
	v.SetDefault("snapshot.debounce", "1s")
}
