package common

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// RateLimitConfig holds the per-window request budgets for one platform.
// A zero or negative limit means the window is unbounded.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	PerHour   int `mapstructure:"per_hour"`
	PerDay    int `mapstructure:"per_day"`
}

// PlatformConfig holds everything one platform agent needs: limits,
// credential handles and platform-specific settings. Credential values
// come from the environment; this struct only carries the handles.
type PlatformConfig struct {
	Enabled    bool            `mapstructure:"enabled"`
	RateLimits RateLimitConfig `mapstructure:"rate_limits"`

	// Telegram
	ChannelUsername  string `mapstructure:"channel_username"`
	TDLibDatabaseURL string `mapstructure:"tdlib_database_url"`

	// YouTube
	YouTubeAPIKey    string `mapstructure:"youtube_api_key"`
	YouTubeChannelID string `mapstructure:"youtube_channel_id"`
	YouTubeCategory  string `mapstructure:"youtube_category"`
	YouTubePrivacy   string `mapstructure:"youtube_privacy"`

	// Bluesky
	BlueskyHost        string `mapstructure:"bluesky_host"`
	BlueskyHandle      string `mapstructure:"bluesky_handle"`
	BlueskyAppPassword string `mapstructure:"bluesky_app_password"`
}

// PosterConfig is the top-level configuration for the posting system.
type PosterConfig struct {
	StorageRoot string `mapstructure:"storage_root"`

	// Content generation
	AnthropicAPIKey      string  `mapstructure:"anthropic_api_key"`
	GeneratorModel       string  `mapstructure:"generator_model"`
	GeneratorMaxTokens   int     `mapstructure:"generator_max_tokens"`
	GeneratorTemperature float64 `mapstructure:"generator_temperature"`

	// Metrics storage backend: "memory", "mongo" or "dapr"
	MetricsBackend string `mapstructure:"metrics_backend"`
	MongoURI       string `mapstructure:"mongo_uri"`
	MongoDatabase  string `mapstructure:"mongo_database"`
	DaprStateStore string `mapstructure:"dapr_state_store"`
	DaprGRPCPort   string `mapstructure:"dapr_grpc_port"`

	// Agent behavior
	PostTimeout     time.Duration `mapstructure:"post_timeout"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	CollectInterval time.Duration `mapstructure:"collect_interval"`

	Platforms map[string]PlatformConfig `mapstructure:"platforms"`
}

// PlatformConfig returns the configuration for one platform. The second
// return value is false when the platform is absent from the config file.
func (c *PosterConfig) PlatformConfig(platform PlatformType) (PlatformConfig, bool) {
	pc, ok := c.Platforms[string(platform)]
	return pc, ok
}

// EnabledPlatforms returns the configured-and-enabled platforms in the
// fixed AllPlatforms order so callers iterate deterministically.
func (c *PosterConfig) EnabledPlatforms() []PlatformType {
	enabled := make([]PlatformType, 0, len(c.Platforms))
	for _, pt := range AllPlatforms() {
		if pc, ok := c.Platforms[string(pt)]; ok && pc.Enabled {
			enabled = append(enabled, pt)
		}
	}
	return enabled
}

// Validate checks if the configuration is valid
func (c *PosterConfig) Validate() error {
	if len(c.Platforms) == 0 {
		return fmt.Errorf("at least one platform must be configured")
	}

	for name := range c.Platforms {
		if !IsValidPlatform(name) {
			return fmt.Errorf("unknown platform %q, must be one of: telegram, youtube, bluesky", name)
		}
	}

	switch c.MetricsBackend {
	case "", "memory":
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("mongo metrics backend requires mongo_uri")
		}
	case "dapr":
		if c.DaprStateStore == "" {
			return fmt.Errorf("dapr metrics backend requires dapr_state_store")
		}
	default:
		return fmt.Errorf("invalid metrics_backend %q, must be one of: memory, mongo, dapr", c.MetricsBackend)
	}

	if c.PostTimeout <= 0 {
		return fmt.Errorf("post_timeout must be positive")
	}

	if c.RetryBackoff <= 0 {
		return fmt.Errorf("retry_backoff must be positive")
	}

	if c.CollectInterval <= 0 {
		return fmt.Errorf("collect_interval must be positive")
	}

	return nil
}

// LoadConfig reads the poster configuration from the given file (YAML),
// layered over environment variables. A missing config file is not an
// error; defaults and environment variables still apply.
func LoadConfig(path string) (*PosterConfig, error) {
	// .env is optional; credentials usually arrive through it in dev
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("storage_root", "./storage")
	v.SetDefault("metrics_backend", "memory")
	v.SetDefault("mongo_database", "crosspost")
	v.SetDefault("dapr_state_store", "statestore")
	v.SetDefault("dapr_grpc_port", "50001")
	v.SetDefault("generator_model", "claude-sonnet-4-20250514")
	v.SetDefault("generator_max_tokens", 1024)
	v.SetDefault("generator_temperature", 0.7)
	v.SetDefault("post_timeout", 60*time.Second)
	v.SetDefault("retry_backoff", 5*time.Second)
	v.SetDefault("collect_interval", 60*time.Second)

	v.SetEnvPrefix("CROSSPOST")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		log.Info().Str("config_file", path).Msg("Loaded configuration file")
	}

	var cfg PosterConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Credentials fall back to well-known environment variables
	if cfg.AnthropicAPIKey == "" {
		cfg.AnthropicAPIKey = v.GetString("anthropic_api_key")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// GenerateRunID generates a unique identifier based on the current timestamp.
// The identifier is formatted as a string in the "YYYYMMDDHHMMSS" format.
func GenerateRunID() string {
	return time.Now().Format("20060102150405")
}
