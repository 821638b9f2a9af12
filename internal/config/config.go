// Package config handles application configuration using Viper.
// Viper supports YAML files, environment variables, and defaults — merged in
// priority order. Configuration is loaded into structs, not accessed as raw
// key-value pairs.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related
// settings; `mapstructure` tags tell Viper how to map YAML/env keys.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Vision    VisionConfig    `mapstructure:"vision"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	ImageDir     string `mapstructure:"image_dir"`
}

type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProvidersConfig configures the external image-transformation API the
// tone/detail/upscale adapters call. The API key is the caller-supplied
// credential — its absence is rejected before any adapter is invoked.
type ProvidersConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RatePerMinute  int    `mapstructure:"rate_per_minute"`
	ToneModel      string `mapstructure:"tone_model"`
	DetailModel    string `mapstructure:"detail_model"`
	UpscaleModel   string `mapstructure:"upscale_model"`
}

// Timeout returns the per-call bound for adapter requests.
func (p ProvidersConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// VisionConfig configures the optional LLM vision taggers used by the
// single-shot analysis flow. Leave the API keys empty to run the pure
// autopilot flow without issue tags.
type VisionConfig struct {
	// ProviderOrder controls which vision providers are used and in what
	// order. First is primary, rest are fallbacks.
	ProviderOrder  []string        `mapstructure:"provider_order"`
	Anthropic      AnthropicConfig `mapstructure:"anthropic"`
	OpenAI         OpenAIConfig    `mapstructure:"openai"`
	RatePerMinute  int             `mapstructure:"rate_per_minute"`
	MaxUploadBytes int             `mapstructure:"max_upload_bytes"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults — apply when neither file nor env provides a value
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.database_path", "./storage/autopilot.db")
	v.SetDefault("storage.image_dir", "./storage/images")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("providers.base_url", "https://api.imagetransform.dev")
	// Credential keys default to empty so AutomaticEnv can see them —
	// Unmarshal only reads keys Viper already knows about.
	v.SetDefault("providers.api_key", "")
	v.SetDefault("vision.anthropic.api_key", "")
	v.SetDefault("vision.openai.api_key", "")
	v.SetDefault("providers.timeout_seconds", 60)
	v.SetDefault("providers.rate_per_minute", 30)
	v.SetDefault("providers.tone_model", "tone-corrector-v2")
	v.SetDefault("providers.detail_model", "detail-restorer-v2")
	v.SetDefault("providers.upscale_model", "sr-esrgan-x")
	v.SetDefault("vision.provider_order", []string{"anthropic", "openai"})
	v.SetDefault("vision.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("vision.openai.model", "gpt-4o")
	v.SetDefault("vision.rate_per_minute", 10)
	v.SetDefault("vision.max_upload_bytes", 2<<20)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")

	// Read from YAML config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read config file (ignore "not found" — defaults + env are enough)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// AUTOPILOT_ prefix + nested keys: AUTOPILOT_SERVER_PORT=9090 → server.port
	v.SetEnvPrefix("AUTOPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
