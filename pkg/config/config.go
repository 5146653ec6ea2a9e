package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for lumen-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, provider keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Generation GenerationConfig `yaml:"generation"`
	Prompts    PromptsConfig    `yaml:"prompts"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// Audience must appear in every token's aud claim. Empty disables the check.
	Audience string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:"lumen-engine"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"lumen"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"lumen_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis configuration. An empty Host disables Redis.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ProvidersConfig holds credentials and models for the generation providers.
type ProvidersConfig struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Freepik   FreepikConfig   `yaml:"freepik"`
}

// AnthropicConfig configures the Claude text provider.
type AnthropicConfig struct {
	APIKey    string `yaml:"-" env:"ANTHROPIC_API_KEY"`
	Model     string `yaml:"model" env:"ANTHROPIC_MODEL" env-default:"claude-sonnet-4-5-20250929"`
	MaxTokens int    `yaml:"max_tokens" env:"ANTHROPIC_MAX_TOKENS" env-default:"4096"`
}

// GeminiConfig configures the Gemini text and image provider.
type GeminiConfig struct {
	APIKey     string `yaml:"-" env:"GEMINI_API_KEY"`
	TextModel  string `yaml:"text_model" env:"GEMINI_TEXT_MODEL" env-default:"gemini-2.5-flash"`
	ImageModel string `yaml:"image_model" env:"GEMINI_IMAGE_MODEL" env-default:"gemini-2.5-flash-image"`
}

// OpenAIConfig configures an optional OpenAI-compatible text provider.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	APIKey  string `yaml:"-" env:"OPENAI_API_KEY"`
	Model   string `yaml:"model" env:"OPENAI_MODEL" env-default:""`
}

// FreepikConfig configures the Freepik image and video provider.
type FreepikConfig struct {
	APIKey  string `yaml:"-" env:"FREEPIK_API_KEY"`
	BaseURL string `yaml:"base_url" env:"FREEPIK_BASE_URL" env-default:"https://api.freepik.com"`
}

// GenerationConfig controls dispatch timeouts, retries and reference fetching.
type GenerationConfig struct {
	ProviderTimeout       time.Duration `yaml:"provider_timeout" env:"GENERATION_PROVIDER_TIMEOUT" env-default:"120s"`
	ImageFetchTimeout     time.Duration `yaml:"image_fetch_timeout" env:"GENERATION_IMAGE_FETCH_TIMEOUT" env-default:"15s"`
	MaxRetries            int           `yaml:"max_retries" env:"GENERATION_MAX_RETRIES" env-default:"2"`
	RetryInitialDelay     time.Duration `yaml:"retry_initial_delay" env:"GENERATION_RETRY_INITIAL_DELAY" env-default:"500ms"`
	TextPrimary           string        `yaml:"text_primary" env:"GENERATION_TEXT_PRIMARY" env-default:"anthropic"`
	ReferenceCacheTTL     time.Duration `yaml:"reference_cache_ttl" env:"GENERATION_REFERENCE_CACHE_TTL" env-default:"1h"`
	MaxReferenceFetches   int           `yaml:"max_reference_fetches" env:"GENERATION_MAX_REFERENCE_FETCHES" env-default:"4"`
	FreepikPollInterval   time.Duration `yaml:"freepik_poll_interval" env:"GENERATION_FREEPIK_POLL_INTERVAL" env-default:"2s"`
	MaxReferenceImageSize int64         `yaml:"max_reference_image_bytes" env:"GENERATION_MAX_REFERENCE_IMAGE_BYTES" env-default:"10485760"`

	// AllowPrivateReferenceHosts lets reference URLs point at loopback and
	// private networks. Local development only.
	AllowPrivateReferenceHosts bool `yaml:"allow_private_reference_hosts" env:"GENERATION_ALLOW_PRIVATE_REFERENCE_HOSTS" env-default:"false"`
}

// PromptsConfig points at optional prompt data overrides.
type PromptsConfig struct {
	// GlobalRulesPath overrides the embedded global persona and quality rules.
	GlobalRulesPath string `yaml:"global_rules_path" env:"PROMPTS_GLOBAL_RULES_PATH" env-default:""`
}

// AnthropicConfigured reports whether Claude credentials are present.
func (p *ProvidersConfig) AnthropicConfigured() bool { return p.Anthropic.APIKey != "" }

// GeminiConfigured reports whether Gemini credentials are present.
func (p *ProvidersConfig) GeminiConfigured() bool { return p.Gemini.APIKey != "" }

// OpenAIConfigured reports whether an OpenAI-compatible endpoint is usable.
func (p *ProvidersConfig) OpenAIConfigured() bool {
	return p.OpenAI.APIKey != "" && p.OpenAI.Model != ""
}

// FreepikConfigured reports whether Freepik credentials are present.
func (p *ProvidersConfig) FreepikConfigured() bool { return p.Freepik.APIKey != "" }

// Load reads configuration from config.yaml (if present) with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom("config.yaml", version)
}

// LoadFrom reads configuration from the given YAML path. A missing file is not an
// error; the environment alone is used in that case.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)
	cfg.Database.Host = ResolveHostForDocker(cfg.Database.Host)
	cfg.Redis.Host = ResolveHostForDocker(cfg.Redis.Host)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return cfg, nil
}

// validate checks settings that cleanenv cannot express as tags.
func (c *Config) validate() error {
	switch c.Generation.TextPrimary {
	case "anthropic", "gemini", "openai":
	default:
		return fmt.Errorf("generation.text_primary must be one of anthropic, gemini, openai (got %q)", c.Generation.TextPrimary)
	}
	if c.Generation.ProviderTimeout <= 0 {
		return fmt.Errorf("generation.provider_timeout must be positive")
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("generation.max_retries cannot be negative")
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		issuer, jwksURL, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		endpoints[strings.TrimSpace(issuer)] = strings.TrimSpace(jwksURL)
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether /.dockerenv exists. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps loopback hosts to host.docker.internal inside a container.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
