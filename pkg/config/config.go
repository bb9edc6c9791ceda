package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL schema store)
	Database DatabaseConfig `yaml:"database"`

	// AI model endpoints
	AI AIConfig `yaml:"ai"`

	// Resolver behavior
	Resolver ResolverConfig `yaml:"resolver"`
}

// DatabaseConfig holds PostgreSQL schema store configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"tabletalks"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"tabletalks"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// AIConfig holds chat and embedding model configuration.
type AIConfig struct {
	// Provider selects the chat backend: "openai" (any OpenAI-compatible
	// endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`

	// Endpoint is the chat base URL, e.g. "http://localhost:11434/v1".
	// Leave empty to run without a chat model (pattern matching only).
	Endpoint string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"AI_MODEL" env-default:""`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML

	// Embedding endpoint for semantic matching. Empty disables semantic
	// features (the engine degrades to substring matching).
	EmbeddingEndpoint string `yaml:"embedding_endpoint" env:"AI_EMBEDDING_ENDPOINT" env-default:""`
	EmbeddingModel    string `yaml:"embedding_model" env:"AI_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	EmbeddingAPIKey   string `yaml:"-" env:"AI_EMBEDDING_API_KEY"` // Secret - not in YAML
}

// HasChat returns true if a chat model is configured.
func (c *AIConfig) HasChat() bool {
	return c.Endpoint != "" && c.Model != ""
}

// HasEmbeddings returns true if an embedding endpoint is configured.
func (c *AIConfig) HasEmbeddings() bool {
	return c.EmbeddingEndpoint != ""
}

// SupportsFunctionCalling reports whether the configured chat model is
// expected to handle native tool calls. Model names carry an "fc" marker or
// belong to families with known tool support.
func (c *AIConfig) SupportsFunctionCalling() bool {
	if !c.HasChat() {
		return false
	}
	model := strings.ToLower(c.Model)
	markers := []string{"-fc", "_fc", ":fc", "gpt-4", "gpt-5", "claude", "qwen", "llama3.1", "llama-3.1", "mistral"}
	for _, m := range markers {
		if strings.Contains(model, m) {
			return true
		}
	}
	return false
}

// ResolverConfig holds query resolution behavior settings.
type ResolverConfig struct {
	// LLMTimeoutSeconds bounds each chat or embedding round-trip.
	LLMTimeoutSeconds int `yaml:"llm_timeout_seconds" env:"RESOLVER_LLM_TIMEOUT_SECONDS" env-default:"30"`

	// EnableSQLGeneration enables the SQL generation strategy.
	EnableSQLGeneration bool `yaml:"enable_sql_generation" env:"RESOLVER_ENABLE_SQL_GENERATION" env-default:"false"`

	// MaxSQLRetries is the number of regeneration attempts after a failed
	// generated statement.
	MaxSQLRetries int `yaml:"max_sql_retries" env:"RESOLVER_MAX_SQL_RETRIES" env-default:"2"`

	// SynthesizeResponses enables the optional LLM reformatting pass over
	// tool output. Failures fall back to the raw tool text.
	SynthesizeResponses bool `yaml:"synthesize_responses" env:"RESOLVER_SYNTHESIZE_RESPONSES" env-default:"false"`

	// SimilarityThreshold is the default cutoff for semantic matching.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"RESOLVER_SIMILARITY_THRESHOLD" env-default:"0.6"`
}

// LLMTimeout returns the configured timeout as a duration.
func (c *ResolverConfig) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, AI_API_KEY) must come from environment variables
// (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	if c.Resolver.LLMTimeoutSeconds <= 0 {
		return fmt.Errorf("llm_timeout_seconds must be positive")
	}
	if c.Resolver.SimilarityThreshold < 0 || c.Resolver.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0, 1]")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
