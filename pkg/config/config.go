// Package config loads engine configuration from config.yaml with
// environment variable overrides. Secrets (API keys, DSN passwords) must
// only come from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for queryloop-engine. It is constructed
// once at process start and passed by reference into each component
// constructor; no component reads ambient environment state mid-call.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"7870"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Metadata search index collaborator
	Search SearchConfig `yaml:"search"`

	// Language model collaborator
	AI AIConfig `yaml:"ai"`

	// Target database collaborator
	Database DatabaseConfig `yaml:"database"`

	// Turn pipeline settings
	Engine EngineConfig `yaml:"engine"`
}

// SearchConfig holds the metadata index connection settings.
type SearchConfig struct {
	Endpoint string        `yaml:"endpoint" env:"SEARCH_ENDPOINT" env-default:""`
	Index    string        `yaml:"index" env:"SEARCH_INDEX" env-default:"metadata"`
	APIKey   string        `yaml:"-" env:"SEARCH_API_KEY"` // Secret - not in YAML
	TopK     int           `yaml:"top_k" env:"SEARCH_TOP_K" env-default:"12"`
	Timeout  time.Duration `yaml:"timeout" env:"SEARCH_TIMEOUT" env-default:"15s"`
}

// AIConfig holds chat and embedding model endpoints.
// Provider selects the chat client implementation: "openai" covers any
// OpenAI-compatible endpoint (including vLLM and Azure-style gateways),
// "anthropic" uses the Anthropic Messages API.
type AIConfig struct {
	Provider       string        `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	Endpoint       string        `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model          string        `yaml:"model" env:"AI_MODEL" env-default:""`
	APIKey         string        `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	EmbeddingModel string        `yaml:"embedding_model" env:"AI_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	EmbeddingDim   int           `yaml:"embedding_dim" env:"AI_EMBEDDING_DIM" env-default:"0"` // 0 = model default
	Temperature    float64       `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.1"`
	Timeout        time.Duration `yaml:"timeout" env:"AI_TIMEOUT" env-default:"60s"`
}

// DatabaseConfig holds the target database connection settings.
// Dialect must be one of: sqlite, postgres, mssql.
type DatabaseConfig struct {
	Dialect string        `yaml:"dialect" env:"DB_DIALECT" env-default:"sqlite"`
	DSN     string        `yaml:"-" env:"DB_DSN"` // May carry credentials - env only
	Timeout time.Duration `yaml:"timeout" env:"DB_TIMEOUT" env-default:"30s"`
}

// EngineConfig holds turn pipeline tuning knobs.
type EngineConfig struct {
	// MaxPreviewRows caps rows returned for query-like statements.
	MaxPreviewRows int `yaml:"max_preview_rows" env:"ENGINE_MAX_PREVIEW_ROWS" env-default:"500"`
	// MaxExecutionAttempts bounds total executions per turn (initial + repairs).
	MaxExecutionAttempts int `yaml:"max_execution_attempts" env:"ENGINE_MAX_EXECUTION_ATTEMPTS" env-default:"2"`
	// MaxContextSnippets caps relationship/description snippets in the prompt.
	MaxContextSnippets int `yaml:"max_context_snippets" env:"ENGINE_MAX_CONTEXT_SNIPPETS" env-default:"10"`
	// SnippetMaxLen caps each snippet's character length.
	SnippetMaxLen int `yaml:"snippet_max_len" env:"ENGINE_SNIPPET_MAX_LEN" env-default:"500"`
	// MaxContextTables caps per-table column blocks in the prompt.
	MaxContextTables int `yaml:"max_context_tables" env:"ENGINE_MAX_CONTEXT_TABLES" env-default:"10"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. If config.yaml does not exist, configuration comes from the
// environment alone. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that cleanenv defaults cannot.
func (c *Config) Validate() error {
	switch c.Database.Dialect {
	case "sqlite", "postgres", "mssql":
	default:
		return fmt.Errorf("unsupported database dialect %q (want sqlite, postgres, or mssql)", c.Database.Dialect)
	}

	if c.Engine.MaxExecutionAttempts < 1 {
		return fmt.Errorf("engine.max_execution_attempts must be at least 1, got %d", c.Engine.MaxExecutionAttempts)
	}
	if c.Engine.MaxPreviewRows < 1 {
		return fmt.Errorf("engine.max_preview_rows must be at least 1, got %d", c.Engine.MaxPreviewRows)
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("search.top_k must be at least 1, got %d", c.Search.TopK)
	}

	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported ai provider %q (want openai or anthropic)", c.AI.Provider)
	}

	return nil
}
