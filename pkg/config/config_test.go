package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, "7870", cfg.Port)
	assert.Equal(t, "local", cfg.Env)

	assert.Equal(t, "metadata", cfg.Search.Index)
	assert.Equal(t, 12, cfg.Search.TopK)
	assert.Equal(t, 15*time.Second, cfg.Search.Timeout)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
	assert.Equal(t, 0.1, cfg.AI.Temperature)

	assert.Equal(t, "sqlite", cfg.Database.Dialect)

	assert.Equal(t, 500, cfg.Engine.MaxPreviewRows)
	assert.Equal(t, 2, cfg.Engine.MaxExecutionAttempts)
	assert.Equal(t, 10, cfg.Engine.MaxContextSnippets)
	assert.Equal(t, 500, cfg.Engine.SnippetMaxLen)
	assert.Equal(t, 10, cfg.Engine.MaxContextTables)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DB_DIALECT", "postgres")
	t.Setenv("DB_DSN", "postgres://app:secret@db:5432/sales")
	t.Setenv("AI_PROVIDER", "anthropic")
	t.Setenv("ENGINE_MAX_EXECUTION_ATTEMPTS", "3")
	t.Setenv("SEARCH_API_KEY", "env-only-secret")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "postgres://app:secret@db:5432/sales", cfg.Database.DSN)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, 3, cfg.Engine.MaxExecutionAttempts)
	assert.Equal(t, "env-only-secret", cfg.Search.APIKey)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`port: "8001"
database:
  dialect: postgres
engine:
  max_preview_rows: 50
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "8001", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, 50, cfg.Engine.MaxPreviewRows)
	// Unset fields still get defaults.
	assert.Equal(t, 2, cfg.Engine.MaxExecutionAttempts)
	assert.Equal(t, "openai", cfg.AI.Provider)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("dev")
		require.NoError(t, err)
		return cfg
	}

	t.Run("bad dialect", func(t *testing.T) {
		cfg := base()
		cfg.Database.Dialect = "oracle"
		assert.ErrorContains(t, cfg.Validate(), "dialect")
	})

	t.Run("bad provider", func(t *testing.T) {
		cfg := base()
		cfg.AI.Provider = "gemini"
		assert.ErrorContains(t, cfg.Validate(), "provider")
	})

	t.Run("attempts below one", func(t *testing.T) {
		cfg := base()
		cfg.Engine.MaxExecutionAttempts = 0
		assert.ErrorContains(t, cfg.Validate(), "max_execution_attempts")
	})

	t.Run("preview rows below one", func(t *testing.T) {
		cfg := base()
		cfg.Engine.MaxPreviewRows = 0
		assert.ErrorContains(t, cfg.Validate(), "max_preview_rows")
	})

	t.Run("topk below one", func(t *testing.T) {
		cfg := base()
		cfg.Search.TopK = 0
		assert.ErrorContains(t, cfg.Validate(), "top_k")
	})
}
