package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("test", filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, 5, cfg.Importer.BatchSize)
	assert.Equal(t, time.Second, cfg.Importer.BatchDelay)
	assert.Equal(t, 3, cfg.Importer.MaxAttempts)
	assert.Equal(t, ".import-progress.json", cfg.Importer.Checkpoint.Path)
	assert.Equal(t, 2, cfg.Converter.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Converter.BatchDelay)
	assert.Equal(t, "gpt-4o", cfg.AI.OpenAI.VisionModel)
	assert.Same(t, cfg, Get())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  host: db.internal
importer:
  batch_size: 10
  batch_delay: 500ms
  checkpoint:
    backend: redis
`), 0o644))

	t.Setenv("APP_DATABASE_HOST", "db.env")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("dev", path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.env", cfg.Database.Host)
	assert.Equal(t, "sk-test", cfg.AI.OpenAI.APIKey)
	assert.Equal(t, 10, cfg.Importer.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Importer.BatchDelay)
	assert.Equal(t, "redis", cfg.Importer.Checkpoint.Backend)
	assert.Contains(t, cfg.Database.GetDSN(), "host=db.env")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load("bad", path)
	assert.Error(t, err)
}
