package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultSourceURL, cfg.Source.URL)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "bleve", cfg.Index.Engine)
	assert.Equal(t, 100, cfg.Index.BatchSize)
	assert.Equal(t, uint64(512*1024*1024), cfg.MemoryCeiling())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	// Given: a file that sets some keys
	path := writeFile(t, "constpipe.yaml", `
source:
  timeout: 45s
index:
  name: cf1988
  batch_size: 50
logging:
  level: debug
`)

	// When: loading it
	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	// Then: file values win, everything else keeps its default
	assert.Equal(t, 45*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "cf1988", cfg.Index.Name)
	assert.Equal(t, 50, cfg.Index.BatchSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "bleve", cfg.Index.Engine)
	assert.Equal(t, DefaultSourceURL, cfg.Source.URL)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "constpipe.yaml", "index:\n  name: from-file\n  batch_size: 50\n")
	t.Setenv("CONSTPIPE_INDEX_NAME", "from-env")
	t.Setenv("CONSTPIPE_BATCH_SIZE", "25")
	t.Setenv("CONSTPIPE_SOURCE_TIMEOUT", "5s")
	t.Setenv("CONSTPIPE_CHUNK", "true")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Index.Name)
	assert.Equal(t, 25, cfg.Index.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.True(t, cfg.Chunk.Enabled)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	// Given: a .env file and one variable already set in the environment
	envFile := writeFile(t, ".env", "CONSTPIPE_INDEX_NAME=from-dotenv\nCONSTPIPE_LOG_LEVEL=warn\n")
	unsetEnv(t, "CONSTPIPE_LOG_LEVEL")
	t.Setenv("CONSTPIPE_INDEX_NAME", "from-env")

	// When: loading
	cfg, err := Load("", envFile)
	require.NoError(t, err)

	// Then: .env fills the gap and the environment wins
	assert.Equal(t, "from-env", cfg.Index.Name)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	noEnv := filepath.Join(t.TempDir(), "missing.env")

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnv)
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "index: [unclosed"), noEnv)
		assert.Error(t, err)
	})

	t.Run("bad integer in env", func(t *testing.T) {
		t.Setenv("CONSTPIPE_BATCH_SIZE", "many")
		_, err := Load("", noEnv)
		assert.ErrorContains(t, err, "CONSTPIPE_BATCH_SIZE")
	})

	t.Run("invalid result", func(t *testing.T) {
		_, err := Load(writeFile(t, "c.yaml", "index:\n  engine: solr\n"), noEnv)
		assert.ErrorContains(t, err, "index.engine")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.Source.URL = " " }, "source.url"},
		{"zero timeout", func(c *Config) { c.Source.Timeout = 0 }, "source.timeout"},
		{"postgres without dsn", func(c *Config) { c.Index.Engine = "postgres" }, "index.dsn"},
		{"empty index name", func(c *Config) { c.Index.Name = "" }, "index.name"},
		{"zero batch", func(c *Config) { c.Index.BatchSize = 0 }, "index.batch_size"},
		{"zero chunk", func(c *Config) { c.Chunk.Size = 0 }, "chunk.size"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"s3 without bucket", func(c *Config) { c.Export.Storage = "s3" }, "export.s3_bucket"},
		{"bad storage", func(c *Config) { c.Export.Storage = "gcs" }, "export.storage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	t.Run("postgres with dsn", func(t *testing.T) {
		cfg := Default()
		cfg.Index.Engine = "postgres"
		cfg.Index.DSN = "postgres://localhost/constpipe"
		assert.NoError(t, cfg.Validate())
	})
}
