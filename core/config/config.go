// Package config loads the constpipe configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML file
// (constpipe.yaml or --config), variables from .env, CONSTPIPE_* environment
// variables, command-line flags. Flags are applied by the caller, which then
// calls Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit config path is given and it exists.
const DefaultFile = "constpipe.yaml"

// DefaultSourceURL is the official compiled text of the constitution.
const DefaultSourceURL = "https://www.planalto.gov.br/ccivil_03/constituicao/constituicao.htm"

// Config represents the complete constpipe configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Index   IndexConfig   `yaml:"index"`
	Chunk   ChunkConfig   `yaml:"chunk"`
	Logging LoggingConfig `yaml:"logging"`
	Export  ExportConfig  `yaml:"export"`
	Server  ServerConfig  `yaml:"server"`
}

// SourceConfig configures where and how the document is fetched.
type SourceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
	Cache   CacheConfig   `yaml:"cache"`
}

// CacheConfig configures the raw document cache. With Dir empty the cache is
// kept in memory for the lifetime of the process.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
	Entries int           `yaml:"entries"`
}

// IndexConfig configures the search index.
type IndexConfig struct {
	// Engine is "bleve" (embedded, default) or "postgres".
	Engine    string `yaml:"engine"`
	Name      string `yaml:"name"`
	Dir       string `yaml:"dir"`
	DSN       string `yaml:"dsn"`
	BatchSize int    `yaml:"batch_size"`
}

// ChunkConfig configures the streaming mode.
type ChunkConfig struct {
	Enabled         bool `yaml:"enabled"`
	Size            int  `yaml:"size"`
	MemoryCeilingMB int  `yaml:"memory_ceiling_mb"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// ExportConfig configures where exports are written.
type ExportConfig struct {
	// Storage is "local" (default) or "s3".
	Storage    string `yaml:"storage"`
	Dir        string `yaml:"dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Endpoint string `yaml:"s3_endpoint"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			URL:     DefaultSourceURL,
			Timeout: 30 * time.Second,
			Retries: 2,
			Cache: CacheConfig{
				Dir:     ".constpipe/cache",
				TTL:     24 * time.Hour,
				Entries: 16,
			},
		},
		Index: IndexConfig{
			Engine:    "bleve",
			Name:      "constituicao",
			Dir:       ".constpipe/index",
			BatchSize: 100,
		},
		Chunk: ChunkConfig{
			Size:            256 * 1024,
			MemoryCeilingMB: 512,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Export: ExportConfig{
			Storage: "local",
			Dir:     ".",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path
// (DefaultFile when path is empty and the file exists), .env files and the
// environment. envFiles default to ".env"; missing ones are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML decodes path over the current values; keys missing from the file
// keep their defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"CONSTPIPE_SOURCE_URL":     &c.Source.URL,
		"CONSTPIPE_CACHE_DIR":      &c.Source.Cache.Dir,
		"CONSTPIPE_INDEX_ENGINE":   &c.Index.Engine,
		"CONSTPIPE_INDEX_NAME":     &c.Index.Name,
		"CONSTPIPE_INDEX_DIR":      &c.Index.Dir,
		"CONSTPIPE_INDEX_DSN":      &c.Index.DSN,
		"CONSTPIPE_LOG_LEVEL":      &c.Logging.Level,
		"CONSTPIPE_LOG_FILE":       &c.Logging.File,
		"CONSTPIPE_EXPORT_STORAGE": &c.Export.Storage,
		"CONSTPIPE_EXPORT_DIR":     &c.Export.Dir,
		"CONSTPIPE_S3_BUCKET":      &c.Export.S3Bucket,
		"CONSTPIPE_S3_REGION":      &c.Export.S3Region,
		"CONSTPIPE_S3_PREFIX":      &c.Export.S3Prefix,
		"CONSTPIPE_S3_ENDPOINT":    &c.Export.S3Endpoint,
		"CONSTPIPE_SERVER_ADDR":    &c.Server.Addr,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CONSTPIPE_SOURCE_RETRIES":    &c.Source.Retries,
		"CONSTPIPE_BATCH_SIZE":        &c.Index.BatchSize,
		"CONSTPIPE_CHUNK_SIZE":        &c.Chunk.Size,
		"CONSTPIPE_MEMORY_CEILING_MB": &c.Chunk.MemoryCeilingMB,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s must be an integer, got %q", key, v)
			}
			*dst = n
		}
	}

	if v := os.Getenv("CONSTPIPE_SOURCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CONSTPIPE_SOURCE_TIMEOUT must be a duration, got %q", v)
		}
		c.Source.Timeout = d
	}
	if v := os.Getenv("CONSTPIPE_CACHE"); v != "" {
		c.Source.Cache.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("CONSTPIPE_CHUNK"); v != "" {
		c.Chunk.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.URL) == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive, got %s", c.Source.Timeout)
	}
	if c.Source.Retries < 0 {
		return fmt.Errorf("source.retries must be non-negative, got %d", c.Source.Retries)
	}

	switch strings.ToLower(c.Index.Engine) {
	case "bleve":
	case "postgres":
		if c.Index.DSN == "" {
			return fmt.Errorf("index.dsn is required for the postgres engine")
		}
	default:
		return fmt.Errorf("index.engine must be 'bleve' or 'postgres', got %s", c.Index.Engine)
	}
	if c.Index.Name == "" {
		return fmt.Errorf("index.name is required")
	}
	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("index.batch_size must be positive, got %d", c.Index.BatchSize)
	}

	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.MemoryCeilingMB < 0 {
		return fmt.Errorf("chunk.memory_ceiling_mb must be non-negative, got %d", c.Chunk.MemoryCeilingMB)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	switch strings.ToLower(c.Export.Storage) {
	case "local":
	case "s3":
		if c.Export.S3Bucket == "" {
			return fmt.Errorf("export.s3_bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("export.storage must be 'local' or 's3', got %s", c.Export.Storage)
	}
	return nil
}

// MemoryCeiling returns the chunk memory ceiling in bytes.
func (c *Config) MemoryCeiling() uint64 {
	return uint64(c.Chunk.MemoryCeilingMB) * 1024 * 1024
}
