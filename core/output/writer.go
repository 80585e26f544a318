// Package output stores exported artifacts. Files go to a local directory or
// an S3 bucket; names are derived from the source locator (for example
// www_planalto_gov_br_ccivil_03_constituicao_constituicao.json).
package output

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/constpipe/core"
)

// Type names a storage backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config selects and configures a storage backend.
type Config struct {
	Type Type
	// Dir is the local output directory. Empty means the working directory.
	Dir string
	S3  S3Config
}

// New creates the storage backend named by cfg.Type.
func New(ctx context.Context, cfg Config) (core.Storage, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocalStorage(cfg.Dir)
	case TypeS3:
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// LocalStorage writes artifacts to disk.
type LocalStorage struct {
	Dir string
}

// NewLocalStorage creates a LocalStorage targeting dir.
// If dir is empty, it defaults to the current working directory.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &LocalStorage{Dir: dir}, nil
}

// Put writes data to Dir/name and returns the file path. Parent directories
// of name are created as needed.
func (s *LocalStorage) Put(_ context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(s.Dir, filepath.Clean("/"+name))
	if dir := filepath.Dir(path); dir != s.Dir {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Filename converts a source locator into a flat file name with ext.
// Example: https://example.com/docs/intro.htm → example_com_docs_intro.md
func Filename(source, ext string) string {
	if !strings.Contains(source, "://") {
		base := filepath.Base(source)
		return sanitize(strings.TrimSuffix(base, filepath.Ext(base))) + ext
	}

	parsed, err := url.Parse(source)
	if err != nil {
		return sanitize(source) + ext
	}

	parts := []string{sanitize(parsed.Host)}
	path := strings.Trim(parsed.Path, "/")
	path = strings.TrimSuffix(path, filepath.Ext(path))
	if path != "" {
		for _, seg := range strings.Split(path, "/") {
			parts = append(parts, sanitize(seg))
		}
	}
	return strings.Join(parts, "_") + ext
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
