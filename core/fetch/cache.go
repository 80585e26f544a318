package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gaurav-prasanna/constpipe/core"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheTTL is the default time-to-live for cached documents.
const DefaultCacheTTL = 24 * time.Hour

// DefaultMemoryCacheSize is the number of documents kept by MemoryCache.
const DefaultMemoryCacheSize = 16

type memoryEntry struct {
	text      string
	expiresAt time.Time
}

// MemoryCache is an in-process LRU cache with per-entry expiry.
type MemoryCache struct {
	cache *lru.Cache[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryCache creates a MemoryCache holding up to size documents.
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	cache, _ := lru.New[string, memoryEntry](size)
	return &MemoryCache{cache: cache, now: time.Now}
}

// Get returns the cached text for key if present and not expired.
func (c *MemoryCache) Get(key string) (string, bool) {
	entry, ok := c.cache.Get(key)
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.cache.Remove(key)
		return "", false
	}
	return entry.text, true
}

// Set stores text under key. A zero ttl never expires.
func (c *MemoryCache) Set(key string, text string, ttl time.Duration) error {
	entry := memoryEntry{text: text}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.cache.Add(key, entry)
	return nil
}

// DiskCache persists documents as JSON files named by the SHA-256 of the key.
type DiskCache struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

type diskEntry struct {
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewDiskCache creates a DiskCache in dir, creating the directory if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return &DiskCache{dir: dir, now: time.Now}, nil
}

// Get returns the cached text for key if present and not expired.
// Expired entries are removed.
func (c *DiskCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.pathFor(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false
	}
	if !entry.ExpiresAt.IsZero() && c.now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return "", false
	}
	return entry.Text, true
}

// Set stores text under key. A zero ttl never expires.
func (c *DiskCache) Set(key string, text string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := diskEntry{Key: key, Text: text}
	if ttl > 0 {
		entry.ExpiresAt = c.now().Add(ttl)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	path := c.pathFor(key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file %s: %w", path, err)
	}
	return nil
}

func (c *DiskCache) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// CachingFetcher serves documents from a cache before falling back to inner.
type CachingFetcher struct {
	inner  core.Fetcher
	cache  core.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingFetcher wraps inner with cache. A nil logger uses slog.Default().
func NewCachingFetcher(inner core.Fetcher, cache core.Cache, ttl time.Duration, logger *slog.Logger) *CachingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingFetcher{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

// Fetch returns the cached document for url or fetches and stores it.
// A failing cache store is logged and does not fail the fetch.
func (f *CachingFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	key := CacheKey(url)
	if text, ok := f.cache.Get(key); ok {
		f.logger.Info("document_cache_hit", slog.String("key", key), slog.Int("bytes", len(text)))
		return &core.FetchResult{URL: url, StatusCode: 200, HTML: text, FromCache: true}, nil
	}

	result, err := f.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(key, result.HTML, f.ttl); err != nil {
		f.logger.Warn("document_cache_store_failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return result, nil
}
