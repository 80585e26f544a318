// Package fetch implements the Fetcher interface.
// It retrieves the source document over HTTP (or from disk for offline runs),
// decodes it to UTF-8, and optionally serves it from a cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/retry"
	"golang.org/x/net/html/charset"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "constpipe/1.0 (https://github.com/gaurav-prasanna/constpipe)"
)

// HTTPFetcher fetches documents via HTTP.
type HTTPFetcher struct {
	client *http.Client
	retry  retry.Config
	logger *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithRetry sets the retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(f *HTTPFetcher) { f.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClient replaces the HTTP client. Its timeout is kept as configured.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// New creates an HTTPFetcher with a sensible timeout.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: defaultTimeout},
		retry:  retry.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// statusError is a non-2xx response.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.code, e.url)
}

// Fetch retrieves the document at url and decodes it to UTF-8.
// Server errors and transport failures are retried; 4xx responses are not.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	var result *core.FetchResult
	err := retry.Do(ctx, f.retry, func(attempt int) error {
		if attempt > 0 {
			f.logger.Warn("fetch_retry", slog.String("url", url), slog.Int("attempt", attempt))
		}
		r, err := f.fetchOnce(ctx, url)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.code < 500 {
				return retry.Permanent(err)
			}
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	f.logger.Info("document_fetched",
		slog.String("url", url),
		slog.Int("status", result.StatusCode),
		slog.Int("bytes", len(result.HTML)))
	return result, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, url: url}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := decode(resp.Body, contentType)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &core.FetchResult{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		HTML:        body,
	}, nil
}

// decode reads r and converts it to UTF-8 using the declared or sniffed charset.
func decode(r io.Reader, contentType string) (string, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return "", fmt.Errorf("detecting charset: %w", err)
	}
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FileFetcher loads a saved copy of the document from disk.
type FileFetcher struct{}

// Fetch reads the file named by a file:// URL or a plain path.
func (FileFetcher) Fetch(_ context.Context, url string) (*core.FetchResult, error) {
	path := strings.TrimPrefix(url, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	body, err := decode(f, "text/html")
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &core.FetchResult{URL: url, StatusCode: http.StatusOK, ContentType: "text/html", HTML: body}, nil
}

// ForLocator picks the fetcher for a source locator: remote URLs use
// remote, anything else is read from disk.
func ForLocator(locator string, remote core.Fetcher) core.Fetcher {
	if IsRemote(locator) {
		return remote
	}
	return FileFetcher{}
}
