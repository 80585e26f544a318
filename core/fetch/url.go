package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// IsRemote reports whether locator is an http(s) URL.
func IsRemote(locator string) bool {
	lower := strings.ToLower(locator)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ValidateURL checks a source locator. Remote locators need a scheme and a
// host; file:// URLs and bare paths are accepted as local files.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("empty source locator")
	}
	if !IsRemote(raw) {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s (must include scheme, e.g. https://example.com)", raw)
	}
	return nil
}

// NormalizeURL lower-cases scheme and host and strips fragments and trailing
// slashes, so equivalent locators share one cache entry.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	// Keep root "/".
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}

// CacheKey returns the cache key for a source locator.
func CacheKey(rawURL string) string {
	return NormalizeURL(rawURL)
}

// ResolveURL resolves a link found in the document against the document's
// locator. Links from local files are returned unchanged. mailto:, tel:,
// javascript: and in-page links resolve to "".
func ResolveURL(href, base string) string {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "tel:") || strings.HasPrefix(href, "#") {
		return ""
	}
	if !IsRemote(base) {
		return href
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := baseURL.ResolveReference(parsed)
	// Strip fragments.
	resolved.Fragment = ""
	return resolved.String()
}
