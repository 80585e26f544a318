package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/config"
	"github.com/gaurav-prasanna/constpipe/core/extract"
	"github.com/gaurav-prasanna/constpipe/core/fetch"
	"github.com/gaurav-prasanna/constpipe/core/index"
	"github.com/gaurav-prasanna/constpipe/core/normalize"
	"github.com/gaurav-prasanna/constpipe/core/output"
	"github.com/gaurav-prasanna/constpipe/core/pipeline"
	"github.com/gaurav-prasanna/constpipe/core/retry"
)

// searcher is implemented by engines that can answer queries.
type searcher interface {
	Search(ctx context.Context, name, query string, limit int) ([]index.Hit, error)
}

// newFetcher builds the fetcher for source: HTTP with retries for remote
// locators, the file reader otherwise, wrapped in a cache when enabled.
func newFetcher(c *config.Config, source string, l *slog.Logger) (core.Fetcher, error) {
	rc := retry.DefaultConfig()
	rc.MaxRetries = c.Source.Retries
	remote := fetch.New(
		fetch.WithTimeout(c.Source.Timeout),
		fetch.WithRetry(rc),
		fetch.WithLogger(l),
	)
	f := fetch.ForLocator(source, remote)
	if !c.Source.Cache.Enabled {
		return f, nil
	}

	var cache core.Cache
	if c.Source.Cache.Dir != "" {
		dc, err := fetch.NewDiskCache(c.Source.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening document cache: %w", err)
		}
		cache = dc
	} else {
		cache = fetch.NewMemoryCache(c.Source.Cache.Entries)
	}
	return fetch.NewCachingFetcher(f, cache, c.Source.Cache.TTL, l), nil
}

// openEngine opens the configured index engine and the gateway options it
// needs.
func openEngine(ctx context.Context, c *config.Config, l *slog.Logger) (index.Engine, []index.GatewayOption, error) {
	opts := []index.GatewayOption{index.WithLogger(l)}
	switch strings.ToLower(c.Index.Engine) {
	case "postgres":
		e, err := index.NewPostgresEngine(ctx, c.Index.DSN, l)
		if err != nil {
			return nil, nil, err
		}
		return e, opts, nil
	default:
		e := index.NewBleveEngine(c.Index.Dir, l)
		if c.Index.Dir != "" {
			opts = append(opts, index.WithLocker(index.NewFileLocker(c.Index.Dir, c.Index.Name)))
		}
		return e, opts, nil
	}
}

// newStorage opens the export storage described by the configuration.
func newStorage(ctx context.Context, c *config.Config) (core.Storage, error) {
	return output.New(ctx, output.Config{
		Type: output.Type(strings.ToLower(c.Export.Storage)),
		Dir:  c.Export.Dir,
		S3: output.S3Config{
			Bucket:   c.Export.S3Bucket,
			Region:   c.Export.S3Region,
			Prefix:   c.Export.S3Prefix,
			Endpoint: c.Export.S3Endpoint,
		},
	})
}

// newPipeline wires the collaborators shared by ingest and export.
func newPipeline(c *config.Config, source string, gw *index.Gateway, l *slog.Logger) (*pipeline.Pipeline, error) {
	f, err := newFetcher(c, source, l)
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		Fetcher:    f,
		Extractor:  extract.New(),
		Gateway:    gw,
		Normalizer: normalize.New(),
		Logger:     l,
	}, nil
}

// sourceArg returns the positional source if given, else the configured one.
func sourceArg(args []string) (string, error) {
	source := cfg.Source.URL
	if len(args) > 0 {
		source = args[0]
	}
	if err := fetch.ValidateURL(source); err != nil {
		return "", err
	}
	return source, nil
}
