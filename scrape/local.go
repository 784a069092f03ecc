package scrape

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mentycs/docbrew/content"
	"github.com/mentycs/docbrew/fetch"
)

func init() {
	Register("local", func(logger *slog.Logger) Strategy { return NewLocalFileScraperStrategy(logger) })
}

// LocalFileScraperStrategy walks file:// sources, scoped to the start
// path's base directory (§4.3; there is no hostname/domain distinction for
// local paths).
type LocalFileScraperStrategy struct {
	logger *slog.Logger
}

func NewLocalFileScraperStrategy(logger *slog.Logger) *LocalFileScraperStrategy {
	return &LocalFileScraperStrategy{logger: logger}
}

func (s *LocalFileScraperStrategy) Name() string { return "local" }

func (s *LocalFileScraperStrategy) CanHandle(u string) bool {
	return strings.HasPrefix(u, "file://")
}

func (s *LocalFileScraperStrategy) Scrape(ctx context.Context, opts Options, progress ProgressCallback) ([]Document, error) {
	opts = opts.WithDefaults()

	fetcher := fetch.NewFileFetcher()

	startParsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, err
	}

	baseDir := baseDirectory(startParsed.Path)
	patterns := NewPatternFilter(opts.IncludePatterns, opts.ExcludePatterns)

	pipelineOpts := content.Options{ScrapeMode: opts.ScrapeMode}

	d, err := newDriver(opts, progress, s.logger)
	if err != nil {
		return nil, err
	}
	// file:// has no host/domain scope; substitute a path-prefix check by
	// always accepting scope here and relying on pattern filtering plus the
	// per-processor directory check below.
	d.scope = &scopeChecker{scope: ScopeSubpages, scheme: "file", host: "", baseDir: ""}

	return d.run(ctx, func(ctx context.Context, item queueItem, baseURL string) (*itemResult, error) {
		if ctx.Err() != nil {
			return nil, &fetch.CancellationError{Cause: ctx.Err()}
		}

		parsed, err := url.Parse(item.URL)
		if err != nil || !strings.HasPrefix(parsed.Path, baseDir) {
			return &itemResult{FinalURL: item.URL}, nil
		}

		if !patterns.Matches(item.URL) {
			return &itemResult{FinalURL: item.URL}, nil
		}

		raw, err := fetcher.Fetch(ctx, item.URL, fetch.Options{})
		if err != nil {
			return nil, err
		}

		pipeline, found := content.Resolve(raw)
		if !found {
			return &itemResult{FinalURL: raw.Source}, nil
		}
		defer func() { _ = pipeline.Close() }()

		perItemOpts := pipelineOpts
		perItemOpts.BaseURL = raw.Source

		processed, err := pipeline.Process(ctx, raw, perItemOpts)
		if err != nil {
			return nil, err
		}

		metadata := map[string]any{
			"url":     raw.Source,
			"library": opts.Library,
			"version": opts.Version,
		}

		for k, v := range processed.Metadata {
			metadata[k] = v
		}

		var links []string

		for _, link := range processed.Links {
			if strings.HasPrefix(link, "file://") {
				links = append(links, link)
			}
		}

		return &itemResult{
			Document: &Document{
				URL:      raw.Source,
				Content:  processed.TextContent,
				Metadata: metadata,
			},
			Links:    links,
			FinalURL: raw.Source,
		}, nil
	})
}
