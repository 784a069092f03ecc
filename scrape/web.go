package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mentycs/docbrew/content"
	"github.com/mentycs/docbrew/fetch"
)

func init() {
	Register("web", func(logger *slog.Logger) Strategy { return NewWebScraperStrategy(logger) })
}

// WebScraperStrategy crawls http/https sources (§4.3).
type WebScraperStrategy struct {
	logger  *slog.Logger
	robots  *robotsChecker
	fetcher fetch.Fetcher
}

func NewWebScraperStrategy(logger *slog.Logger) *WebScraperStrategy {
	return &WebScraperStrategy{logger: logger}
}

func (s *WebScraperStrategy) Name() string { return "web" }

func (s *WebScraperStrategy) CanHandle(url string) bool {
	if strings.Contains(url, "github.com/") {
		return false
	}

	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (s *WebScraperStrategy) Scrape(ctx context.Context, opts Options, progress ProgressCallback) ([]Document, error) {
	opts = opts.WithDefaults()

	fetcher, ok := fetch.Resolve(opts.URL)
	if !ok {
		return nil, fmt.Errorf("scrape: no fetcher for %s", opts.URL)
	}

	s.fetcher = fetcher
	s.robots = newRobotsChecker(fetcher)

	pipelineOpts := content.Options{ScrapeMode: opts.ScrapeMode}

	d, err := newDriver(opts, progress, s.logger)
	if err != nil {
		return nil, err
	}

	return d.run(ctx, func(ctx context.Context, item queueItem, baseURL string) (*itemResult, error) {
		if ctx.Err() != nil {
			return nil, &fetch.CancellationError{Cause: ctx.Err()}
		}

		if !opts.DisableRobotsTxt && !s.robots.Allowed(ctx, item.URL) {
			return &itemResult{FinalURL: item.URL}, nil
		}

		raw, err := fetcher.Fetch(ctx, item.URL, fetch.Options{
			Headers:         opts.Headers,
			FollowRedirects: opts.FollowRedirects,
		})
		if err != nil {
			return nil, err
		}

		pipeline, found := content.Resolve(raw)
		if !found {
			return &itemResult{FinalURL: raw.Source}, nil
		}
		defer func() { _ = pipeline.Close() }()

		itemBase := baseURL
		if item.Depth == 0 {
			itemBase = raw.Source
		}

		perItemOpts := pipelineOpts
		perItemOpts.BaseURL = itemBase

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

		return &itemResult{
			Document: &Document{
				URL:      raw.Source,
				Content:  processed.TextContent,
				Metadata: metadata,
			},
			Links:    processed.Links,
			FinalURL: raw.Source,
		}, nil
	})
}
