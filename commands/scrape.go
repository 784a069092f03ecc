package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mentycs/docbrew/scrape"
)

// Scrape enqueues a single crawl job and waits for it to finish, printing
// its outcome — a thin synchronous wrapper around the otherwise
// asynchronous job pipeline.
type Scrape struct {
	Store string `help:"Path to the sqlite store file" required:""`

	Library string `help:"Library name to index under"  required:""`
	Version string `help:"Version name (empty for unversioned)"`
	URL     string `help:"Start URL to crawl"            required:""`

	Scope           string   `default:"subpages" enum:"subpages,hostname,domain" help:"Crawl scope"`
	MaxPages        int      `default:"1000"      help:"Maximum pages to crawl"`
	MaxDepth        int      `default:"3"         help:"Maximum link depth"`
	MaxConcurrency  int      `default:"3"         help:"Concurrent fetches in flight"`
	ScrapeMode      string   `default:"auto"      enum:"auto,fetch,playwright" help:"Content rendering mode"`
	IncludePatterns []string `help:"Glob/regex patterns a link must match to be followed"`
	ExcludePatterns []string `help:"Glob/regex patterns that exclude a link"`
	IgnoreErrors    bool     `help:"Continue the crawl past per-page failures"`

	EmbedProvider string `help:"[provider:]model spec of the embedder attached to the store, e.g. openai:text-embedding-3-small; it embeds search queries only, not indexed documents"`
	Concurrency   int    `default:"3" help:"Maximum simultaneously RUNNING jobs"`
}

func (c *Scrape) Run(logger *slog.Logger) error {
	ctx := context.Background()
	log := logger.WithGroup("scrape").With("library", c.Library, "version", c.Version, "url", c.URL)

	service, cleanup, err := openService(ctx, c.Store, c.EmbedProvider, c.Concurrency, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := scrape.Options{
		URL:             c.URL,
		Library:         c.Library,
		Version:         c.Version,
		Scope:           scrape.Scope(c.Scope),
		MaxPages:        c.MaxPages,
		MaxDepth:        c.MaxDepth,
		MaxConcurrency:  c.MaxConcurrency,
		ScrapeMode:      c.ScrapeMode,
		IncludePatterns: c.IncludePatterns,
		ExcludePatterns: c.ExcludePatterns,
		IgnoreErrors:    c.IgnoreErrors,
	}.WithDefaults()

	jobID, err := service.Scrape(ctx, opts)
	if err != nil {
		return err
	}

	log.Info("job enqueued", "job_id", jobID)

	if err := service.WaitForJobCompletion(ctx, jobID); err != nil {
		return fmt.Errorf("scrape job %s: %w", jobID, err)
	}

	log.Info("job completed", "job_id", jobID)

	return nil
}
