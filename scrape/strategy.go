// Package scrape implements the BFS scraper strategies (C3): a shared
// bounded-concurrency crawl driver parameterized by a per-scheme
// itemProcessor, registered the same way fetch registers Fetchers.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"

	"github.com/mentycs/docbrew/fetch"
)

// Document is one chunk of extracted text discovered during a crawl, ready
// for the job pipeline to hand to the store.
type Document struct {
	URL       string
	Content   string
	Metadata  map[string]any
	SortOrder int
}

// Progress is reported once per scraped document.
type Progress struct {
	PagesProcessed int
	MaxPages       int
}

// ProgressCallback is invoked once per scraped document (§4.6).
type ProgressCallback func(Progress)

// Options configures a single crawl (§6's scrape options).
type Options struct {
	URL             string
	Library         string
	Version         string
	Scope           Scope
	MaxPages        int
	MaxDepth        int
	MaxConcurrency  int
	FollowRedirects bool
	IgnoreErrors    bool
	ScrapeMode      string
	IncludePatterns []string
	ExcludePatterns []string
	Headers         map[string]string
	// DisableRobotsTxt opts out of the robots.txt politeness check that is
	// otherwise applied to every discovered http(s) link (respected by
	// default).
	DisableRobotsTxt bool
}

// WithDefaults fills in defaults for zero fields: Scope (subpages),
// MaxPages (1000), MaxDepth (3), MaxConcurrency (3) and ScrapeMode (auto).
// A zero MaxPages or MaxDepth is therefore replaced and cannot be requested.
// Boolean fields are left as given, so FollowRedirects and IgnoreErrors are
// false unless the caller sets them.
func (o Options) WithDefaults() Options {
	if o.Scope == "" {
		o.Scope = ScopeSubpages
	}

	if o.MaxPages == 0 {
		o.MaxPages = 1000
	}

	if o.MaxDepth == 0 {
		o.MaxDepth = 3
	}

	if o.MaxConcurrency == 0 {
		o.MaxConcurrency = 3
	}

	if o.ScrapeMode == "" {
		o.ScrapeMode = "auto"
	}

	return o
}

// Strategy walks a source URL tree under Options' scope, invoking progress
// and honoring ctx cancellation, returning every Document it produced.
type Strategy interface {
	Name() string
	CanHandle(url string) bool
	Scrape(ctx context.Context, opts Options, progress ProgressCallback) ([]Document, error)
}

// Factory builds a Strategy instance.
type Factory func(logger *slog.Logger) Strategy

var (
	registryMu sync.RWMutex
	order      []string
	registry   = map[string]Factory{}
)

// Register adds a strategy implementation under name. Call from init().
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("scrape: strategy %q already registered", name))
	}

	registry[name] = factory
	order = append(order, name)
}

// Names returns registered strategy names sorted alphabetically.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(order))
	for _, name := range order {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Resolve returns the first registered strategy whose CanHandle(url) is
// true, in registration order.
func Resolve(url string, logger *slog.Logger) (Strategy, bool) {
	registryMu.RLock()
	names := make([]string, len(order))
	copy(names, order)
	registryMu.RUnlock()

	for _, name := range names {
		registryMu.RLock()
		factory := registry[name]
		registryMu.RUnlock()

		s := factory(logger)
		if s.CanHandle(url) {
			return s, true
		}
	}

	return nil, false
}

// queueItem is one BFS frontier entry.
type queueItem struct {
	URL   string
	Depth int
}

// itemResult is what a per-scheme processor returns for one queueItem.
type itemResult struct {
	Document *Document
	Links    []string
	FinalURL string
}

// itemProcessor is implemented once per concrete strategy (web, github,
// local) and plugged into driver.run.
type itemProcessor func(ctx context.Context, item queueItem, baseURL string) (*itemResult, error)

// driver is the shared BFS crawl loop described in §4.3.
type driver struct {
	opts     Options
	progress ProgressCallback
	scope    *scopeChecker
	patterns *PatternFilter
	normOpts NormalizeOptions
	logger   *slog.Logger

	mu               sync.Mutex
	visited          map[string]bool
	totalDiscovered  int
	effectiveTotal   int
	canonicalBaseURL string
	startURL         string
}

func newDriver(opts Options, progress ProgressCallback, logger *slog.Logger) (*driver, error) {
	scope, err := newScopeChecker(opts.Scope, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("scrape: invalid start url: %w", err)
	}

	return &driver{
		opts:             opts,
		progress:         progress,
		scope:            scope,
		patterns:         NewPatternFilter(opts.IncludePatterns, opts.ExcludePatterns),
		normOpts:         DefaultNormalizeOptions(),
		logger:           logger,
		visited:          map[string]bool{},
		canonicalBaseURL: opts.URL,
		startURL:         opts.URL,
	}, nil
}

// bypassesScope reports whether a link type is exempt from the scope check
// but still subject to pattern filtering (github-file:// links, §4.3).
func bypassesScope(link string) bool {
	return len(link) > len("github-file://") && link[:len("github-file://")] == "github-file://"
}

func (d *driver) run(ctx context.Context, process itemProcessor) ([]Document, error) {
	startNorm := NormalizeURL(d.startURL, d.normOpts)
	d.visited[startNorm] = true
	d.totalDiscovered = 1
	d.effectiveTotal = 1

	queue := []queueItem{{URL: d.startURL, Depth: 0}}

	var documents []Document

	processed := 0

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return documents, &fetch.CancellationError{Cause: ctx.Err()}
		}

		remaining := d.opts.MaxPages - processed
		if remaining <= 0 {
			break
		}

		batchSize := d.opts.MaxConcurrency
		if remaining < batchSize {
			batchSize = remaining
		}

		if len(queue) < batchSize {
			batchSize = len(queue)
		}

		batch := queue[:batchSize]
		queue = queue[batchSize:]

		results := make([]*itemResult, batchSize)
		errs := make([]error, batchSize)

		var wg sync.WaitGroup

		for i, item := range batch {
			wg.Add(1)

			go func(i int, item queueItem) {
				defer wg.Done()

				if ctx.Err() != nil {
					errs[i] = &fetch.CancellationError{Cause: ctx.Err()}

					return
				}

				base := d.baseURLFor(item.Depth)

				res, err := process(ctx, item, base)
				results[i] = res
				errs[i] = err
			}(i, item)
		}

		wg.Wait()

		for i, item := range batch {
			processed++

			err := errs[i]
			if err != nil {
				var cancelErr *fetch.CancellationError
				if errors.As(err, &cancelErr) {
					return documents, err
				}

				if !d.opts.IgnoreErrors {
					return documents, err
				}

				if d.logger != nil {
					d.logger.Warn("scrape item failed, continuing", "url", item.URL, "error", err)
				}

				continue
			}

			res := results[i]
			if res == nil {
				continue
			}

			if item.Depth == 0 && res.FinalURL != "" {
				d.updateCanonicalBase(res.FinalURL)
			}

			if res.Document != nil {
				res.Document.SortOrder = len(documents)
				documents = append(documents, *res.Document)

				if d.progress != nil {
					d.progress(Progress{PagesProcessed: len(documents), MaxPages: d.opts.MaxPages})
				}
			}

			if item.Depth+1 > d.opts.MaxDepth {
				continue
			}

			d.enqueueLinks(res.Links, item.Depth+1, &queue)
		}
	}

	return documents, nil
}

func (d *driver) enqueueLinks(links []string, nextDepth int, queue *[]queueItem) {
	for _, link := range links {
		normalized := NormalizeURL(link, d.normOpts)

		d.mu.Lock()
		alreadyVisited := d.visited[normalized]
		d.mu.Unlock()

		if alreadyVisited {
			continue
		}

		if !bypassesScope(link) && !d.scope.InScope(link) {
			continue
		}

		if !d.patterns.Matches(link) {
			continue
		}

		d.mu.Lock()
		d.visited[normalized] = true
		d.totalDiscovered++

		accept := d.effectiveTotal < d.opts.MaxPages
		if accept {
			d.effectiveTotal++
		}
		d.mu.Unlock()

		if accept {
			*queue = append(*queue, queueItem{URL: link, Depth: nextDepth})
		}
	}
}

// baseURLFor returns the base URL relative links at depth should resolve
// against: the canonical base for depth 0, the established canonical base
// otherwise.
func (d *driver) baseURLFor(depth int) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.canonicalBaseURL
}

// updateCanonicalBase implements §4.3's post-redirect canonicalization: a
// same-scheme final URL differing from the start URL becomes the new base
// for resolving every subsequent relative link.
func (d *driver) updateCanonicalBase(finalURL string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if finalURL == d.startURL {
		return
	}

	final, err := url.Parse(finalURL)
	if err != nil {
		return
	}

	start, err := url.Parse(d.startURL)
	if err != nil || final.Scheme != start.Scheme {
		return
	}

	d.canonicalBaseURL = finalURL
}
