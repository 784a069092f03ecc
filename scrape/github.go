package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mentycs/docbrew/content"
	"github.com/mentycs/docbrew/fetch"
)

func init() {
	Register("github", func(logger *slog.Logger) Strategy { return NewGitHubScraperStrategy(logger) })
}

var githubURLRe = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)(?:/tree/([^/]+))?/?$`)

// GitHubScraperStrategy walks a GitHub repository's default branch tree via
// the REST API, emitting synthetic github-file:// links for each text-like
// blob, then fetches each file's raw content at depth > 0 (§4.3).
type GitHubScraperStrategy struct {
	logger *slog.Logger
	api    *fetch.GitHubApiFetcher
	owner  string
	repo   string
	branch string
}

func NewGitHubScraperStrategy(logger *slog.Logger) *GitHubScraperStrategy {
	return &GitHubScraperStrategy{logger: logger, api: fetch.NewGitHubApiFetcher("")}
}

func (s *GitHubScraperStrategy) Name() string { return "github" }

func (s *GitHubScraperStrategy) CanHandle(u string) bool {
	return githubURLRe.MatchString(u)
}

func (s *GitHubScraperStrategy) Scrape(ctx context.Context, opts Options, progress ProgressCallback) ([]Document, error) {
	opts = opts.WithDefaults()

	match := githubURLRe.FindStringSubmatch(opts.URL)
	if match == nil {
		return nil, fmt.Errorf("scrape: %q is not a github repository url", opts.URL)
	}

	s.owner, s.repo = match[1], match[2]
	s.branch = match[3]

	httpFetcher := fetch.NewHttpFetcher()
	pipelineOpts := content.Options{ScrapeMode: "fetch"}

	d, err := newDriver(opts, progress, s.logger)
	if err != nil {
		return nil, err
	}

	return d.run(ctx, func(ctx context.Context, item queueItem, _ string) (*itemResult, error) {
		if ctx.Err() != nil {
			return nil, &fetch.CancellationError{Cause: ctx.Err()}
		}

		if item.Depth == 0 {
			return s.walkRepoRoot(ctx)
		}

		return s.fetchFile(ctx, httpFetcher, item.URL, pipelineOpts, opts)
	})
}

func (s *GitHubScraperStrategy) walkRepoRoot(ctx context.Context) (*itemResult, error) {
	branch := s.branch
	if branch == "" {
		branch = s.api.DefaultBranch(ctx, s.owner, s.repo)
	}

	s.branch = branch

	entries, err := s.api.Tree(ctx, s.owner, s.repo, branch)
	if err != nil {
		return nil, err
	}

	var links []string

	for _, entry := range entries {
		if entry.Type != "blob" {
			continue
		}

		if !fetch.IsTextLikePath(entry.Path) {
			continue
		}

		links = append(links, "github-file://"+entry.Path)
	}

	return &itemResult{Links: links}, nil
}

func (s *GitHubScraperStrategy) fetchFile(
	ctx context.Context,
	httpFetcher fetch.Fetcher,
	itemURL string,
	pipelineOpts content.Options,
	opts Options,
) (*itemResult, error) {
	filePath := strings.TrimPrefix(itemURL, "github-file://")

	rawURL := fetch.RawURL(s.owner, s.repo, s.branch, filePath)

	raw, err := httpFetcher.Fetch(ctx, rawURL, fetch.Options{FollowRedirects: true, Headers: opts.Headers})
	if err != nil {
		return nil, err
	}

	if mimeType := fetch.MimeForExtension(filePath); mimeType != "" {
		raw.MimeType = mimeType
	}

	raw.Source = fetch.BlobURL(s.owner, s.repo, s.branch, filePath)

	pipeline, found := content.Resolve(raw)
	if !found {
		return &itemResult{FinalURL: raw.Source}, nil
	}
	defer func() { _ = pipeline.Close() }()

	processed, err := pipeline.Process(ctx, raw, pipelineOpts)
	if err != nil {
		return nil, err
	}

	title, ok := processed.Metadata["title"].(string)
	if !ok || title == "" {
		title = basename(filePath)
	}

	metadata := map[string]any{
		"url":     raw.Source,
		"title":   title,
		"library": opts.Library,
		"version": opts.Version,
	}

	return &itemResult{
		Document: &Document{
			URL:      raw.Source,
			Content:  processed.TextContent,
			Metadata: metadata,
		},
		FinalURL: raw.Source,
	}, nil
}

func basename(p string) string {
	if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
		return p[idx+1:]
	}

	return p
}
