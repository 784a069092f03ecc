// Package search implements the service facade (C7): the single surface a
// caller (CLI, future MCP adapter) drives, translating the store's and job
// pipeline's typed errors into a small closed response shape rather than
// leaking driver internals — grounded on the teacher's ExecutionService,
// which plays the same "facade in front of storage + runtime" role.
package search

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mentycs/docbrew/content"
	"github.com/mentycs/docbrew/fetch"
	"github.com/mentycs/docbrew/jobs"
	"github.com/mentycs/docbrew/scrape"
	"github.com/mentycs/docbrew/store"
)

// Service is the facade wiring the store and job pipeline together.
type Service struct {
	store    store.Driver
	pipeline *jobs.Pipeline
	logger   *slog.Logger
}

// New builds a Service over an already-opened store and started pipeline.
func New(driver store.Driver, pipeline *jobs.Pipeline, logger *slog.Logger) *Service {
	return &Service{store: driver, pipeline: pipeline, logger: logger}
}

// NoMatch is search()/findVersion()'s structured "no such version" payload
// (§4.4), carrying the candidates a caller might retry with.
type NoMatch struct {
	Library           string
	Requested         string
	AvailableVersions []string
	HasUnversioned    bool
}

// SearchOutcome is search()'s result: exactly one of Results or NoMatch is
// set.
type SearchOutcome struct {
	Results []store.SearchResult
	NoMatch *NoMatch
}

// Search runs hybrid search (§4.4) against library at the best version
// satisfying the (possibly partial) requested version string.
func (s *Service) Search(ctx context.Context, library, version, query string, k int) (SearchOutcome, error) {
	results, err := s.store.HybridSearch(ctx, library, version, query, k)

	var notFound *store.VersionNotFoundError
	if errors.As(err, &notFound) {
		return SearchOutcome{NoMatch: &NoMatch{
			Library:           notFound.Library,
			Requested:         notFound.Requested,
			AvailableVersions: notFound.AvailableVersions,
			HasUnversioned:    notFound.HasUnversioned,
		}}, nil
	}

	if err != nil {
		return SearchOutcome{}, err
	}

	return SearchOutcome{Results: results}, nil
}

// FindVersion resolves targetVersion without running a search, for callers
// that only need to know whether a library/version is indexed.
func (s *Service) FindVersion(ctx context.Context, library, targetVersion string) (store.BestVersionMatch, error) {
	return s.store.FindBestVersion(ctx, library, targetVersion)
}

// ListLibraries returns every indexed library and its versions (§C
// per-version document counts).
func (s *Service) ListLibraries(ctx context.Context) ([]store.LibrarySummary, error) {
	return s.store.ListLibraries(ctx)
}

// JobView is listJobs()'s per-job projection, including the derived queue
// position the job pipeline doesn't persist.
type JobView struct {
	ID            string
	Library       string
	Version       string
	Status        store.Status
	QueuePosition int
	Progress      scrape.Progress
	Err           error
}

// ListJobs returns every job known to the pipeline, optionally narrowed by
// status.
func (s *Service) ListJobs(filter jobs.StatusFilter) []JobView {
	raw := s.pipeline.GetJobs(filter)
	views := make([]JobView, 0, len(raw))

	for _, job := range raw {
		views = append(views, JobView{
			ID:            job.ID,
			Library:       job.Library,
			Version:       job.Version,
			Status:        job.Status,
			QueuePosition: s.pipeline.QueuePosition(job.ID),
			Progress:      job.Progress,
			Err:           job.Err,
		})
	}

	return views
}

// Scrape enqueues a crawl job and returns its id immediately (§4.6); the
// caller observes completion via ListJobs or WaitForJobCompletion.
func (s *Service) Scrape(ctx context.Context, opts scrape.Options) (string, error) {
	return s.pipeline.EnqueueJob(ctx, opts)
}

// Cancel requests cancellation of a queued or running job.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	return s.pipeline.CancelJob(ctx, jobID)
}

// RemoveVersion deletes an indexed version and its documents.
func (s *Service) RemoveVersion(ctx context.Context, library, version string) error {
	return s.store.RemoveVersion(ctx, library, version)
}

// FetchURL runs a one-shot fetch + content pipeline without touching the
// store, used as a preview ahead of indexing (§C "fetchUrl one-shot
// preview").
func (s *Service) FetchURL(ctx context.Context, url string, scrapeMode string) (*content.ProcessedContent, error) {
	fetcher, ok := fetch.Resolve(url)
	if !ok {
		return nil, &store.ToolError{Message: "no fetcher can handle " + url}
	}

	raw, err := fetcher.Fetch(ctx, url, fetch.Options{FollowRedirects: true})
	if err != nil {
		return nil, err
	}

	pipeline, ok := content.Resolve(raw)
	if !ok {
		return nil, &store.ToolError{Message: "no content pipeline can handle " + raw.MimeType}
	}
	defer pipeline.Close()

	return pipeline.Process(ctx, raw, content.Options{ScrapeMode: scrapeMode, BaseURL: raw.Source})
}

// WaitForJobCompletion blocks until jobID reaches a terminal state.
func (s *Service) WaitForJobCompletion(ctx context.Context, jobID string) error {
	return s.pipeline.WaitForJobCompletion(ctx, jobID)
}

// ClearCompletedJobs drops every terminal job from the in-memory registry.
func (s *Service) ClearCompletedJobs() int {
	return s.pipeline.ClearCompletedJobs()
}
