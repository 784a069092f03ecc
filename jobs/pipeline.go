// Package jobs implements the job pipeline / scheduler (C6): a persistent
// queue with bounded concurrency, per-(library,version) serialization, a
// lifecycle state machine, progress throttling, and cooperative
// cancellation — grounded on the teacher's ExecutionService dispatch loop
// (atomic in-flight counts, a goroutine per job, a WaitGroup join on stop).
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mentycs/docbrew/fetch"
	"github.com/mentycs/docbrew/scrape"
	"github.com/mentycs/docbrew/store"
)

const (
	progressThrottleInterval = time.Second
	progressThrottlePages    = 20
)

// Job is the in-memory projection of a queued or running crawl; the
// Version row in the store is the single source of truth for persistence
// (§9).
type Job struct {
	ID       string
	Library  string
	Version  string
	Options  scrape.Options
	Status   store.Status

	Progress scrape.Progress

	StartedAt  *time.Time
	FinishedAt *time.Time
	Err        error

	cancel context.CancelFunc
}

func (j *Job) key() string { return j.Library + "@" + j.Version }

// StatusFilter narrows GetJobs results; nil accepts every status.
type StatusFilter func(store.Status) bool

// ProgressHook, StatusHook, and ErrorHook let observers (telemetry, UI
// push) watch the pipeline without being called into by the core (§9).
type ProgressHook func(job *Job)
type StatusHook func(job *Job, previous store.Status)
type ErrorHook func(job *Job, err error)

// Pipeline is the C6 scheduler: at most maxConcurrency jobs RUN at once,
// jobs sharing a (library, version) key are serialized.
type Pipeline struct {
	store          store.Driver
	logger         *slog.Logger
	maxConcurrency int

	mu       sync.Mutex
	jobs     map[string]*Job
	queue    []string // job IDs, FIFO
	running  map[string]bool // keyed by (library, version)
	inFlight int
	stopped  bool

	wake chan struct{}
	wg   sync.WaitGroup

	onProgress ProgressHook
	onStatus   StatusHook
	onError    ErrorHook
}

// New builds a Pipeline bound to store and capped at maxConcurrency
// simultaneous RUNNING jobs (default 3 when maxConcurrency <= 0).
func New(driver store.Driver, logger *slog.Logger, maxConcurrency int) *Pipeline {
	if maxConcurrency <= 0 {
		maxConcurrency = 3
	}

	return &Pipeline{
		store:          driver,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		jobs:           map[string]*Job{},
		running:        map[string]bool{},
		wake:           make(chan struct{}, 1),
	}
}

func (p *Pipeline) OnProgress(hook ProgressHook) { p.onProgress = hook }
func (p *Pipeline) OnStatusChange(hook StatusHook) { p.onStatus = hook }
func (p *Pipeline) OnError(hook ErrorHook) { p.onError = hook }

// Start launches the dispatcher loop. Call Stop to join every owned task.
func (p *Pipeline) Start(ctx context.Context) {
	p.wg.Add(1)

	go p.dispatchLoop(ctx)
}

// Stop signals the dispatcher to exit and waits for every running job task
// to join (§5: "the job does not transition out of RUNNING until all owned
// tasks have joined" applies transitively to pipeline shutdown).
func (p *Pipeline) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.signal()
	p.wg.Wait()
}

// EnqueueJob assigns a UUID, marks the Version row QUEUED, and appends the
// job to the queue (§4.6).
func (p *Pipeline) EnqueueJob(ctx context.Context, opts scrape.Options) (string, error) {
	opts = opts.WithDefaults()

	if opts.Library == "" || opts.URL == "" {
		return "", &store.ToolError{Message: "library and url are required"}
	}

	job := &Job{
		ID:      uuid.NewString(),
		Library: opts.Library,
		Version: opts.Version,
		Options: opts,
		Status:  store.StatusQueued,
	}

	if err := p.store.SetVersionStatus(ctx, opts.Library, opts.Version, store.StatusQueued, store.VersionStatusFields{
		SourceURL: &opts.URL,
	}); err != nil {
		return "", err
	}

	p.mu.Lock()
	p.jobs[job.ID] = job
	p.queue = append(p.queue, job.ID)
	p.mu.Unlock()

	p.signal()

	return job.ID, nil
}

func (p *Pipeline) GetJob(id string) (*Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	job, ok := p.jobs[id]

	return job, ok
}

func (p *Pipeline) GetJobs(filter StatusFilter) []*Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	all := lo.Values(p.jobs)

	if filter == nil {
		return all
	}

	return lo.Filter(all, func(job *Job, _ int) bool {
		return filter(job.Status)
	})
}

// QueuePosition returns id's 1-based position in the QUEUED backlog, or 0 if
// id is not currently queued — derived, not persisted (§C "Per-job
// queued-position reporting").
func (p *Pipeline) QueuePosition(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, qid := range p.queue {
		if qid == id {
			return i + 1
		}
	}

	return 0
}

// WaitForJobCompletion blocks until id reaches a terminal state, returning
// an error for FAILED/CANCELLED.
func (p *Pipeline) WaitForJobCompletion(ctx context.Context, id string) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, ok := p.GetJob(id)
		if !ok {
			return &store.ToolError{Message: fmt.Sprintf("unknown job %q", id)}
		}

		switch job.Status {
		case store.StatusCompleted:
			return nil
		case store.StatusFailed:
			return job.Err
		case store.StatusCancelled:
			return &fetch.CancellationError{}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CancelJob transitions QUEUED→CANCELLED immediately, or signals the
// running job's cancel token and lets it observe cancellation (§4.6).
func (p *Pipeline) CancelJob(ctx context.Context, id string) error {
	p.mu.Lock()
	job, ok := p.jobs[id]
	p.mu.Unlock()

	if !ok {
		return &store.ToolError{Message: fmt.Sprintf("unknown job %q", id)}
	}

	p.mu.Lock()
	if job.Status == store.StatusQueued {
		p.removeFromQueue(id)
		job.Status = store.StatusCancelled
		p.mu.Unlock()

		return p.store.SetVersionStatus(ctx, job.Library, job.Version, store.StatusCancelled, store.VersionStatusFields{})
	}

	cancel := job.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	return nil
}

func (p *Pipeline) removeFromQueue(id string) {
	for i, qid := range p.queue {
		if qid == id {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)

			return
		}
	}
}

// ClearCompletedJobs removes every terminal job from the runtime registry
// and returns the count removed.
func (p *Pipeline) ClearCompletedJobs() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0

	for id, job := range p.jobs {
		switch job.Status {
		case store.StatusCompleted, store.StatusFailed, store.StatusCancelled:
			delete(p.jobs, id)

			removed++
		}
	}

	return removed
}

func (p *Pipeline) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pipeline) dispatchLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()

		if stopped {
			return
		}

		p.dispatchEligible(ctx)

		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) dispatchEligible(ctx context.Context) {
	for {
		job := p.nextEligibleJob()
		if job == nil {
			return
		}

		p.wg.Add(1)

		go p.runJob(ctx, job)
	}
}

func (p *Pipeline) nextEligibleJob() *Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inFlight >= p.maxConcurrency {
		return nil
	}

	for i, id := range p.queue {
		job := p.jobs[id]
		if job == nil || job.Status != store.StatusQueued {
			continue
		}

		if p.running[job.key()] {
			continue
		}

		p.queue = append(p.queue[:i], p.queue[i+1:]...)
		p.running[job.key()] = true
		p.inFlight++

		return job
	}

	return nil
}

func (p *Pipeline) runJob(ctx context.Context, job *Job) {
	defer p.wg.Done()
	defer p.finishSlot(job)

	jobCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	job.cancel = cancel
	previous := job.Status
	job.Status = store.StatusRunning
	now := time.Now().UTC()
	job.StartedAt = &now
	p.mu.Unlock()

	p.fireStatus(job, previous)

	versionStatus := store.StatusRunning
	if existingHasDocuments(ctx, p.store, job.Library, job.Version) {
		versionStatus = store.StatusUpdating
	}

	if err := p.store.SetVersionStatus(jobCtx, job.Library, job.Version, versionStatus, store.VersionStatusFields{StartedAt: &now}); err != nil {
		p.failJob(jobCtx, job, err)

		return
	}

	strategy, ok := scrape.Resolve(job.Options.URL, p.logger)
	if !ok {
		p.failJob(jobCtx, job, fmt.Errorf("jobs: no strategy for %s", job.Options.URL))

		return
	}

	var (
		lastPersist    time.Time
		persistedPages int
	)

	documents, err := strategy.Scrape(jobCtx, job.Options, func(progress scrape.Progress) {
		p.mu.Lock()
		job.Progress = progress
		p.mu.Unlock()

		if p.onProgress != nil {
			p.onProgress(job)
		}

		since := time.Since(lastPersist)
		if since < progressThrottleInterval && progress.PagesProcessed-persistedPages < progressThrottlePages {
			return
		}

		lastPersist = time.Now()
		persistedPages = progress.PagesProcessed

		pages := progress.PagesProcessed
		maxPages := progress.MaxPages

		_ = p.store.SetVersionStatus(jobCtx, job.Library, job.Version, versionStatus, store.VersionStatusFields{
			ProgressPages:    &pages,
			ProgressMaxPages: &maxPages,
		})
	})

	var cancelErr *fetch.CancellationError
	if errors.As(err, &cancelErr) {
		p.cancelJobTerminal(jobCtx, job)

		return
	}

	if err != nil {
		p.failJob(jobCtx, job, err)

		return
	}

	storeDocs := make([]store.Document, 0, len(documents))

	for _, doc := range documents {
		storeDocs = append(storeDocs, store.Document{
			URL:       doc.URL,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			SortOrder: doc.SortOrder,
		})
	}

	if err := p.store.UpsertDocumentsForVersion(jobCtx, job.Library, job.Version, storeDocs); err != nil {
		p.failJob(jobCtx, job, err)

		return
	}

	p.completeJob(jobCtx, job)
}

func existingHasDocuments(ctx context.Context, driver store.Driver, library, version string) bool {
	summaries, err := driver.ListLibraries(ctx)
	if err != nil {
		return false
	}

	for _, lib := range summaries {
		if lib.Library != library {
			continue
		}

		for _, v := range lib.Versions {
			if v.Ref == version && v.DocumentCount > 0 {
				return true
			}
		}
	}

	return false
}

func (p *Pipeline) finishSlot(job *Job) {
	p.mu.Lock()
	delete(p.running, job.key())
	p.inFlight--
	p.mu.Unlock()

	p.signal()
}

func (p *Pipeline) completeJob(ctx context.Context, job *Job) {
	p.transition(job, store.StatusCompleted, nil)
	_ = p.store.SetVersionStatus(ctx, job.Library, job.Version, store.StatusCompleted, store.VersionStatusFields{})
}

func (p *Pipeline) failJob(ctx context.Context, job *Job, err error) {
	p.transition(job, store.StatusFailed, err)

	msg := err.Error()
	_ = p.store.SetVersionStatus(ctx, job.Library, job.Version, store.StatusFailed, store.VersionStatusFields{ErrorMessage: &msg})

	if p.onError != nil {
		p.onError(job, err)
	}
}

func (p *Pipeline) cancelJobTerminal(ctx context.Context, job *Job) {
	p.transition(job, store.StatusCancelled, nil)
	_ = p.store.SetVersionStatus(ctx, job.Library, job.Version, store.StatusCancelled, store.VersionStatusFields{})
}

func (p *Pipeline) transition(job *Job, status store.Status, err error) {
	p.mu.Lock()
	previous := job.Status
	job.Status = status
	job.Err = err
	now := time.Now().UTC()
	job.FinishedAt = &now
	p.mu.Unlock()

	p.fireStatus(job, previous)
}

func (p *Pipeline) fireStatus(job *Job, previous store.Status) {
	if p.onStatus != nil {
		p.onStatus(job, previous)
	}
}
