package jobs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentycs/docbrew/scrape"
	"github.com/mentycs/docbrew/store"
	"github.com/mentycs/docbrew/testhelpers"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return "file://" + path
}

func TestPipelineRunsJobToCompletion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	startURL := writeFixture(t, dir, "index.html", `<html><head><title>Home</title></head><body><p>hello</p></body></html>`)

	fakeStore := testhelpers.NewFakeStore()
	pipeline := New(fakeStore, discardLogger(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline.Start(ctx)
	defer pipeline.Stop()

	jobID, err := pipeline.EnqueueJob(ctx, scrape.Options{
		URL:        startURL,
		Library:    "acme",
		Version:    "1.0.0",
		ScrapeMode: "fetch",
	})
	require.NoError(t, err)

	require.NoError(t, pipeline.WaitForJobCompletion(ctx, jobID))

	job, ok := pipeline.GetJob(jobID)
	require.True(t, ok)
	assert.Equal(t, store.StatusCompleted, job.Status)
	assert.Equal(t, store.StatusCompleted, fakeStore.Status("acme", "1.0.0"))
}

func TestPipelineCancelQueuedJob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	startURL := writeFixture(t, dir, "index.html", `<html><body>slow</body></html>`)

	fakeStore := testhelpers.NewFakeStore()
	// The dispatcher is never started, so nothing picks up the job and
	// cancellation observes the QUEUED branch deterministically.
	pipeline := New(fakeStore, discardLogger(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Don't start the dispatcher: the job stays QUEUED until cancelled.
	jobID, err := pipeline.EnqueueJob(ctx, scrape.Options{
		URL:     startURL,
		Library: "acme",
		Version: "2.0.0",
	})
	require.NoError(t, err)

	require.NoError(t, pipeline.CancelJob(ctx, jobID))

	job, ok := pipeline.GetJob(jobID)
	require.True(t, ok)
	assert.Equal(t, store.StatusCancelled, job.Status)
}

func TestClearCompletedJobs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	startURL := writeFixture(t, dir, "index.html", `<html><body>hi</body></html>`)

	fakeStore := testhelpers.NewFakeStore()
	pipeline := New(fakeStore, discardLogger(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline.Start(ctx)
	defer pipeline.Stop()

	jobID, err := pipeline.EnqueueJob(ctx, scrape.Options{
		URL:        startURL,
		Library:    "acme",
		Version:    "3.0.0",
		ScrapeMode: "fetch",
	})
	require.NoError(t, err)
	require.NoError(t, pipeline.WaitForJobCompletion(ctx, jobID))

	removed := pipeline.ClearCompletedJobs()
	assert.Equal(t, 1, removed)

	_, ok := pipeline.GetJob(jobID)
	assert.False(t, ok)
}
