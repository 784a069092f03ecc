package search

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentycs/docbrew/jobs"
	"github.com/mentycs/docbrew/scrape"
	"github.com/mentycs/docbrew/testhelpers"
)

func scrapeOptionsFor(library string) scrape.Options {
	return scrape.Options{URL: "file:///tmp/" + library + ".html", Library: library, Version: "1.0.0"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSearchNoMatchWhenVersionNotIndexed(t *testing.T) {
	t.Parallel()

	fakeStore := testhelpers.NewFakeStore()
	pipeline := jobs.New(fakeStore, discardLogger(), 1)
	service := New(fakeStore, pipeline, discardLogger())

	outcome, err := service.Search(context.Background(), "acme", "2.0.0", "how to install", 5)
	require.NoError(t, err)
	require.NotNil(t, outcome.NoMatch)
	assert.Equal(t, "acme", outcome.NoMatch.Library)
	assert.Equal(t, "2.0.0", outcome.NoMatch.Requested)
}

func TestListJobsReflectsQueuePosition(t *testing.T) {
	t.Parallel()

	fakeStore := testhelpers.NewFakeStore()
	pipeline := jobs.New(fakeStore, discardLogger(), 1)
	service := New(fakeStore, pipeline, discardLogger())

	// Don't start the dispatcher, so both jobs stay queued in order.
	_, err := service.Scrape(context.Background(), scrapeOptionsFor("a"))
	require.NoError(t, err)

	secondID, err := service.Scrape(context.Background(), scrapeOptionsFor("b"))
	require.NoError(t, err)

	views := service.ListJobs(nil)
	require.Len(t, views, 2)

	for _, view := range views {
		if view.ID == secondID {
			assert.Equal(t, 2, view.QueuePosition)
		}
	}
}
