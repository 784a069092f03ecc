package commands

import (
	"context"
	"log/slog"

	"github.com/mentycs/docbrew/embed"
	"github.com/mentycs/docbrew/jobs"
	"github.com/mentycs/docbrew/search"
	"github.com/mentycs/docbrew/store/sqlite"
)

// openService opens the sqlite store at dsn, reconciles any jobs a prior
// process left mid-flight, wires an optional embedding provider, and starts
// a job pipeline bound to it — the shared setup every subcommand needs.
func openService(ctx context.Context, dsn string, embedSpec string, concurrency int, logger *slog.Logger) (*search.Service, func(), error) {
	driver, err := sqlite.Open(ctx, dsn, logger)
	if err != nil {
		return nil, nil, err
	}

	if embedSpec != "" {
		embedder, err := embed.New(embedSpec)
		if err != nil {
			driver.Close()

			return nil, nil, err
		}

		driver.SetEmbedder(embedder)
	}

	if err := driver.ReconcileOnStartup(ctx); err != nil {
		driver.Close()

		return nil, nil, err
	}

	pipeline := jobs.New(driver, logger, concurrency)
	pipeline.Start(ctx)

	service := search.New(driver, pipeline, logger)

	cleanup := func() {
		pipeline.Stop()
		driver.Close()
	}

	return service, cleanup, nil
}
