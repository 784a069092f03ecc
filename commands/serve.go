package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Serve keeps a job pipeline resident against a store file so scrape jobs
// enqueued by other processes (or a future wire adapter sitting on the same
// facade) actually get dispatched, rather than only running synchronously
// inside a one-shot `scrape` invocation.
type Serve struct {
	Store string `help:"Path to the sqlite store file" required:""`

	EmbedProvider string `help:"[provider:]model spec of the embedder attached to the store; it embeds search queries only, not indexed documents"`
	Concurrency   int    `default:"3" help:"Maximum simultaneously RUNNING jobs"`
}

func (c *Serve) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, cleanup, err := openService(ctx, c.Store, c.EmbedProvider, c.Concurrency, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("pipeline started", "store", c.Store, "concurrency", c.Concurrency)

	<-ctx.Done()

	logger.Info("shutting down")

	return nil
}
