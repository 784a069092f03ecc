package commands

import (
	"context"
	"fmt"
	"log/slog"
)

// Search runs a one-shot hybrid search against an already-indexed library
// version and prints the ranked results.
type Search struct {
	Store string `help:"Path to the sqlite store file" required:""`

	Library string `help:"Library name"                  required:""`
	Version string `help:"Version constraint (partial semver, empty for unversioned)"`
	Query   string `help:"Search query"                  required:""`
	Limit   int    `default:"10" help:"Maximum results to return"`
}

func (c *Search) Run(logger *slog.Logger) error {
	ctx := context.Background()

	service, cleanup, err := openService(ctx, c.Store, "", 1, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome, err := service.Search(ctx, c.Library, c.Version, c.Query, c.Limit)
	if err != nil {
		return err
	}

	if outcome.NoMatch != nil {
		return fmt.Errorf("no version of %q satisfies %q (available: %v)",
			outcome.NoMatch.Library, outcome.NoMatch.Requested, outcome.NoMatch.AvailableVersions)
	}

	for _, result := range outcome.Results {
		fmt.Printf("#%d (score %.4f)\n%s\n\n", result.Rank, result.Score, result.Content)
	}

	return nil
}
