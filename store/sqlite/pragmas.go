package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// prePragmas favor raw write throughput while migrations run uncommitted
// data that would otherwise be expensive to journal (§4.4).
var prePragmas = []string{
	"PRAGMA journal_mode = OFF",
	"PRAGMA synchronous = OFF",
	"PRAGMA cache_size = -64000",
	"PRAGMA mmap_size = 268435456",
}

// postPragmas are the production settings applied once the schema exists.
var postPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA wal_autocheckpoint = 1000",
	"PRAGMA busy_timeout = 30000",
	"PRAGMA foreign_keys = ON",
	"PRAGMA synchronous = NORMAL",
}

func applyPragmas(ctx context.Context, db *sql.DB, pragmas []string) error {
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	return nil
}
