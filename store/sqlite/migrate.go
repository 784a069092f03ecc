package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// migrationSource is the directory inside embeddedMigrations that holds the
// migration scripts.
var migrationSource = "migrations"

const (
	busyRetryCount = 10
	busyRetryDelay = 100 * time.Millisecond
)

// applyMigrations applies every *.sql file under migrations/ not yet
// recorded in _schema_migrations, in alphabetical filename order, all
// inside a single IMMEDIATE transaction retried on SQLITE_BUSY (§4.4, §6).
// A successful run that applied at least one migration triggers VACUUM
// once; re-running after all migrations are applied is a no-op and never
// VACUUMs (§8).
func applyMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _schema_migrations (
			id TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("could not create _schema_migrations: %w", err)
	}

	applied := map[string]bool{}

	rows, err := db.QueryContext(ctx, `SELECT id FROM _schema_migrations`)
	if err != nil {
		return fmt.Errorf("could not read _schema_migrations: %w", err)
	}

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()

			return fmt.Errorf("could not scan migration id: %w", err)
		}

		applied[id] = true
	}

	rows.Close()

	entries, err := embeddedMigrations.ReadDir(migrationSource)
	if err != nil {
		return fmt.Errorf("could not list migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	pending := make([]pendingMigration, 0, len(names))

	for _, name := range names {
		if applied[name] {
			continue
		}

		contents, err := embeddedMigrations.ReadFile(migrationSource + "/" + name)
		if err != nil {
			return fmt.Errorf("could not read migration %s: %w", name, err)
		}

		pending = append(pending, pendingMigration{name: name, script: string(contents)})
	}

	if len(pending) == 0 {
		return nil
	}

	if err := applyPending(ctx, db, pending); err != nil {
		return fmt.Errorf("migration batch failed: %w", err)
	}

	for _, m := range pending {
		logger.Info("applied migration", "name", m.name)
	}

	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum after migration: %w", err)
	}

	return nil
}

type pendingMigration struct {
	name   string
	script string
}

// applyPending runs every pending migration inside one IMMEDIATE
// transaction (the writer connection's _txlock=immediate DSN param makes
// BeginTx issue BEGIN IMMEDIATE) so the whole batch commits or rolls back
// together, retrying the entire batch on SQLITE_BUSY (§4.4: "a single
// immediate transaction across the whole pending set").
func applyPending(ctx context.Context, db *sql.DB, pending []pendingMigration) error {
	var lastErr error

	for attempt := 0; attempt < busyRetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(busyRetryDelay)
		}

		err := runBatchInTransaction(ctx, db, pending)
		if err == nil {
			return nil
		}

		if !isBusyError(err) {
			return err
		}

		lastErr = err
	}

	return lastErr
}

func runBatchInTransaction(ctx context.Context, db *sql.DB, pending []pendingMigration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback() }()

	for _, m := range pending {
		if _, err := tx.ExecContext(ctx, m.script); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO _schema_migrations (id) VALUES (?)`, m.name); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}

	return tx.Commit()
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
