// Package sqlite is the hybrid document store's only Driver implementation
// (C4): mattn/go-sqlite3 (cgo, loadable-extension capable — chosen over the
// pure-Go modernc.org/sqlite the teacher uses elsewhere, since vec0 is a C
// extension a pure-Go driver cannot load) plus sqlite-vec-go-bindings for
// KNN search and native FTS5 for BM25.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mentycs/docbrew/embed"
	"github.com/mentycs/docbrew/internal/pathtree"
	"github.com/mentycs/docbrew/internal/semver"
	"github.com/mentycs/docbrew/store"
)

func init() {
	sqlitevec.Auto()
}

const (
	unversionedSegment = "_unversioned_"
	defaultEmbeddingDim = 1536
)

var statementBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Driver is the sqlite-backed store.Driver.
type Driver struct {
	writer   *sql.DB
	reader   *sql.DB
	logger   *slog.Logger
	embedDim int
	embedder embed.Embedder
}

// SetEmbedder wires an Embedder for HybridSearch's semantic run. A nil
// embedder (the default) degrades hybrid search to FTS only (§4.4).
func (d *Driver) SetEmbedder(e embed.Embedder) {
	d.embedder = e
}

// Open opens (creating if absent) the database at dsn, applies pragmas and
// pending migrations, and reconciles startup state is left to the caller
// (ReconcileOnStartup) so jobs can claim in-flight rows first.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Driver, error) {
	// _txlock=immediate makes every BeginTx on this connection issue BEGIN
	// IMMEDIATE rather than mattn/go-sqlite3's default DEFERRED, so mutating
	// transactions take the write lock up front instead of on first write
	// (§4.4, §5: "All mutating statements MUST run inside IMMEDIATE
	// transactions").
	writer, err := sql.Open("sqlite3", withTxLockImmediate(dsn))
	if err != nil {
		return nil, &store.StoreError{Cause: err, Message: "could not open database"}
	}

	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, writer, prePragmas); err != nil {
		return nil, &store.StoreError{Cause: err, Message: "could not set pre-migration pragmas"}
	}

	if err := applyMigrations(ctx, writer, logger); err != nil {
		return nil, &store.StoreError{Cause: err, Message: "could not apply migrations"}
	}

	if err := applyPragmas(ctx, writer, postPragmas); err != nil {
		return nil, &store.StoreError{Cause: err, Message: "could not set production pragmas"}
	}

	reader, err := sql.Open("sqlite3", dsn+"?mode=ro&_journal_mode=WAL")
	if err != nil {
		return nil, &store.StoreError{Cause: err, Message: "could not open reader connection"}
	}

	reader.SetMaxOpenConns(4)

	return &Driver{writer: writer, reader: reader, logger: logger, embedDim: defaultEmbeddingDim}, nil
}

func withTxLockImmediate(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&_txlock=immediate"
	}

	return dsn + "?_txlock=immediate"
}

func (d *Driver) Close() error {
	writerErr := d.writer.Close()
	readerErr := d.reader.Close()

	if writerErr != nil {
		return writerErr
	}

	return readerErr
}

func (d *Driver) resolveOrCreateLibrary(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64

	err := tx.QueryRowContext(ctx, `SELECT id FROM libraries WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}

	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO libraries (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (d *Driver) resolveOrCreateVersion(ctx context.Context, tx *sql.Tx, libraryID int64, name string) (int64, error) {
	var id int64

	err := tx.QueryRowContext(ctx, `SELECT id FROM versions WHERE library_id = ? AND name = ?`, libraryID, name).Scan(&id)
	if err == nil {
		return id, nil
	}

	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO versions (library_id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, libraryID, name, store.StatusNotIndexed)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// UpsertDocumentsForVersion transactionally replaces the version's prior
// documents with the supplied set (§4.4 write path).
func (d *Driver) UpsertDocumentsForVersion(ctx context.Context, library, version string, documents []store.Document) error {
	tx, err := d.writer.BeginTx(ctx, nil)
	if err != nil {
		return &store.StoreError{Cause: err, Message: "could not begin transaction"}
	}

	defer func() { _ = tx.Rollback() }()

	libraryID, err := d.resolveOrCreateLibrary(ctx, tx, library)
	if err != nil {
		return &store.StoreError{Cause: err, Message: "could not resolve library"}
	}

	versionID, err := d.resolveOrCreateVersion(ctx, tx, libraryID, version)
	if err != nil {
		return &store.StoreError{Cause: err, Message: "could not resolve version"}
	}

	// documents_vec is a vec0 virtual table; it does not honor the
	// documents table's ON DELETE CASCADE, so stale embedding rows must be
	// cleared explicitly before re-indexing a version.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM documents_vec WHERE rowid IN (SELECT id FROM documents WHERE version_id = ?)
	`, versionID); err != nil {
		return &store.StoreError{Cause: err, Message: "could not clear prior vector rows"}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE version_id = ?`, versionID); err != nil {
		return &store.StoreError{Cause: err, Message: "could not clear prior documents"}
	}

	for _, doc := range documents {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return &store.StoreError{Cause: err, Message: "could not marshal document metadata"}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (library_id, version_id, url, content, metadata, sort_order)
			VALUES (?, ?, ?, ?, ?, ?)
		`, libraryID, versionID, doc.URL, doc.Content, string(metadataJSON), doc.SortOrder)
		if err != nil {
			return &store.StoreError{Cause: err, Message: "could not insert document"}
		}

		rowID, err := res.LastInsertId()
		if err != nil {
			return &store.StoreError{Cause: err, Message: "could not read inserted document id"}
		}

		if len(doc.Embedding) == 0 {
			continue
		}

		serialized, err := sqlitevec.SerializeFloat32(doc.Embedding)
		if err != nil {
			// embedding errors never abort document insertion (§4.4).
			if d.logger != nil {
				d.logger.Warn("could not serialize embedding, document remains fts-only", "url", doc.URL, "error", err)
			}

			continue
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents_vec (rowid, library_id, version_id, embedding)
			VALUES (?, ?, ?, ?)
		`, rowID, libraryID, versionID, serialized); err != nil {
			if d.logger != nil {
				d.logger.Warn("could not insert vector row, document remains fts-only", "url", doc.URL, "error", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &store.StoreError{Cause: err, Message: "could not commit document batch"}
	}

	return nil
}

// RemoveVersion deletes the version row; ON DELETE CASCADE removes its
// documents and, via trigger, their FTS rows. documents_vec is a virtual
// table outside that cascade and is cleared explicitly first.
func (d *Driver) RemoveVersion(ctx context.Context, library, version string) error {
	tx, err := d.writer.BeginTx(ctx, nil)
	if err != nil {
		return &store.StoreError{Cause: err, Message: "could not begin transaction"}
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM documents_vec WHERE rowid IN (
			SELECT d.id FROM documents d
			JOIN versions v ON v.id = d.version_id
			JOIN libraries l ON l.id = v.library_id
			WHERE l.name = ? AND v.name = ?
		)
	`, library, version); err != nil {
		return &store.StoreError{Cause: err, Message: "could not clear vector rows"}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM versions
		WHERE library_id = (SELECT id FROM libraries WHERE name = ?) AND name = ?
	`, library, version); err != nil {
		return &store.StoreError{Cause: err, Message: "could not remove version"}
	}

	if err := tx.Commit(); err != nil {
		return &store.StoreError{Cause: err, Message: "could not commit version removal"}
	}

	return nil
}

type librariesRow struct {
	Library          string     `db:"library"`
	VersionName      string     `db:"version_name"`
	Status           string     `db:"status"`
	ProgressPages    int        `db:"progress_pages"`
	ProgressMaxPages int        `db:"progress_max_pages"`
	SourceURL        *string    `db:"source_url"`
	UpdatedAt        time.Time  `db:"updated_at"`
	DocumentCount    int        `db:"document_count"`
}

// ListLibraries groups every version under its library, adapting the
// teacher's path-tree grouping pattern to a two-level (library, version)
// hierarchy instead of a filesystem-style path.
func (d *Driver) ListLibraries(ctx context.Context) ([]store.LibrarySummary, error) {
	query, args, err := statementBuilder.
		Select(
			"l.name AS library",
			"v.name AS version_name",
			"v.status",
			"v.progress_pages",
			"v.progress_max_pages",
			"v.source_url",
			"v.updated_at",
			"COUNT(d.id) AS document_count",
		).
		From("libraries l").
		Join("versions v ON v.library_id = l.id").
		LeftJoin("documents d ON d.version_id = v.id").
		GroupBy("l.name", "v.id").
		OrderBy("l.name", "v.name").
		ToSql()
	if err != nil {
		return nil, &store.StoreError{Cause: err, Message: "could not build listLibraries query"}
	}

	var rows []librariesRow

	if err := sqlscan.Select(ctx, d.reader, &rows, query, args...); err != nil {
		return nil, &store.StoreError{Cause: err, Message: "could not list libraries"}
	}

	tree := pathtree.New[*store.VersionSummary]()

	for _, row := range rows {
		segment := row.VersionName
		if segment == "" {
			segment = unversionedSegment
		}

		updatedAt := row.UpdatedAt

		tree.AddNode(row.Library+"/"+segment, &store.VersionSummary{
			Ref:              row.VersionName,
			Status:           store.Status(row.Status),
			ProgressPages:    row.ProgressPages,
			ProgressMaxPages: row.ProgressMaxPages,
			DocumentCount:    row.DocumentCount,
			IndexedAt:        &updatedAt,
			SourceURL:        row.SourceURL,
		})
	}

	summaries := make([]store.LibrarySummary, 0, len(tree.Children))

	for _, libNode := range tree.Children {
		summary := store.LibrarySummary{Library: libNode.Name}

		for _, versionNode := range libNode.Children {
			if versionNode.Value != nil {
				summary.Versions = append(summary.Versions, *versionNode.Value)
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// FindBestVersion resolves targetVersion against the indexed versions for
// library using partial-semver matching (§4.4).
func (d *Driver) FindBestVersion(ctx context.Context, library, targetVersion string) (store.BestVersionMatch, error) {
	rows, err := d.reader.QueryContext(ctx, `
		SELECT v.name FROM versions v
		JOIN libraries l ON l.id = v.library_id
		WHERE l.name = ? AND v.status = ?
	`, library, store.StatusCompleted)
	if err != nil {
		return store.BestVersionMatch{}, &store.StoreError{Cause: err, Message: "could not load versions"}
	}
	defer rows.Close()

	var candidates []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return store.BestVersionMatch{}, &store.StoreError{Cause: err, Message: "could not scan version"}
		}

		candidates = append(candidates, name)
	}

	hasUnversioned := semver.HasUnversioned(candidates)

	best, ok := semver.Resolve(candidates, targetVersion)

	return store.BestVersionMatch{
		BestMatch:         best,
		Found:             ok,
		HasUnversioned:    hasUnversioned,
		AvailableVersions: candidates,
	}, nil
}

// SetVersionStatus updates a version's status and optional progress fields,
// creating the library/version row if absent.
func (d *Driver) SetVersionStatus(ctx context.Context, library, version string, status store.Status, fields store.VersionStatusFields) error {
	tx, err := d.writer.BeginTx(ctx, nil)
	if err != nil {
		return &store.StoreError{Cause: err, Message: "could not begin transaction"}
	}

	defer func() { _ = tx.Rollback() }()

	libraryID, err := d.resolveOrCreateLibrary(ctx, tx, library)
	if err != nil {
		return &store.StoreError{Cause: err, Message: "could not resolve library"}
	}

	versionID, err := d.resolveOrCreateVersion(ctx, tx, libraryID, version)
	if err != nil {
		return &store.StoreError{Cause: err, Message: "could not resolve version"}
	}

	update := statementBuilder.Update("versions").
		Set("status", string(status)).
		Set("updated_at", time.Now().UTC().Format(time.RFC3339)).
		Where(squirrel.Eq{"id": versionID})

	if fields.SourceURL != nil {
		update = update.Set("source_url", *fields.SourceURL)
	}

	if fields.ProgressPages != nil {
		update = update.Set("progress_pages", *fields.ProgressPages)
	}

	if fields.ProgressMaxPages != nil {
		update = update.Set("progress_max_pages", *fields.ProgressMaxPages)
	}

	if fields.ErrorMessage != nil {
		update = update.Set("error_message", *fields.ErrorMessage)
	}

	if fields.StartedAt != nil {
		update = update.Set("started_at", fields.StartedAt.UTC().Format(time.RFC3339))
	}

	query, args, err := update.ToSql()
	if err != nil {
		return &store.StoreError{Cause: err, Message: "could not build status update"}
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return &store.StoreError{Cause: err, Message: "could not update version status"}
	}

	return tx.Commit()
}

// ReconcileOnStartup fails any version left RUNNING or QUEUED by a process
// that did not shut down cleanly (§4.4). Callers that resume jobs do so
// before invoking this, or re-enqueue afterward.
func (d *Driver) ReconcileOnStartup(ctx context.Context) error {
	_, err := d.writer.ExecContext(ctx, `
		UPDATE versions
		SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status IN (?, ?)
	`, store.StatusFailed, "interrupted", store.StatusRunning, store.StatusQueued)
	if err != nil {
		return &store.StoreError{Cause: err, Message: "could not reconcile startup state"}
	}

	return nil
}
