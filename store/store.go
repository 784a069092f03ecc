// Package store defines the hybrid document store's public contract (C4):
// the Library/Version/Document data model, the Driver interface a concrete
// backend must satisfy, and the closed error taxonomy the rest of the core
// translates at its boundaries.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is a Version's lifecycle state (§3).
type Status string

const (
	StatusNotIndexed Status = "NOT_INDEXED"
	StatusQueued     Status = "QUEUED"
	StatusRunning    Status = "RUNNING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusUpdating   Status = "UPDATING"
)

// Library is a unique-by-name namespace under which versions are indexed.
type Library struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Version is one (library, version-name) indexing target.
type Version struct {
	ID               int64      `db:"id"`
	LibraryID        int64      `db:"library_id"`
	Name             string     `db:"name"`
	Status           Status     `db:"status"`
	SourceURL        *string    `db:"source_url"`
	ProgressPages    int        `db:"progress_pages"`
	ProgressMaxPages int        `db:"progress_max_pages"`
	ErrorMessage     *string    `db:"error_message"`
	CreatedAt        time.Time  `db:"created_at"`
	StartedAt        *time.Time `db:"started_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// Document is one chunk of extracted text addressable by (library, version,
// url, sort_order).
type Document struct {
	ID        int64          `db:"id"`
	LibraryID int64          `db:"library_id"`
	VersionID int64          `db:"version_id"`
	URL       string         `db:"url"`
	Content   string         `db:"content"`
	Metadata  map[string]any `db:"-"`
	SortOrder int            `db:"sort_order"`
	// Embedding, when the caller sets it, is written to documents_vec; a nil
	// Embedding means the document is searchable via FTS only (§4.4). The
	// job pipeline does not set it, so documents it indexes are FTS-only.
	Embedding []float32 `db:"-"`
}

// SearchResult is one hybrid-search hit (§6's on-wire payload).
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
	Rank     int            `json:"rank"`
}

// VersionSummary is one entry of listLibraries()'s per-version projection.
type VersionSummary struct {
	Ref              string
	Status           Status
	ProgressPages    int
	ProgressMaxPages int
	DocumentCount    int
	IndexedAt        *time.Time
	SourceURL        *string
}

// LibrarySummary groups VersionSummary rows under their library name.
type LibrarySummary struct {
	Library  string
	Versions []VersionSummary
}

// BestVersionMatch is findBestVersion's result (§4.4).
type BestVersionMatch struct {
	BestMatch         string
	Found             bool
	HasUnversioned    bool
	AvailableVersions []string
}

// Driver is the contract a concrete backend (sqlite) implements.
type Driver interface {
	Close() error

	UpsertDocumentsForVersion(ctx context.Context, library, version string, documents []Document) error
	RemoveVersion(ctx context.Context, library, version string) error
	ListLibraries(ctx context.Context) ([]LibrarySummary, error)
	FindBestVersion(ctx context.Context, library, targetVersion string) (BestVersionMatch, error)
	SetVersionStatus(ctx context.Context, library, version string, status Status, fields VersionStatusFields) error
	ReconcileOnStartup(ctx context.Context) error

	HybridSearch(ctx context.Context, library, version, query string, k int) ([]SearchResult, error)
}

// VersionStatusFields carries the optional fields SetVersionStatus may
// update alongside status.
type VersionStatusFields struct {
	SourceURL        *string
	ProgressPages    *int
	ProgressMaxPages *int
	ErrorMessage     *string
	StartedAt        *time.Time
}

// ErrNotFound marks an expected absence (a library, version, or document
// row that does not exist), matching the teacher's sentinel-error style.
var ErrNotFound = errors.New("not found")

// ToolError is an invalid input to a facade operation (§7).
type ToolError struct {
	Message string
}

func (e *ToolError) Error() string { return e.Message }

// StoreError is a DB or migration failure (§7).
type StoreError struct {
	Cause   error
	Message string
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}

	return e.Message
}

func (e *StoreError) Unwrap() error { return e.Cause }

// VersionNotFoundError is raised by version resolution failure (§4.4, §7).
type VersionNotFoundError struct {
	Library            string
	Requested          string
	AvailableVersions  []string
	HasUnversioned     bool
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("no version of %q satisfies %q", e.Library, e.Requested)
}
