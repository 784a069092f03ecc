// Package testhelpers holds shared test fakes, adapted from the teacher's
// package of the same name: an in-memory store.Driver for job-pipeline and
// search-facade tests that would otherwise need a real sqlite file.
package testhelpers

import (
	"context"
	"sync"

	"github.com/mentycs/docbrew/internal/semver"
	"github.com/mentycs/docbrew/store"
)

// versionRecord is FakeStore's bookkeeping for one (library, version) pair.
type versionRecord struct {
	library          string
	name             string
	status           store.Status
	sourceURL        *string
	progressPages    int
	progressMaxPages int
	errorMessage     *string
}

// FakeStore is an in-memory store.Driver, keyed by "library@version".
type FakeStore struct {
	mu        sync.Mutex
	versions  map[string]*versionRecord
	documents map[string][]store.Document

	// StatusChanges records every SetVersionStatus call, in order, for
	// assertions about the job pipeline's state machine.
	StatusChanges []StatusChange
}

// StatusChange is one observed SetVersionStatus call.
type StatusChange struct {
	Library string
	Version string
	Status  store.Status
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		versions:  map[string]*versionRecord{},
		documents: map[string][]store.Document{},
	}
}

func key(library, version string) string { return library + "@" + version }

func (f *FakeStore) Close() error { return nil }

func (f *FakeStore) UpsertDocumentsForVersion(_ context.Context, library, version string, documents []store.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.documents[key(library, version)] = documents

	return nil
}

func (f *FakeStore) RemoveVersion(_ context.Context, library, version string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.versions, key(library, version))
	delete(f.documents, key(library, version))

	return nil
}

func (f *FakeStore) ListLibraries(_ context.Context) ([]store.LibrarySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	byLibrary := map[string][]store.VersionSummary{}

	for _, v := range f.versions {
		byLibrary[v.library] = append(byLibrary[v.library], store.VersionSummary{
			Ref:           v.name,
			Status:        v.status,
			DocumentCount: len(f.documents[key(v.library, v.name)]),
		})
	}

	var out []store.LibrarySummary

	for library, versions := range byLibrary {
		out = append(out, store.LibrarySummary{Library: library, Versions: versions})
	}

	return out, nil
}

func (f *FakeStore) FindBestVersion(_ context.Context, library, targetVersion string) (store.BestVersionMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var candidates []string

	for _, v := range f.versions {
		if v.library == library && v.status == store.StatusCompleted {
			candidates = append(candidates, v.name)
		}
	}

	best, ok := semver.Resolve(candidates, targetVersion)

	return store.BestVersionMatch{BestMatch: best, Found: ok, HasUnversioned: semver.HasUnversioned(candidates), AvailableVersions: candidates}, nil
}

func (f *FakeStore) SetVersionStatus(_ context.Context, library, version string, status store.Status, fields store.VersionStatusFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := key(library, version)

	v, ok := f.versions[k]
	if !ok {
		v = &versionRecord{name: version, library: library}
		f.versions[k] = v
	}

	v.status = status

	if fields.SourceURL != nil {
		v.sourceURL = fields.SourceURL
	}

	if fields.ProgressPages != nil {
		v.progressPages = *fields.ProgressPages
	}

	if fields.ProgressMaxPages != nil {
		v.progressMaxPages = *fields.ProgressMaxPages
	}

	if fields.ErrorMessage != nil {
		v.errorMessage = fields.ErrorMessage
	}

	f.StatusChanges = append(f.StatusChanges, StatusChange{Library: library, Version: version, Status: status})

	return nil
}

func (f *FakeStore) ReconcileOnStartup(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, v := range f.versions {
		if v.status == store.StatusRunning || v.status == store.StatusQueued {
			v.status = store.StatusFailed
		}
	}

	return nil
}

// HybridSearch resolves the best matching version the same way the real
// sqlite driver does, returning a *store.VersionNotFoundError when there is
// no completed match instead of an unconditional empty result.
func (f *FakeStore) HybridSearch(ctx context.Context, library, version, _ string, _ int) ([]store.SearchResult, error) {
	match, err := f.FindBestVersion(ctx, library, version)
	if err != nil {
		return nil, err
	}

	if !match.Found {
		return nil, &store.VersionNotFoundError{
			Library:           library,
			Requested:         version,
			HasUnversioned:    match.HasUnversioned,
			AvailableVersions: match.AvailableVersions,
		}
	}

	return nil, nil
}

// Status returns the current status for a (library, version) pair, or
// store.StatusNotIndexed if unseen.
func (f *FakeStore) Status(library, version string) store.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.versions[key(library, version)]
	if !ok {
		return store.StatusNotIndexed
	}

	return v.status
}
