// Package fetch implements the scraping pipeline's fetcher layer (C1): a
// closed set of Fetcher implementations selected by first-match canHandle,
// registered the way the teacher registers storage drivers and resources —
// a package-level map populated from each implementation's init().
package fetch

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// RawContent is the byte-level result of a fetch, before any content
// pipeline runs.
type RawContent struct {
	Content  []byte
	MimeType string
	Charset  string
	Encoding string
	// Source is the final URL after following redirects.
	Source string
}

// Options configure a single fetch call. Headers override the fetcher's
// built-in defaults; FollowRedirects and Timeout are per-request.
type Options struct {
	Headers         map[string]string
	FollowRedirects bool
	Timeout         int64 // milliseconds, 0 means fetcher default
}

// Fetcher retrieves raw bytes for a source. canHandle is checked in
// registration order; the first match wins.
type Fetcher interface {
	Name() string
	CanHandle(source string) bool
	Fetch(ctx context.Context, source string, opts Options) (*RawContent, error)
}

// Factory builds a fetcher instance; fetchers are typically stateless and
// the factory can return a shared instance.
type Factory func() Fetcher

var (
	registryMu sync.RWMutex
	order      []string
	registry   = map[string]Factory{}
)

// Register adds a fetcher implementation under name. Call from init().
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("fetch: fetcher %q already registered", name))
	}

	registry[name] = factory
	order = append(order, name)
}

// List returns registered fetcher names in registration order.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]string, len(order))
	copy(out, order)

	return out
}

// Names returns registered fetcher names sorted alphabetically, useful for
// diagnostics where a stable order matters more than registration order.
func Names() []string {
	names := List()
	sort.Strings(names)

	return names
}

// Resolve returns the first registered fetcher whose CanHandle(source) is
// true, in registration order.
func Resolve(source string) (Fetcher, bool) {
	registryMu.RLock()
	names := make([]string, len(order))
	copy(names, order)
	registryMu.RUnlock()

	for _, name := range names {
		registryMu.RLock()
		factory := registry[name]
		registryMu.RUnlock()

		f := factory()
		if f.CanHandle(source) {
			return f, true
		}
	}

	return nil, false
}
