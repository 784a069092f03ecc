// Package content implements the content pipeline layer (C2): a closed set
// of Pipeline implementations, registered the same way fetch registers
// Fetchers, dispatched by first-match canProcess over a RawContent.
package content

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mentycs/docbrew/fetch"
)

// Issue is one non-fatal problem encountered while processing, e.g. a
// sub-resource that failed to resolve.
type Issue struct {
	Message string
}

// Metadata carries the free-form fields a pipeline extracts, e.g. title and
// description, plus whatever pipeline-specific keys it chooses to add.
type Metadata map[string]any

// ProcessedContent is the normalized result of running a pipeline over a
// fetch.RawContent.
type ProcessedContent struct {
	TextContent string
	Metadata    Metadata
	Links       []string
	Errors      []Issue
}

// Options configure how a pipeline should process a document; ScrapeMode
// governs HTML rendering (§4.2).
type Options struct {
	ScrapeMode string // "fetch", "playwright", "auto"
	BaseURL    string
}

// Pipeline transforms a fetch.RawContent into a ProcessedContent. Fetcher is
// passed through so a pipeline can issue secondary fetches (e.g. a headless
// render) using the same fetcher the crawl is already using.
type Pipeline interface {
	Name() string
	CanProcess(raw *fetch.RawContent) bool
	Process(ctx context.Context, raw *fetch.RawContent, opts Options) (*ProcessedContent, error)
	Close() error
}

// Factory builds a pipeline instance.
type Factory func() Pipeline

var (
	registryMu sync.RWMutex
	order      []string
	registry   = map[string]Factory{}
)

// Register adds a pipeline implementation under name. Call from init().
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("content: pipeline %q already registered", name))
	}

	registry[name] = factory
	order = append(order, name)
}

// List returns registered pipeline names in registration order.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]string, len(order))
	copy(out, order)

	return out
}

// Names returns registered pipeline names sorted alphabetically.
func Names() []string {
	names := List()
	sort.Strings(names)

	return names
}

// Resolve returns the first registered pipeline whose CanProcess(raw) is
// true, in registration order. The caller owns calling Close() when done.
func Resolve(raw *fetch.RawContent) (Pipeline, bool) {
	registryMu.RLock()
	names := make([]string, len(order))
	copy(names, order)
	registryMu.RUnlock()

	for _, name := range names {
		registryMu.RLock()
		factory := registry[name]
		registryMu.RUnlock()

		p := factory()
		if p.CanProcess(raw) {
			return p, true
		}
	}

	return nil, false
}
