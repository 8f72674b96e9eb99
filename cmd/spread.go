package main

import (
	"context"
	"log"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// book reader spreads: a text item's page images arrive as a list of
// one- or two-page groups (covers stand alone, interior pages pair up).
// navigation is by spread, with a 0-based index that can be seeded from a
// deep link.

type bookSpread struct {
	Left  bookPageImage
	Right *bookPageImage
}

type bookManifest struct {
	identifier string
	spreads    []bookSpread
}

// buildBookManifest converts the raw page-image groups into typed spreads.
// groups with no pages are dropped; a third page in a group would be
// malformed upstream data and is ignored.
func buildBookManifest(identifier string, groups [][]bookPageImage) *bookManifest {
	manifest := bookManifest{identifier: identifier}

	for _, group := range groups {
		if len(group) == 0 {
			continue
		}

		spread := bookSpread{Left: group[0]}

		if len(group) > 1 {
			right := group[1]
			spread.Right = &right
		}

		manifest.spreads = append(manifest.spreads, spread)
	}

	return &manifest
}

type manifestSource interface {
	bookManifest(ctx context.Context, identifier string) (*bookManifest, error)
}

const manifestCacheSize = 16

// spreadNavigator drives the reading view for one client: it loads (and
// memoizes) manifests by identifier and tracks the current spread index.
// concurrent loads for the same identifier coalesce onto one upstream
// fetch.
//
// a manifest that cannot be resolved -- missing item, no book server, or
// an empty manifest -- puts the navigator in a terminal cannot-display
// state for that item; it is reported to the user and never retried.
type spreadNavigator struct {
	mu            sync.Mutex
	source        manifestSource
	cache         *lru.Cache[string, *bookManifest]
	inFlight      map[string]bool
	identifier    string
	manifest      *bookManifest
	index         int
	loading       bool
	cannotDisplay bool
	onChange      func()
}

func newSpreadNavigator(source manifestSource, onChange func()) *spreadNavigator {
	cache, _ := lru.New[string, *bookManifest](manifestCacheSize)

	return &spreadNavigator{
		source:   source,
		cache:    cache,
		inFlight: make(map[string]bool),
		onChange: onChange,
	}
}

func (n *spreadNavigator) notify() {
	if n.onChange != nil {
		n.onChange()
	}
}

// load points the navigator at an item and resolves its manifest.  the
// initial spread comes from a deep link and is clamped into the manifest's
// valid range once the spread count is known.
func (n *spreadNavigator) load(ctx context.Context, identifier string, initialSpread int) {
	n.mu.Lock()

	n.identifier = identifier
	n.manifest = nil
	n.index = initialSpread
	n.cannotDisplay = false

	if initialSpread < 0 {
		n.index = 0
	}

	if cached, ok := n.cache.Get(identifier); ok == true {
		n.applyManifest(identifier, cached)
		n.mu.Unlock()
		n.notify()
		return
	}

	// a fetch for this identifier is already underway; it will apply here
	// when it lands
	if n.inFlight[identifier] == true {
		n.loading = true
		n.mu.Unlock()
		n.notify()
		return
	}

	n.inFlight[identifier] = true
	n.loading = true
	n.mu.Unlock()
	n.notify()

	go n.fetchManifest(ctx, identifier)
}

func (n *spreadNavigator) fetchManifest(ctx context.Context, identifier string) {
	manifest, err := n.source.bookManifest(ctx, identifier)

	n.mu.Lock()

	delete(n.inFlight, identifier)

	if err != nil {
		log.Printf("[READER] manifest for [%s] failed: %s", identifier, err.Error())
	} else {
		n.cache.Add(identifier, manifest)
	}

	if n.identifier == identifier {
		n.loading = false

		if err != nil {
			n.cannotDisplay = true
		} else {
			n.applyManifest(identifier, manifest)
		}
	}

	n.mu.Unlock()

	n.notify()
}

// applyManifest installs a resolved manifest and clamps the pending spread
// index into range.  callers must hold n.mu.
func (n *spreadNavigator) applyManifest(identifier string, manifest *bookManifest) {
	n.manifest = manifest
	n.loading = false
	n.cannotDisplay = false
	n.index = clampSpreadIndex(n.index, len(manifest.spreads))
}

func (n *spreadNavigator) isLoading() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.loading
}

func (n *spreadNavigator) isCannotDisplay() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.cannotDisplay
}

func (n *spreadNavigator) currentIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.index
}

func (n *spreadNavigator) spreadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.manifest == nil {
		return 0
	}

	return len(n.manifest.spreads)
}

// currentSpread returns the visible spread, or nil while loading or in the
// cannot-display state.
func (n *spreadNavigator) currentSpread() *bookSpread {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.manifest == nil || n.index >= len(n.manifest.spreads) {
		return nil
	}

	spread := n.manifest.spreads[n.index]

	return &spread
}

func (n *spreadNavigator) hasPrevious() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.manifest != nil && n.index > 0
}

func (n *spreadNavigator) hasMore() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.manifest != nil && len(n.manifest.spreads) > n.index+1
}

// goNext and goPrevious move one spread at a time and are inert at the
// manifest bounds.

func (n *spreadNavigator) goNext() {
	n.mu.Lock()

	if n.manifest == nil || len(n.manifest.spreads) <= n.index+1 {
		n.mu.Unlock()
		return
	}

	n.index++
	n.mu.Unlock()

	n.notify()
}

func (n *spreadNavigator) goPrevious() {
	n.mu.Lock()

	if n.manifest == nil || n.index <= 0 {
		n.mu.Unlock()
		return
	}

	n.index--
	n.mu.Unlock()

	n.notify()
}

// parseSpreadParam reads a deep-linked spread index; anything unparseable
// or negative falls back to the first spread.
func parseSpreadParam(raw string) int {
	spread, err := strconv.Atoi(raw)

	if err != nil || spread < 0 {
		return 0
	}

	return spread
}

// clampSpreadIndex forces an index into a manifest's valid range.  a
// deep link past the last spread lands on the last spread, not an error.
func clampSpreadIndex(index int, total int) int {
	if total <= 0 || index < 0 {
		return 0
	}

	if index > total-1 {
		return total - 1
	}

	return index
}
