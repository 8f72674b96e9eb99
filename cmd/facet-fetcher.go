package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// facetFetcher keeps the candidate facet lists for every group in the
// registry current against the debounced search term.  each group fetches
// independently and concurrently: a slow or failing group never blocks the
// others.  fetches for a superseded term are cancelled, and any response
// that still arrives is discarded by generation check before it can
// overwrite newer state.

type candidateSource interface {
	facetCandidates(ctx context.Context, groupID string, term string) ([]facet, error)
}

type facetGroupState struct {
	group   facetGroup
	loading bool
	err     error
	facets  []facet
}

type facetFetcher struct {
	mu         sync.Mutex
	source     candidateSource
	retryDelay time.Duration
	generation int
	term       string
	cancel     context.CancelFunc
	groups     map[string]*facetGroupState
	onUpdate   func()
}

func newFacetFetcher(source candidateSource, retryDelay time.Duration, onUpdate func()) *facetFetcher {
	f := facetFetcher{
		source:     source,
		retryDelay: retryDelay,
		groups:     make(map[string]*facetGroupState),
		onUpdate:   onUpdate,
	}

	for _, group := range facetGroupRegistry {
		f.groups[group.IDName] = &facetGroupState{group: group}
	}

	return &f
}

// setTerm points every group at a new causal term.  previous in-flight
// fetches are cancelled; their generation is stale so late responses are
// dropped either way.  an empty term is the inert state: no candidates are
// fetched and all groups reset to idle.
func (f *facetFetcher) setTerm(term string) {
	f.mu.Lock()

	if term == f.term && f.generation > 0 {
		f.mu.Unlock()
		return
	}

	f.term = term
	f.generation++
	generation := f.generation

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}

	if term == "" {
		for _, state := range f.groups {
			state.loading = false
			state.err = nil
			state.facets = nil
		}

		f.mu.Unlock()
		f.notify()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	for _, state := range f.groups {
		state.loading = true
		state.err = nil
		state.facets = nil

		go f.fetchGroup(ctx, generation, state.group, term)
	}

	f.mu.Unlock()
	f.notify()
}

// fetchGroup retries at a fixed interval for as long as the term remains
// current; a group that keeps failing keeps its error visible while it
// retries.  cancellation of ctx (term superseded, fetcher stopped) ends the
// loop.
func (f *facetFetcher) fetchGroup(ctx context.Context, generation int, group facetGroup, term string) {
	policy := backoff.WithContext(backoff.NewConstantBackOff(f.retryDelay), ctx)

	operation := func() error {
		facets, err := f.source.facetCandidates(ctx, group.IDName, term)

		if err != nil {
			log.Printf("[FACET] group %s fetch failed (will retry): %s", group.IDName, err.Error())
			f.markFailed(generation, group.IDName, err)
			return err
		}

		f.markLoaded(generation, group.IDName, facets)

		return nil
	}

	// retry result is ignored: either the group loaded, or the context was
	// cancelled because the term moved on
	backoff.Retry(operation, policy)
}

func (f *facetFetcher) markFailed(generation int, groupID string, err error) {
	f.mu.Lock()

	if generation != f.generation {
		f.mu.Unlock()
		return
	}

	state := f.groups[groupID]
	state.err = err

	f.mu.Unlock()
	f.notify()
}

func (f *facetFetcher) markLoaded(generation int, groupID string, facets []facet) {
	f.mu.Lock()

	// stale response for an old term; never let it overwrite newer state
	if generation != f.generation {
		f.mu.Unlock()
		return
	}

	state := f.groups[groupID]
	state.loading = false
	state.err = nil
	state.facets = facets

	f.mu.Unlock()
	f.notify()
}

func (f *facetFetcher) notify() {
	if f.onUpdate != nil {
		f.onUpdate()
	}
}

// candidates returns the loaded candidate sets, keyed by group id.  groups
// still loading or failed are simply absent; the reconciler treats absence
// as pass-through.
func (f *facetFetcher) candidates() map[string][]facet {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string][]facet)

	for id, state := range f.groups {
		if state.loading == false && state.err == nil && state.facets != nil {
			out[id] = state.facets
		}
	}

	return out
}

func (f *facetFetcher) groupStatus(groupID string) (loading bool, failed bool, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.groups[groupID]
	if ok == false {
		return false, false, 0
	}

	return state.loading, state.err != nil, len(state.facets)
}

func (f *facetFetcher) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}
