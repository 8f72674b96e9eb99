package main

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// searchSession is the top-level state machine for one search page view.
// it exclusively owns the canonical query state (free text, page, rows,
// facet selections), drives the debounced remote query, keeps the address
// bar in sync, and tracks the page-change-in-flight flag that reroutes the
// loading indicators.
//
// all state transitions happen under one mutex, on discrete events: user
// input, debounce timer firings, and network completions.  in-flight
// queries are never aborted; a response is compared against the current
// query key before it is applied, so a slow response for an old query can
// never overwrite state belonging to a newer one.

type searcher interface {
	search(ctx context.Context, query *searchQuery) (*searchResult, error)
}

type pageDirection int

const (
	pageDirectionNone pageDirection = iota
	pageDirectionPrevious
	pageDirectionNext
)

const sessionResultCacheSize = 64

type searchSession struct {
	mu            sync.Mutex
	archive       searcher
	fetcher       *facetFetcher
	panel         *facetPanel
	searchText    string
	debouncedTerm string
	page          int
	rows          int
	selections    facetSelections
	pending       pageDirection
	fetching      bool
	inFlightKey   string
	result        *searchResult
	cache         *lru.Cache[string, *searchResult]
	debounce      *debouncer[string]
	panelOpen     bool
	lastURLQuery  string
	onChange      func()
	navigate      func(urlQuery string)
}

// newSearchSession derives its initial state from a parsed address-bar
// query (the sole persisted representation of search state across a page
// load).  navigate receives the rewritten query string on every state
// change that affects the URL; it must perform a history-replacing update,
// never a reload.
func newSearchSession(archive searcher, source candidateSource, initial *searchQuery, cfg *serviceConfigSearch, onChange func(), navigate func(string)) *searchSession {
	cache, _ := lru.New[string, *searchResult](sessionResultCacheSize)

	s := searchSession{
		archive:       archive,
		searchText:    initial.term,
		debouncedTerm: initial.term,
		page:          initial.page,
		rows:          initial.rows,
		selections:    initial.selections,
		cache:         cache,
		onChange:      onChange,
		navigate:      navigate,
	}

	if s.selections == nil {
		s.selections = make(facetSelections)
	}

	s.debounce = newDebouncer[string](time.Duration(cfg.DebounceMS)*time.Millisecond, s.commitTerm)
	s.fetcher = newFacetFetcher(source, time.Duration(cfg.FacetRetryMS)*time.Millisecond, s.candidatesChanged)
	s.panel = newFacetPanel(&s, time.Duration(cfg.ThrottleMS)*time.Millisecond, cfg.FacetsPerPage)

	return &s
}

// start kicks off the initial query and facet candidate fetches for the
// state the session was created with.
func (s *searchSession) start() {
	s.mu.Lock()
	s.triggerQuery()
	s.mu.Unlock()

	s.fetcher.setTerm(s.currentTerm())
	s.notify()
}

func (s *searchSession) stop() {
	s.debounce.stop()
	s.fetcher.stop()
	s.panel.stop()
}

func (s *searchSession) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// setSearchText records every keystroke immediately and resets to the first
// page; the remote query itself only reacts once the debounced term settles.
func (s *searchSession) setSearchText(text string) {
	s.mu.Lock()
	s.searchText = text
	s.page = 1
	s.mu.Unlock()

	s.debounce.set(text)
	s.notify()
}

// commitTerm is the debounce boundary: the stabilized term becomes the
// query term, and the facet candidate fetches are repointed at it.
//
// the query is re-evaluated even when the term lands back on its previous
// value: the keystrokes that led here already reset the page, so the query
// key may have changed.  triggerQuery's key dedupe absorbs true no-ops.
func (s *searchSession) commitTerm(term string) {
	s.mu.Lock()

	termChanged := term != s.debouncedTerm

	s.debouncedTerm = term
	s.triggerQuery()
	s.mu.Unlock()

	if termChanged == true {
		s.fetcher.setTerm(term)
		s.panel.searchTermChanged()
	}

	s.notify()
}

// candidatesChanged runs whenever a facet group's candidate set loads or
// fails.  the reconciled selections feed the query key, so a candidate
// change can invalidate the current result and require a refetch.
func (s *searchSession) candidatesChanged() {
	s.mu.Lock()
	s.triggerQuery()
	s.mu.Unlock()

	s.notify()
}

func (s *searchSession) nextPage() {
	s.mu.Lock()
	s.page++
	s.pending = pageDirectionNext
	s.panelOpen = false
	s.triggerQuery()
	s.mu.Unlock()

	s.panel.close()
	s.notify()
}

func (s *searchSession) prevPage() {
	s.mu.Lock()

	if s.page <= 1 {
		s.mu.Unlock()
		return
	}

	s.page--
	s.pending = pageDirectionPrevious
	s.panelOpen = false
	s.triggerQuery()
	s.mu.Unlock()

	s.panel.close()
	s.notify()
}

// setFacetSelections is the selection callback from the facet panel: the
// new list replaces the group's previous entry wholesale.  the result set
// changes shape, so the page position resets to 1.
func (s *searchSession) setFacetSelections(group facetGroup, list []facet) {
	s.mu.Lock()
	s.selections = s.selections.withGroup(group, list)
	s.page = 1
	s.triggerQuery()
	s.mu.Unlock()

	s.notify()
}

// setPanelOpen is reported upward by the facet panel so the session can
// relocate the main loading spinner while the panel is expanded.
func (s *searchSession) setPanelOpen(open bool) {
	s.mu.Lock()
	s.panelOpen = open
	s.mu.Unlock()

	s.notify()
}

// currentQuery assembles the outbound query.  the facet constraint uses the
// *reconciled* selections: values no longer present in a loaded candidate
// set are dropped, so the query never carries a constraint that cannot
// match.  callers must hold s.mu.
func (s *searchSession) currentQuery() *searchQuery {
	return &searchQuery{
		term:       s.debouncedTerm,
		selections: reconcileSelections(s.selections, s.fetcher.candidates()),
		page:       s.page,
		rows:       s.rows,
	}
}

// triggerQuery re-evaluates the query key and starts a fetch if the key is
// new.  identical keys are satisfied from the memoization cache or by the
// already in-flight request.  callers must hold s.mu.
func (s *searchSession) triggerQuery() {
	query := s.currentQuery()

	if query.term == "" {
		s.result = nil
		s.fetching = false
		s.inFlightKey = ""
		s.pending = pageDirectionNone
		s.updateURL()
		return
	}

	key := query.key()

	if cached, ok := s.cache.Get(key); ok == true {
		s.result = cached
		s.fetching = false
		s.inFlightKey = ""
		s.pending = pageDirectionNone
		s.updateURL()
		return
	}

	if s.fetching == true && s.inFlightKey == key {
		return
	}

	s.fetching = true
	s.inFlightKey = key

	go s.runQuery(query, key)
}

func (s *searchSession) runQuery(query *searchQuery, key string) {
	result, err := s.archive.search(context.Background(), query)
	s.applyResult(key, result, err)
}

// applyResult commits a completed query, unless its causal key has been
// superseded, in which case the response is silently discarded.
func (s *searchSession) applyResult(key string, result *searchResult, err error) {
	s.mu.Lock()

	if key != s.currentQuery().key() {
		if s.inFlightKey == key {
			s.inFlightKey = ""
		}

		s.mu.Unlock()
		return
	}

	s.fetching = false
	s.inFlightKey = ""
	s.pending = pageDirectionNone

	if err != nil {
		// upstream failure is "no result", not an exception; the user
		// retries by editing the term
		s.result = nil
	} else {
		s.result = result

		if result != nil {
			s.cache.Add(key, result)
		}
	}

	s.updateURL()
	s.mu.Unlock()

	s.notify()
}

// updateURL rewrites the address bar query string whenever the persisted
// parts of the state change.  one-directional: state drives the URL; the
// URL is only read back on a full page load.  callers must hold s.mu.
func (s *searchSession) updateURL() {
	encoded := encodeSearchURLQuery(s.debouncedTerm, s.page, s.rows, s.selections)

	if encoded == s.lastURLQuery {
		return
	}

	s.lastURLQuery = encoded

	if s.navigate != nil {
		s.navigate(encoded)
	}
}

// derived view state

func (s *searchSession) isFetching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetching
}

func (s *searchSession) isChangingPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending != pageDirectionNone
}

func (s *searchSession) pendingDirection() pageDirection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending
}

func (s *searchSession) currentTerm() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.debouncedTerm
}

func (s *searchSession) currentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.page
}

func (s *searchSession) currentResult() *searchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.result
}

func (s *searchSession) currentSelections() facetSelections {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selections
}

func (s *searchSession) hasResults() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.result != nil && len(s.result.docs) > 0
}

func (s *searchSession) hasMoreResults() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.result != nil && hasMorePages(s.result.totalFound, s.rows, s.page)
}

func (s *searchSession) resultPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return 0
	}

	return totalPages(s.result.totalFound, s.rows)
}

// statusMessageID derives the message shown in the results area: nothing
// while a query is in flight (a spinner shows instead), a start-typing
// prompt for the inert empty term, a no-results message for an empty result
// set, and nothing when results render.
func (s *searchSession) statusMessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetching == true {
		return ""
	}

	if s.debouncedTerm == "" {
		return msgIDStatusStartTyping
	}

	if s.result != nil && len(s.result.docs) == 0 {
		return msgIDStatusNoResults
	}

	return ""
}

// pagination control visibility.  the pending-direction clause keeps a
// control visible (with its own spinner) through the page transition so it
// does not flicker out and back.

func (s *searchSession) showPreviousControl() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != pageDirectionNone {
		return true
	}

	return s.page > 1 && s.result != nil && len(s.result.docs) > 0
}

func (s *searchSession) showNextControl() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != pageDirectionNone {
		return true
	}

	return s.result != nil && hasMorePages(s.result.totalFound, s.rows, s.page)
}

// spinner placement: a page change activates the page-button-local spinner
// only; otherwise the main spinner shows, relocated to a corner while the
// facet panel is open.

func (s *searchSession) showMainSpinner() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetching == true && s.pending == pageDirectionNone && s.panelOpen == false
}

func (s *searchSession) showPanelCornerSpinner() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetching == true && s.pending == pageDirectionNone && s.panelOpen == true
}

// address bar contract: any=<term>&page=<n>&rows=<n> plus one repeated
// facet:<groupId>=<value> pair per selected value.  this is the only
// persisted representation of search state.

func encodeSearchURLQuery(term string, page int, rows int, selections facetSelections) string {
	qp := url.Values{}

	qp.Set("any", term)
	qp.Set("page", strconv.Itoa(page))
	qp.Set("rows", strconv.Itoa(rows))

	for _, group := range facetGroupRegistry {
		for _, f := range selections[group.IDName] {
			qp.Add("facet:"+group.IDName, f.Value)
		}
	}

	return qp.Encode()
}

// parseSearchURLQuery rebuilds a query from address bar parameters on a
// full page load.  out-of-range page/rows fall back to sane values;
// facet parameters naming unknown groups are ignored.
func parseSearchURLQuery(qp url.Values, defaultRows int) *searchQuery {
	query := searchQuery{
		term:       qp.Get("any"),
		selections: make(facetSelections),
		page:       1,
		rows:       defaultRows,
	}

	if page, err := strconv.Atoi(qp.Get("page")); err == nil {
		query.page = restrictValue("page", page, 1, 1)
	}

	if rows, err := strconv.Atoi(qp.Get("rows")); err == nil {
		query.rows = restrictValue("rows", rows, 1, defaultRows)
	}

	for key, values := range qp {
		if strings.HasPrefix(key, "facet:") == false {
			continue
		}

		group, ok := facetGroupByID(strings.TrimPrefix(key, "facet:"))
		if ok == false {
			continue
		}

		for _, value := range values {
			if facetListContainsValue(query.selections[group.IDName], value) == true {
				continue
			}

			query.selections[group.IDName] = append(query.selections[group.IDName], facet{Group: group, Value: value})
		}
	}

	return &query
}
