package main

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	mu         sync.Mutex
	delay      time.Duration
	totalFound int
	terms      []string
}

func (s *fakeSearcher) search(ctx context.Context, query *searchQuery) (*searchResult, error) {
	if query.term == "" {
		return nil, nil
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	s.terms = append(s.terms, query.term)
	s.mu.Unlock()

	docCount := s.totalFound - (query.page-1)*query.rows

	if docCount > query.rows {
		docCount = query.rows
	}

	if docCount < 0 {
		docCount = 0
	}

	docs := []archiveDoc{}
	for i := 0; i < docCount; i++ {
		docs = append(docs, archiveDoc{Identifier: query.term, Title: query.term, MediaType: mediaTypeTexts})
	}

	return &searchResult{totalFound: s.totalFound, docs: docs}, nil
}

func (s *fakeSearcher) searchedTerms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.terms))
	copy(out, s.terms)

	return out
}

func testSearchConfig() *serviceConfigSearch {
	return &serviceConfigSearch{
		DefaultRows:   50,
		DebounceMS:    10,
		ThrottleMS:    5,
		FacetsPerPage: 2,
		FacetRetryMS:  10,
	}
}

func newTestSession(searcher *fakeSearcher) *searchSession {
	initial := parseSearchURLQuery(url.Values{}, 50)

	s := newSearchSession(searcher, &fakeCandidateSource{}, initial, testSearchConfig(), nil, nil)
	s.start()

	return s
}

func TestSessionEmptyTermIsInert(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120}

	s := newTestSession(&searcher)
	defer s.stop()

	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, searcher.searchedTerms())
	assert.Equal(t, msgIDStatusStartTyping, s.statusMessageID())
	assert.False(t, s.showNextControl())
	assert.False(t, s.showPreviousControl())
}

func TestSessionDebouncedTermTriggersQuery(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("c")
	s.setSearchText("ca")
	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	// intermediate keystrokes never reached the archive
	assert.Equal(t, []string{"cats"}, searcher.searchedTerms())
	assert.Equal(t, 1, s.currentPage())
	assert.Equal(t, "", s.statusMessageID())
}

func TestSessionNoResultsMessage(t *testing.T) {
	searcher := fakeSearcher{totalFound: 0}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("xyzzy")

	waitFor(t, func() bool {
		return s.statusMessageID() == msgIDStatusNoResults
	})

	assert.False(t, s.hasResults())
	assert.False(t, s.showNextControl())
}

func TestSessionPaginationControls(t *testing.T) {
	// 120 results at 50 rows: three pages
	searcher := fakeSearcher{totalFound: 120}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	assert.False(t, s.showPreviousControl())
	assert.True(t, s.showNextControl())

	s.nextPage()

	waitFor(t, func() bool {
		return s.currentPage() == 2 && s.isChangingPage() == false
	})

	assert.True(t, s.showPreviousControl())
	assert.True(t, s.showNextControl())

	s.nextPage()

	waitFor(t, func() bool {
		return s.currentPage() == 3 && s.isChangingPage() == false
	})

	assert.True(t, s.showPreviousControl())
	assert.False(t, s.showNextControl())
}

func TestSessionNextControlHiddenAtExactMultiple(t *testing.T) {
	// 100 results at 50 rows: page 2 is the last page
	searcher := fakeSearcher{totalFound: 100}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	s.nextPage()

	waitFor(t, func() bool {
		return s.currentPage() == 2 && s.isChangingPage() == false
	})

	assert.False(t, s.showNextControl())
}

func TestSessionControlsStayVisibleDuringPageChange(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120, delay: 50 * time.Millisecond}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	s.nextPage()

	// while the page query is in flight both controls remain visible and
	// the main spinner stays off
	assert.True(t, s.isChangingPage())
	assert.True(t, s.showPreviousControl())
	assert.True(t, s.showNextControl())
	assert.False(t, s.showMainSpinner())

	waitFor(t, func() bool {
		return s.isChangingPage() == false
	})
}

func TestSessionPrevPageStopsAtFirst(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	s.prevPage()

	assert.Equal(t, 1, s.currentPage())
	assert.False(t, s.isChangingPage())
}

func TestSessionTermChangeResetsPage(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	s.nextPage()

	waitFor(t, func() bool {
		return s.currentPage() == 2 && s.isChangingPage() == false
	})

	s.setSearchText("dogs")

	assert.Equal(t, 1, s.currentPage())
}

func TestSessionFacetChangeResetsPage(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	s.nextPage()

	waitFor(t, func() bool {
		return s.currentPage() == 2 && s.isChangingPage() == false
	})

	year, _ := facetGroupByID("year")
	s.setFacetSelections(year, []facet{namedFacet("year", "cats-year")})

	assert.Equal(t, 1, s.currentPage())
}

func TestSessionRevertedTermStillRefetchesAfterPageReset(t *testing.T) {
	// 300 results at 50 rows, deep-linked to page 3
	searcher := fakeSearcher{totalFound: 300}

	var mu sync.Mutex
	var lastURL string

	qp := url.Values{}
	qp.Set("any", "cats")
	qp.Set("page", "3")
	qp.Set("rows", "50")

	s := newSearchSession(&searcher, &fakeCandidateSource{}, parseSearchURLQuery(qp, 50), testSearchConfig(), nil, func(urlQuery string) {
		mu.Lock()
		lastURL = urlQuery
		mu.Unlock()
	})
	s.start()
	defer s.stop()

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	require.Equal(t, 3, s.currentPage())

	// a keystroke burst that ends back on the same term still reset the
	// page, so the page-1 query must run and the URL must follow
	s.setSearchText("catsx")
	s.setSearchText("cats")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		parsed, err := url.ParseQuery(lastURL)

		return err == nil && parsed.Get("page") == "1"
	})

	assert.Equal(t, 1, s.currentPage())

	// the intermediate term never reached the archive; the revert did
	assert.Equal(t, []string{"cats", "cats"}, searcher.searchedTerms())
}

func TestSessionStaleResponseIsDiscarded(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120, delay: 40 * time.Millisecond}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("cats")

	// let the cats query take flight, then supersede it
	time.Sleep(25 * time.Millisecond)
	s.setSearchText("dogs")

	waitFor(t, func() bool {
		result := s.currentResult()
		return result != nil && len(result.docs) > 0 && result.docs[0].Title == "dogs"
	})

	// the cats response must never reappear
	time.Sleep(60 * time.Millisecond)

	result := s.currentResult()
	require.NotNil(t, result)
	assert.Equal(t, "dogs", result.docs[0].Title)
}

func TestSessionMemoizesIdenticalQueries(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	s.setSearchText("dogs")

	waitFor(t, func() bool {
		result := s.currentResult()
		return result != nil && len(result.docs) > 0 && result.docs[0].Title == "dogs"
	})

	catsQueries := 0
	for _, term := range searcher.searchedTerms() {
		if term == "cats" {
			catsQueries++
		}
	}
	require.Equal(t, 1, catsQueries)

	// returning to an already-run query is answered from memory
	s.setSearchText("cats")

	waitFor(t, func() bool {
		result := s.currentResult()
		return result != nil && len(result.docs) > 0 && result.docs[0].Title == "cats"
	})

	catsQueries = 0
	for _, term := range searcher.searchedTerms() {
		if term == "cats" {
			catsQueries++
		}
	}
	assert.Equal(t, 1, catsQueries)
}

func TestSessionNavigateReceivesURLUpdates(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120}

	var mu sync.Mutex
	var lastURL string

	initial := parseSearchURLQuery(url.Values{}, 50)

	s := newSearchSession(&searcher, &fakeCandidateSource{}, initial, testSearchConfig(), nil, func(urlQuery string) {
		mu.Lock()
		lastURL = urlQuery
		mu.Unlock()
	})
	s.start()
	defer s.stop()

	s.setSearchText("cats")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		qp, err := url.ParseQuery(lastURL)

		return err == nil && qp.Get("any") == "cats"
	})

	mu.Lock()
	qp, _ := url.ParseQuery(lastURL)
	mu.Unlock()

	assert.Equal(t, "1", qp.Get("page"))
	assert.Equal(t, "50", qp.Get("rows"))
}

func TestSessionResultAccessors(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.hasResults() == true
	})

	assert.True(t, s.hasMoreResults())
	assert.Equal(t, 3, s.resultPages())
	assert.Equal(t, "cats", s.currentTerm())
	assert.Equal(t, pageDirectionNone, s.pendingDirection())
}

func TestSessionSpinnerRelocatesWhilePanelOpen(t *testing.T) {
	searcher := fakeSearcher{totalFound: 120, delay: 50 * time.Millisecond}

	s := newTestSession(&searcher)
	defer s.stop()

	s.setPanelOpen(true)
	s.setSearchText("cats")

	waitFor(t, func() bool {
		return s.isFetching() == true
	})

	assert.False(t, s.showMainSpinner())
	assert.True(t, s.showPanelCornerSpinner())

	waitFor(t, func() bool {
		return s.isFetching() == false
	})

	assert.False(t, s.showPanelCornerSpinner())
}

func TestSearchURLQueryRoundTrip(t *testing.T) {
	selections := facetSelections{
		"year":      {namedFacet("year", "2020"), namedFacet("year", "1999")},
		"mediatype": {namedFacet("mediatype", "texts")},
	}

	encoded := encodeSearchURLQuery("cats", 3, 50, selections)

	qp, err := url.ParseQuery(encoded)
	require.NoError(t, err)

	parsed := parseSearchURLQuery(qp, 25)

	assert.Equal(t, "cats", parsed.term)
	assert.Equal(t, 3, parsed.page)
	assert.Equal(t, 50, parsed.rows)
	assert.Len(t, parsed.selections["year"], 2)
	assert.Len(t, parsed.selections["mediatype"], 1)
}

func TestParseSearchURLQueryFallbacks(t *testing.T) {
	qp := url.Values{}
	qp.Set("any", "cats")
	qp.Set("page", "junk")
	qp.Set("rows", "-5")
	qp.Add("facet:bogusgroup", "whatever")

	parsed := parseSearchURLQuery(qp, 50)

	assert.Equal(t, 1, parsed.page)
	assert.Equal(t, 50, parsed.rows)
	assert.Empty(t, parsed.selections)
}
