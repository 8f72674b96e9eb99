package main

import (
	"fmt"
	"strings"
)

// functions that map a search term plus facet selections into the archive's
// boolean query expression

// buildArchiveQuery serializes a free-text term and the selected facets into
// the archive's advanced search syntax.  selections within a group are OR'ed;
// groups are AND'ed with each other and with the term.  an empty selections
// map contributes no constraint.
func buildArchiveQuery(term string, selections facetSelections) string {
	q := fmt.Sprintf("(%s)", term)

	// iterate in registry order so equal queries serialize identically
	// (the query string doubles as a cache key)
	for _, group := range facetGroupRegistry {
		facetList := selections[group.IDName]

		if len(facetList) == 0 {
			continue
		}

		var clauses []string

		for _, f := range facetList {
			clauses = append(clauses, fmt.Sprintf("%s:(%s)", group.IDName, f.Value))
		}

		clause := strings.Join(clauses, " OR ")

		if len(facetList) > 1 {
			clause = fmt.Sprintf("(%s)", clause)
		}

		q = fmt.Sprintf("%s AND %s", q, clause)
	}

	return q
}

// searchQuery is the canonical query the session controller owns: the
// debounced term, the reconciled facet selections, and 1-based pagination.

type searchQuery struct {
	term       string
	selections facetSelections
	page       int
	rows       int
}

// key produces the memoization/causality key for a query.  two queries with
// the same key must never trigger duplicate upstream calls, and a response
// is only applied to state while its key is still the current one.
func (q *searchQuery) key() string {
	return fmt.Sprintf("%s|page=%d|rows=%d", buildArchiveQuery(q.term, q.selections), q.page, q.rows)
}

// searchResult is the typed outcome of one archive query.

type searchResult struct {
	totalFound int
	docs       []archiveDoc
}

// hasMorePages preserves the observed boundary rule: more pages exist iff
// totalFound / rows > page with the *current* page, which is exactly
// totalFound > rows * page in integers.  at exact multiples this hides the
// next control on the final full page, e.g. 100 found / 50 rows on page 2.
func hasMorePages(totalFound int, rows int, page int) bool {
	return totalFound > rows*page
}

func totalPages(totalFound int, rows int) int {
	if rows <= 0 {
		return 0
	}

	return (totalFound + rows - 1) / rows
}
