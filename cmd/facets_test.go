package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func namedFacet(groupID string, value string) facet {
	group, _ := facetGroupByID(groupID)

	return facet{Group: group, Value: value}
}

func TestFacetGroupRegistryLookup(t *testing.T) {
	group, ok := facetGroupByID("lending___status")

	assert.True(t, ok)
	assert.Equal(t, "Lending status", group.Name)

	_, ok = facetGroupByID("bogus")
	assert.False(t, ok)
}

func TestFacetEqualityIsByGroupAndValue(t *testing.T) {
	a := namedFacet("year", "2020")
	b := namedFacet("year", "2020")
	b.Count = 99

	assert.True(t, a.sameAs(b))
	assert.False(t, a.sameAs(namedFacet("year", "2021")))
	assert.False(t, a.sameAs(namedFacet("subject", "2020")))
}

func TestFacetValueString(t *testing.T) {
	assert.Equal(t, "cats", facetValueString("cats"))
	assert.Equal(t, "2020", facetValueString(float64(2020)))
	assert.Equal(t, "7", facetValueString(7))
	assert.Equal(t, "", facetValueString(nil))
}

func TestSelectionsWithGroupReplacesWholesale(t *testing.T) {
	year, _ := facetGroupByID("year")

	selections := make(facetSelections)
	selections = selections.withGroup(year, []facet{namedFacet("year", "1999"), namedFacet("year", "2020")})

	updated := selections.withGroup(year, []facet{namedFacet("year", "2021")})

	// the original map is unchanged; the update replaced the whole list
	assert.Len(t, selections["year"], 2)
	assert.Len(t, updated["year"], 1)
	assert.Equal(t, "2021", updated["year"][0].Value)
}

func TestSelectionsIsEmpty(t *testing.T) {
	year, _ := facetGroupByID("year")

	selections := make(facetSelections)
	assert.True(t, selections.isEmpty())

	// a group key holding an empty list is still empty
	selections = selections.withGroup(year, []facet{})
	assert.True(t, selections.isEmpty())

	selections = selections.withGroup(year, []facet{namedFacet("year", "2020")})
	assert.False(t, selections.isEmpty())
}

func TestReconcileKeepsOnlyCandidateValues(t *testing.T) {
	selections := facetSelections{
		"year": {namedFacet("year", "2020"), namedFacet("year", "1999")},
	}

	candidates := map[string][]facet{
		"year": {namedFacet("year", "2020"), namedFacet("year", "2021")},
	}

	reconciled := reconcileSelections(selections, candidates)

	assert.Len(t, reconciled["year"], 1)
	assert.Equal(t, "2020", reconciled["year"][0].Value)
}

func TestReconcilePassesThroughWhenCandidatesMissing(t *testing.T) {
	selections := facetSelections{
		"year":    {namedFacet("year", "2020")},
		"subject": {namedFacet("subject", "cats")},
	}

	// subject candidates absent entirely, year candidates present but empty
	candidates := map[string][]facet{
		"year": {},
	}

	reconciled := reconcileSelections(selections, candidates)

	assert.Len(t, reconciled["year"], 1)
	assert.Len(t, reconciled["subject"], 1)
}

func TestReconcileIsIdempotent(t *testing.T) {
	selections := facetSelections{
		"year": {namedFacet("year", "2020"), namedFacet("year", "1999")},
	}

	candidates := map[string][]facet{
		"year": {namedFacet("year", "2020")},
	}

	once := reconcileSelections(selections, candidates)
	twice := reconcileSelections(once, candidates)

	assert.Equal(t, once, twice)
}

func TestSelectedFacetCountUsesReconciledValues(t *testing.T) {
	selections := facetSelections{
		"year": {namedFacet("year", "2020"), namedFacet("year", "1999")},
	}

	candidates := map[string][]facet{
		"year": {namedFacet("year", "2020")},
	}

	assert.Equal(t, 1, selectedFacetCount(selections, candidates, "year"))
	assert.Equal(t, 0, selectedFacetCount(selections, candidates, "subject"))
}
