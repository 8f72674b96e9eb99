package main

import (
	"fmt"
	"strconv"
)

// the facet groups offered by the archive are a closed, known set.
// they are resolved from this static registry, never discovered at runtime.

type facetGroup struct {
	IDName string `json:"idName"`
	Name   string `json:"name"`
}

var facetGroupRegistry = []facetGroup{
	{IDName: "creator", Name: "Creator"},
	{IDName: "collection", Name: "Collection"},
	{IDName: "subject", Name: "Subject"},
	{IDName: "year", Name: "Year"},
	{IDName: "mediatype", Name: "MediaType"},
	{IDName: "lending___status", Name: "Lending status"},
	{IDName: "languageSorter", Name: "Language"},
}

func facetGroupByID(idName string) (facetGroup, bool) {
	for _, group := range facetGroupRegistry {
		if group.IDName == idName {
			return group, true
		}
	}

	return facetGroup{}, false
}

// a single filterable value within a facet group.  facet instances are
// recreated on every fetch, so membership tests always compare by
// (group id, value), never by identity.

type facet struct {
	Group facetGroup `json:"group"`
	Value string     `json:"val"`
	Count int        `json:"n,omitempty"`
}

func (f facet) sameAs(other facet) bool {
	return f.Group.IDName == other.Group.IDName && f.Value == other.Value
}

// the facet endpoint reports values as either strings or bare numbers
// (years come back as numbers).  normalize to a string so equality and
// URL round-tripping behave.
func facetValueString(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// per-group selected facet lists, keyed by group id.  order within a list
// is insertion order; values are unique within a group.

type facetSelections map[string][]facet

func (s facetSelections) withGroup(group facetGroup, list []facet) facetSelections {
	out := make(facetSelections)

	for id, facets := range s {
		out[id] = facets
	}

	// the new list replaces the group's previous entry wholesale
	out[group.IDName] = list

	return out
}

func (s facetSelections) isEmpty() bool {
	for _, list := range s {
		if len(list) > 0 {
			return false
		}
	}

	return true
}

func facetListContainsValue(list []facet, value string) bool {
	for _, f := range list {
		if f.Value == value {
			return true
		}
	}

	return false
}

// reconcileSelections narrows stored selections to those still valid against
// the current candidate sets.  per group: a present, non-empty candidate set
// keeps only selections whose value appears in it; an absent or empty set
// passes the group's selections through unchanged, so a valid filter is not
// discarded just because its facet list has not loaded yet.
func reconcileSelections(selections facetSelections, candidates map[string][]facet) facetSelections {
	out := make(facetSelections)

	for groupID, selected := range selections {
		candidateList := candidates[groupID]

		if len(candidateList) == 0 {
			out[groupID] = selected
			continue
		}

		kept := []facet{}

		for _, f := range selected {
			if facetListContainsValue(candidateList, f.Value) == true {
				kept = append(kept, f)
			}
		}

		out[groupID] = kept
	}

	return out
}

// selectedFacetCount reports the reconciled selection count for one group,
// i.e. never counts selections that cannot actually match.
func selectedFacetCount(selections facetSelections, candidates map[string][]facet, groupID string) int {
	reconciled := reconcileSelections(selections, candidates)

	return len(reconciled[groupID])
}
