package main

import (
	"strings"
	"sync"
	"time"
)

// facetPanel models the facet selection surface: one button per facet
// group, at most one group expanded at a time, and a selection area for
// the expanded group with throttled text filtering and fixed-size paging
// over the candidate list.
//
// the panel never owns selections; every toggle or clear is routed to the
// session, which replaces the group's list wholesale.  the panel's only
// private state is presentation: which group is open, the filter text, and
// the 1-based facet page index.

type facetPanel struct {
	mu         sync.Mutex
	session    *searchSession
	pageSize   int
	openGroup  string
	rawFilter  string
	filterText string
	pageIndex  int
	throttle   *throttler[string]
}

func newFacetPanel(session *searchSession, throttleDelay time.Duration, pageSize int) *facetPanel {
	p := facetPanel{
		session:   session,
		pageSize:  pageSize,
		pageIndex: 1,
	}

	p.throttle = newThrottler[string](throttleDelay, p.applyFilter)

	return &p
}

func (p *facetPanel) stop() {
	p.throttle.stop()
}

// toggleGroup expands the named group, collapsing whichever group was open
// before; toggling the open group collapses it.  expanding resets the
// filter and paging so the new group starts from a clean view.
func (p *facetPanel) toggleGroup(groupID string) {
	if _, ok := facetGroupByID(groupID); ok == false {
		return
	}

	p.throttle.stop()

	p.mu.Lock()

	wasOpen := p.openGroup != ""

	if p.openGroup == groupID {
		p.openGroup = ""
	} else {
		p.openGroup = groupID
		p.rawFilter = ""
		p.filterText = ""
		p.pageIndex = 1
	}

	isOpen := p.openGroup != ""
	p.mu.Unlock()

	if isOpen != wasOpen {
		p.session.setPanelOpen(isOpen)
	}
}

// close collapses the panel; a page change or a new search term invalidates
// whatever the user was inspecting.
func (p *facetPanel) close() {
	p.mu.Lock()

	if p.openGroup == "" {
		p.mu.Unlock()
		return
	}

	p.openGroup = ""
	p.mu.Unlock()

	p.session.setPanelOpen(false)
}

func (p *facetPanel) searchTermChanged() {
	// a filter value still waiting in the throttle window must not land
	// after the reset
	p.throttle.stop()

	p.mu.Lock()
	p.rawFilter = ""
	p.filterText = ""
	p.pageIndex = 1
	p.mu.Unlock()

	p.close()
}

func (p *facetPanel) currentGroup() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.openGroup
}

// setFilterText records each keystroke immediately (and resets paging so
// the narrowed list is viewed from its first page), but the applied filter
// only advances at the throttle rate.
func (p *facetPanel) setFilterText(text string) {
	p.mu.Lock()
	p.rawFilter = text
	p.pageIndex = 1
	p.mu.Unlock()

	p.throttle.set(text)
}

func (p *facetPanel) applyFilter(text string) {
	p.mu.Lock()
	p.filterText = text
	p.mu.Unlock()

	p.session.notify()
}

// filteredCandidates returns the open group's candidate list narrowed by
// the applied filter, case-insensitive substring match.  callers must hold
// p.mu.
func (p *facetPanel) filteredCandidates() []facet {
	if p.openGroup == "" {
		return nil
	}

	candidates := p.session.fetcher.candidates()[p.openGroup]

	if p.filterText == "" {
		return candidates
	}

	needle := strings.ToLower(p.filterText)

	var filtered []facet

	for _, f := range candidates {
		if strings.Contains(strings.ToLower(f.Value), needle) == true {
			filtered = append(filtered, f)
		}
	}

	return filtered
}

// visibleFacets is the current page of the filtered candidate list.
func (p *facetPanel) visibleFacets() []facet {
	p.mu.Lock()
	defer p.mu.Unlock()

	filtered := p.filteredCandidates()

	first := (p.pageIndex - 1) * p.pageSize
	if first >= len(filtered) {
		return nil
	}

	last := first + p.pageSize
	if last > len(filtered) {
		last = len(filtered)
	}

	return filtered[first:last]
}

func (p *facetPanel) facetPageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return totalPages(len(p.filteredCandidates()), p.pageSize)
}

func (p *facetPanel) facetPageIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.pageIndex
}

func (p *facetPanel) nextFacetPage() {
	p.mu.Lock()

	if p.pageIndex >= totalPages(len(p.filteredCandidates()), p.pageSize) {
		p.mu.Unlock()
		return
	}

	p.pageIndex++
	p.mu.Unlock()

	p.session.notify()
}

func (p *facetPanel) prevFacetPage() {
	p.mu.Lock()

	if p.pageIndex <= 1 {
		p.mu.Unlock()
		return
	}

	p.pageIndex--
	p.mu.Unlock()

	p.session.notify()
}

// facetButtonState is everything a group's button renders from.
type facetButtonState struct {
	Group         facetGroup
	Open          bool
	Loading       bool
	Failed        bool
	Disabled      bool
	SelectedCount int
	TotalCount    int
}

// buttonState derives one group's button presentation.  the selected-value
// badge counts *reconciled* selections, so a stale selection that no longer
// appears among the candidates is not counted.  a group is disabled while
// its candidates load and when it has none.
func (p *facetPanel) buttonState(groupID string) facetButtonState {
	group, ok := facetGroupByID(groupID)
	if ok == false {
		return facetButtonState{}
	}

	loading, failed, count := p.session.fetcher.groupStatus(groupID)

	p.mu.Lock()
	open := p.openGroup == groupID
	p.mu.Unlock()

	reconciled := reconcileSelections(p.session.currentSelections(), p.session.fetcher.candidates())

	return facetButtonState{
		Group:         group,
		Open:          open,
		Loading:       loading,
		Failed:        failed,
		Disabled:      loading == true || count == 0,
		SelectedCount: len(reconciled[groupID]),
		TotalCount:    count,
	}
}

// isFacetSelected reports whether a candidate value is currently selected
// in the open group.
func (p *facetPanel) isFacetSelected(f facet) bool {
	return facetListContainsValue(p.session.currentSelections()[f.Group.IDName], f.Value)
}

// toggleFacet adds the candidate to its group's selections, or removes it
// if it is already selected (matching by value within the group).  the
// resulting list replaces the group's selections wholesale.
func (p *facetPanel) toggleFacet(f facet) {
	current := p.session.currentSelections()[f.Group.IDName]

	var updated []facet

	if facetListContainsValue(current, f.Value) == true {
		for _, existing := range current {
			if existing.Value != f.Value {
				updated = append(updated, existing)
			}
		}
	} else {
		updated = append(updated, current...)
		updated = append(updated, f)
	}

	p.session.setFacetSelections(f.Group, updated)
}

// clearGroup drops every selection in the group at once.
func (p *facetPanel) clearGroup(groupID string) {
	group, ok := facetGroupByID(groupID)
	if ok == false {
		return
	}

	p.session.setFacetSelections(group, nil)
}
