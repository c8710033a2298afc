// Package canonical holds the curated set of merchant names seen in training
// and answers exact and near-exact lookups against it.
package canonical

import (
	"sort"
	"unicode/utf8"
)

// DefaultNearMatchThreshold is the minimum similarity for a near match,
// i.e. a normalized edit distance below 0.15.
const DefaultNearMatchThreshold = 0.85

// Pair is one normalized training merchant with its label.
type Pair struct {
	Merchant string
	Category string
}

// Entry is a canonical merchant with its authoritative category.
type Entry struct {
	Name     string
	Category string
	Support  int // Examples carrying Category
	Total    int // All examples for Name
}

// Match is a successful lookup.
type Match struct {
	Entry
	Quality float64
}

// Index is an immutable lookup table of canonical merchants.
type Index struct {
	Entries   []Entry // Sorted by Name
	Threshold float64
	byName    map[string]int
}

// Build collects distinct merchants with their most common category. Ties go
// to the category whose first occurrence is earliest in the given order.
func Build(pairs []Pair, threshold float64) *Index {
	type tally struct {
		counts    map[string]int
		firstSeen map[string]int
		total     int
	}

	tallies := make(map[string]*tally)
	for pos, p := range pairs {
		if p.Merchant == "" || p.Category == "" {
			continue
		}
		t, ok := tallies[p.Merchant]
		if !ok {
			t = &tally{counts: make(map[string]int), firstSeen: make(map[string]int)}
			tallies[p.Merchant] = t
		}
		if _, seen := t.firstSeen[p.Category]; !seen {
			t.firstSeen[p.Category] = pos
		}
		t.counts[p.Category]++
		t.total++
	}

	entries := make([]Entry, 0, len(tallies))
	for name, t := range tallies {
		best := ""
		for category, count := range t.counts {
			switch {
			case best == "":
				best = category
			case count > t.counts[best]:
				best = category
			case count == t.counts[best] && t.firstSeen[category] < t.firstSeen[best]:
				best = category
			}
		}
		entries = append(entries, Entry{
			Name:     name,
			Category: best,
			Support:  t.counts[best],
			Total:    t.total,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return newIndex(entries, threshold)
}

// FromEntries rebuilds an index from persisted entries.
func FromEntries(entries []Entry, threshold float64) *Index {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return newIndex(sorted, threshold)
}

func newIndex(entries []Entry, threshold float64) *Index {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultNearMatchThreshold
	}
	byName := make(map[string]int, len(entries))
	for i, e := range entries {
		byName[e.Name] = i
	}
	return &Index{Entries: entries, Threshold: threshold, byName: byName}
}

// Len returns the number of canonical merchants.
func (x *Index) Len() int {
	return len(x.Entries)
}

// Names returns the canonical merchant names in sorted order.
func (x *Index) Names() []string {
	names := make([]string, len(x.Entries))
	for i, e := range x.Entries {
		names[i] = e.Name
	}
	return names
}

// Category returns the authoritative category for an exact name.
func (x *Index) Category(name string) (string, bool) {
	i, ok := x.byName[name]
	if !ok {
		return "", false
	}
	return x.Entries[i].Category, true
}

// Lookup finds an exact match (quality 1) or the closest near match with
// similarity strictly above the threshold. Equal similarities resolve to the
// lexicographically smaller name.
func (x *Index) Lookup(normalized string) (Match, bool) {
	if normalized == "" {
		return Match{}, false
	}
	if i, ok := x.byName[normalized]; ok {
		return Match{Entry: x.Entries[i], Quality: 1}, true
	}

	queryLen := utf8.RuneCountInString(normalized)
	best := Match{Quality: -1}
	for _, e := range x.Entries {
		if !x.withinLengthBudget(queryLen, utf8.RuneCountInString(e.Name)) {
			continue
		}
		sim := Similarity(normalized, e.Name)
		if sim > x.Threshold && sim > best.Quality {
			best = Match{Entry: e, Quality: sim}
		}
	}

	if best.Quality < 0 {
		return Match{}, false
	}
	return best, true
}

// withinLengthBudget skips candidates whose length difference alone already
// rules out a near match.
func (x *Index) withinLengthBudget(a, b int) bool {
	longest := max(a, b)
	if longest == 0 {
		return false
	}
	return 1-float64(abs(a-b))/float64(longest) > x.Threshold
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
