package model

import (
	"fmt"
	"math"
	"sort"
)

// CategoryProbability is the probability assigned to one category.
type CategoryProbability struct {
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
}

// Distribution is a probability distribution over the full category set.
type Distribution []CategoryProbability

// Len implements sort.Interface.
func (d Distribution) Len() int {
	return len(d)
}

// Less implements sort.Interface - higher probabilities come first.
func (d Distribution) Less(i, j int) bool {
	if d[i].Probability != d[j].Probability {
		return d[i].Probability > d[j].Probability
	}
	// Equal probabilities sort by category name for consistency
	return d[i].Category < d[j].Category
}

// Swap implements sort.Interface.
func (d Distribution) Swap(i, j int) {
	d[i], d[j] = d[j], d[i]
}

// Sorted returns a copy ordered by probability, highest first.
func (d Distribution) Sorted() Distribution {
	out := make(Distribution, len(d))
	copy(out, d)
	sort.Sort(out)
	return out
}

// Top returns the most probable category, or false if empty.
func (d Distribution) Top() (CategoryProbability, bool) {
	if len(d) == 0 {
		return CategoryProbability{}, false
	}
	best := d[0]
	for _, p := range d[1:] {
		if p.Probability > best.Probability ||
			(p.Probability == best.Probability && p.Category < best.Category) {
			best = p
		}
	}
	return best, true
}

// TopN returns the N most probable categories.
func (d Distribution) TopN(n int) Distribution {
	if n <= 0 {
		return Distribution{}
	}
	sorted := d.Sorted()
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Min returns the smallest probability in the distribution.
func (d Distribution) Min() float64 {
	if len(d) == 0 {
		return 0
	}
	lowest := d[0].Probability
	for _, p := range d[1:] {
		lowest = math.Min(lowest, p.Probability)
	}
	return lowest
}

// Sum returns the total probability mass.
func (d Distribution) Sum() float64 {
	var total float64
	for _, p := range d {
		total += p.Probability
	}
	return total
}

// Probability returns the probability for a category, zero if absent.
func (d Distribution) Probability(category string) float64 {
	for _, p := range d {
		if p.Category == category {
			return p.Probability
		}
	}
	return 0
}

// Validate checks that probabilities are non-negative and sum to one.
func (d Distribution) Validate(tolerance float64) error {
	if len(d) == 0 {
		return fmt.Errorf("distribution is empty")
	}
	for _, p := range d {
		if p.Probability < 0 || math.IsNaN(p.Probability) {
			return fmt.Errorf("category %q has invalid probability %v", p.Category, p.Probability)
		}
	}
	if sum := d.Sum(); math.Abs(sum-1) > tolerance {
		return fmt.Errorf("probabilities sum to %v, want 1", sum)
	}
	return nil
}
