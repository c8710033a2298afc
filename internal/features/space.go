// Package features turns normalized merchant strings into fixed-dimension
// TF-IDF vectors combining word-level and character-level n-grams.
package features

import (
	"math"
	"sort"

	"github.com/Veraticus/merchcat/internal/common"
)

// Vocabulary maps terms to column indices with an IDF weight per column.
type Vocabulary struct {
	Terms map[string]int
	IDF   []float64
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int {
	return len(v.IDF)
}

// Space is a fitted feature space. It is immutable after Fit and safe for
// concurrent Transform calls.
type Space struct {
	Word Vocabulary
	Char Vocabulary
	Docs int
}

// Fit learns word and character vocabularies with smoothed IDF weights.
func Fit(corpus []string) (*Space, error) {
	if len(corpus) == 0 {
		return nil, common.ConfigurationErrorf("cannot fit features on an empty corpus")
	}

	space := &Space{
		Word: fitVocabulary(corpus, wordGrams),
		Char: fitVocabulary(corpus, charGrams),
		Docs: len(corpus),
	}

	if space.Dim() == 0 {
		return nil, common.ConfigurationErrorf("corpus of %d documents produced no terms", len(corpus))
	}

	return space, nil
}

func fitVocabulary(corpus []string, analyze func(string) []string) Vocabulary {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, term := range analyze(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	// Stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := Vocabulary{
		Terms: make(map[string]int, len(terms)),
		IDF:   make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		vocab.Terms[term] = i
		vocab.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	return vocab
}

// Dim returns the total dimensionality (word block then char block).
func (s *Space) Dim() int {
	return s.Word.Len() + s.Char.Len()
}

// WordDim returns the size of the word block.
func (s *Space) WordDim() int {
	return s.Word.Len()
}

// CharDim returns the size of the character block.
func (s *Space) CharDim() int {
	return s.Char.Len()
}

// Transform maps a normalized string into the fitted space. Each block is
// L2-normalized on its own; unseen terms contribute nothing.
func (s *Space) Transform(normalized string) Vector {
	word := weigh(&s.Word, wordGrams(normalized), 0)
	char := weigh(&s.Char, charGrams(normalized), s.Word.Len())

	return Vector{
		Indices: append(word.Indices, char.Indices...),
		Values:  append(word.Values, char.Values...),
		Dim:     s.Dim(),
	}
}

// TransformAll maps every string in the corpus.
func (s *Space) TransformAll(normalized []string) []Vector {
	out := make([]Vector, len(normalized))
	for i, text := range normalized {
		out[i] = s.Transform(text)
	}
	return out
}

func weigh(vocab *Vocabulary, grams []string, offset int) Vector {
	counts := make(map[int]float64)
	for _, g := range grams {
		if idx, ok := vocab.Terms[g]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return Vector{}
	}

	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	var norm float64
	for k, idx := range indices {
		w := counts[idx] * vocab.IDF[idx]
		values[k] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for k := range values {
		values[k] /= norm
		indices[k] += offset
	}

	return Vector{Indices: indices, Values: values}
}
