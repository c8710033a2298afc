package features

import "strings"

// Gram size bounds.
const (
	MinWordGram = 1
	MaxWordGram = 2
	MinCharGram = 3
	MaxCharGram = 5
)

// wordGrams returns all contiguous 1- and 2-grams of whitespace tokens.
func wordGrams(text string) []string {
	tokens := strings.Fields(text)
	grams := make([]string, 0, len(tokens)*MaxWordGram)
	for n := MinWordGram; n <= MaxWordGram; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// charGrams extracts character n-grams per word. Each word is padded with a
// single space on both sides, and a padded word shorter than n contributes
// itself once, so short words still yield grams and no gram spans two words.
func charGrams(text string) []string {
	var grams []string
	for _, word := range strings.Fields(text) {
		padded := []rune(" " + word + " ")
		for n := MinCharGram; n <= MaxCharGram; n++ {
			if len(padded) <= n {
				grams = append(grams, string(padded))
				break
			}
			for i := 0; i+n <= len(padded); i++ {
				grams = append(grams, string(padded[i:i+n]))
			}
		}
	}
	return grams
}
