// Package normalize canonicalizes raw merchant strings into a stable text form.
//
// Normalization is pure and total: any input string, including empty or
// invalid UTF-8, yields a string. The output is idempotent under Normalize
// and insensitive to case, separators and spaced-letter abbreviations, so
// "H-E-B", "H E B" and "heb" all normalize to "heb".
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultAliases maps common merchant spellings onto one canonical token.
var DefaultAliases = map[string]string{
	"door dash":   "doordash",
	"dd":          "doordash",
	"uber eats":   "ubereats",
	"netflix inc": "netflix",
}

// maxPasses bounds the collapse/alias fixed-point loop.
const maxPasses = 8

// Normalizer applies merchant normalization with a fixed alias table.
// A Normalizer is immutable and safe for concurrent use.
type Normalizer struct {
	aliases    map[string][]string
	maxKeyLen  int
	aliasCount int
}

var defaultNormalizer = New(DefaultAliases)

// Normalize canonicalizes raw with the default alias table.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// NormalizeAll normalizes every string in raws.
func NormalizeAll(raws []string) []string {
	out := make([]string, len(raws))
	for i, r := range raws {
		out[i] = Normalize(r)
	}
	return out
}

// New creates a Normalizer for the given alias table. Keys and values are
// normalized first; entries whose value would re-trigger an alias are dropped.
func New(aliases map[string]string) *Normalizer {
	n := &Normalizer{aliases: make(map[string][]string, len(aliases))}

	normalizedKeys := make(map[string]bool, len(aliases))
	for key := range aliases {
		normalizedKeys[strings.Join(baseTokens(key), " ")] = true
	}

	for key, value := range aliases {
		keyTokens := baseTokens(key)
		valueTokens := baseTokens(value)
		if len(keyTokens) == 0 || len(valueTokens) == 0 {
			continue
		}
		if containsAlias(valueTokens, normalizedKeys) {
			continue
		}
		n.aliases[strings.Join(keyTokens, " ")] = valueTokens
		if len(keyTokens) > n.maxKeyLen {
			n.maxKeyLen = len(keyTokens)
		}
	}
	n.aliasCount = len(n.aliases)

	return n
}

// Normalize canonicalizes raw.
func (n *Normalizer) Normalize(raw string) string {
	tokens := baseTokens(raw)

	for pass := 0; pass < maxPasses; pass++ {
		tokens = collapseSpacedLetters(tokens)
		var changed bool
		tokens, changed = n.applyAliases(tokens)
		if !changed {
			break
		}
	}

	return strings.Join(tokens, " ")
}

// Len returns the number of active alias entries.
func (n *Normalizer) Len() int {
	return n.aliasCount
}

// Aliases returns the active alias table in normalized form.
func (n *Normalizer) Aliases() map[string]string {
	out := make(map[string]string, len(n.aliases))
	for key, value := range n.aliases {
		out[key] = strings.Join(value, " ")
	}
	return out
}

// baseTokens folds unicode and case, drops intra-word separators and splits
// the remainder into letter/digit tokens.
func baseTokens(raw string) []string {
	folded := fold(raw)
	folded = dropInnerSeparators(folded)

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)

	return strings.Fields(cleaned)
}

// fold applies compatibility decomposition, removes combining marks and
// lowercases. A transformer chain holds state, so one is built per call.
func fold(raw string) string {
	raw = strings.ToValidUTF8(raw, " ")
	chain := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.M)),
		runes.Map(unicode.ToLower),
		norm.NFC,
	)
	out, _, err := transform.String(chain, raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return out
}

func isInnerSeparator(r rune) bool {
	switch r {
	case '-', '_', '\'', '’', '‐', '‑':
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// dropInnerSeparators deletes a separator sitting between two word runes,
// so "h-e-b" becomes "heb" and "wal-mart" becomes "walmart".
func dropInnerSeparators(s string) string {
	if !strings.ContainsFunc(s, isInnerSeparator) {
		return s
	}

	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range rs {
		if isInnerSeparator(r) && i > 0 && i < len(rs)-1 &&
			isWordRune(rs[i-1]) && isWordRune(rs[i+1]) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isSingleLetter(tok string) bool {
	if utf8.RuneCountInString(tok) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(tok)
	return unicode.IsLetter(r)
}

// collapseSpacedLetters joins runs of two or more single-letter tokens.
func collapseSpacedLetters(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if !isSingleLetter(tokens[i]) {
			out = append(out, tokens[i])
			i++
			continue
		}

		j := i
		for j < len(tokens) && isSingleLetter(tokens[j]) {
			j++
		}
		out = append(out, strings.Join(tokens[i:j], ""))
		i = j
	}
	return out
}

// applyAliases replaces the longest alias key starting at each position.
func (n *Normalizer) applyAliases(tokens []string) ([]string, bool) {
	if n.aliasCount == 0 {
		return tokens, false
	}

	out := make([]string, 0, len(tokens))
	changed := false
	for i := 0; i < len(tokens); {
		matched := false
		for size := min(n.maxKeyLen, len(tokens)-i); size >= 1; size-- {
			key := strings.Join(tokens[i:i+size], " ")
			if value, ok := n.aliases[key]; ok {
				out = append(out, value...)
				i += size
				matched = true
				changed = true
				break
			}
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}
	return out, changed
}

// containsAlias reports whether any contiguous run of tokens is an alias key.
func containsAlias(tokens []string, keys map[string]bool) bool {
	for i := range tokens {
		for j := i + 1; j <= len(tokens); j++ {
			if keys[strings.Join(tokens[i:j], " ")] {
				return true
			}
		}
	}
	return false
}
