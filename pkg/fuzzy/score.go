package fuzzy

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Ratio is a simple Levenshtein-distance similarity in [0,100]: the
// fraction of shared characters after accounting for edit distance,
// scaled the way rapidfuzz's plain ratio is.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}
	return (1.0 - float64(dist)/float64(maxLen)) * 100
}

// PartialRatio scores the best-aligned substring match of the shorter
// string within the longer one, so "new york" scores high against
// "new york city".
func PartialRatio(a, b string) float64 {
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	if shorter == "" {
		return Ratio(a, b)
	}
	if len(shorter) >= len(longer) {
		return Ratio(a, b)
	}

	best := 0.0
	window := len(shorter)
	for i := 0; i+window <= len(longer); i++ {
		sub := longer[i : i+window]
		if r := Ratio(shorter, sub); r > best {
			best = r
		}
	}
	return best
}

// TokenSortRatio sorts each string's whitespace-delimited tokens
// alphabetically before scoring, so word order differences don't
// penalize an otherwise-identical phrase.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sorted := append([]string(nil), tokens...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return strings.Join(sorted, " ")
}

// WRatio is a composite score in [0,100] combining ratio, partial-ratio,
// and token-sort-ratio, weighting the partial and token variants more
// heavily for longer strings (where a substring/reordering match is more
// meaningful) and the plain ratio more heavily for short ones.
func WRatio(a, b string) float64 {
	a = NormalizeText(a)
	b = NormalizeText(b)
	if a == "" || b == "" {
		return 0
	}

	base := Ratio(a, b)
	partial := PartialRatio(a, b)
	tokenSort := TokenSortRatio(a, b)

	shortest := len(a)
	if len(b) < shortest {
		shortest = len(b)
	}
	if shortest <= 4 {
		// Short words: edit-distance ratio dominates, partial matching on
		// single short tokens is noisy.
		return max3(base, 0.9*partial, 0.9*tokenSort)
	}
	return max3(base, 0.95*partial, 0.9*tokenSort)
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
