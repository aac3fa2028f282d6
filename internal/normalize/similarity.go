package normalize

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// shortInputLen is the length below which trigram sets are too small to
// discriminate and edit distance takes over.
const shortInputLen = 6

// Similarity returns a normalized string-similarity ratio in [0, 1]
// between two already-normalized names. Trigram set overlap for normal
// inputs, levenshtein ratio for very short ones.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0.0
		}
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	if len(a) < shortInputLen || len(b) < shortInputLen {
		return levenshteinRatio(a, b)
	}

	return TrigramSimilarity(a, b)
}

// TrigramSimilarity computes trigram set similarity the way pg_trgm
// does: each word is padded with two leading and one trailing space,
// similarity is |intersection| / |union| of the trigram sets.
func TrigramSimilarity(a, b string) float64 {
	aSet := trigramSet(a)
	bSet := trigramSet(b)

	if len(aSet) == 0 || len(bSet) == 0 {
		return 0.0
	}

	shared := 0
	for t := range aSet {
		if bSet[t] {
			shared++
		}
	}

	union := len(aSet) + len(bSet) - shared
	return float64(shared) / float64(union)
}

func trigramSet(s string) map[string]bool {
	set := make(map[string]bool)

	for _, word := range strings.Fields(s) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = true
		}
	}

	return set
}

// levenshteinRatio converts edit distance to a [0, 1] similarity
func levenshteinRatio(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0.0
	}

	dist := levenshtein.ComputeDistance(a, b)
	if dist >= longest {
		return 0.0
	}

	return 1.0 - float64(dist)/float64(longest)
}
