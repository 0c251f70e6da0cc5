package schema

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// CloseMatches returns up to n candidates whose similarity to name reaches
// the cutoff, best first. Similarity is 1 - editDistance/maxLen, which is
// monotone in edit distance and keeps the 0.72/0.84 cutoffs meaningful.
// Matching is case-sensitive, like the schema text it draws from.
func CloseMatches(name string, candidates []string, n int, cutoff float64) []string {
	type scored struct {
		value string
		score float64
	}
	matches := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		score := similarity(name, candidate)
		if score >= cutoff {
			matches = append(matches, scored{value: candidate, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.value)
	}
	return out
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}
