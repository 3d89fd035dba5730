package search

import (
	"math"
	"strings"
)

const (
	// epsilon replaces a perfect score in the product so that the weight of
	// the field still applies.
	epsilon = 2.220446049250313e-16
	// minScore is the best score a non-identical match can get.
	minScore = 0.001
)

// Matcher scores pattern against text. Both arguments are lowercased. A
// score of 0 is a perfect match and 1 a complete mismatch; ok reports
// whether the text matches at all.
type Matcher func(pattern, text string) (score float64, ok bool)

// NewApproxMatcher returns a Matcher that accepts text containing a
// substring within threshold*len(pattern) edits of pattern. Patterns shorter
// than minLen runes only match identical text.
func NewApproxMatcher(threshold float64, minLen int) Matcher {
	return func(pattern, text string) (float64, bool) {
		if pattern == text {
			return 0, true
		}
		p := []rune(pattern)
		if len(p) == 0 || len(p) < minLen {
			return 0, false
		}
		if strings.Contains(text, pattern) {
			return minScore, true
		}
		score := float64(substringDistance(p, []rune(text))) / float64(len(p))
		if score > threshold {
			return score, false
		}
		return math.Max(score, minScore), true
	}
}

// substringDistance returns the smallest Levenshtein distance between p and
// any substring of t.
func substringDistance(p, t []rune) int {
	prev := make([]int, len(t)+1)
	cur := make([]int, len(t)+1)
	for i := 1; i <= len(p); i++ {
		cur[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if p[i-1] == t[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j-1]+cost, prev[j]+1, cur[j-1]+1)
		}
		prev, cur = cur, prev
	}
	best := len(p)
	for _, d := range prev {
		best = min(best, d)
	}
	return best
}

// fieldNorm weights short values above long ones: 1/sqrt(tokens), rounded
// to three decimals.
func fieldNorm(value string) float64 {
	tokens := len(strings.Fields(value))
	if tokens == 0 {
		tokens = 1
	}
	return math.Round(1/math.Sqrt(float64(tokens))*1000) / 1000
}
