// Package search implements fuzzy title matching over an in-memory list of records.
//
// Scores follow the partial-ratio definition used by rapidfuzz: the shorter string is
// slid across the longer one and each alignment is scored with the normalized Indel
// similarity, 100 * 2*LCS / (len(a)+len(b)). The best alignment wins.
package search

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Threshold is the score a title must strictly exceed to be returned by Rank.
const Threshold = 60.0

var lower = cases.Lower(language.Und)

// Normalize lower-cases s the way queries and titles are compared.
func Normalize(s string) string {
	return lower.String(s)
}

// Ratio returns the normalized Indel similarity of a and b in [0, 100].
func Ratio(a, b string) float64 {
	return ratio([]rune(a), []rune(b))
}

func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(a, b)) / float64(total)
}

// PartialRatio returns the best Ratio between the shorter string and any substring of
// the longer one, including the partial overlaps at either end.
func PartialRatio(a, b string) float64 {
	s, l := []rune(a), []rune(b)
	if len(s) > len(l) {
		s, l = l, s
	}
	switch {
	case len(s) == 0 && len(l) == 0:
		return 100
	case len(s) == 0:
		return 0
	}

	best := partialRatio(s, l)
	if len(s) == len(l) {
		// Equal lengths are scored in both directions.
		if r := partialRatio(l, s); r > best {
			best = r
		}
	}
	return best
}

func partialRatio(s, l []rune) float64 {
	m := len(s)
	var best float64
	score := func(window []rune) bool {
		r := ratio(s, window)
		if r > best {
			best = r
		}
		return best == 100
	}

	// Windows hanging off the left edge.
	for i := 1; i < m; i++ {
		if score(l[:i]) {
			return best
		}
	}
	// Full-length windows.
	for i := 0; i+m <= len(l); i++ {
		if score(l[i : i+m]) {
			return best
		}
	}
	// Windows hanging off the right edge.
	for i := len(l) - m + 1; i < len(l); i++ {
		if score(l[i:]) {
			return best
		}
	}
	return best
}

// lcsLength is the length of the longest common subsequence of a and b.
func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Match is a ranked item with its score.
type Match[T any] struct {
	Item  T
	Score float64
}

// Rank scores every item's title against query and returns the items scoring above
// Threshold, best first. Items with equal scores keep their input order.
func Rank[T any](query string, items []T, title func(T) string) []Match[T] {
	q := Normalize(query)
	matches := make([]Match[T], 0)
	for _, item := range items {
		score := PartialRatio(q, Normalize(title(item)))
		if score > Threshold {
			matches = append(matches, Match[T]{Item: item, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Contains reports whether title contains query, ignoring case.
func Contains(title, query string) bool {
	return strings.Contains(Normalize(title), Normalize(query))
}

// Preview returns at most n runes of s.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
