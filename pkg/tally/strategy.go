package tally

import (
	"sort"
	"strings"
	"unicode"
)

// ExactVariantMatch looks up every registered variant of every candidate.
// For each variant the first unclaimed "<variant> , <digits>" occurrence is
// added to the candidate's total, so a name split into two surviving
// misspellings within a table is summed rather than overwritten.
//
// Longer labels are looked up first. A label that ends another one ("ALI" in
// "VELI ALI") then finds the longer row already claimed and moves on to its
// own row.
type ExactVariantMatch struct{}

// Name implements Strategy
func (ExactVariantMatch) Name() string { return "exact" }

type label struct {
	candidate string
	variant   string
}

func (ExactVariantMatch) counts(text string, cands *Candidates, dst map[string]int) {
	var labels []label
	for _, cand := range cands.sorted() {
		for _, variant := range cand.Variants {
			labels = append(labels, label{candidate: cand.Name, variant: variant})
		}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		return len(labels[i].variant) > len(labels[j].variant)
	})

	claimed := make(map[int]bool)
	for _, l := range labels {
		if n, ok := claimCount(text, countPattern(l.variant), claimed); ok {
			dst[l.candidate] += n
		}
	}
}

// DefaultFuzzyThreshold is the similarity score (0-100) a token must exceed
// to be accepted as a candidate name
const DefaultFuzzyThreshold = 40

// FuzzyTokenMatch compares individual tokens of the text against canonical
// names. A token whose similarity to a name exceeds Threshold is accepted for
// the best scoring candidate, and the count following that literal token is
// added to the candidate.
type FuzzyTokenMatch struct {
	Threshold float64 // Exclusive lower bound on Similarity; 0 selects DefaultFuzzyThreshold
}

// Name implements Strategy
func (FuzzyTokenMatch) Name() string { return "fuzzy" }

func (f FuzzyTokenMatch) counts(text string, cands *Candidates, dst map[string]int) {
	threshold := f.Threshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	claimed := make(map[int]bool)
	sorted := cands.sorted()
	for _, token := range Tokens(text) {
		if token == TotalKeyword || isNumeric(token) {
			continue
		}

		best, bestScore := "", threshold
		for _, cand := range sorted {
			// Strictly greater keeps the alphabetically first name on ties.
			if score := Similarity(token, cand.Name); score > bestScore {
				best, bestScore = cand.Name, score
			}
		}
		if best == "" {
			continue
		}
		if n, ok := claimCount(text, tokenPattern(token), claimed); ok {
			dst[best] += n
		}
	}
}

// Tokens splits text on spaces and commas and returns the distinct tokens in
// order of first appearance
func Tokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Similarity scores two strings from 0 (nothing in common) to 100 (equal):
// twice the longest common subsequence over the combined rune count.
// A surname scores well against the full name it belongs to, which is what
// single-token matching needs.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(ra, rb)) / float64(total)
}

func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
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

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
