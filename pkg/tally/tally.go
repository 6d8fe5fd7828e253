// Package tally reads candidate vote counts from sanitized tally-sheet text and
// reconciles them with the declared grand total.
//
// OCR regularly damages candidate names (dropped dotted capitals, "I" read as
// "1"), so every candidate carries a list of known variants. Two strategies
// are available:
//
// - ExactVariantMatch: regex lookup of each registered variant
// - FuzzyTokenMatch: token-level similarity against the canonical names
//
// Both produce a Tally, which Reconcile turns into a Reconciliation whose Match
// field is true only when the declared TOPLAM equals the sum of the counts.
package tally

import "fmt"

// StrategyByName returns the strategy for a configuration value
// ("exact" or "fuzzy")
func StrategyByName(name string, threshold float64) (Strategy, error) {
	switch name {
	case "", "exact":
		return ExactVariantMatch{}, nil
	case "fuzzy":
		return FuzzyTokenMatch{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown matching mode %q", name)
	}
}
