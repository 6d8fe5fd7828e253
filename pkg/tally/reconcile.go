package tally

import (
	"fmt"
	"sort"
	"strings"
)

// Reconciliation compares the sum of candidate counts with the declared total
type Reconciliation struct {
	Tally
	Sum   int  // Sum of candidate counts; the declared total is not part of it
	Match bool // True only when a declared total exists and equals Sum
}

// Reconcile sums the candidate counts of a tally and checks them against the
// declared total. A missing total is a failed reconciliation, not an error.
func Reconcile(t Tally) Reconciliation {
	sum := 0
	for _, n := range t.Counts {
		sum += n
	}
	return Reconciliation{
		Tally: t,
		Sum:   sum,
		Match: t.DeclaredTotal != nil && *t.DeclaredTotal == sum,
	}
}

// Reason describes why reconciliation failed; empty when it matched
func (r Reconciliation) Reason() string {
	switch {
	case r.Match:
		return ""
	case r.DeclaredTotal == nil:
		return "declared total not found"
	default:
		return fmt.Sprintf("sum %d does not match declared total %d", r.Sum, *r.DeclaredTotal)
	}
}

// String renders the counts in name order, e.g.
// "MUHARREM INCE=50 RECEP TAYYIP ERDOGAN=100 TOPLAM=150"
func (r Reconciliation) String() string {
	names := make([]string, 0, len(r.Counts))
	for name := range r.Counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, r.Counts[name]))
	}
	if r.DeclaredTotal != nil {
		parts = append(parts, fmt.Sprintf("%s=%d", TotalKeyword, *r.DeclaredTotal))
	}
	return strings.Join(parts, " ")
}
