package tally

import (
	"regexp"
	"strconv"

	"github.com/gardar/tallyocr/pkg/textract"
)

// SanitizedText is table text that has been through textract.Sanitize.
// Matching only accepts this type so unsanitized OCR output cannot reach it.
type SanitizedText string

// Sanitized sanitizes raw table text for matching
func Sanitized(raw string) SanitizedText {
	return SanitizedText(textract.Sanitize(raw))
}

// Tally is the candidate counts read from one or more tables
type Tally struct {
	Counts        map[string]int // Canonical name -> votes; unmatched candidates are absent
	DeclaredTotal *int           // Value of the TOPLAM row, nil when not found

	// ContributingTables lists the 1-based labels of the tables that produced
	// at least one candidate count. More than one means counts were merged.
	ContributingTables []int
	// ConflictingTotals holds declared totals found in later tables that
	// differ from DeclaredTotal.
	ConflictingTotals []int
}

// MergedTables reports whether candidate counts came from more than one table
func (t Tally) MergedTables() bool {
	return len(t.ContributingTables) > 1
}

// Strategy locates candidate counts in sanitized text
type Strategy interface {
	// Name identifies the strategy in logs and configuration
	Name() string
	// counts adds the votes found for each candidate to dst
	counts(text string, cands *Candidates, dst map[string]int)
}

// Matcher maps sanitized table text to candidate counts
type Matcher struct {
	cands    *Candidates
	strategy Strategy
}

// NewMatcher creates a matcher over an immutable candidate table.
// A nil strategy selects ExactVariantMatch.
func NewMatcher(cands *Candidates, strategy Strategy) *Matcher {
	if strategy == nil {
		strategy = ExactVariantMatch{}
	}
	return &Matcher{cands: cands, strategy: strategy}
}

// Strategy returns the matching strategy in use
func (m *Matcher) Strategy() Strategy {
	return m.strategy
}

var totalPattern = regexp.MustCompile(TotalKeyword + `\s*,\s*(\d+)`)

// Match reads candidate counts and the declared total from one text
func (m *Matcher) Match(text SanitizedText) Tally {
	t := Tally{Counts: make(map[string]int)}
	m.strategy.counts(string(text), m.cands, t.Counts)
	if total, ok := declaredTotal(string(text)); ok {
		t.DeclaredTotal = &total
	}
	return t
}

// MatchTables matches each table section separately and merges the results.
// Counts from several tables are summed and the merge is recorded in
// ContributingTables; the first declared total wins and differing later
// totals are kept in ConflictingTotals.
func (m *Matcher) MatchTables(sections []SanitizedText) Tally {
	merged := Tally{Counts: make(map[string]int)}
	for i, section := range sections {
		part := m.Match(section)
		if len(part.Counts) > 0 {
			merged.ContributingTables = append(merged.ContributingTables, i+1)
		}
		for name, n := range part.Counts {
			merged.Counts[name] += n
		}
		if part.DeclaredTotal == nil {
			continue
		}
		if merged.DeclaredTotal == nil {
			total := *part.DeclaredTotal
			merged.DeclaredTotal = &total
		} else if *part.DeclaredTotal != *merged.DeclaredTotal {
			merged.ConflictingTotals = append(merged.ConflictingTotals, *part.DeclaredTotal)
		}
	}
	return merged
}

func declaredTotal(text string) (int, bool) {
	m := totalPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// countPattern matches a literal label followed by a comma separated number
func countPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(label) + `\s*,\s*(\d+)`)
}

// tokenPattern is countPattern anchored at the start of a word, so a short
// token never matches the tail of a longer one
func tokenPattern(token string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(token) + `\s*,\s*(\d+)`)
}

// claimCount reads the count following the first match of pattern whose
// number is not attributed yet. claimed holds the byte offsets of numbers
// already attributed so overlapping labels (for example a variant that is a
// suffix of another) never count the same cell twice.
func claimCount(text string, pattern *regexp.Regexp, claimed map[int]bool) (int, bool) {
	for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if claimed[start] {
			continue
		}
		n, err := strconv.Atoi(text[start:end])
		if err != nil {
			continue
		}
		claimed[start] = true
		return n, true
	}
	return 0, false
}
