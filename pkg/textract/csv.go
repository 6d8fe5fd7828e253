package textract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SerializeTable renders one table with its 1-based label.
// Rows and columns are emitted in ascending order, every cell followed by a comma.
func SerializeTable(label int, t Table) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table: Table_%d\n\n", label)

	for _, row := range sortedKeys(t) {
		cols := t[row]
		for _, col := range sortedKeys(cols) {
			sb.WriteString(cols[col])
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// SerializeTables renders all tables separated by blank lines
func SerializeTables(tables []Table) string {
	var sb strings.Builder
	for i, t := range tables {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(SerializeTable(i+1, t))
	}
	return sb.String()
}

// foldDiacritics decomposes characters and drops combining marks so that
// Turkish letters (Ç, Ğ, İ, Ö, Ş, Ü) survive sanitizing as their ASCII base.
// Dotless i has no decomposition and is mapped explicitly.
var foldDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Map(func(r rune) rune {
		if r == 'ı' {
			return 'i'
		}
		return r
	}),
	norm.NFC,
)

// Sanitize folds diacritics and removes every character outside
// A-Z, a-z, 0-9, comma and space. Line breaks are removed as well.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(text string) string {
	folded, _, err := transform.String(foldDiacritics, text)
	if err != nil {
		folded = text
	}

	var sb strings.Builder
	sb.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ',' || r == ' ':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

var sectionHeader = regexp.MustCompile(`Table Table\d+`)

// SplitSections splits sanitized text of several tables, as persisted, back
// into one section per table. Text without a table header is returned as a
// single section.
func SplitSections(text string) []string {
	starts := sectionHeader.FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var out []string
	if lead := text[:starts[0][0]]; strings.TrimSpace(lead) != "" {
		out = append(out, lead)
	}
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		out = append(out, text[loc[0]:end])
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
