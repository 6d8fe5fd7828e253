package tally

import (
	"fmt"
	"sort"
	"strings"
)

// TotalKeyword is the label of the declared grand total row on tally sheets
const TotalKeyword = "TOPLAM"

// Candidate is a canonical candidate name and the spellings OCR is known to
// produce for it. Variants always include the canonical name itself.
type Candidate struct {
	Name     string   `yaml:"name"`
	Variants []string `yaml:"variants"`
}

// Candidates is an immutable, validated candidate table
type Candidates struct {
	list []Candidate
}

// DefaultCandidates returns the candidate table of the 14 May 2023
// presidential ballot with variants observed in sanitized Textract output
func DefaultCandidates() *Candidates {
	c, err := NewCandidates([]Candidate{
		{Name: "RECEP TAYYIP ERDOGAN", Variants: []string{"RECEP TAYYP ERDOGAN", "RECEP TAYY1P ERDOGAN", "RECEP TAYYIP ERDOAN"}},
		{Name: "MUHARREM INCE", Variants: []string{"MUHARREM 1NCE", "MUHARREM NCE", "MUHAREM INCE"}},
		{Name: "KEMAL KILICDAROGLU", Variants: []string{"KEMAL KLICDAROGLU", "KEMAL KILIDAROLU", "KEMAL KILICDAROLU", "KEMAL KLIDAROLU"}},
		{Name: "SINAN OGAN", Variants: []string{"SNAN OGAN", "SINAN OAN", "S1NAN OGAN"}},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// NewCandidates validates and normalizes a candidate list. Names and variants
// are trimmed, the canonical name is placed first among the variants and
// duplicate variants are dropped while keeping registration order.
func NewCandidates(list []Candidate) (*Candidates, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("candidate list is empty")
	}

	seenNames := make(map[string]bool, len(list))
	out := make([]Candidate, 0, len(list))
	for _, c := range list {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("candidate with empty name")
		}
		if name == TotalKeyword {
			return nil, fmt.Errorf("candidate name %q is reserved", name)
		}
		if seenNames[name] {
			return nil, fmt.Errorf("duplicate candidate %q", name)
		}
		seenNames[name] = true

		variants := []string{name}
		seen := map[string]bool{name: true}
		for _, v := range c.Variants {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			variants = append(variants, v)
		}
		out = append(out, Candidate{Name: name, Variants: variants})
	}

	return &Candidates{list: out}, nil
}

// List returns a copy of the candidates in registration order
func (c *Candidates) List() []Candidate {
	out := make([]Candidate, len(c.list))
	for i, cand := range c.list {
		out[i] = Candidate{Name: cand.Name, Variants: append([]string(nil), cand.Variants...)}
	}
	return out
}

// Names returns the canonical names sorted alphabetically
func (c *Candidates) Names() []string {
	names := make([]string, 0, len(c.list))
	for _, cand := range c.list {
		names = append(names, cand.Name)
	}
	sort.Strings(names)
	return names
}

// sorted returns the candidates ordered by name. Matching iterates in this
// order so results never depend on registration order.
func (c *Candidates) sorted() []Candidate {
	out := append([]Candidate(nil), c.list...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
