package hocr

import (
	"fmt"
	"strings"
)

// Spelling returns the word as spelled by its symbols, falling back to the
// word text when the provider reported no symbols
func (w Word) Spelling() string {
	if len(w.Symbols) == 0 {
		return w.Text
	}
	var sb strings.Builder
	for _, s := range w.Symbols {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Text renders the paragraph as its words separated by single spaces
func (p Paragraph) Text() string {
	words := make([]string, 0, len(p.Words))
	for _, w := range p.Words {
		if s := w.Spelling(); s != "" {
			words = append(words, s)
		}
	}
	return strings.Join(words, " ")
}

// Text renders the document for manual review: a header per page, then one
// line per paragraph in block order
func (d *Document) Text() string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	for i, page := range d.Pages {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "--- page %d ---\n", pageNumber(page, i))
		for _, block := range page.Blocks {
			for _, para := range block.Paragraphs {
				if line := para.Text(); line != "" {
					sb.WriteString(line)
					sb.WriteString("\n")
				}
			}
		}
	}
	return sb.String()
}

// WordCount returns the number of words across all pages
func (d *Document) WordCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, page := range d.Pages {
		for _, block := range page.Blocks {
			for _, para := range block.Paragraphs {
				n += len(para.Words)
			}
		}
	}
	return n
}

func pageNumber(p Page, index int) int {
	if p.PageNumber > 0 {
		return p.PageNumber
	}
	return index + 1
}
