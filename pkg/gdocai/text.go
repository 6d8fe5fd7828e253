package gdocai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// textFromLayout extracts text from a layout's text anchor segments
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText []rune) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	var sb strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start, end := clampSegment(seg, len(fullText))
		sb.WriteString(string(fullText[start:end]))
	}
	return sb.String()
}

func clampSegment(seg *documentaipb.Document_TextAnchor_TextSegment, total int) (int, int) {
	start := int(seg.GetStartIndex())
	end := int(seg.GetEndIndex())
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return start, end
}

// span is the range of the full text a layout covers
type span struct {
	start, end int64
	ok         bool
}

func spanOf(layout *documentaipb.Document_Page_Layout) span {
	segs := layout.GetTextAnchor().GetTextSegments()
	if len(segs) == 0 {
		return span{}
	}
	s := span{start: segs[0].GetStartIndex(), end: segs[0].GetEndIndex(), ok: true}
	for _, seg := range segs[1:] {
		s.start = min(s.start, seg.GetStartIndex())
		s.end = max(s.end, seg.GetEndIndex())
	}
	return s
}

// contains reports whether child lies entirely inside s
func (s span) contains(child span) bool {
	return s.ok && child.ok && child.start >= s.start && child.end <= s.end
}

// cleanToken trims the whitespace Document AI appends to a token that ends
// in a detected break
func cleanToken(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}
