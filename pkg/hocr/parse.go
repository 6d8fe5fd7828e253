package hocr

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// ErrNoPages is returned when hOCR input contains no ocr_page element
var ErrNoPages = errors.New("no ocr_page elements found in hOCR data")

// Parse converts hOCR markup into a Document. Lines (ocr_line, ocrx_line) are
// flattened into their paragraph. Words found directly in a block get an
// implicit paragraph.
func Parse(data []byte) (*Document, error) {
	decoded, err := decodeCharset(data)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("error parsing hOCR markup: %w", err)
	}

	doc := &Document{Metadata: make(map[string]string)}
	readHead(doc, root)

	walk(root, func(n *html.Node) bool {
		if !hasClass(n, "ocr_page") {
			return true
		}
		doc.Pages = append(doc.Pages, parsePage(n, len(doc.Pages)))
		return false
	})

	if len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}
	return doc, nil
}

// ParseTitle breaks an hOCR title attribute into its properties
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) == 0 {
			continue
		}
		props[items[0]] = items[1:]
	}
	return props
}

// ParseBoundingBoxFromTitle extracts the bbox property of a title attribute
func ParseBoundingBoxFromTitle(title string) (BoundingBox, bool) {
	values, ok := ParseTitle(title)["bbox"]
	if !ok || len(values) < 4 {
		return BoundingBox{}, false
	}
	var coords [4]float64
	for i := range coords {
		v, err := strconv.ParseFloat(values[i], 64)
		if err != nil {
			return BoundingBox{}, false
		}
		coords[i] = v
	}
	return NewBoundingBox(coords[0], coords[1], coords[2], coords[3]), true
}

// decodeCharset converts ISO-8859-1 declared input to UTF-8
func decodeCharset(data []byte) ([]byte, error) {
	lower := bytes.ToLower(data[:min(len(data), 2048)])
	idx := bytes.Index(lower, []byte("charset="))
	if idx < 0 {
		return data, nil
	}
	enc := strings.FieldsFunc(string(lower[idx+len("charset="):]), func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == '/' || r == ' '
	})
	if len(enc) == 0 {
		return data, nil
	}
	switch enc[0] {
	case "iso-8859-1", "latin1", "latin-1":
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", enc[0], err)
		}
		return decoded, nil
	default:
		return data, nil
	}
}

func readHead(doc *Document, root *html.Node) {
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "html":
			if lang := attr(n, "lang"); lang != "" {
				doc.Language = lang
			} else if lang := attr(n, "xml:lang"); lang != "" {
				doc.Language = lang
			}
		case "title":
			doc.Title = strings.TrimSpace(textContent(n))
			return false
		case "meta":
			name, content := attr(n, "name"), attr(n, "content")
			if name != "" && content != "" {
				doc.Metadata[name] = content
			}
			return false
		case "body":
			return false
		}
		return true
	})
}

func parsePage(n *html.Node, index int) Page {
	title := attr(n, "title")
	props := ParseTitle(title)
	page := Page{
		ID:         attr(n, "id"),
		PageNumber: index + 1,
		Lang:       attr(n, "lang"),
	}
	page.BBox, _ = ParseBoundingBoxFromTitle(title)
	if v, ok := props["image"]; ok && len(v) > 0 {
		page.ImageName = strings.Trim(strings.Join(v, " "), `"`)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(el *html.Node) bool {
			if hasClass(el, "ocr_carea") {
				page.Blocks = append(page.Blocks, parseBlock(el))
				return false
			}
			return true
		})
	}
	return page
}

func parseBlock(n *html.Node) Block {
	block := Block{ID: attr(n, "id")}
	block.BBox, _ = ParseBoundingBoxFromTitle(attr(n, "title"))

	var loose []Word
	walk(n, func(el *html.Node) bool {
		if el == n {
			return true
		}
		switch {
		case hasClass(el, "ocr_par"):
			block.Paragraphs = append(block.Paragraphs, parseParagraph(el))
			return false
		case hasClass(el, "ocrx_word"):
			loose = append(loose, parseWord(el))
			return false
		}
		return true
	})
	if len(loose) > 0 {
		block.Paragraphs = append(block.Paragraphs, Paragraph{BBox: block.BBox, Words: loose})
	}
	return block
}

func parseParagraph(n *html.Node) Paragraph {
	para := Paragraph{ID: attr(n, "id"), Lang: attr(n, "lang")}
	para.BBox, _ = ParseBoundingBoxFromTitle(attr(n, "title"))
	walk(n, func(el *html.Node) bool {
		if hasClass(el, "ocrx_word") {
			para.Words = append(para.Words, parseWord(el))
			return false
		}
		return true
	})
	return para
}

func parseWord(n *html.Node) Word {
	title := attr(n, "title")
	word := Word{ID: attr(n, "id"), Lang: attr(n, "lang")}
	word.BBox, _ = ParseBoundingBoxFromTitle(title)
	word.Confidence = confidence(ParseTitle(title), "x_wconf")

	walk(n, func(el *html.Node) bool {
		if !hasClass(el, "ocrx_cinfo") {
			return true
		}
		sym := Symbol{Text: textContent(el)}
		sym.BBox, _ = ParseBoundingBoxFromTitle(attr(el, "title"))
		sym.Confidence = confidence(ParseTitle(attr(el, "title")), "x_conf")
		word.Symbols = append(word.Symbols, sym)
		return false
	})
	word.Text = strings.TrimSpace(textContent(n))
	return word
}

func confidence(props map[string][]string, key string) float64 {
	v, ok := props[key]
	if !ok || len(v) == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(v[0], 64)
	if err != nil {
		return 0
	}
	return f
}

// walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(el *html.Node) bool {
		if el.Type == html.TextNode {
			sb.WriteString(el.Data)
		}
		return true
	})
	return sb.String()
}
