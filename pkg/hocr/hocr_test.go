package hocr

import (
	"errors"
	"strings"
	"testing"
)

func sampleDocument() *Document {
	return &Document{
		Title:    "ballot 1001",
		Language: "tr",
		Metadata: map[string]string{"ocr-system": "documentai"},
		Pages: []Page{{
			ID:         "page_1",
			PageNumber: 1,
			ImageName:  "cm.jpg",
			BBox:       NewBoundingBox(0, 0, 1000, 800),
			Blocks: []Block{{
				ID:   "block_1_1",
				BBox: NewBoundingBox(10, 10, 500, 60),
				Paragraphs: []Paragraph{{
					ID:   "par_1_1_1",
					BBox: NewBoundingBox(10, 10, 500, 60),
					Words: []Word{
						{ID: "word_1_1", Text: "TOPLAM", BBox: NewBoundingBox(10, 10, 200, 60), Confidence: 97},
						{
							ID: "word_1_2", Text: "150", BBox: NewBoundingBox(300, 10, 400, 60), Confidence: 88.4,
							Symbols: []Symbol{
								{Text: "1", BBox: NewBoundingBox(300, 10, 330, 60), Confidence: 90},
								{Text: "5", BBox: NewBoundingBox(335, 10, 365, 60), Confidence: 85},
								{Text: "0", BBox: NewBoundingBox(370, 10, 400, 60), Confidence: 91},
							},
						},
					},
				}},
			}},
		}},
	}
}

func TestGenerateParseRoundTrip(t *testing.T) {
	out, err := Generate(sampleDocument())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	for _, want := range []string{`class="ocr_page"`, `class="ocrx_cinfo"`, "bbox 300 10 400 60; x_wconf 88", "image cm.jpg"} {
		if !strings.Contains(out, want) {
			t.Errorf("generated hOCR missing %q", want)
		}
	}

	doc, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if doc.Title != "ballot 1001" || doc.Language != "tr" || doc.Metadata["ocr-system"] != "documentai" {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].ImageName != "cm.jpg" {
		t.Fatalf("unexpected pages: %+v", doc.Pages)
	}
	words := doc.Pages[0].Blocks[0].Paragraphs[0].Words
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[1].Spelling() != "150" || len(words[1].Symbols) != 3 {
		t.Fatalf("unexpected second word: %+v", words[1])
	}
	if words[0].Confidence != 97 || words[0].BBox != NewBoundingBox(10, 10, 200, 60) {
		t.Fatalf("unexpected first word: %+v", words[0])
	}
}

func TestGenerateEscapesText(t *testing.T) {
	doc := sampleDocument()
	doc.Pages[0].Blocks[0].Paragraphs[0].Words[0].Text = "A<B&C"
	out, err := Generate(doc)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if strings.Contains(out, "A<B&C") {
		t.Fatal("expected word text to be escaped")
	}
	parsed, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := parsed.Pages[0].Blocks[0].Paragraphs[0].Words[0].Text; got != "A<B&C" {
		t.Fatalf("Text = %q", got)
	}
}

func TestParseTesseractLines(t *testing.T) {
	input := `<html><head><meta http-equiv="Content-Type" content="text/html;charset=utf-8"/></head><body>
<div class='ocr_page' id='page_1' title='image "cm.jpg"; bbox 0 0 640 480; ppageno 0'>
 <div class='ocr_carea' id='block_1_1' title="bbox 36 92 618 361">
  <p class='ocr_par' id='par_1_1' lang='tur' title="bbox 36 92 618 361">
   <span class='ocr_line' id='line_1_1' title="bbox 36 92 580 122">
    <span class='ocrx_word' id='word_1_1' title='bbox 36 92 96 116; x_wconf 90'>MUHARREM</span>
    <span class='ocrx_word' id='word_1_2' title='bbox 109 92 202 116; x_wconf 89'>INCE</span>
   </span>
   <span class='ocr_line' id='line_1_2' title="bbox 36 130 580 160">
    <span class='ocrx_word' id='word_1_3' title='bbox 36 130 96 160; x_wconf 93'>50</span>
   </span>
  </p>
 </div>
</div></body></html>`

	doc, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	page := doc.Pages[0]
	if page.ImageName != "cm.jpg" || page.PageNumber != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if got := doc.Text(); got != "--- page 1 ---\nMUHARREM INCE 50\n" {
		t.Fatalf("Text = %q", got)
	}
	if doc.WordCount() != 3 {
		t.Fatalf("WordCount = %d", doc.WordCount())
	}
}

func TestParseLatin1(t *testing.T) {
	input := []byte("<html><head><meta http-equiv=\"Content-Type\" content=\"text/html;charset=iso-8859-1\"/></head><body>" +
		"<div class='ocr_page'><div class='ocr_carea'><span class='ocrx_word'>\xc7AY</span></div></div></body></html>")
	doc, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := doc.Text(); got != "--- page 1 ---\nÇAY\n" {
		t.Fatalf("Text = %q", got)
	}
}

func TestParseWithoutPages(t *testing.T) {
	if _, err := Parse([]byte("<html><body><p>nothing</p></body></html>")); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
}

func TestParseBoundingBoxFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  BoundingBox
		ok    bool
	}{
		{"bbox 1 2 3 4; x_wconf 90", NewBoundingBox(1, 2, 3, 4), true},
		{"x_wconf 90", BoundingBox{}, false},
		{"bbox 1 2 x 4", BoundingBox{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseBoundingBoxFromTitle(tt.title)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseBoundingBoxFromTitle(%q) = %v, %v", tt.title, got, ok)
		}
	}
}

func TestGenerateNilDocument(t *testing.T) {
	if _, err := Generate(nil); err == nil {
		t.Fatal("expected error")
	}
}
