package pdfocr

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/gardar/tallyocr/pkg/hocr"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func reviewDocument(bbox hocr.BoundingBox) *hocr.Document {
	return &hocr.Document{Pages: []hocr.Page{{
		PageNumber: 1,
		BBox:       bbox,
		Blocks: []hocr.Block{{Paragraphs: []hocr.Paragraph{{Words: []hocr.Word{
			{Text: "KILIÇDAROĞLU", BBox: hocr.NewBoundingBox(10, 10, 120, 30)},
			{Text: "80", BBox: hocr.NewBoundingBox(130, 10, 160, 30)},
			{Text: "", BBox: hocr.NewBoundingBox(0, 0, 1, 1)},
		}}}}},
	}}}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		bbox hocr.BoundingBox
	}{
		{"page box", hocr.NewBoundingBox(0, 0, 200, 100)},
		{"image size fallback", hocr.BoundingBox{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(reviewDocument(tt.bbox), [][]byte{testJPEG(t, 200, 100)}, DefaultConfig())
			if err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			if !bytes.HasPrefix(out, []byte("%PDF-")) {
				t.Fatalf("output is not a PDF: %q", out[:min(len(out), 16)])
			}
			if !bytes.Contains(out, []byte("/OCG")) {
				t.Fatal("expected an optional content group for the OCR layer")
			}
		})
	}
}

func TestRenderValidation(t *testing.T) {
	img := testJPEG(t, 20, 20)
	tests := []struct {
		name   string
		doc    *hocr.Document
		images [][]byte
	}{
		{"nil document", nil, [][]byte{img}},
		{"no pages", &hocr.Document{}, [][]byte{img}},
		{"no images", reviewDocument(hocr.BoundingBox{}), nil},
		{"empty image", reviewDocument(hocr.BoundingBox{}), [][]byte{{}}},
		{"not an image", reviewDocument(hocr.BoundingBox{}), [][]byte{[]byte("plain text")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Render(tt.doc, tt.images, DefaultConfig()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestToLatin1(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"TOPLAM", "TOPLAM", true},
		{"ÇAY", "\xc7AY", true},
		{"ŞIĞ", "SIG", true},
		{"東京", "東京", false},
	}
	for _, tt := range tests {
		got, ok := toLatin1(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("toLatin1(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
