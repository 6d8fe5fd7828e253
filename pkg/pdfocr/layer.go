package pdfocr

import (
	"fmt"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/gardar/tallyocr/pkg/hocr"
)

// Letters of the Turkish alphabet that ISO-8859-1 lacks
var latin1Fold = strings.NewReplacer("ş", "s", "Ş", "S", "ğ", "g", "Ğ", "G", "ı", "i", "İ", "I")

// drawOCRLayer draws the words of a page onto a layer named after the page
func drawOCRLayer(pdf *fpdf.Fpdf, page hocr.Page, config Config, pageNum int,
	transform func(x, y float64) (float64, float64)) error {

	layer := pdf.AddLayer(fmt.Sprintf("%s (Page %d)", config.LayerName, pageNum), true)
	pdf.BeginLayer(layer)
	pdf.SetFont(config.Font.Name, config.Font.Style, config.Font.Size)

	if config.Debug {
		pdf.SetTextColor(255, 0, 0)
	} else {
		pdf.SetAlpha(0.0, "Normal")
	}

	encodingErrors, wordCount := 0, 0
	for _, block := range page.Blocks {
		for _, para := range block.Paragraphs {
			for _, word := range para.Words {
				if word.BBox.Empty() || word.Spelling() == "" {
					continue
				}
				if !drawWord(pdf, word, transform, config) {
					encodingErrors++
				}
				wordCount++
			}
		}
	}

	if !config.Debug {
		pdf.SetAlpha(1.0, "Normal")
	}
	pdf.EndLayer()

	if wordCount > 0 && encodingErrors > wordCount/10 {
		return fmt.Errorf("character encoding issues in %d of %d words", encodingErrors, wordCount)
	}
	return nil
}

// drawWord renders a single word scaled to its box. It reports false when the
// text could not be encoded for the core font.
func drawWord(pdf *fpdf.Fpdf, word hocr.Word, transform func(x, y float64) (float64, float64), config Config) bool {
	x, y := transform(word.BBox.X1, word.BBox.Y1)
	x2, y2 := transform(word.BBox.X2, word.BBox.Y2)
	wordWidth := x2 - x

	text, ok := toLatin1(word.Spelling())

	if strWidth := pdf.GetStringWidth(text); strWidth > 0 {
		pdf.SetFontSize(config.Font.Size * wordWidth / strWidth)
	}
	fontSize, _ := pdf.GetFontSize()
	pdf.Text(x, y+fontSize*config.Font.AscentRatio, text)
	pdf.SetFontSize(config.Font.Size)

	if config.Debug {
		pdf.Rect(x, y, wordWidth, y2-y, "D")
	}
	return ok
}

// toLatin1 converts text for the PDF core fonts, folding Turkish letters
// without a Latin-1 code point
func toLatin1(s string) (string, bool) {
	enc := charmap.ISO8859_1.NewEncoder()
	if out, err := enc.String(s); err == nil {
		return out, true
	}
	out, err := enc.String(latin1Fold.Replace(s))
	if err != nil {
		return s, false
	}
	return out, true
}
