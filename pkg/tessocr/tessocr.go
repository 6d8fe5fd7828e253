// Package tessocr is the offline secondary OCR provider. It runs Tesseract
// through gosseract and reads its hOCR output into an hocr.Document.
//
// Tesseract needs cgo and the libtesseract headers, so the engine is only
// compiled with the "tesseract" build tag. Without it Recognize returns
// ErrUnavailable.
package tessocr

import (
	"errors"
	"fmt"

	"github.com/gardar/tallyocr/pkg/hocr"
)

// ErrUnavailable is returned when the binary was built without Tesseract
var ErrUnavailable = errors.New("tesseract support not compiled in (build with -tags tesseract)")

// DefaultLanguages are the Tesseract language packs used for tally sheets
var DefaultLanguages = []string{"tur"}

// documentFromHOCR parses Tesseract hOCR and names every page after the
// source image
func documentFromHOCR(raw []byte, imageName string) (*hocr.Document, error) {
	doc, err := hocr.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tesseract hOCR: %w", err)
	}
	if doc.Title == "" {
		doc.Title = imageName
	}
	doc.Metadata["ocr-system"] = "tesseract"
	for i := range doc.Pages {
		doc.Pages[i].ImageName = imageName
	}
	return doc, nil
}
