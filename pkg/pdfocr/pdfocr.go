// Package pdfocr assembles searchable review PDFs: each page is a ballot
// image with the secondary OCR text drawn over it on an invisible layer.
//
// The text is placed at the bounding box of each recognized word, so a
// reviewer can search and select the OCR output directly on the scanned tally
// sheet. Readers that support optional content can toggle the layer.
package pdfocr

import (
	"errors"
	"fmt"

	"github.com/gardar/tallyocr/pkg/hocr"
)

// Render creates a PDF from images and overlays the text of the matching
// hOCR page on each of them. Pages without a bounding box take the size of
// their image.
func Render(doc *hocr.Document, images [][]byte, config Config) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("hOCR document is nil")
	}
	if len(doc.Pages) == 0 {
		return nil, errors.New("hOCR data contains no pages")
	}
	if len(images) == 0 {
		return nil, errors.New("no image data provided")
	}
	if len(images) < len(doc.Pages) {
		return nil, fmt.Errorf("not enough images (%d) for hOCR pages (%d)", len(images), len(doc.Pages))
	}

	pages := make([]pageImage, 0, len(doc.Pages))
	for i, page := range doc.Pages {
		if len(images[i]) == 0 {
			return nil, fmt.Errorf("image %d is empty", i+1)
		}
		info, err := inspectImage(images[i])
		if err != nil {
			return nil, fmt.Errorf("image %d has invalid format: %w", i+1, err)
		}
		pages = append(pages, pageImage{page: page, data: images[i], info: info})
	}

	out, err := createPDF(pages, config)
	if err != nil {
		return nil, fmt.Errorf("error creating PDF from images: %w", err)
	}
	return out, nil
}
