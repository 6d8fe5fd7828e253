package pdfocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/gardar/tallyocr/pkg/hocr"
)

type imageInfo struct {
	format        string // fpdf image type, e.g. "JPEG"
	width, height float64
}

type pageImage struct {
	page hocr.Page
	data []byte
	info imageInfo
}

// createPDF builds the PDF page by page. Inputs have been validated by Render.
func createPDF(pages []pageImage, config Config) ([]byte, error) {
	config = config.withDefaults()
	pdf := fpdf.New("P", "pt", "A4", "")

	for i, p := range pages {
		pageW, pageH := p.info.width, p.info.height
		hocrW, hocrH := pageW, pageH
		if !p.page.BBox.Empty() {
			hocrW, hocrH = p.page.BBox.X2, p.page.BBox.Y2
		}

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: pageW, Ht: pageH})

		name := fmt.Sprintf("img%d", i)
		opts := fpdf.ImageOptions{ReadDpi: false, ImageType: p.info.format}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.data))
		pdf.ImageOptions(name, 0, 0, pageW, pageH, false, opts, 0, "")

		transform := func(x, y float64) (float64, float64) {
			return normalizeCoords(x, y, hocrW, hocrH, pageW, pageH)
		}
		if err := drawOCRLayer(pdf, p.page, config, i+1, transform); err != nil {
			return nil, fmt.Errorf("failed to draw OCR layer for page %d: %w", i+1, err)
		}
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// inspectImage reads the format and pixel size of an image
func inspectImage(data []byte) (imageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return imageInfo{}, fmt.Errorf("failed to decode image config: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return imageInfo{}, fmt.Errorf("image has no area (%dx%d)", cfg.Width, cfg.Height)
	}
	return imageInfo{
		format: strings.ToUpper(format),
		width:  float64(cfg.Width),
		height: float64(cfg.Height),
	}, nil
}

// normalizeCoords rescales hOCR bounding box coords to PDF coords
func normalizeCoords(x, y, hocrW, hocrH, pdfW, pdfH float64) (float64, float64) {
	return (x / hocrW) * pdfW, (y / hocrH) * pdfH
}
