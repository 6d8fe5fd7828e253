//go:build tesseract

package tessocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/gardar/tallyocr/pkg/hocr"
)

// Available reports whether Tesseract was compiled in
const Available = true

// Engine recognizes images with a fresh gosseract client per call
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New creates an engine for the given language packs
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

// Recognize returns the parsed document and the raw hOCR Tesseract produced
func (e *Engine) Recognize(ctx context.Context, image []byte, name string) (*hocr.Document, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return nil, nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return nil, nil, fmt.Errorf("set image: %w", err)
	}
	out, err := c.HOCRText()
	if err != nil {
		return nil, nil, fmt.Errorf("recognize hOCR: %w", err)
	}

	raw := []byte(out)
	doc, err := documentFromHOCR(raw, name)
	if err != nil {
		return nil, nil, err
	}
	return doc, raw, nil
}
