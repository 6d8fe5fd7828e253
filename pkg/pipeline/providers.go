package pipeline

import (
	"context"
	"fmt"

	"github.com/gardar/tallyocr/pkg/gdocai"
	"github.com/gardar/tallyocr/pkg/hocr"
	"github.com/gardar/tallyocr/pkg/tessocr"
	"github.com/gardar/tallyocr/pkg/textract"
)

// ImageSource downloads tally-sheet images
type ImageSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PrimaryOCR returns the table block graph of an image
type PrimaryOCR interface {
	AnalyzeTables(ctx context.Context, doc textract.Document) (*textract.Response, error)
}

// RawFormat is the encoding of a provider's raw response
type RawFormat int

const (
	RawJSON RawFormat = iota
	RawHOCR
)

// Recognition is the output of a secondary OCR provider
type Recognition struct {
	Document  *hocr.Document
	Raw       []byte // Provider response as returned; nil when the provider has none
	RawFormat RawFormat
}

// SecondaryOCR recognizes the hierarchical text of an image for review
type SecondaryOCR interface {
	Name() string
	Recognize(ctx context.Context, image []byte, name string) (*Recognition, error)
}

type documentAI struct {
	client *gdocai.Client
}

// DocumentAI adapts a Document AI client as secondary provider
func DocumentAI(c *gdocai.Client) SecondaryOCR {
	return documentAI{client: c}
}

func (documentAI) Name() string { return "documentai" }

func (d documentAI) Recognize(ctx context.Context, image []byte, name string) (*Recognition, error) {
	res, err := d.client.Recognize(ctx, image, name)
	if err != nil {
		return nil, err
	}
	raw, err := res.RawJSON()
	if err != nil {
		return nil, fmt.Errorf("encode Document AI response: %w", err)
	}
	return &Recognition{Document: res.Document, Raw: raw, RawFormat: RawJSON}, nil
}

type tesseract struct {
	engine *tessocr.Engine
}

// Tesseract adapts a local Tesseract engine as secondary provider
func Tesseract(e *tessocr.Engine) SecondaryOCR {
	return tesseract{engine: e}
}

func (tesseract) Name() string { return "tesseract" }

func (t tesseract) Recognize(ctx context.Context, image []byte, name string) (*Recognition, error) {
	doc, raw, err := t.engine.Recognize(ctx, image, name)
	if err != nil {
		return nil, err
	}
	return &Recognition{Document: doc, Raw: raw, RawFormat: RawHOCR}, nil
}
