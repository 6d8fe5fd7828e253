// Package gdocai runs ballot images through a Google Document AI OCR processor
// and converts the response into an hocr.Document.
//
// Document AI is the secondary OCR provider: it is only consulted for ballot
// boxes whose tally sheet failed reconciliation, and its output is written to
// the review bundle for a human to check. Nothing it returns is reconciled.
//
// The conversion keeps the hierarchy Document AI reports (page, block,
// paragraph, token, symbol). Children are attached to the parent whose text
// anchor contains them, and normalized vertices are scaled to image pixels.
//
// Usage Requirements:
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor configured for OCR
// - Credentials via Config.CredentialsFile or application default credentials
package gdocai

import (
	"context"
	"fmt"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/gardar/tallyocr/pkg/hocr"
)

// Result is a recognized image together with the raw processor response
type Result struct {
	Document *hocr.Document
	Raw      *documentaipb.Document
}

// RawJSON renders the raw processor response for the review bundle
func (r *Result) RawJSON() ([]byte, error) {
	if r == nil || r.Raw == nil {
		return nil, nil
	}
	return ToJSON(r.Raw)
}

// Recognize sends one image to the processor and converts the response.
// name is recorded as the image name of every page.
func (c *Client) Recognize(ctx context.Context, image []byte, name string) (*Result, error) {
	raw, err := c.ProcessImage(ctx, image, MimeTypeJPEG)
	if err != nil {
		return nil, err
	}
	doc, err := DocumentFromProto(raw, name)
	if err != nil {
		return nil, fmt.Errorf("failed to convert Document AI response: %w", err)
	}
	return &Result{Document: doc, Raw: raw}, nil
}
