//go:build !tesseract

package tessocr

import (
	"context"

	"github.com/gardar/tallyocr/pkg/hocr"
)

// Available reports whether Tesseract was compiled in
const Available = false

// Engine is a placeholder that always fails with ErrUnavailable
type Engine struct {
	languages []string
}

// New creates an engine for the given language packs
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Engine{languages: languages}
}

// Recognize always returns ErrUnavailable
func (e *Engine) Recognize(context.Context, []byte, string) (*hocr.Document, []byte, error) {
	return nil, nil, ErrUnavailable
}
