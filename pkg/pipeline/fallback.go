package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gardar/tallyocr/pkg/artifacts"
	"github.com/gardar/tallyocr/pkg/hocr"
	"github.com/gardar/tallyocr/pkg/logging"
	"github.com/gardar/tallyocr/pkg/pdfocr"
)

// Review file names under not_same/{id}/review/
const (
	ReviewText    = "secondary_text_cm.txt"
	ReviewHOCR    = "secondary_cm.hocr"
	ReviewRaw     = "secondary_data_cm.json"
	ReviewRawHOCR = "secondary_data_cm.hocr" // Raw output of providers that emit hOCR
	ReviewPDF     = "secondary_cm.pdf"
)

// FallbackReport describes what the fallback did for one ballot box
type FallbackReport struct {
	Provider     string
	Words        int      // Words recognized by the secondary provider
	ReviewFiles  []string // Review files written
	SecondaryErr error    // Secondary OCR failure; quarantine still happened
	ReviewErr    error    // Failure writing review files after quarantine
}

// Fallback handles ballot boxes whose counts did not reconcile
type Fallback struct {
	store     *artifacts.Store
	secondary SecondaryOCR
	timeout   time.Duration
	pdf       pdfocr.Config
	logger    *slog.Logger
}

// NewFallback creates a Fallback. A nil secondary provider quarantines
// without review output.
func NewFallback(store *artifacts.Store, secondary SecondaryOCR, timeout time.Duration, logger *slog.Logger) *Fallback {
	return &Fallback{
		store:     store,
		secondary: secondary,
		timeout:   timeout,
		pdf:       pdfocr.DefaultConfig(),
		logger:    logging.NewComponentLogger(logger, "fallback"),
	}
}

// Run recognizes the image with the secondary provider, then moves the
// bundle of id into quarantine and writes the review files next to it.
// Only a failed relocation is returned as error.
func (f *Fallback) Run(ctx context.Context, id string) (*FallbackReport, error) {
	logger := f.logger.With(slog.String(logging.FieldBallotBoxID, id))
	report := &FallbackReport{}

	image, err := f.image(ctx, id)
	var rec *Recognition
	if err == nil {
		rec, err = f.recognize(ctx, image, id, report)
	}
	if err != nil {
		report.SecondaryErr = err
		logger.Warn("secondary OCR failed, quarantining without review output",
			logging.Error(err), slog.String(logging.FieldErrorKind, ErrorKind(err)))
	}

	// With ErrSourceNotRemoved the bundle is complete in quarantine, so the
	// review files are still written and the error is returned afterwards.
	var relocErr error
	if err := f.store.Quarantine(ctx, id); err != nil {
		relocErr = fmt.Errorf("quarantine %s: %w", id, err)
		if !errors.Is(err, artifacts.ErrSourceNotRemoved) {
			return report, relocErr
		}
	}
	logger.Info("bundle quarantined", slog.String("provider", report.Provider), slog.Int("words", report.Words))

	if rec != nil {
		report.ReviewFiles, report.ReviewErr = f.writeReview(ctx, id, image, rec)
		if report.ReviewErr != nil {
			logger.Warn("writing review files failed", logging.Error(report.ReviewErr))
		}
	}
	return report, relocErr
}

// Review runs the secondary provider again for an id that is already in
// quarantine and rewrites its review files
func (f *Fallback) Review(ctx context.Context, id string) (*FallbackReport, error) {
	report := &FallbackReport{}
	image, err := f.store.ReadQuarantined(ctx, artifacts.Image, id)
	if err != nil {
		return report, err
	}
	rec, err := f.recognize(ctx, image, id, report)
	if err != nil {
		report.SecondaryErr = err
		return report, err
	}
	report.ReviewFiles, report.ReviewErr = f.writeReview(ctx, id, image, rec)
	return report, report.ReviewErr
}

// image reads the tally sheet from verified storage, or from quarantine
// when an interrupted run already moved it
func (f *Fallback) image(ctx context.Context, id string) ([]byte, error) {
	data, err := f.store.Read(ctx, artifacts.Image, id)
	if artifacts.IsNotFound(err) {
		return f.store.ReadQuarantined(ctx, artifacts.Image, id)
	}
	return data, err
}

func (f *Fallback) recognize(ctx context.Context, image []byte, id string, report *FallbackReport) (*Recognition, error) {
	if f.secondary == nil {
		return nil, errors.New("no secondary OCR provider configured")
	}
	report.Provider = f.secondary.Name()

	cctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()
	rec, err := f.secondary.Recognize(cctx, image, artifacts.Image.FileName())
	if err != nil {
		return nil, fmt.Errorf("%s recognize %s: %w", report.Provider, id, err)
	}
	if rec == nil || rec.Document == nil {
		return nil, fmt.Errorf("%s returned no document for %s", report.Provider, id)
	}
	if rec.Document.Title == "" {
		rec.Document.Title = "ballot box " + id
	}
	report.Words = rec.Document.WordCount()
	return rec, nil
}

// writeReview stores every review file it can render and returns the names
// written together with the joined errors of the others
func (f *Fallback) writeReview(ctx context.Context, id string, image []byte, rec *Recognition) ([]string, error) {
	var written []string
	var errs []error
	put := func(name, contentType string, data []byte) {
		if err := f.store.WriteReview(ctx, id, name, data, contentType); err != nil {
			errs = append(errs, err)
			return
		}
		written = append(written, name)
	}

	put(ReviewText, "text/plain; charset=utf-8", []byte(rec.Document.Text()))

	if markup, err := hocr.Generate(rec.Document); err != nil {
		errs = append(errs, err)
	} else {
		put(ReviewHOCR, "text/html; charset=utf-8", []byte(markup))
	}

	if len(rec.Raw) > 0 {
		switch rec.RawFormat {
		case RawHOCR:
			put(ReviewRawHOCR, "text/html; charset=utf-8", rec.Raw)
		default:
			put(ReviewRaw, "application/json", rec.Raw)
		}
	}

	if pdf, err := pdfocr.Render(rec.Document, [][]byte{image}, f.pdf); err != nil {
		errs = append(errs, fmt.Errorf("render review PDF: %w", err))
	} else {
		put(ReviewPDF, "application/pdf", pdf)
	}

	return written, errors.Join(errs...)
}
