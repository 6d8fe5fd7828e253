package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/gardar/tallyocr/pkg/artifacts"
	"github.com/gardar/tallyocr/pkg/ballot"
	"github.com/gardar/tallyocr/pkg/logging"
	"github.com/gardar/tallyocr/pkg/outcome"
	"github.com/gardar/tallyocr/pkg/tally"
	"github.com/gardar/tallyocr/pkg/textract"
)

// OutcomeStore records terminal states of ballot boxes
type OutcomeStore interface {
	Has(ctx context.Context, id string) (bool, error)
	Put(ctx context.Context, rec outcome.Record) error
}

// Deps wires a Processor
type Deps struct {
	Images   ImageSource
	Primary  PrimaryOCR
	Store    *artifacts.Store
	Matcher  *tally.Matcher
	Fallback *Fallback
	Outcomes OutcomeStore // Optional
	Timeouts Timeouts
	Logger   *slog.Logger
}

// Processor runs one ballot box through the pipeline. It is safe for
// concurrent use across distinct ids.
type Processor struct {
	images   ImageSource
	primary  PrimaryOCR
	store    *artifacts.Store
	matcher  *tally.Matcher
	fallback *Fallback
	outcomes OutcomeStore
	timeouts Timeouts
	logger   *slog.Logger

	inflight singleflight.Group
}

// NewProcessor validates the dependencies and creates a Processor
func NewProcessor(d Deps) (*Processor, error) {
	var missing []error
	if d.Images == nil {
		missing = append(missing, errors.New("image source"))
	}
	if d.Primary == nil {
		missing = append(missing, errors.New("primary OCR"))
	}
	if d.Store == nil {
		missing = append(missing, errors.New("artifact store"))
	}
	if d.Matcher == nil {
		missing = append(missing, errors.New("matcher"))
	}
	if d.Fallback == nil {
		missing = append(missing, errors.New("fallback"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, fmt.Errorf("processor requires: %w", err)
	}
	return &Processor{
		images:   d.Images,
		primary:  d.Primary,
		store:    d.Store,
		matcher:  d.Matcher,
		fallback: d.Fallback,
		outcomes: d.Outcomes,
		timeouts: d.Timeouts,
		logger:   logging.NewComponentLogger(d.Logger, "processor"),
	}, nil
}

// Result is the outcome of processing one ballot box
type Result struct {
	ID             string
	State          outcome.State
	Reconciliation tally.Reconciliation
	NoTable        bool
	Fallback       *FallbackReport // Set when reconciliation failed
}

// Process runs a ballot box: cache the image, obtain the primary response,
// match and reconcile, and fall back on mismatch. runID tags logs and the
// stored outcome.
func (p *Processor) Process(ctx context.Context, rec ballot.Record, runID string) (*Result, error) {
	logger := p.logger.With(
		slog.String(logging.FieldBallotBoxID, rec.ID),
		slog.String(logging.FieldRunID, runID),
	)

	url, err := rec.ImageRef()
	if err != nil {
		return nil, err
	}

	done, err := p.store.Quarantined(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if done {
		return p.resumeQuarantined(ctx, rec.ID, runID, logger)
	}

	if err := p.ensureImage(ctx, rec.ID, url); err != nil {
		return nil, err
	}

	resp, err := p.primaryResponse(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	extracted, err := textract.TableText(resp)
	if err != nil {
		return nil, fmt.Errorf("extract tables of %s: %w", rec.ID, err)
	}
	if extracted.Extraction.NoTable {
		logger.Warn("no table detected in primary OCR response")
	}
	if err := p.store.Write(ctx, artifacts.Table, rec.ID, []byte(extracted.Text)); err != nil {
		return nil, err
	}

	t := p.matchSections(extracted.Sections, logger)
	result := &Result{
		ID:             rec.ID,
		Reconciliation: tally.Reconcile(t),
		NoTable:        extracted.Extraction.NoTable,
	}

	if result.Reconciliation.Match {
		result.State = outcome.Verified
		logger.Info("counts reconciled", slog.String("counts", result.Reconciliation.String()))
	} else {
		logger.Info("reconciliation failed, falling back",
			slog.String("reason", result.Reconciliation.Reason()),
			slog.String("counts", result.Reconciliation.String()))
		report, err := p.fallback.Run(ctx, rec.ID)
		result.Fallback = report
		if err != nil {
			return result, err
		}
		result.State = outcome.Quarantined
	}

	if err := p.record(ctx, result, runID); err != nil {
		return result, err
	}
	return result, nil
}

// resumeQuarantined records the outcome of a bundle that an earlier run
// already moved into quarantine, without calling any provider. Verified
// originals that run failed to delete are removed first.
func (p *Processor) resumeQuarantined(ctx context.Context, id, runID string, logger *slog.Logger) (*Result, error) {
	if err := p.store.Quarantine(ctx, id); err != nil {
		return nil, fmt.Errorf("finish quarantine of %s: %w", id, err)
	}
	table, err := p.store.ReadQuarantined(ctx, artifacts.Table, id)
	if err != nil {
		return nil, err
	}
	t := p.matchSections(textract.SplitSections(string(table)), logger)
	result := &Result{
		ID:             id,
		State:          outcome.Quarantined,
		Reconciliation: tally.Reconcile(t),
	}
	logger.Info("bundle already quarantined", slog.String("counts", result.Reconciliation.String()))
	if err := p.record(ctx, result, runID); err != nil {
		return result, err
	}
	return result, nil
}

func (p *Processor) matchSections(raw []string, logger *slog.Logger) tally.Tally {
	sections := make([]tally.SanitizedText, 0, len(raw))
	for _, s := range raw {
		sections = append(sections, tally.Sanitized(s))
	}
	t := p.matcher.MatchTables(sections)
	if t.MergedTables() {
		logger.Warn("counts merged across tables", slog.Any("tables", t.ContributingTables))
	}
	if len(t.ConflictingTotals) > 0 {
		logger.Warn("tables declare different totals",
			slog.Int("declared_total", *t.DeclaredTotal), slog.Any("conflicting", t.ConflictingTotals))
	}
	return t
}

// load reads an artifact from verified storage, or from quarantine when an
// interrupted relocation already moved it
func (p *Processor) load(ctx context.Context, a artifacts.Artifact, id string) ([]byte, error) {
	data, err := p.store.Read(ctx, a, id)
	if artifacts.IsNotFound(err) {
		return p.store.ReadQuarantined(ctx, a, id)
	}
	return data, err
}

// ensureImage downloads the image unless it is already stored
func (p *Processor) ensureImage(ctx context.Context, id, url string) error {
	ok, err := p.store.Has(ctx, artifacts.Image, id)
	if err != nil || ok {
		return err
	}
	if _, err := p.store.ReadQuarantined(ctx, artifacts.Image, id); !artifacts.IsNotFound(err) {
		return err
	}

	cctx, cancel := withTimeout(ctx, p.timeouts.Fetch)
	defer cancel()
	data, err := p.images.Fetch(cctx, url)
	if err != nil {
		return fmt.Errorf("ballot box %s: %w", id, err)
	}
	return p.store.Write(ctx, artifacts.Image, id, data)
}

// primaryResponse returns the cached primary OCR response of id, calling the
// provider only when none is cached. Concurrent callers for one id share a
// single call. A fresh response is persisted and decoded from its persisted
// form, so fresh and cached responses are handled identically.
func (p *Processor) primaryResponse(ctx context.Context, id string) (*textract.Response, error) {
	v, err, _ := p.inflight.Do(id, func() (any, error) {
		cached, err := p.load(ctx, artifacts.Response, id)
		if err == nil {
			return textract.DecodeResponse(cached)
		}
		if !artifacts.IsNotFound(err) {
			return nil, err
		}

		image, err := p.load(ctx, artifacts.Image, id)
		if err != nil {
			return nil, err
		}

		cctx, cancel := withTimeout(ctx, p.timeouts.Primary)
		defer cancel()
		resp, err := p.primary.AnalyzeTables(cctx, textract.Document{
			Bytes: image,
			Key:   artifacts.Image.VerifiedKey(id),
		})
		if err != nil {
			return nil, fmt.Errorf("primary OCR of %s: %w", id, err)
		}

		encoded, err := textract.EncodeResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("encode primary response of %s: %w", id, err)
		}
		if err := p.store.Write(ctx, artifacts.Response, id, encoded); err != nil {
			return nil, err
		}
		return textract.DecodeResponse(encoded)
	})
	if err != nil {
		return nil, err
	}
	return v.(*textract.Response), nil
}

func (p *Processor) record(ctx context.Context, r *Result, runID string) error {
	if p.outcomes == nil {
		return nil
	}
	rec := outcome.Record{
		ID:            r.ID,
		State:         r.State,
		Counts:        r.Reconciliation.Counts,
		DeclaredTotal: r.Reconciliation.DeclaredTotal,
		Sum:           r.Reconciliation.Sum,
		Tables:        len(r.Reconciliation.ContributingTables),
		Strategy:      p.matcher.Strategy().Name(),
		Reason:        r.Reconciliation.Reason(),
		RunID:         runID,
	}
	if err := p.outcomes.Put(ctx, rec); err != nil {
		return fmt.Errorf("record outcome of %s: %w", r.ID, err)
	}
	return nil
}
