package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gardar/tallyocr/pkg/ballot"
	"github.com/gardar/tallyocr/pkg/logging"
	"github.com/gardar/tallyocr/pkg/outcome"
)

// DefaultWorkers is the parallelism used when none is configured
const DefaultWorkers = 1

// BatchOptions configures a Batch
type BatchOptions struct {
	Workers int  // Ballot boxes processed in parallel; <= 0 selects DefaultWorkers
	Force   bool // Reprocess ballot boxes that already have an outcome
	RunID   string
}

// Summary counts what a batch run did
type Summary struct {
	RunID       string
	Total       int
	Verified    int
	Quarantined int
	Skipped     int // Already recorded, without image reference or image not served
	Failed      int
	ByKind      map[string]int // Skips and failures caused by an error, by error kind
}

func (s Summary) String() string {
	return fmt.Sprintf("run %s: %d ballot boxes, %d verified, %d quarantined, %d skipped, %d failed",
		s.RunID, s.Total, s.Verified, s.Quarantined, s.Skipped, s.Failed)
}

// Batch processes many ballot boxes with bounded parallelism
type Batch struct {
	proc     *Processor
	outcomes OutcomeStore
	opts     BatchOptions
	logger   *slog.Logger
}

// NewBatch creates a Batch. outcomes may be nil, in which case nothing is
// skipped as already recorded.
func NewBatch(proc *Processor, outcomes OutcomeStore, opts BatchOptions, logger *slog.Logger) *Batch {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Batch{
		proc:     proc,
		outcomes: outcomes,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "batch"),
	}
}

// Run processes every record. Failures of individual ballot boxes are
// logged and counted; only cancellation of ctx ends the run early.
func (b *Batch) Run(ctx context.Context, records []ballot.Record) (Summary, error) {
	sum := Summary{RunID: b.opts.RunID, Total: len(records), ByKind: make(map[string]int)}
	var mu sync.Mutex

	logger := b.logger.With(slog.String(logging.FieldRunID, sum.RunID))
	logger.Info("batch started", slog.Int("ballot_boxes", len(records)), slog.Int("workers", b.opts.Workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for _, rec := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			state, err := b.one(gctx, rec)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && skippable(err):
				kind := ErrorKind(err)
				sum.Skipped++
				sum.ByKind[kind]++
				logger.Warn("ballot box skipped",
					slog.String(logging.FieldBallotBoxID, rec.ID),
					slog.String(logging.FieldErrorKind, kind),
					logging.Error(err))
			case err != nil:
				kind := ErrorKind(err)
				sum.Failed++
				sum.ByKind[kind]++
				logger.Error("ballot box failed",
					slog.String(logging.FieldBallotBoxID, rec.ID),
					slog.String(logging.FieldErrorKind, kind),
					logging.Error(err))
			case state == outcome.Verified:
				sum.Verified++
			case state == outcome.Quarantined:
				sum.Quarantined++
			default:
				sum.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("batch finished",
		slog.Int("verified", sum.Verified),
		slog.Int("quarantined", sum.Quarantined),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed))
	return sum, ctx.Err()
}

// one processes a single record, returning an empty state when it was
// skipped as already recorded
func (b *Batch) one(ctx context.Context, rec ballot.Record) (outcome.State, error) {
	if !b.opts.Force && b.outcomes != nil {
		done, err := b.outcomes.Has(ctx, rec.ID)
		if err != nil {
			return "", err
		}
		if done {
			b.logger.Debug("already recorded", slog.String(logging.FieldBallotBoxID, rec.ID))
			return "", nil
		}
	}
	res, err := b.proc.Process(ctx, rec, b.opts.RunID)
	if err != nil {
		return "", err
	}
	return res.State, nil
}
