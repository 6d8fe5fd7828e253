// Package pipeline processes ballot boxes end to end: it caches the tally
// sheet image, obtains the primary OCR response at most once per id, reads
// and reconciles the candidate counts, and hands failed reconciliations to
// the Fallback, which runs secondary OCR and quarantines the bundle.
//
// Batch runs many ballot boxes with bounded parallelism. One ballot box
// failing never stops the others.
package pipeline

import (
	"context"
	"time"
)

// Timeouts bound each external call. Zero disables the bound.
type Timeouts struct {
	Fetch     time.Duration
	Primary   time.Duration
	Secondary time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Fetch:     30 * time.Second,
		Primary:   60 * time.Second,
		Secondary: 120 * time.Second,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
