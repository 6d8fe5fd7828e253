package pipeline

import (
	"context"
	"errors"

	"github.com/gardar/tallyocr/pkg/artifacts"
	"github.com/gardar/tallyocr/pkg/ballot"
	"github.com/gardar/tallyocr/pkg/textract"
)

// Error kinds reported in logs and summaries
const (
	KindMissingImage       = "missing_image"
	KindFetchFailed        = "fetch_failed"
	KindMalformedResponse  = "malformed_response"
	KindTransferIncomplete = "transfer_incomplete"
	KindSourceNotRemoved   = "source_not_removed"
	KindTransient          = "transient"
	KindCanceled           = "canceled"
	KindInternal           = "internal"
)

// ErrorKind classifies a per ballot box error
func ErrorKind(err error) string {
	var fetchErr *ballot.ImageFetchError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ballot.ErrMissingImageReference):
		return KindMissingImage
	case errors.As(err, &fetchErr):
		return KindFetchFailed
	case errors.Is(err, textract.ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, artifacts.ErrTransferIncomplete):
		return KindTransferIncomplete
	case errors.Is(err, artifacts.ErrSourceNotRemoved):
		return KindSourceNotRemoved
	case errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

// skippable reports whether the error means the ballot box has no image to
// process rather than that processing failed: either it has no image
// reference or the image server answered with a non-success status
func skippable(err error) bool {
	var fetchErr *ballot.ImageFetchError
	return errors.Is(err, ballot.ErrMissingImageReference) || errors.As(err, &fetchErr)
}
