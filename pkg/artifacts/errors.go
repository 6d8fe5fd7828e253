package artifacts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an artifact does not exist
	ErrNotFound = errors.New("artifact not found")

	// ErrTransferIncomplete is returned when quarantine relocation is
	// abandoned because part of the bundle is missing
	ErrTransferIncomplete = errors.New("quarantine transfer incomplete")

	// ErrSourceNotRemoved is returned when a bundle was copied into
	// quarantine but some verified originals could not be deleted
	ErrSourceNotRemoved = errors.New("verified originals not removed")
)

// TransferIncompleteError lists the bundle keys that were missing when a
// relocation was abandoned. Nothing was moved.
type TransferIncompleteError struct {
	ID      string
	Missing []string
}

func (e *TransferIncompleteError) Error() string {
	return fmt.Sprintf("%s for %s: missing %s", ErrTransferIncomplete, e.ID, strings.Join(e.Missing, ", "))
}

func (e *TransferIncompleteError) Unwrap() error {
	return ErrTransferIncomplete
}

// SourceNotRemovedError lists the verified keys that are still present after
// their bundle was copied into quarantine. Those artifacts exist in both
// locations until a later Quarantine call removes them.
type SourceNotRemovedError struct {
	ID   string
	Keys []string
	Err  error
}

func (e *SourceNotRemovedError) Error() string {
	return fmt.Sprintf("%s for %s: %s left in verified storage: %v",
		ErrSourceNotRemoved, e.ID, strings.Join(e.Keys, ", "), e.Err)
}

func (e *SourceNotRemovedError) Unwrap() []error {
	return []error{ErrSourceNotRemoved, e.Err}
}
