package artifacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// Attempts and pause between attempts when deleting verified originals
// after their quarantine copies were written
const (
	deleteAttempts = 3
	deleteBackoff  = 50 * time.Millisecond
)

// bucket is the part of *blob.Bucket the store uses
type bucket interface {
	Exists(ctx context.Context, key string) (bool, error)
	ReadAll(ctx context.Context, key string) ([]byte, error)
	WriteAll(ctx context.Context, key string, p []byte, opts *blob.WriterOptions) error
	Copy(ctx context.Context, dstKey, srcKey string, opts *blob.CopyOptions) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store reads and writes ballot box bundles in a bucket
type Store struct {
	bucket bucket
	locks  Locker
}

// Open opens the bucket behind a URL such as file:///var/lib/tallyocr,
// s3://bucket?region=eu-central-1 or mem://
func Open(ctx context.Context, url string, locks Locker) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", url, err)
	}
	return New(bucket, locks), nil
}

// New wraps an open bucket. A nil Locker uses a MemoryLocker.
func New(bucket *blob.Bucket, locks Locker) *Store {
	return newStore(bucket, locks)
}

func newStore(b bucket, locks Locker) *Store {
	if locks == nil {
		locks = NewMemoryLocker()
	}
	return &Store{bucket: b, locks: locks}
}

// Close closes the bucket
func (s *Store) Close() error {
	return s.bucket.Close()
}

// Has reports whether the artifact exists in verified storage
func (s *Store) Has(ctx context.Context, a Artifact, id string) (bool, error) {
	unlock, err := s.locks.RLock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()
	return s.exists(ctx, a.VerifiedKey(id))
}

// Read returns the artifact from verified storage. A missing artifact
// yields ErrNotFound.
func (s *Store) Read(ctx context.Context, a Artifact, id string) ([]byte, error) {
	unlock, err := s.locks.RLock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.read(ctx, a.VerifiedKey(id))
}

// ReadQuarantined returns the artifact from quarantine
func (s *Store) ReadQuarantined(ctx context.Context, a Artifact, id string) ([]byte, error) {
	unlock, err := s.locks.RLock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.read(ctx, a.QuarantineKey(id))
}

// Write stores the artifact in verified storage
func (s *Store) Write(ctx context.Context, a Artifact, id string, data []byte) error {
	unlock, err := s.locks.RLock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(ctx, a.VerifiedKey(id), data, a.ContentType())
}

// WriteReview stores a review file next to a quarantined bundle
func (s *Store) WriteReview(ctx context.Context, id, name string, data []byte, contentType string) error {
	unlock, err := s.locks.RLock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(ctx, ReviewKey(id, name), data, contentType)
}

// Quarantined reports whether the complete bundle of id is in quarantine
func (s *Store) Quarantined(ctx context.Context, id string) (bool, error) {
	unlock, err := s.locks.RLock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()
	for _, a := range Bundle {
		ok, err := s.exists(ctx, a.QuarantineKey(id))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Quarantine moves the bundle of id from verified storage into quarantine.
//
// The move is all-or-nothing. An artifact that is in neither location makes
// the whole transfer fail with a *TransferIncompleteError before anything is
// touched. An artifact that is only in quarantine was moved by an earlier,
// interrupted run and is left as is. If a copy fails, the copies made by this
// call are removed again. Sources are deleted only after every copy
// succeeded; a delete is retried, and originals that still cannot be removed
// are reported with a *SourceNotRemovedError. Calling Quarantine again
// finishes such a relocation.
func (s *Store) Quarantine(ctx context.Context, id string) error {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	var pending, missing []Artifact
	for _, a := range Bundle {
		inVerified, err := s.exists(ctx, a.VerifiedKey(id))
		if err != nil {
			return err
		}
		if inVerified {
			pending = append(pending, a)
			continue
		}
		inQuarantine, err := s.exists(ctx, a.QuarantineKey(id))
		if err != nil {
			return err
		}
		if !inQuarantine {
			missing = append(missing, a)
		}
	}

	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for _, a := range missing {
			keys = append(keys, a.VerifiedKey(id))
		}
		return &TransferIncompleteError{ID: id, Missing: keys}
	}

	var copied []string
	for _, a := range pending {
		dst := a.QuarantineKey(id)
		if err := s.bucket.Copy(ctx, dst, a.VerifiedKey(id), nil); err != nil {
			s.rollback(ctx, copied)
			return fmt.Errorf("copy %s to quarantine: %w", a, err)
		}
		copied = append(copied, dst)
	}

	var left []string
	var errs []error
	for _, a := range pending {
		key := a.VerifiedKey(id)
		if err := s.remove(ctx, key); err != nil {
			left = append(left, key)
			errs = append(errs, err)
		}
	}
	if len(left) > 0 {
		return &SourceNotRemovedError{ID: id, Keys: left, Err: errors.Join(errs...)}
	}
	return nil
}

// remove deletes a verified original whose quarantine copy exists. The
// copies are already complete, so cancellation of ctx does not stop it.
func (s *Store) remove(ctx context.Context, key string) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := range deleteAttempts {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * deleteBackoff)
		}
		err = s.bucket.Delete(ctx, key)
		if err == nil || gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
	}
	return fmt.Errorf("remove %s: %w", key, err)
}

// rollback removes copies made by an abandoned relocation. The verified
// originals are still in place, so errors are not fatal.
func (s *Store) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		_ = s.bucket.Delete(context.WithoutCancel(ctx), key)
	}
}

func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) write(ctx context.Context, key string, data []byte, contentType string) error {
	if err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// IsNotFound reports whether err means the artifact does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
