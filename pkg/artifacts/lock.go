package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Locker hands out per id reader/writer locks. The returned function releases
// the lock.
type Locker interface {
	RLock(ctx context.Context, id string) (func(), error)
	Lock(ctx context.Context, id string) (func(), error)
}

const lockRetryDelay = 50 * time.Millisecond

// FileLocker locks one file per id under a directory, so separate processes
// sharing the bucket also exclude each other
type FileLocker struct {
	dir string
}

// NewFileLocker creates the lock directory if needed
func NewFileLocker(dir string) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return &FileLocker{dir: dir}, nil
}

// RLock takes the shared lock of id
func (l *FileLocker) RLock(ctx context.Context, id string) (func(), error) {
	return l.acquire(ctx, id, (*flock.Flock).TryRLockContext)
}

// Lock takes the exclusive lock of id
func (l *FileLocker) Lock(ctx context.Context, id string) (func(), error) {
	return l.acquire(ctx, id, (*flock.Flock).TryLockContext)
}

func (l *FileLocker) acquire(ctx context.Context, id string,
	try func(*flock.Flock, context.Context, time.Duration) (bool, error)) (func(), error) {

	fl := flock.New(filepath.Join(l.dir, id+".lock"))
	ok, err := try(fl, ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire lock for %s: not acquired", id)
	}
	return func() { _ = fl.Close() }, nil
}

// MemoryLocker keeps a sync.RWMutex per id. It only excludes goroutines of
// the current process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewMemoryLocker returns an empty MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*sync.RWMutex)}
}

func (l *MemoryLocker) get(id string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[id] = m
	}
	return m
}

// RLock takes the shared lock of id
func (l *MemoryLocker) RLock(ctx context.Context, id string) (func(), error) {
	m := l.get(id)
	return waitLock(ctx, id, m.RLock, m.RUnlock)
}

// Lock takes the exclusive lock of id
func (l *MemoryLocker) Lock(ctx context.Context, id string) (func(), error) {
	m := l.get(id)
	return waitLock(ctx, id, m.Lock, m.Unlock)
}

// waitLock blocks in lock until it returns or ctx is done. A lock acquired
// after the caller gave up is released right away.
func waitLock(ctx context.Context, id string, lock, unlock func()) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", id, err)
	}
	acquired := make(chan struct{})
	go func() {
		lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return unlock, nil
	case <-ctx.Done():
		go func() {
			<-acquired
			unlock()
		}()
		return nil, fmt.Errorf("acquire lock for %s: %w", id, ctx.Err())
	}
}
