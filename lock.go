// Advisory OS-level locking so that opening the same store directory twice
// in one process (or from two processes on platforms that honor flock)
// fails fast with ErrLocked instead of silently corrupting state.
//
// itemstore's concurrency model is single-threaded (spec §5): there is no
// shared/exclusive distinction here, only "do I own this store" — one
// non-blocking exclusive lock taken on Open and released on Close.
package itemstore

import (
	"os"
	"sync"
)

// fileLock wraps a single non-blocking exclusive flock/LockFileEx over the
// description file, guarding the handle against a racing Close.
type fileLock struct {
	mu sync.Mutex
	f  *os.File
}

// tryLock attempts to acquire the exclusive lock without blocking. Returns
// ErrLocked if another holder already has it.
func (l *fileLock) tryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.lock()
}

// unlock releases the lock. Safe to call on an already-cleared handle.
func (l *fileLock) unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.unlockFD()
}

// setFile swaps the underlying file handle. Passing nil disables further
// locking; used before closing the descriptor.
func (l *fileLock) setFile(f *os.File) {
	l.mu.Lock()
	l.f = f
	l.mu.Unlock()
}
