package utils

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
)

// LedgerLock manages a file-based lock guarding the local ledger files, so
// two concurrent runs cannot interleave ledger writes.
type LedgerLock struct {
	lock *flock.Flock
	path string
}

// NewLedgerLock creates a new lock next to the given ledger path.
func NewLedgerLock(ledgerPath string) (*LedgerLock, error) {
	absPath, err := ExpandPath(ledgerPath)
	if err != nil {
		return nil, err
	}
	lockPath := absPath + lockFileSuffix
	return &LedgerLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the ledger lock, waiting if necessary.
// It will print a message if it has to wait.
func (l *LedgerLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		fmt.Fprintf(os.Stderr, "Another jncsync process is using the ledgers, waiting for it to finish...\n")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the ledger lock.
func (l *LedgerLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}
