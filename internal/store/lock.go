package store

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// AcquireLock takes an exclusive cross-process lock on the data dir so only
// one engine instance writes the SQLite files. Callers must Unlock on exit.
func AcquireLock(dataDir string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(dataDir, "engine.lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("data dir %s is locked by another engine instance", dataDir)
	}
	return fl, nil
}
