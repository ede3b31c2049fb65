// Package instance keeps a single branchbar daemon per data directory.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

const (
	lockFileName = "branchbar.lock"
	pidFileName  = "branchbar.pid"
)

// ErrAlreadyRunning is returned by Lock when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another branchbar instance is already running")

// Lock acquires an exclusive file lock for single-instance enforcement and
// records the current pid. Returns the flock handle (caller must defer
// Cleanup) or ErrAlreadyRunning.
func Lock(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	pidPath := filepath.Join(dataDir, pidFileName)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("failed to write pid file: %w", err)
	}
	return fl, nil
}

// Running reports whether a daemon currently holds the lock, and its pid when
// the pid file is readable.
func Running(dataDir string) (int, bool) {
	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return 0, false
	}
	if locked {
		_ = fl.Unlock()
		return 0, false
	}

	data, err := os.ReadFile(filepath.Join(dataDir, pidFileName))
	if err != nil {
		return 0, true
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid, true
}

// Cleanup removes the pid file and releases the file lock.
func Cleanup(dataDir string, fl *flock.Flock) {
	_ = os.Remove(filepath.Join(dataDir, pidFileName))
	if fl != nil {
		_ = fl.Unlock()
	}
}
