// Package lock serialises writers of the dependency snapshot with a PID file.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
)

const DefaultPath = "~/.acto/discover.lock"

// ErrHeld is returned when a live process already owns the lock.
var ErrHeld = errors.New("lock held by another process")

// HeldError reports the owner of a held lock.
type HeldError struct {
	Path string
	PID  int
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("another acto discovery is running (PID %d, lock %s)", e.PID, e.Path)
}

func (e *HeldError) Unwrap() error { return ErrHeld }

// Lock is an acquired lock file.
type Lock struct {
	path string
}

// Acquire takes the lock at path, replacing a stale file left by a dead process.
func Acquire(path string) (*Lock, error) {
	path = resolve(path)

	held, pid, err := IsHeld(path)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, &HeldError{Path: path, PID: pid}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return &Lock{path: path}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release removes the lock file. Releasing twice is not an error.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsHeld reports whether the lock at path belongs to a running process, and
// the PID recorded in it.
func IsHeld(path string) (bool, int, error) {
	data, err := os.ReadFile(resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("reading lock file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, nil
	}
	return isProcessRunning(pid), pid, nil
}

func resolve(path string) string {
	if path == "" {
		path = DefaultPath
	}
	return config.ExpandHome(path)
}

func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
