package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

func logger() *log.Logger { return log.Default().WithPrefix("lock") }

// Filename is the lock file created inside the lock directory.
const Filename = "hookrunner.lock"

type info struct {
	PID       int    `json:"pid"`
	Hook      string `json:"hook"`
	StartedAt string `json:"started_at"`
}

// Lock is a held run lock.
type Lock struct {
	path string
}

// staleAttempts bounds how often a dead holder's lock is cleared before
// giving up.
const staleAttempts = 3

// Acquire creates a lock file in dir. A lock held by a live process is an
// error; a lock left behind by a dead one is removed and acquisition retried.
func Acquire(dir, hook string) (*Lock, error) {
	path := filepath.Join(dir, Filename)

	current := info{
		PID:       os.Getpid(),
		Hook:      hook,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	lockData, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling lock info: %w", err)
	}

	for range staleAttempts {
		err := create(path, lockData)
		if err == nil {
			logger().Debug("lock acquired", "path", path, "pid", current.PID)
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("writing lock file: %w", err)
		}

		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading lock file: %w", err)
		}
		var held info
		if err := json.Unmarshal(data, &held); err == nil && isProcessAlive(held.PID) {
			return nil, fmt.Errorf("another hook run is in progress (PID: %d, hook: %s, started: %s)", held.PID, held.Hook, held.StartedAt)
		}
		logger().Warn("stale lock file found, removing", "stale_pid", held.PID)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale lock file: %w", err)
		}
	}
	return nil, fmt.Errorf("could not acquire lock %s after %d attempts", path, staleAttempts)
}

// create writes data to a temporary file and hard-links it into place, so
// the lock appears complete or not at all and an existing lock is never
// replaced.
func create(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), Filename+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Link(tmp.Name(), path)
}

// Release removes the lock file.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logger().Error("failed to remove lock file", "path", l.path, "error", err)
	} else {
		logger().Debug("lock released", "path", l.path)
	}
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks if the process exists without actually sending a signal
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
