package lock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquire_NewLock(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir, "pre-commit")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	data, err := os.ReadFile(filepath.Join(dir, Filename))
	if err != nil {
		t.Fatal(err)
	}
	var held info
	if err := json.Unmarshal(data, &held); err != nil {
		t.Fatal(err)
	}
	if held.PID != os.Getpid() {
		t.Errorf("expected PID %d, got %d", os.Getpid(), held.PID)
	}
	if held.Hook != "pre-commit" {
		t.Errorf("expected hook pre-commit, got %q", held.Hook)
	}
}

func TestAcquire_AlreadyLocked(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir, "pre-commit")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	// same PID, so the holder is alive
	if _, err := Acquire(dir, "commit-msg"); err == nil {
		t.Error("expected error for held lock")
	}
}

func TestAcquire_StaleLock(t *testing.T) {
	dir := t.TempDir()
	stale := info{
		PID:       999999999, // almost certainly not running
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, _ := json.Marshal(stale)
	os.WriteFile(filepath.Join(dir, Filename), data, 0644)

	l, err := Acquire(dir, "pre-commit")
	if err != nil {
		t.Fatalf("should override stale lock, got: %v", err)
	}
	defer l.Release()
}

func TestRelease(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir, "pre-commit")
	if err != nil {
		t.Fatal(err)
	}
	l.Release()

	if _, err := os.Stat(filepath.Join(dir, Filename)); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}
}

func TestAcquire_ConcurrentRunsGetOneLock(t *testing.T) {
	dir := t.TempDir()
	const racers = 16

	var (
		wg       sync.WaitGroup
		acquired atomic.Int32
		start    = make(chan struct{})
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := Acquire(dir, "pre-commit"); err == nil {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := acquired.Load(); got != 1 {
		t.Fatalf("expected exactly one holder, got %d", got)
	}
}

func TestAcquire_CorruptLockIsReplaced(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, Filename), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(dir, "pre-commit")
	if err != nil {
		t.Fatalf("should replace unreadable lock, got: %v", err)
	}
	defer l.Release()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the lock file in %s, got %d entries", dir, len(entries))
	}
}
