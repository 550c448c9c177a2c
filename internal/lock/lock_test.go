package lock

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "LOCK"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "pid=") {
		t.Errorf("lock file missing pid, got %q", data)
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "LOCK")); !os.IsNotExist(err) {
		t.Error("lock file not removed on release")
	}
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("Release() on nil = %v, want nil", err)
	}
}

func TestReleaseTwice(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() = %v, want nil", err)
	}
}

func TestParsePID(t *testing.T) {
	if got := parsePID("pid=1234\ntime=x\n"); got != 1234 {
		t.Errorf("parsePID = %d, want 1234", got)
	}
	if got := parsePID("garbage"); got != 0 {
		t.Errorf("parsePID = %d, want 0", got)
	}
}
