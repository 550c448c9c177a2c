package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultSession = "work"
	cfg.Sync.PollIntervalMS = 1500
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.Sync.PollIntervalMS != 1500 {
		t.Errorf("PollIntervalMS = %d, want 1500", loaded.Sync.PollIntervalMS)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte(`default_session = "main"`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sync.PollIntervalMS != 2000 {
		t.Errorf("PollIntervalMS = %d, want default 2000", cfg.Sync.PollIntervalMS)
	}
	if cfg.Sync.PeerFetchTimeoutMS != 5000 {
		t.Errorf("PeerFetchTimeoutMS = %d, want default 5000", cfg.Sync.PeerFetchTimeoutMS)
	}
	if cfg.Sync.FlushDebounceMS != 300 {
		t.Errorf("FlushDebounceMS = %d, want default 300", cfg.Sync.FlushDebounceMS)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
