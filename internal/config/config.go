package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.peerchat/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	Sync           Sync   `toml:"sync"`
}

// Sync holds tunables for the synchronization engine.
type Sync struct {
	// PollIntervalMS is the period of the peer-list poll fallback.
	PollIntervalMS int `toml:"poll_interval_ms"`
	// PeerFetchTimeoutMS bounds a single peer-list fetch.
	PeerFetchTimeoutMS int `toml:"peer_fetch_timeout_ms"`
	// FlushDebounceMS is the debounce window for message-log writes.
	FlushDebounceMS int `toml:"flush_debounce_ms"`
}

// Default returns a config with engine defaults applied.
func Default() *Config {
	return &Config{
		Sync: Sync{
			PollIntervalMS:     2000,
			PeerFetchTimeoutMS: 5000,
			FlushDebounceMS:    300,
		},
	}
}

// Load reads config from the given path and applies defaults for unset
// sync fields. Returns an error if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.Sync.PollIntervalMS <= 0 {
		cfg.Sync.PollIntervalMS = 2000
	}
	if cfg.Sync.PeerFetchTimeoutMS <= 0 {
		cfg.Sync.PeerFetchTimeoutMS = 5000
	}
	if cfg.Sync.FlushDebounceMS <= 0 {
		cfg.Sync.FlushDebounceMS = 300
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// PollInterval returns the poll period as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalMS) * time.Millisecond
}

// PeerFetchTimeout returns the peer fetch timeout as a duration.
func (c *Config) PeerFetchTimeout() time.Duration {
	return time.Duration(c.Sync.PeerFetchTimeoutMS) * time.Millisecond
}

// FlushDebounce returns the flush debounce window as a duration.
func (c *Config) FlushDebounce() time.Duration {
	return time.Duration(c.Sync.FlushDebounceMS) * time.Millisecond
}
