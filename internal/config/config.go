package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.wamd/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	// Account is the JID the daemon serves, e.g. 15551234567@s.whatsapp.net.
	Account string `toml:"account"`
	// ServiceURL overrides the production endpoint, mainly for testing.
	ServiceURL string `toml:"service_url"`
	// ReconnectAttempts bounds automatic redials; zero means the default.
	ReconnectAttempts int `toml:"reconnect_attempts"`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
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
