package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileLoader reads Config from a yaml file on disk.
type FileLoader struct {
	path string
}

// NewFileLoader returns a Loader for path. Empty path resolves to
// ~/.config/costpilot/config.yaml.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// ConfigPath returns the absolute path to the configuration file.
func (l *FileLoader) ConfigPath() string {
	if l.path != "" {
		return l.path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "costpilot", "config.yaml")
}

// Load reads and parses the configuration file, filling unset fields from
// Default(). A missing file is not an error: the defaults are returned so
// first-run commands (configure, doctor) work before any file exists.
func (l *FileLoader) Load() (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(l.ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", l.ConfigPath(), err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.ConfigPath(), err)
	}

	if cfg.AWS.DefaultRegion == "" {
		cfg.AWS.DefaultRegion = "us-east-1"
	}
	if cfg.AWS.GlobalServiceRegion == "" {
		cfg.AWS.GlobalServiceRegion = "us-east-1"
	}
	return cfg, nil
}

// DefaultDatabasePath returns the SQLite file path for cfg, resolving the
// empty value to ~/.config/costpilot/costpilot.db.
func DefaultDatabasePath(cfg *Config) string {
	if cfg != nil && cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "costpilot.db"
	}
	return filepath.Join(home, ".config", "costpilot", "costpilot.db")
}
