// Package config loads importer configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMaxFileBytes caps accepted document files at 5 MiB.
const DefaultMaxFileBytes = 5 * 1024 * 1024

// Config holds the settings of an import run.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Import ImportConfig `yaml:"import"`
}

// StoreConfig locates the relational store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ImportConfig bounds accepted input and tunes the parser.
type ImportConfig struct {
	MaxFileBytes int64 `yaml:"max_file_bytes"`

	// ForceList overrides the element names the tree parser always
	// coerces to a sequence. Empty keeps the NFe default.
	ForceList []string `yaml:"force_list"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store:  StoreConfig{Path: "nfeflow.db"},
		Import: ImportConfig{MaxFileBytes: DefaultMaxFileBytes},
	}
}

// Load reads a config file and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Import.MaxFileBytes <= 0 {
		cfg.Import.MaxFileBytes = DefaultMaxFileBytes
	}
	return cfg, nil
}
