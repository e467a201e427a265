package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors the KDL schema for projects that prefer TOML.
type tomlConfig struct {
	Version int `toml:"version"`
	Project struct {
		Root string `toml:"root"`
		Name string `toml:"name"`
	} `toml:"project"`
	Scan struct {
		Languages    []string `toml:"languages"`
		Workers      int      `toml:"workers"`
		MaxFileSize  int64    `toml:"max_file_size"`
		FeatureGlobs []string `toml:"feature_globs"`
	} `toml:"scan"`
	Watch struct {
		Enabled    *bool `toml:"enabled"`
		DebounceMs int   `toml:"debounce_ms"`
	} `toml:"watch"`
	Include           []string `toml:"include"`
	Exclude           []string `toml:"exclude"`
	ExcludedFragments []string `toml:"excluded_fragments"`
}

// LoadTOML loads configuration from stepdex.toml in dir. Returns (nil, nil)
// when no config file exists.
func LoadTOML(dir string) (*Config, error) {
	tomlPath := filepath.Join(dir, "stepdex.toml")
	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(tomlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read stepdex.toml: %w", err)
	}

	var raw tomlConfig
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse stepdex.toml: %w", err)
	}

	cfg := Default("")
	cfg.Project.Root = raw.Project.Root
	cfg.Project.Name = raw.Project.Name
	if raw.Version != 0 {
		cfg.Version = raw.Version
	}
	if len(raw.Scan.Languages) > 0 {
		cfg.Scan.Languages = raw.Scan.Languages
	}
	if raw.Scan.Workers != 0 {
		cfg.Scan.Workers = raw.Scan.Workers
	}
	if raw.Scan.MaxFileSize != 0 {
		cfg.Scan.MaxFileSize = raw.Scan.MaxFileSize
	}
	if len(raw.Scan.FeatureGlobs) > 0 {
		cfg.Scan.FeatureGlobs = raw.Scan.FeatureGlobs
	}
	if raw.Watch.Enabled != nil {
		cfg.Watch.Enabled = *raw.Watch.Enabled
	}
	if raw.Watch.DebounceMs != 0 {
		cfg.Watch.DebounceMs = raw.Watch.DebounceMs
	}
	cfg.Include = append(cfg.Include, raw.Include...)
	cfg.Exclude = append(cfg.Exclude, raw.Exclude...)
	cfg.ExcludedFragments = append(cfg.ExcludedFragments, raw.ExcludedFragments...)

	resolveRoot(cfg, dir)
	return cfg, nil
}
