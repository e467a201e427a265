// Package config loads stepdex configuration. The project file is
// .stepdex.kdl (stepdex.toml is accepted as an alternative spelling of the
// same schema); a global ~/.stepdex.kdl supplies base settings that project
// config overrides, except exclusions which are unioned.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	sderrors "github.com/standardbeagle/stepdex/internal/errors"
	"github.com/standardbeagle/stepdex/internal/types"
)

type Config struct {
	Version int
	Project Project
	Scan    Scan
	Watch   Watch

	// Include and Exclude are doublestar globs applied while walking the
	// project tree.
	Include []string
	Exclude []string

	// ExcludedFragments are plain path substrings; a path containing one
	// (under either separator style) is dropped from feature enumeration,
	// scenario counting and reconciliation.
	ExcludedFragments []string
}

type Project struct {
	Root string
	Name string
}

type Scan struct {
	// Languages limits step-definition extraction to the named languages
	// (go, csharp, java, javascript, typescript, python). Empty = all.
	Languages    []string
	Workers      int // 0 = NumCPU
	MaxFileSize  int64
	FeatureGlobs []string
}

type Watch struct {
	Enabled    bool
	DebounceMs int
}

// Default returns the built-in configuration rooted at root.
func Default(root string) *Config {
	if root == "" {
		if cwd, err := os.Getwd(); err == nil {
			root = cwd
		} else {
			root = "."
		}
	}
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Scan: Scan{
			Workers:      types.DefaultScanWorkers,
			MaxFileSize:  types.DefaultMaxFileSize,
			FeatureGlobs: []string{"**/*.feature"},
		},
		Watch: Watch{
			Enabled:    true,
			DebounceMs: types.DefaultWatchDebounceMs,
		},
		Exclude: []string{
			"**/node_modules/**",
			"**/bin/**",
			"**/obj/**",
			"**/.git/**",
		},
	}
}

// Load resolves the effective configuration for rootDir: global base config
// merged under the project's .stepdex.kdl or stepdex.toml, falling back to
// defaults when neither exists.
func Load(rootDir string) (*Config, error) {
	searchDir := rootDir
	if searchDir == "" {
		searchDir = "."
	}

	var base *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			base = globalCfg
		}
	}

	project, err := loadProject(searchDir)
	if err != nil {
		return nil, err
	}

	switch {
	case base != nil && project != nil:
		return merge(base, project), nil
	case project != nil:
		return project, nil
	case base != nil:
		base.Project.Root = absOr(searchDir)
		return base, nil
	}
	return Default(absOr(searchDir)), nil
}

func loadProject(searchDir string) (*Config, error) {
	if cfg, err := LoadKDL(searchDir); err != nil {
		return nil, err
	} else if cfg != nil {
		return cfg, nil
	}
	return LoadTOML(searchDir)
}

// merge overlays project onto base. Project values win field by field;
// exclusion lists are unioned so global hygiene exclusions survive.
func merge(base, project *Config) *Config {
	merged := *project

	if merged.Project.Name == "" {
		merged.Project.Name = base.Project.Name
	}
	if len(merged.Scan.Languages) == 0 {
		merged.Scan.Languages = base.Scan.Languages
	}
	if merged.Scan.Workers == 0 {
		merged.Scan.Workers = base.Scan.Workers
	}

	merged.Exclude = unionStrings(base.Exclude, project.Exclude)
	merged.ExcludedFragments = unionStrings(base.ExcludedFragments, project.ExcludedFragments)
	return &merged
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func absOr(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// resolveRoot makes cfg.Project.Root absolute, resolving relative roots
// against the directory the config file was found in.
func resolveRoot(cfg *Config, configDir string) {
	if cfg.Project.Root == "" {
		cfg.Project.Root = absOr(configDir)
		return
	}
	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(absOr(configDir), cfg.Project.Root))
	}
}

// Validate rejects configurations the scanner cannot run with. All
// violations are reported at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Scan.MaxFileSize < 0 {
		errs = append(errs, sderrors.NewConfigError("scan.max_file_size",
			strconv.FormatInt(c.Scan.MaxFileSize, 10), fmt.Errorf("must be >= 0")))
	}
	if c.Watch.DebounceMs < 0 {
		errs = append(errs, sderrors.NewConfigError("watch.debounce_ms",
			strconv.Itoa(c.Watch.DebounceMs), fmt.Errorf("must be >= 0")))
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return sderrors.NewMultiError(errs)
	}
}
