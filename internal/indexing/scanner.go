package indexing

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/stepdex/internal/config"
	"github.com/standardbeagle/stepdex/internal/debug"
	sderrors "github.com/standardbeagle/stepdex/internal/errors"
	"github.com/standardbeagle/stepdex/internal/gherkin"
	"github.com/standardbeagle/stepdex/internal/parser"
	"github.com/standardbeagle/stepdex/internal/types"
	"github.com/standardbeagle/stepdex/pkg/pathutil"
)

// FileScanner walks the project tree and feeds source files to the step
// parser and feature files to the gherkin parser. Unreadable files are
// logged and skipped; a partial corpus is expected, never fatal.
type FileScanner struct {
	cfg      *config.Config
	stepExts map[string]bool
}

// NewFileScanner creates a scanner for the configured project.
func NewFileScanner(cfg *config.Config) *FileScanner {
	return &FileScanner{
		cfg:      cfg,
		stepExts: parser.SupportedExtensions(cfg.Scan.Languages),
	}
}

// relSlash returns path relative to the project root with forward slashes,
// the form all glob patterns match against.
func (s *FileScanner) relSlash(path string) string {
	rel, err := filepath.Rel(s.cfg.Project.Root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func (s *FileScanner) excludedByGlob(rel string) bool {
	for _, pattern := range s.cfg.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (s *FileScanner) excludedByFragment(path string) bool {
	for _, fragment := range s.cfg.ExcludedFragments {
		if pathutil.ContainsFragment(path, fragment) {
			return true
		}
	}
	return false
}

// shouldSkipDir prunes excluded directories during the walk. Glob patterns
// that name a directory subtree ("**/node_modules/**") also prune the
// directory itself.
func (s *FileScanner) shouldSkipDir(path string) bool {
	rel := s.relSlash(path)
	if rel == "." {
		return false
	}
	if s.excludedByFragment(path) {
		return true
	}
	for _, pattern := range s.cfg.Exclude {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if matched, _ := doublestar.Match(dirPattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(dirPattern, filepath.Base(path)); matched {
			return true
		}
	}
	return false
}

func (s *FileScanner) shouldProcessFile(path string, info fs.DirEntry) bool {
	rel := s.relSlash(path)
	if s.excludedByGlob(rel) || s.excludedByFragment(path) {
		return false
	}
	if len(s.cfg.Include) > 0 {
		included := false
		for _, pattern := range s.cfg.Include {
			if matched, _ := doublestar.Match(pattern, rel); matched {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	if fi, err := info.Info(); err == nil && s.cfg.Scan.MaxFileSize > 0 && fi.Size() > s.cfg.Scan.MaxFileSize {
		debug.LogScan("skipping oversized file %s\n", path)
		return false
	}
	return true
}

// walk visits every candidate file under the project root.
func (s *FileScanner) walk(visit func(path string, d fs.DirEntry)) error {
	return filepath.WalkDir(s.cfg.Project.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if d.IsDir() {
			if s.shouldSkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.shouldProcessFile(path, d) {
			visit(path, d)
		}
		return nil
	})
}

// StepSourceFiles returns the files the step parser can process, sorted.
func (s *FileScanner) StepSourceFiles() ([]string, error) {
	var files []string
	err := s.walk(func(path string, d fs.DirEntry) {
		if s.stepExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
	})
	sort.Strings(files)
	return files, err
}

// FeatureFiles returns the scenario files matching the configured feature
// globs, sorted.
func (s *FileScanner) FeatureFiles() ([]string, error) {
	var files []string
	err := s.walk(func(path string, d fs.DirEntry) {
		rel := s.relSlash(path)
		for _, pattern := range s.cfg.Scan.FeatureGlobs {
			if matched, _ := doublestar.Match(pattern, rel); matched {
				files = append(files, path)
				return
			}
		}
	})
	sort.Strings(files)
	return files, err
}

// CollectStepDefinitions parses every step source file and returns the
// normalized definition sites in deterministic (path, line) order.
func (s *FileScanner) CollectStepDefinitions(ctx context.Context) ([]types.RawDefinition, error) {
	files, err := s.StepSourceFiles()
	if err != nil {
		return nil, err
	}

	workers := s.cfg.Scan.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths := make(chan string)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(paths)
		for _, path := range files {
			select {
			case paths <- path:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var mu sync.Mutex
	var all []types.RawDefinition
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			// Tree-sitter parsers are single-threaded; one per worker.
			sp := parser.NewStepParser(s.cfg.Scan.Languages)
			for path := range paths {
				content, err := os.ReadFile(path)
				if err != nil {
					log.Printf("Warning: %v", sderrors.NewScanError("read", path, err))
					continue
				}
				defs := sp.ExtractFile(path, content)
				if len(defs) > 0 {
					mu.Lock()
					all = append(all, defs...)
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].SourcePath != all[j].SourcePath {
			return all[i].SourcePath < all[j].SourcePath
		}
		return all[i].Line < all[j].Line
	})
	debug.LogScan("collected %d step definitions from %d files\n", len(all), len(files))
	return all, nil
}

// ParseFeatures parses every feature file. Features are rebuilt on each
// call; references are transient and never cached.
func (s *FileScanner) ParseFeatures() ([]*gherkin.Feature, error) {
	files, err := s.FeatureFiles()
	if err != nil {
		return nil, err
	}
	features := make([]*gherkin.Feature, 0, len(files))
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: %v", sderrors.NewScanError("read", path, err))
			continue
		}
		features = append(features, gherkin.Parse(path, content))
	}
	return features, nil
}
