// Package pathutil converts between the absolute paths used internally and
// the relative, separator-normalized forms used at output and filtering
// boundaries.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root
// directory. Falls back to the original path if conversion fails, the path
// is already relative, or the path lies outside the root.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}

// NormalizeSeparators rewrites every backslash to a forward slash so paths
// and configured fragments compare the same regardless of which separator
// style they were written with.
func NormalizeSeparators(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// ContainsFragment reports whether path contains fragment after both are
// separator-normalized. Used by the exclusion filter.
func ContainsFragment(path, fragment string) bool {
	if fragment == "" {
		return false
	}
	return strings.Contains(NormalizeSeparators(path), NormalizeSeparators(fragment))
}
