// Package errors defines the typed errors of the step index. Compile
// errors are always recoverable: the offending definition is dropped and
// the rest of the corpus builds normally.
package errors

import (
	"fmt"
	"time"
)

// ErrorType classifies errors for logging and diagnostics.
type ErrorType string

const (
	ErrorTypeCompile ErrorType = "compile"
	ErrorTypeScan    ErrorType = "scan"
	ErrorTypeParse   ErrorType = "parse"
	ErrorTypeConfig  ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// CompileError reports a step-definition pattern that failed to compile.
type CompileError struct {
	Type       ErrorType
	Pattern    string
	SourcePath string
	Line       int
	Underlying error
	Timestamp  time.Time
}

// NewCompileError creates a compile error with source context.
func NewCompileError(pattern, sourcePath string, line int, err error) *CompileError {
	return &CompileError{
		Type:       ErrorTypeCompile,
		Pattern:    pattern,
		SourcePath: sourcePath,
		Line:       line,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("pattern %q failed to compile at %s:%d: %v",
		e.Pattern, e.SourcePath, e.Line, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *CompileError) Unwrap() error {
	return e.Underlying
}

// ScanError reports a failure while scanning a project file for
// step-definition sites.
type ScanError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewScanError creates a scan error with context.
func NewScanError(op, path string, err error) *ScanError {
	return &ScanError{
		Type:       ErrorTypeScan,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error {
	return e.Underlying
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a config error.
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError aggregates the per-file errors of a bulk scan.
type MultiError struct {
	Errors []error
}

// NewMultiError creates a multi-error, dropping nils.
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface.
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors.
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
