package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrInvalidTrack indicates an unknown reader track setting.
	ErrInvalidTrack = errors.New("invalid track")

	// ErrInvalidLevel indicates an unknown log level.
	ErrInvalidLevel = errors.New("invalid log level")

	// ErrInvalidPriority indicates a negative default priority.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidDuration indicates a duration that could not be parsed or is negative.
	ErrInvalidDuration = errors.New("invalid duration")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Line is the line number where the error occurred (if available).
	Line int
	// Column is the column number where the error occurred (if available).
	Column int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError describes a validation failure for a setting.
type ValidationError struct {
	// Path is the dotted setting path that failed validation.
	Path string
	// Value is the invalid value.
	Value any
	// Err is the sentinel describing the failure.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v (got %v)", e.Path, e.Err, e.Value)
}

// Unwrap returns the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
