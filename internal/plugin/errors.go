package plugin

import (
	"errors"
	"fmt"

	"github.com/dshills/folio/internal/event/events"
)

// Plugin registry errors.
var (
	// ErrPluginNotFound is returned when no record has the given name.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrInvalidName is returned for an empty or malformed plugin name.
	ErrInvalidName = errors.New("invalid plugin name")

	// ErrNoSetup is returned when a descriptor has no setup function.
	ErrNoSetup = errors.New("plugin has no setup function")

	// ErrAlreadyRegistered is returned when a live record holds the name.
	ErrAlreadyRegistered = errors.New("plugin is already registered")

	// ErrDependencyMissing is returned when a dependency name cannot be resolved.
	ErrDependencyMissing = errors.New("plugin dependency not found")

	// ErrCyclicDependency is returned when dependencies form a cycle.
	ErrCyclicDependency = errors.New("cyclic plugin dependency detected")

	// ErrDependencyNotReady is recorded when a dependency failed before the
	// dependent's setup could run.
	ErrDependencyNotReady = errors.New("plugin dependency is not ready")

	// ErrAlreadyActivated is returned by a second Activate call.
	ErrAlreadyActivated = errors.New("registry already activated")
)

// Error is a plugin failure tagged with its error code.
type Error struct {
	Code   events.ErrorCode
	Plugin string
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("plugin %q: %s: %v", e.Plugin, e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the error code carried by err, or "".
func CodeOf(err error) events.ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
