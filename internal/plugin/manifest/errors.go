package manifest

import "errors"

// Manifest errors.
var (
	ErrMissingName    = errors.New("manifest: name is required")
	ErrInvalidName    = errors.New("manifest: name must be lowercase alphanumeric with . _ or -")
	ErrInvalidVersion = errors.New("manifest: version must be valid semver")
	ErrInvalidMain    = errors.New("manifest: main must be a .lua file")
	ErrNoEntryPoint   = errors.New("manifest: no entry point found")
	ErrNotFound       = errors.New("manifest: plugin not found")
)
