package lua

import "errors"

// Errors for Lua script plugins.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNotFunction is returned when a called global is not a function.
	ErrNotFunction = errors.New("lua value is not a function")

	// ErrNoSetup is returned when a script does not define setup.
	ErrNoSetup = errors.New("script does not define a setup function")

	// ErrInvalidNode is returned when a script returns a malformed node or
	// element table.
	ErrInvalidNode = errors.New("invalid content table")
)
