package content

import "errors"

// Content errors.
var (
	// ErrNilDocument is returned when a nil document is supplied.
	ErrNilDocument = errors.New("document is nil")

	// ErrCorrupted is returned when a document snapshot cannot be decoded.
	ErrCorrupted = errors.New("document corrupted")

	// ErrMissingUnitID is returned when a content unit has no identifier.
	ErrMissingUnitID = errors.New("content unit has no id")

	// ErrDuplicateUnitID is returned when two content units share an identifier.
	ErrDuplicateUnitID = errors.New("duplicate content unit id")

	// ErrUnknownTrack is returned for an unrecognised track name.
	ErrUnknownTrack = errors.New("unknown track")
)
