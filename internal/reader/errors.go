package reader

import "errors"

// Session errors.
var (
	// ErrNoProvider is returned when Open is called without a provider.
	ErrNoProvider = errors.New("no content provider")

	// ErrNoDocument is returned when the provider has no document loaded.
	ErrNoDocument = errors.New("provider has no document")

	// ErrTrackUnavailable is returned when the tree track is forced for a
	// document without a content tree.
	ErrTrackUnavailable = errors.New("track unavailable for document")

	// ErrNoContentTree is returned by Render on the native track.
	ErrNoContentTree = errors.New("document has no content tree")

	// ErrSessionClosed is returned by every operation after Close.
	ErrSessionClosed = errors.New("session closed")
)
