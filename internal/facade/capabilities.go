package facade

import "github.com/dshills/folio/internal/content"

// Capabilities describes what the active track supports.
type Capabilities struct {
	Middleware       bool `json:"middleware"`
	BlockPositioning bool `json:"blockPositioning"`
	InlineHighlight  bool `json:"inlineHighlight"`
	TextSelection    bool `json:"textSelection"`
}

var (
	// TreeCapabilities is the capability set of the content tree track.
	TreeCapabilities = Capabilities{
		Middleware:       true,
		BlockPositioning: true,
		InlineHighlight:  true,
		TextSelection:    true,
	}

	// NativeCapabilities is the capability set of the native renderer track.
	NativeCapabilities = Capabilities{
		TextSelection: true,
	}
)

// CapabilitiesFor returns the fixed capability set of a track.
func CapabilitiesFor(track content.Track) Capabilities {
	if track == content.TrackTree {
		return TreeCapabilities
	}
	return NativeCapabilities
}
