package events

import (
	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/event/topic"
)

// Document and navigation topics published by the renderer.
const (
	// TopicDocumentLoaded is published once the document and its track are ready.
	TopicDocumentLoaded topic.Topic = "document:loaded"

	// TopicDocumentUnloaded is published before the session tears down.
	TopicDocumentUnloaded topic.Topic = "document:unloaded"

	// TopicLocationChange is published when the reading position moves.
	TopicLocationChange topic.Topic = "location:change"

	// TopicChapterChange is published when the current chapter changes.
	TopicChapterChange topic.Topic = "chapter:change"

	// TopicTextSelect is published when the user selects text.
	TopicTextSelect topic.Topic = "text:select"

	// TopicTextDeselect is published when the selection is cleared.
	TopicTextDeselect topic.Topic = "text:deselect"

	// TopicUnitClick is published when a content unit is clicked.
	TopicUnitClick topic.Topic = "unit:click"

	// TopicUnitHover is published when the pointer enters a content unit.
	TopicUnitHover topic.Topic = "unit:hover"

	// TopicScroll is published on scroll.
	TopicScroll topic.Topic = "view:scroll"

	// TopicResize is published when the viewport size changes.
	TopicResize topic.Topic = "view:resize"

	// TopicThemeChange is published when the reader theme changes.
	TopicThemeChange topic.Topic = "theme:change"

	// TopicVisibleUnitsChange is published when the set of visible units changes.
	TopicVisibleUnitsChange topic.Topic = "view:visible-units"

	// TopicNativePageChange is published by the native track on page turns.
	TopicNativePageChange topic.Topic = "native:page:change"

	// TopicNativePageRendered is published by the native track after a page is drawn.
	TopicNativePageRendered topic.Topic = "native:page:rendered"
)

// DocumentLoaded is the payload of TopicDocumentLoaded.
type DocumentLoaded struct {
	DocumentID string
	Title      string
	Format     content.Format
	Track      content.Track
}

// DocumentUnloaded is the payload of TopicDocumentUnloaded.
type DocumentUnloaded struct {
	DocumentID string
}

// LocationChange is the payload of TopicLocationChange.
type LocationChange struct {
	Previous content.Location
	Current  content.Location
}

// ChapterChange is the payload of TopicChapterChange.
type ChapterChange struct {
	PreviousIndex int
	Index         int
	ChapterID     string
}

// TextSelect is the payload of TopicTextSelect.
type TextSelect struct {
	Selection content.Selection
}

// UnitPointer is the payload of TopicUnitClick and TopicUnitHover.
type UnitPointer struct {
	UnitID string
	X, Y   float64
}

// Scroll is the payload of TopicScroll.
type Scroll struct {
	Offset   float64
	Progress float64
}

// Resize is the payload of TopicResize.
type Resize struct {
	Width, Height int
}

// ThemeChange is the payload of TopicThemeChange.
type ThemeChange struct {
	Previous string
	Theme    string
}

// VisibleUnitsChange is the payload of TopicVisibleUnitsChange.
type VisibleUnitsChange struct {
	UnitIDs []string
}

// NativePage is the payload of the native page topics.
type NativePage struct {
	Page      int
	PageCount int
}
