package events

import "github.com/dshills/folio/internal/event/topic"

// UI injection topics. The renderer listens to these to mount components.
const (
	TopicUISlotRegistered topic.Topic = "ui:slot-registered"
	TopicUIInjected       topic.Topic = "ui:injected"
	TopicUIRemoved        topic.Topic = "ui:removed"
)

// UISlot is the payload of TopicUISlotRegistered.
type UISlot struct {
	ID     string
	Plugin string
	Slot   string
}

// UIInjection is the payload of TopicUIInjected and TopicUIRemoved.
type UIInjection struct {
	ID       string
	Plugin   string
	UnitID   string
	Position string
	Floating bool
	// Component is opaque to the core; the renderer interprets it.
	Component any
}
