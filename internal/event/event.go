package event

import (
	"context"
	"time"

	"github.com/dshills/folio/internal/event/topic"
)

// Event is one published occurrence.
type Event struct {
	// Topic is the concrete topic the event was published on.
	Topic topic.Topic

	// Payload carries the topic-specific data, usually a struct from the
	// events package.
	Payload any

	// Source names the plugin that emitted the event. Empty for events
	// published by the renderer or the core.
	Source string

	// Timestamp is when the event was published.
	Timestamp time.Time
}

// Handler receives events. Returned errors are reported, never propagated.
type Handler func(ctx context.Context, evt Event) error

// Unsubscribe is a revocable capability. Calling it more than once is a no-op.
type Unsubscribe func()

// NewUnsubscribe wraps fn so only the first call has any effect.
func NewUnsubscribe(fn func()) Unsubscribe {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		if fn != nil {
			fn()
		}
	}
}

// Noop is an inert unsubscribe.
func Noop() {}
