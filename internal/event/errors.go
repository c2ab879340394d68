package event

import (
	"errors"
	"fmt"

	"github.com/dshills/folio/internal/event/topic"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidTopic is returned when a topic is empty or malformed, or when
	// a wildcard pattern is published.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// HandlerError wraps an error from a handler with additional context.
type HandlerError struct {
	// SubscriptionID is the ID of the subscription whose handler failed.
	SubscriptionID string

	// Owner is the plugin that created the subscription.
	Owner string

	// Topic is the topic being dispatched.
	Topic topic.Topic

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("handler for %s (owner %s): %v", e.Topic, e.Owner, e.Err)
	}
	return fmt.Sprintf("handler for %s: %v", e.Topic, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
