package event

import "github.com/dshills/folio/internal/event/topic"

// Subscription is one registered handler.
type Subscription struct {
	id      string
	pattern topic.Topic
	handler Handler
	owner   string
	once    bool
	active  bool

	registry *Registry
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Topic returns the subscribed topic pattern.
func (s *Subscription) Topic() topic.Topic { return s.pattern }

// Owner returns the owning plugin name, or "".
func (s *Subscription) Owner() string { return s.owner }

// Once reports whether this is a one-shot subscription.
func (s *Subscription) Once() bool { return s.once }

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool { return s.active }

// Unsubscribe removes exactly this subscription. It is idempotent and safe to
// call from inside a handler.
func (s *Subscription) Unsubscribe() {
	if !s.active {
		return
	}
	s.active = false
	if s.registry != nil {
		s.registry.remove(s)
	}
}
