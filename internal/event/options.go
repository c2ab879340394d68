package event

import (
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/event/topic"
	"github.com/dshills/folio/internal/logging"
)

// Observer receives dispatch statistics. The metrics package implements it.
type Observer interface {
	EventPublished(t topic.Topic)
	HandlerFailed(t topic.Topic, owner string, panicked bool)
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	logger   *logging.Logger
	observer Observer
	onError  func(events.PluginError)
}

// WithLogger sets the bus logger.
func WithLogger(l *logging.Logger) BusOption {
	return func(c *busConfig) {
		c.logger = l
	}
}

// WithObserver attaches a statistics observer.
func WithObserver(o Observer) BusOption {
	return func(c *busConfig) {
		c.observer = o
	}
}

// WithErrorCallback registers a callback invoked for every reported plugin
// error, before it is published. Embedders use it to surface notices without
// subscribing.
func WithErrorCallback(fn func(events.PluginError)) BusOption {
	return func(c *busConfig) {
		c.onError = fn
	}
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*Subscription)

// WithOwner records the plugin that owns the subscription.
func WithOwner(owner string) SubscribeOption {
	return func(s *Subscription) {
		s.owner = owner
	}
}

// WithOnce makes the subscription remove itself before its first invocation.
func WithOnce() SubscribeOption {
	return func(s *Subscription) {
		s.once = true
	}
}
