package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/folio/internal/event/dispatch"
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/event/topic"
	"github.com/dshills/folio/internal/logging"
)

// Stats is a snapshot of bus counters.
type Stats struct {
	EventsPublished   uint64
	HandlersExecuted  uint64
	HandlerErrors     uint64
	HandlerPanics     uint64
	ActiveSubscribers int
}

// Bus is the synchronous event hub of one reader session.
type Bus struct {
	registry *Registry
	executor *dispatch.Executor
	config   busConfig
	logger   *logging.Logger

	eventsPublished  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	var config busConfig
	for _, opt := range opts {
		opt(&config)
	}

	b := &Bus{
		registry: NewRegistry(),
		config:   config,
		logger:   logging.OrNop(config.logger).WithComponent("event"),
	}
	b.executor = dispatch.NewExecutor(
		dispatch.WithPanicHandler(func(v any, stack []byte) {
			b.logger.Debug("handler panic: %v\n%s", v, stack)
		}),
	)
	return b
}

// Subscribe registers handler for every topic matching pattern.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscribeOption) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := &Subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: handler,
	}
	for _, opt := range opts {
		opt(sub)
	}
	b.registry.add(sub)
	return sub, nil
}

// SubscribeOnce registers a handler that removes itself before its first
// invocation.
func (b *Bus) SubscribeOnce(pattern topic.Topic, handler Handler, opts ...SubscribeOption) (*Subscription, error) {
	return b.Subscribe(pattern, handler, append(opts, WithOnce())...)
}

// Publish delivers payload to every handler subscribed to a pattern matching
// t. It only fails for an invalid topic or a done context.
func (b *Bus) Publish(ctx context.Context, t topic.Topic, payload any) error {
	return b.PublishEvent(ctx, Event{Topic: t, Payload: payload})
}

// PublishEvent delivers a fully formed event.
func (b *Bus) PublishEvent(ctx context.Context, evt Event) error {
	if !evt.Topic.IsValid() || evt.Topic.IsWildcard() {
		return ErrInvalidTopic
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	b.eventsPublished.Add(1)
	if b.config.observer != nil {
		b.config.observer.EventPublished(evt.Topic)
	}

	subs := b.registry.Match(evt.Topic)
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		// unsubscribed by an earlier handler of this dispatch
		if !sub.active {
			continue
		}
		if sub.once {
			sub.Unsubscribe()
		}

		handler := sub.handler
		result := b.executor.Execute(ctx, func(ctx context.Context) error {
			return handler(ctx, evt)
		})
		if result.Skipped {
			return result.Err
		}
		b.handlersExecuted.Add(1)
		if !result.OK() {
			b.handlerFailed(ctx, evt, sub, result)
		}
	}
	return nil
}

func (b *Bus) handlerFailed(ctx context.Context, evt Event, sub *Subscription, result dispatch.Result) {
	if result.Panicked {
		b.handlerPanics.Add(1)
	} else {
		b.handlerErrors.Add(1)
	}
	if b.config.observer != nil {
		b.config.observer.HandlerFailed(evt.Topic, sub.owner, result.Panicked)
	}

	err := &HandlerError{
		SubscriptionID: sub.id,
		Owner:          sub.owner,
		Topic:          evt.Topic,
		Err:            result.Failure(),
	}
	pe := events.PluginError{
		Code:   events.CodePluginHandlerFailed,
		Plugin: sub.owner,
		Topic:  evt.Topic,
		Err:    err,
	}
	if evt.Topic == events.TopicPluginError {
		b.logger.Error("%v", pe)
		if b.config.onError != nil {
			b.config.onError(pe)
		}
		return
	}
	b.Report(ctx, pe)
}

// Report logs a plugin failure, hands it to the error callback and publishes
// it on plugin:error.
func (b *Bus) Report(ctx context.Context, pe events.PluginError) {
	log := b.logger.WithField("code", string(pe.Code))
	if pe.Plugin != "" {
		log = log.WithField("plugin", pe.Plugin)
	}
	log.Warn("%v", pe.Err)

	if b.config.onError != nil {
		b.config.onError(pe)
	}
	_ = b.Publish(ctx, events.TopicPluginError, pe)
}

// RemoveOwner drops every subscription owned by owner and returns how many
// were removed.
func (b *Bus) RemoveOwner(owner string) int {
	subs := b.registry.ByOwner(owner)
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	return len(subs)
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	return b.registry.Len()
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		HandlersExecuted:  b.handlersExecuted.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: b.registry.Len(),
	}
}
