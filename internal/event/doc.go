// Package event provides the per-session publish/subscribe hub that connects
// the renderer, the plugin registry and plugins.
//
// # Dispatch
//
// Publish runs every matching handler synchronously on the caller's
// goroutine, in subscription order. The set of handlers is captured when
// Publish starts: handlers subscribed during dispatch first see the next
// publish, and a handler unsubscribed during dispatch is skipped if it has
// not run yet. Once-subscriptions are removed before their handler runs, so
// they fire at most once even under re-entrant publishes.
//
// # Failures
//
// A handler that returns an error or panics never affects the publisher or
// the remaining handlers. The failure is reported on the plugin:error topic
// with code PLUGIN_HANDLER_FAILED. Failures of plugin:error handlers are only
// logged.
//
// # Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//	sub, _ := bus.Subscribe(events.TopicTextSelect, func(ctx context.Context, e event.Event) error {
//	    sel := e.Payload.(events.TextSelect)
//	    ...
//	    return nil
//	}, event.WithOwner("notes"))
//	defer sub.Unsubscribe()
//
//	bus.Publish(ctx, events.TopicTextSelect, events.TextSelect{...})
//
// A Bus is not safe for concurrent use. Hosts running several goroutines
// serialize entry points around the session that owns the bus.
package event
