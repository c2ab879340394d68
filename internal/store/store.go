// Package store provides the minimal per-plugin state container handed out
// by the capability facade.
package store

import (
	"context"

	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/event/dispatch"
	"github.com/dshills/folio/internal/logging"
)

// Listener is notified after every update with the new and previous state.
type Listener[T any] func(next, prev T)

type listener[T any] struct {
	fn     Listener[T]
	active bool
}

// Store holds one plugin's private state. Updates are pure: the update
// function receives the current state and returns the next one. Every update
// bumps the version so listeners can detect change cheaply.
//
// A Store is not safe for concurrent use.
type Store[T any] struct {
	state     T
	version   uint64
	listeners []*listener[T]
	closed    bool

	executor *dispatch.Executor
	logger   *logging.Logger
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *logging.Logger
}

// WithLogger sets the logger that receives listener failures.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a store holding initial at version zero.
func New[T any](initial T, opts ...Option) *Store[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		state:    initial,
		executor: dispatch.NewExecutor(),
		logger:   logging.OrNop(o.logger).WithComponent("store"),
	}
}

// Get returns the current state.
func (s *Store[T]) Get() T {
	return s.state
}

// Version returns the number of updates applied so far.
func (s *Store[T]) Version() uint64 {
	return s.version
}

// Update replaces the state with fn(current) and notifies listeners in
// subscription order. A panicking listener is logged and the remaining
// listeners still run. Updates after Close are ignored.
func (s *Store[T]) Update(fn func(T) T) {
	if s.closed || fn == nil {
		return
	}
	prev := s.state
	s.state = fn(prev)
	s.version++

	snapshot := make([]*listener[T], len(s.listeners))
	copy(snapshot, s.listeners)
	next := s.state
	for i, l := range snapshot {
		if !l.active {
			continue
		}
		result := s.executor.Execute(context.Background(), func(context.Context) error {
			l.fn(next, prev)
			return nil
		})
		if err := result.Failure(); err != nil {
			s.logger.Warn("listener %d failed at version %d: %v", i, s.version, err)
		}
	}
}

// Set is Update with a constant.
func (s *Store[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Subscribe registers fn for future updates.
func (s *Store[T]) Subscribe(fn Listener[T]) event.Unsubscribe {
	if s.closed || fn == nil {
		return event.Noop
	}
	l := &listener[T]{fn: fn, active: true}
	s.listeners = append(s.listeners, l)
	return event.NewUnsubscribe(func() {
		l.active = false
		for i, x := range s.listeners {
			if x == l {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				break
			}
		}
	})
}

// Listeners returns the number of subscribed listeners.
func (s *Store[T]) Listeners() int {
	return len(s.listeners)
}

// Close drops every listener and freezes the state.
func (s *Store[T]) Close() {
	for _, l := range s.listeners {
		l.active = false
	}
	s.listeners = nil
	s.closed = true
}
