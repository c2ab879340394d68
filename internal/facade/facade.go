package facade

import (
	"context"
	"reflect"

	"golang.org/x/text/unicode/norm"

	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/event/topic"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/pipeline"
	"github.com/dshills/folio/internal/store"
)

// Facade is the complete surface a plugin may rely on.
type Facade interface {
	// Content access. All values are read-only snapshots.
	Document() *content.Document
	VisibleUnits() []string
	UnitText(id string) (string, bool)
	Selection() content.Selection
	Location() content.Location
	ReaderState() content.ReaderState

	// Events.
	On(pattern topic.Topic, h event.Handler) (event.Unsubscribe, error)
	Once(pattern topic.Topic, h event.Handler) (event.Unsubscribe, error)
	Emit(ctx context.Context, t topic.Topic, payload any) error

	// UI injection.
	RegisterSlot(ctx context.Context, name string) (event.Unsubscribe, error)
	InjectAt(ctx context.Context, unitID string, pos Position, component any) (event.Unsubscribe, error)
	InjectFloating(ctx context.Context, component any) (event.Unsubscribe, error)

	// UseMiddleware registers a transform contribution owned by this plugin.
	UseMiddleware(c pipeline.Contribution) (event.Unsubscribe, error)

	Capabilities() Capabilities
	// Track is informational. Branch on Capabilities instead.
	Track() content.Track
	Owner() string
	Logger() *logging.Logger

	// Release removes everything this facade registered. It is called by the
	// plugin registry on teardown.
	Release(ctx context.Context)

	core() *base
}

// Deps are the session services a facade is bound to.
type Deps struct {
	Bus      *event.Bus
	Pipeline *pipeline.Pipeline
	Provider content.Provider
	UI       *UIRegistry
	Logger   *logging.Logger
}

// New creates the facade variant for track, scoped to owner.
func New(track content.Track, deps Deps, owner string) (Facade, error) {
	if owner == "" {
		return nil, ErrMissingOwner
	}
	if deps.Bus == nil {
		return nil, ErrMissingBus
	}
	if deps.UI == nil {
		deps.UI = NewUIRegistry()
	}
	b := &base{
		owner:  owner,
		track:  track,
		deps:   deps,
		logger: logging.OrNop(deps.Logger).WithComponent("facade").WithField("plugin", owner),
		stores: make(map[reflect.Type]closer),
		warned: make(map[string]bool),
	}

	switch track {
	case content.TrackTree:
		if deps.Pipeline == nil {
			return nil, ErrMissingPipeline
		}
		return &treeFacade{base: b}, nil
	default:
		return &nativeFacade{base: b}, nil
	}
}

type closer interface {
	Close()
}

// base holds the behavior both variants share and tracks what the owner
// registered.
type base struct {
	owner    string
	track    content.Track
	deps     Deps
	logger   *logging.Logger
	stores   map[reflect.Type]closer
	warned   map[string]bool
	released bool
}

func (s *base) core() *base { return s }

// ignoreMiddleware warns once per contribution name and hands back an
// unsubscribe that does nothing.
func (s *base) ignoreMiddleware(name, reason string) event.Unsubscribe {
	if !s.warned[name] {
		s.warned[name] = true
		s.logger.Warn("middleware %q ignored: %s", name, reason)
	}
	return event.Noop
}

func (s *base) Owner() string { return s.owner }

func (s *base) Track() content.Track { return s.track }

func (s *base) Logger() *logging.Logger { return s.logger }

func (s *base) Document() *content.Document {
	if s.deps.Provider == nil {
		return nil
	}
	return s.deps.Provider.Document()
}

func (s *base) VisibleUnits() []string {
	if s.deps.Provider == nil {
		return nil
	}
	return s.deps.Provider.VisibleUnits()
}

func (s *base) Selection() content.Selection {
	if s.deps.Provider == nil {
		return content.Selection{}
	}
	return s.deps.Provider.Selection()
}

func (s *base) Location() content.Location {
	if s.deps.Provider == nil {
		return content.Location{}
	}
	return s.deps.Provider.Location()
}

func (s *base) ReaderState() content.ReaderState {
	if s.deps.Provider == nil {
		return content.ReaderState{}
	}
	return s.deps.Provider.ReaderState()
}

// textLayer asks the provider's native text layer.
func (s *base) textLayer(id string) (string, bool) {
	ts, ok := s.deps.Provider.(content.TextSource)
	if !ok {
		return "", false
	}
	txt, ok := ts.UnitText(id)
	if !ok {
		return "", false
	}
	return norm.NFC.String(txt), true
}

func (s *base) On(pattern topic.Topic, h event.Handler) (event.Unsubscribe, error) {
	return s.subscribe(pattern, h)
}

func (s *base) Once(pattern topic.Topic, h event.Handler) (event.Unsubscribe, error) {
	return s.subscribe(pattern, h, event.WithOnce())
}

func (s *base) subscribe(pattern topic.Topic, h event.Handler, opts ...event.SubscribeOption) (event.Unsubscribe, error) {
	if s.released {
		return nil, ErrReleased
	}
	sub, err := s.deps.Bus.Subscribe(pattern, h, append(opts, event.WithOwner(s.owner))...)
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

func (s *base) Emit(ctx context.Context, t topic.Topic, payload any) error {
	if s.released {
		return ErrReleased
	}
	return s.deps.Bus.PublishEvent(ctx, event.Event{Topic: t, Payload: payload, Source: s.owner})
}

func (s *base) RegisterSlot(ctx context.Context, name string) (event.Unsubscribe, error) {
	if s.released {
		return nil, ErrReleased
	}
	slot, err := s.deps.UI.addSlot(s.owner, name)
	if err != nil {
		return nil, err
	}
	_ = s.deps.Bus.Publish(ctx, events.TopicUISlotRegistered, events.UISlot{
		ID:     slot.ID,
		Plugin: s.owner,
		Slot:   name,
	})
	return event.NewUnsubscribe(func() {
		s.deps.UI.removeSlot(slot.ID)
	}), nil
}

func (s *base) inject(ctx context.Context, in Injection) (event.Unsubscribe, error) {
	in.Owner = s.owner
	in = s.deps.UI.addInjection(in)
	_ = s.deps.Bus.Publish(ctx, events.TopicUIInjected, injectionPayload(in))
	return event.NewUnsubscribe(func() {
		if removed, ok := s.deps.UI.removeInjection(in.ID); ok {
			_ = s.deps.Bus.Publish(ctx, events.TopicUIRemoved, injectionPayload(removed))
		}
	}), nil
}

func injectionPayload(in Injection) events.UIInjection {
	return events.UIInjection{
		ID:        in.ID,
		Plugin:    in.Owner,
		UnitID:    in.UnitID,
		Position:  string(in.Position),
		Floating:  in.Floating,
		Component: in.Component,
	}
}

func (s *base) InjectFloating(ctx context.Context, component any) (event.Unsubscribe, error) {
	if s.released {
		return nil, ErrReleased
	}
	return s.inject(ctx, Injection{Floating: true, Component: component})
}

func (s *base) Release(ctx context.Context) {
	if s.released {
		return
	}
	s.released = true

	subs := s.deps.Bus.RemoveOwner(s.owner)
	contribs := 0
	if s.deps.Pipeline != nil {
		contribs = s.deps.Pipeline.RemoveOwner(s.owner)
	}
	for _, in := range s.deps.UI.removeOwner(s.owner) {
		_ = s.deps.Bus.Publish(ctx, events.TopicUIRemoved, injectionPayload(in))
	}
	for _, st := range s.stores {
		st.Close()
	}
	s.stores = nil
	s.logger.Debug("released %d subscriptions, %d contributions", subs, contribs)
}

// treeFacade backs the content tree track.
type treeFacade struct {
	*base
}

// Capabilities drops Middleware when the session pipeline is disabled.
func (f *treeFacade) Capabilities() Capabilities {
	caps := TreeCapabilities
	caps.Middleware = f.deps.Pipeline.Enabled()
	return caps
}

func (f *treeFacade) UnitText(id string) (string, bool) {
	if n, ok := f.Document().Unit(id); ok {
		return norm.NFC.String(n.Text()), true
	}
	return f.textLayer(id)
}

func (f *treeFacade) InjectAt(ctx context.Context, unitID string, pos Position, component any) (event.Unsubscribe, error) {
	if f.released {
		return nil, ErrReleased
	}
	if !pos.Valid() {
		return nil, ErrInvalidPosition
	}
	if _, ok := f.Document().Unit(unitID); !ok {
		return nil, ErrUnknownUnit
	}
	return f.inject(ctx, Injection{UnitID: unitID, Position: pos, Component: component})
}

func (f *treeFacade) UseMiddleware(c pipeline.Contribution) (event.Unsubscribe, error) {
	if f.released {
		return nil, ErrReleased
	}
	if !f.deps.Pipeline.Enabled() {
		return f.ignoreMiddleware(c.Name, "pipeline disabled"), nil
	}
	c.Owner = f.owner
	return f.deps.Pipeline.Register(c)
}

// nativeFacade backs the native renderer track.
type nativeFacade struct {
	*base
}

func (f *nativeFacade) Capabilities() Capabilities {
	return NativeCapabilities
}

func (f *nativeFacade) UnitText(id string) (string, bool) {
	return f.textLayer(id)
}

// InjectAt records the association; the native renderer anchors it as
// precisely as its text layer allows, so units cannot be validated here.
func (f *nativeFacade) InjectAt(ctx context.Context, unitID string, pos Position, component any) (event.Unsubscribe, error) {
	if f.released {
		return nil, ErrReleased
	}
	if !pos.Valid() {
		return nil, ErrInvalidPosition
	}
	return f.inject(ctx, Injection{UnitID: unitID, Position: pos, Component: component})
}

func (f *nativeFacade) UseMiddleware(c pipeline.Contribution) (event.Unsubscribe, error) {
	return f.ignoreMiddleware(c.Name, "track "+string(f.track)+" does not support middleware"), nil
}

// GetStore returns the plugin's private store for state type T, creating it
// with initial on first use. Later calls for the same T return the same
// store and ignore initial.
func GetStore[T any](f Facade, initial T) *store.Store[T] {
	s := f.core()
	key := reflect.TypeOf((*T)(nil)).Elem()
	if existing, ok := s.stores[key]; ok {
		if st, ok := existing.(*store.Store[T]); ok {
			return st
		}
	}
	st := store.New(initial, store.WithLogger(f.Logger()))
	if s.released {
		st.Close()
		return st
	}
	s.stores[key] = st
	return st
}
