package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/event/topic"
	"github.com/dshills/folio/internal/facade"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/pipeline"
	"github.com/dshills/folio/internal/plugin"
)

// Session owns the plugin core for one loaded document: the event bus, the
// transform pipeline, the UI registry and the plugin registry. Core types
// hold no locks; Session serializes every entry point so hosts may call it
// from more than one goroutine.
type Session struct {
	mu sync.Mutex

	provider content.Provider
	doc      *content.Document
	track    content.Track

	bus      *event.Bus
	pipeline *pipeline.Pipeline
	ui       *facade.UIRegistry
	registry *plugin.Registry
	logger   *logging.Logger

	// descriptors holds the last descriptor registered under each name so
	// dependents can be restored after a reload.
	descriptors map[string]plugin.Descriptor
	closed      bool
}

// Open creates a session for the provider's current document, selects the
// track and publishes document:loaded.
func Open(ctx context.Context, provider content.Provider, opts ...Option) (*Session, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	doc := provider.Document()
	if doc == nil {
		return nil, ErrNoDocument
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	track := doc.PreferredTrack()
	if o.forceTrack {
		if o.track == content.TrackTree && !doc.HasTree() {
			return nil, fmt.Errorf("%w: %s on %q", ErrTrackUnavailable, o.track, doc.ID)
		}
		track = o.track
	}

	logger := logging.OrNop(o.logger)
	s := &Session{
		provider:    provider,
		doc:         doc,
		track:       track,
		ui:          facade.NewUIRegistry(),
		logger:      logger.WithComponent("reader").WithField("document", doc.ID),
		descriptors: make(map[string]plugin.Descriptor),
	}

	busOpts := []event.BusOption{event.WithLogger(logger)}
	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithEnabled(track == content.TrackTree && !o.pipelineOff),
		pipeline.WithDefaultPriority(o.defaultPriority),
	}
	regOpts := []plugin.Option{plugin.WithLogger(logger)}
	if o.onError != nil {
		busOpts = append(busOpts, event.WithErrorCallback(o.onError))
	}
	if o.metrics != nil {
		busOpts = append(busOpts, event.WithObserver(o.metrics))
		pipeOpts = append(pipeOpts, pipeline.WithObserver(o.metrics))
		regOpts = append(regOpts, plugin.WithObserver(o.metrics))
	}

	s.bus = event.NewBus(busOpts...)
	s.pipeline = pipeline.New(append(pipeOpts, pipeline.WithReporter(s.bus))...)
	s.registry = plugin.NewRegistry(s.bus, s.newFacade, regOpts...)

	s.logger.Info("opened on %s track", track)
	err := s.bus.Publish(ctx, events.TopicDocumentLoaded, events.DocumentLoaded{
		DocumentID: doc.ID,
		Title:      doc.Metadata.Title,
		Format:     doc.Metadata.Format,
		Track:      track,
	})
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", events.TopicDocumentLoaded, err)
	}
	return s, nil
}

func (s *Session) newFacade(owner string) (facade.Facade, error) {
	return facade.New(s.track, facade.Deps{
		Bus:      s.bus,
		Pipeline: s.pipeline,
		Provider: s.provider,
		UI:       s.ui,
		Logger:   s.logger,
	}, owner)
}

// Track returns the track chosen at Open.
func (s *Session) Track() content.Track { return s.track }

// Document returns the session document.
func (s *Session) Document() *content.Document { return s.doc }

// Bus returns the session event bus.
func (s *Session) Bus() *event.Bus { return s.bus }

// Pipeline returns the session transform pipeline.
func (s *Session) Pipeline() *pipeline.Pipeline { return s.pipeline }

// UI returns the registry of slots and injections.
func (s *Session) UI() *facade.UIRegistry { return s.ui }

// Register adds plugins to the session. Before Activate they only queue;
// afterwards each is initialized immediately.
func (s *Session) Register(ctx context.Context, descs ...plugin.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.register(ctx, descs)
}

func (s *Session) register(ctx context.Context, descs []plugin.Descriptor) error {
	err := s.registry.RegisterAll(ctx, descs...)
	for _, d := range descs {
		if info, ok := s.registry.Get(d.Name); ok && info.State != plugin.StateDestroyed {
			s.descriptors[d.Name] = d
		}
	}
	return err
}

// Activate initializes every queued plugin in dependency order and runs
// their document-ready hooks.
func (s *Session) Activate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.registry.Activate(ctx)
}

// Reload replaces a plugin with a new descriptor. Plugins depending on it
// are torn down with it and registered again afterwards.
func (s *Session) Reload(ctx context.Context, desc plugin.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	restore := s.teardown(ctx, desc.Name)
	descs := []plugin.Descriptor{desc}
	for _, name := range restore {
		if name != desc.Name {
			descs = append(descs, s.descriptors[name])
		}
	}
	s.logger.Info("reloading %s", desc.Name)
	return s.register(ctx, descs)
}

// Remove tears a plugin and its dependents down. Dependents whose
// descriptors are still known are registered again and fail with a missing
// dependency if nothing else provides it.
func (s *Session) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.registry.Get(name); !ok {
		return fmt.Errorf("plugin %q: %w", name, plugin.ErrPluginNotFound)
	}

	restore := s.teardown(ctx, name)
	delete(s.descriptors, name)
	var descs []plugin.Descriptor
	for _, n := range restore {
		if n != name {
			descs = append(descs, s.descriptors[n])
		}
	}
	if len(descs) == 0 {
		return nil
	}
	return s.register(ctx, descs)
}

// teardown destroys name and reports every plugin, name included, that was
// live before and destroyed after, in registration order.
func (s *Session) teardown(ctx context.Context, name string) []string {
	before := s.registry.Plugins()
	if err := s.registry.Destroy(ctx, name); err != nil && !errors.Is(err, plugin.ErrPluginNotFound) {
		s.logger.Warn("destroy %s: %v", name, err)
	}

	var gone []string
	for _, info := range before {
		if !info.State.IsLive() {
			continue
		}
		after, ok := s.registry.Get(info.Name)
		if !ok || after.State != plugin.StateDestroyed {
			continue
		}
		if _, known := s.descriptors[info.Name]; known {
			gone = append(gone, info.Name)
		}
	}
	return gone
}

// Plugins returns every registration record.
func (s *Session) Plugins() []plugin.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Plugins()
}

// Plugin returns one registration record.
func (s *Session) Plugin(name string) (plugin.Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Get(name)
}

// Publish emits a host event, such as a location change reported by the
// renderer.
func (s *Session) Publish(ctx context.Context, t topic.Topic, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.bus.PublishEvent(ctx, event.Event{Topic: t, Payload: payload, Source: "reader"})
}

// DocumentReady reruns every ready plugin's document-ready hook.
func (s *Session) DocumentReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.registry.DocumentReady(ctx)
	return nil
}

// RenderUnit runs one node through the pipeline: transform, element build
// with inline contributions, then wrap.
func (s *Session) RenderUnit(ctx context.Context, node *content.Node) (*content.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.renderUnit(ctx, node), nil
}

func (s *Session) renderUnit(ctx context.Context, node *content.Node) *content.Element {
	if node == nil {
		return nil
	}
	n := s.pipeline.RunTransform(ctx, node)
	el := content.Build(n, func(in *content.Node) *content.Element {
		return s.pipeline.RunInline(ctx, in)
	})
	return s.pipeline.RunWrap(ctx, el, n)
}

// Render renders every top-level unit of the document in reading order.
func (s *Session) Render(ctx context.Context) ([]*content.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.track != content.TrackTree {
		return nil, ErrNoContentTree
	}

	out := make([]*content.Element, 0, s.doc.UnitCount())
	for _, ch := range s.doc.Chapters {
		for _, u := range ch.Units {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			out = append(out, s.renderUnit(ctx, u))
		}
	}
	return out, nil
}

// Close publishes document:unloaded and destroys every plugin in reverse
// activation order. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.bus.Publish(ctx, events.TopicDocumentUnloaded, events.DocumentUnloaded{DocumentID: s.doc.ID})
	s.registry.DestroyAll(ctx)
	s.logger.Info("closed")
	if err != nil {
		return fmt.Errorf("publish %s: %w", events.TopicDocumentUnloaded, err)
	}
	return nil
}
