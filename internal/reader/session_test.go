package reader

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/facade"
	"github.com/dshills/folio/internal/metrics"
	"github.com/dshills/folio/internal/pipeline"
	"github.com/dshills/folio/internal/plugin"
)

func treeDocument() *content.Document {
	return &content.Document{
		ID:       "book",
		Metadata: content.Metadata{Title: "Book", Format: content.FormatEPUB},
		Chapters: []*content.Chapter{{
			ID: "c1",
			Units: []*content.Node{
				{
					ID:   "p1",
					Type: content.NodeParagraph,
					Children: []*content.Node{
						{Type: content.NodeText, Value: "hello "},
						{Type: content.NodeEmphasis, Children: []*content.Node{{Type: content.NodeText, Value: "world"}}},
					},
				},
				{ID: "p2", Type: content.NodeParagraph, Value: "bye"},
			},
		}},
	}
}

func pdfDocument() *content.Document {
	return &content.Document{ID: "scan", Metadata: content.Metadata{Format: content.FormatPDF}, PageCount: 3}
}

func setup(fn func(f facade.Facade) error) plugin.SetupFunc {
	return func(_ context.Context, f facade.Facade) (plugin.Cleanup, error) {
		return nil, fn(f)
	}
}

func highlighter() plugin.Descriptor {
	return plugin.Descriptor{
		Name: "highlight",
		Setup: setup(func(f facade.Facade) error {
			_, err := f.UseMiddleware(pipeline.Contribution{
				Name: "highlight",
				Transform: func(_ context.Context, n *content.Node, next pipeline.NextNode) (*content.Node, error) {
					n.Children = append(n.Children, &content.Node{Type: content.NodeText, Value: "!"})
					return next(n), nil
				},
				Inline: func(_ context.Context, n *content.Node) (*content.Element, error) {
					if n.Type != content.NodeEmphasis {
						return nil, nil
					}
					return content.Wrap("mark", content.DefaultInline(n), map[string]string{"class": "hl"}), nil
				},
				Wrap: func(_ context.Context, el *content.Element, _ *content.Node, next pipeline.NextElement) (*content.Element, error) {
					return next(content.Wrap("section", el, nil)), nil
				},
			})
			return err
		}),
	}
}

func openSession(t *testing.T, doc *content.Document, opts ...Option) *Session {
	t.Helper()
	s, err := Open(context.Background(), content.NewSnapshot(doc), opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestOpenSelectsTrack(t *testing.T) {
	if s := openSession(t, treeDocument()); s.Track() != content.TrackTree {
		t.Errorf("tree document track = %v", s.Track())
	}
	s := openSession(t, pdfDocument())
	if s.Track() != content.TrackNative {
		t.Errorf("pdf document track = %v", s.Track())
	}
	if s.Pipeline().Enabled() {
		t.Error("pipeline enabled on native track")
	}
	if s := openSession(t, treeDocument(), WithTrack(content.TrackNative)); s.Track() != content.TrackNative {
		t.Errorf("forced track = %v", s.Track())
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, nil); !errors.Is(err, ErrNoProvider) {
		t.Errorf("nil provider: %v", err)
	}
	if _, err := Open(ctx, content.NewSnapshot(nil)); !errors.Is(err, ErrNoDocument) {
		t.Errorf("nil document: %v", err)
	}
	_, err := Open(ctx, content.NewSnapshot(pdfDocument()), WithTrack(content.TrackTree))
	if !errors.Is(err, ErrTrackUnavailable) {
		t.Errorf("forced tree on pdf: %v", err)
	}
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestOpenPublishesDocumentLoaded(t *testing.T) {
	m := metrics.New()
	s := openSession(t, treeDocument(), WithMetrics(m))
	body := scrape(t, m)
	if !strings.Contains(body, `folio_bus_events_published_total{topic="document:loaded"} 1`) {
		t.Errorf("document:loaded not counted:\n%s", body)
	}
	s.Close(context.Background())
	body = scrape(t, m)
	if !strings.Contains(body, `folio_bus_events_published_total{topic="document:unloaded"} 1`) {
		t.Errorf("document:unloaded not counted:\n%s", body)
	}
}

func TestRenderUnit(t *testing.T) {
	s := openSession(t, treeDocument())
	ctx := context.Background()
	if err := s.Register(ctx, highlighter()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Activate(ctx); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	unit, _ := s.Document().Unit("p1")
	el, err := s.RenderUnit(ctx, unit)
	if err != nil {
		t.Fatalf("RenderUnit: %v", err)
	}
	want := `<section><p data-unit="p1">hello <mark class="hl"><em>world</em></mark>!</p></section>`
	if got := el.Markup(); got != want {
		t.Errorf("markup = %s, want %s", got, want)
	}
	if len(unit.Children) != 2 {
		t.Error("document node was modified")
	}
}

func TestRenderAllUnits(t *testing.T) {
	s := openSession(t, treeDocument())
	ctx := context.Background()
	s.Register(ctx, highlighter())
	s.Activate(ctx)

	els, err := s.Render(ctx)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(els) != 2 {
		t.Fatalf("rendered %d units, want 2", len(els))
	}
	if got := els[1].Markup(); got != `<section><p data-unit="p2">bye!</p></section>` {
		t.Errorf("p2 = %s", got)
	}
}

func TestRenderNativeTrack(t *testing.T) {
	s := openSession(t, pdfDocument())
	if _, err := s.Render(context.Background()); !errors.Is(err, ErrNoContentTree) {
		t.Errorf("Render on native = %v", err)
	}
}

func TestNativeTrackSkipsMiddleware(t *testing.T) {
	s := openSession(t, treeDocument(), WithTrack(content.TrackNative))
	ctx := context.Background()
	s.Register(ctx, highlighter())
	s.Activate(ctx)

	if info, _ := s.Plugin("highlight"); info.State != plugin.StateReady {
		t.Fatalf("state = %v, want ready", info.State)
	}
	unit, _ := s.Document().Unit("p2")
	el, _ := s.RenderUnit(ctx, unit)
	if got := el.Markup(); got != `<p data-unit="p2">bye</p>` {
		t.Errorf("markup = %s", got)
	}
}

func TestPipelineDisabledSkipsMiddleware(t *testing.T) {
	s := openSession(t, treeDocument(), WithPipelineDisabled())
	ctx := context.Background()
	var caps facade.Capabilities
	s.Register(ctx, plugin.Descriptor{Name: "caps-reader", Setup: setup(func(f facade.Facade) error {
		caps = f.Capabilities()
		return nil
	})})
	s.Register(ctx, highlighter())
	s.Activate(ctx)

	if caps.Middleware {
		t.Error("tree facade reports middleware with the pipeline disabled")
	}
	if n := s.Pipeline().Len(); n != 0 {
		t.Errorf("registered contributions = %d, want 0", n)
	}
	unit, _ := s.Document().Unit("p2")
	el, _ := s.RenderUnit(ctx, unit)
	if got := el.Markup(); got != `<p data-unit="p2">bye</p>` {
		t.Errorf("markup = %s", got)
	}
}

func TestErrorCallback(t *testing.T) {
	var got []events.PluginError
	s := openSession(t, treeDocument(), WithErrorCallback(func(pe events.PluginError) {
		got = append(got, pe)
	}))
	ctx := context.Background()
	s.Register(ctx, plugin.Descriptor{
		Name:  "broken",
		Setup: setup(func(facade.Facade) error { return errors.New("no") }),
	})
	s.Activate(ctx)

	if len(got) != 1 || got[0].Code != events.CodePluginSetupFailed || got[0].Plugin != "broken" {
		t.Errorf("errors = %+v", got)
	}
}

func TestPublishReachesPlugins(t *testing.T) {
	s := openSession(t, treeDocument())
	ctx := context.Background()
	var seen []string
	s.Register(ctx, plugin.Descriptor{
		Name: "tracker",
		Setup: setup(func(f facade.Facade) error {
			_, err := f.On(events.TopicLocationChange, func(_ context.Context, e event.Event) error {
				lc := e.Payload.(events.LocationChange)
				seen = append(seen, lc.Current.UnitID+"@"+e.Source)
				return nil
			})
			return err
		}),
	})
	s.Activate(ctx)

	s.Publish(ctx, events.TopicLocationChange, events.LocationChange{Current: content.Location{UnitID: "p2"}})
	if len(seen) != 1 || seen[0] != "p2@reader" {
		t.Errorf("seen = %v", seen)
	}
}

func dependent(name, dep string, log *[]string) plugin.Descriptor {
	return plugin.Descriptor{
		Name:         name,
		Dependencies: []string{dep},
		Setup: func(context.Context, facade.Facade) (plugin.Cleanup, error) {
			*log = append(*log, "setup "+name)
			return func() { *log = append(*log, "cleanup "+name) }, nil
		},
	}
}

func TestReloadRestoresDependents(t *testing.T) {
	s := openSession(t, treeDocument())
	ctx := context.Background()
	var log []string
	base := func(version string) plugin.Descriptor {
		return plugin.Descriptor{
			Name:    "base",
			Version: version,
			Setup: func(context.Context, facade.Facade) (plugin.Cleanup, error) {
				log = append(log, "setup base "+version)
				return func() { log = append(log, "cleanup base "+version) }, nil
			},
		}
	}
	s.Register(ctx, base("1"), dependent("notes", "base", &log))
	s.Activate(ctx)
	log = nil

	if err := s.Reload(ctx, base("2")); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	want := "cleanup notes,cleanup base 1,setup base 2,setup notes"
	if got := strings.Join(log, ","); got != want {
		t.Errorf("log = %s, want %s", got, want)
	}
	info, _ := s.Plugin("base")
	if info.Version != "2" || info.State != plugin.StateReady {
		t.Errorf("base = %+v", info)
	}
	if info, _ := s.Plugin("notes"); info.State != plugin.StateReady {
		t.Errorf("notes state = %v", info.State)
	}
}

func TestReloadUnknownRegisters(t *testing.T) {
	s := openSession(t, treeDocument())
	ctx := context.Background()
	s.Activate(ctx)
	if err := s.Reload(ctx, highlighter()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if info, ok := s.Plugin("highlight"); !ok || info.State != plugin.StateReady {
		t.Errorf("highlight = %+v", info)
	}
}

func TestRemove(t *testing.T) {
	var got []events.PluginError
	s := openSession(t, treeDocument(), WithErrorCallback(func(pe events.PluginError) {
		got = append(got, pe)
	}))
	ctx := context.Background()
	var log []string
	s.Register(ctx, highlighter(), dependent("notes", "highlight", &log))
	s.Activate(ctx)

	err := s.Remove(ctx, "highlight")
	if !errors.Is(err, plugin.ErrDependencyMissing) {
		t.Fatalf("Remove = %v, want dependency missing for notes", err)
	}
	if info, _ := s.Plugin("highlight"); info.State != plugin.StateDestroyed {
		t.Errorf("highlight state = %v", info.State)
	}
	if s.Pipeline().Len() != 0 {
		t.Errorf("contributions left: %d", s.Pipeline().Len())
	}
	if err := s.Remove(ctx, "ghost"); !errors.Is(err, plugin.ErrPluginNotFound) {
		t.Errorf("Remove ghost = %v", err)
	}
}

func TestCloseDestroysPlugins(t *testing.T) {
	s := openSession(t, treeDocument())
	ctx := context.Background()
	var log []string
	s.Register(ctx, highlighter(), dependent("notes", "highlight", &log))
	s.Activate(ctx)

	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, info := range s.registry.Plugins() {
		if info.State != plugin.StateDestroyed {
			t.Errorf("%s state = %v", info.Name, info.State)
		}
	}
	if err := s.Close(ctx); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := s.RenderUnit(ctx, nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("RenderUnit after Close = %v", err)
	}
	if err := s.Register(ctx, highlighter()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Register after Close = %v", err)
	}
}
