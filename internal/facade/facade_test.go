package facade

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/pipeline"
)

func testDoc() *content.Document {
	return &content.Document{
		ID: "doc",
		Chapters: []*content.Chapter{{ID: "c1", Units: []*content.Node{
			// decomposed e + combining acute
			{ID: "p1", Type: content.NodeParagraph, Value: "cafe\u0301"},
			{ID: "p2", Type: content.NodeParagraph, Value: "second"},
		}}},
	}
}

type env struct {
	bus  *event.Bus
	pipe *pipeline.Pipeline
	snap *content.Snapshot
	ui   *UIRegistry
	logs *bytes.Buffer
}

func newEnv(enabled bool) *env {
	logs := &bytes.Buffer{}
	cfg := logging.DefaultConfig()
	cfg.Output = logs
	logger := logging.New(cfg)
	bus := event.NewBus(event.WithLogger(logger))
	return &env{
		bus:  bus,
		pipe: pipeline.New(pipeline.WithReporter(bus), pipeline.WithEnabled(enabled)),
		snap: content.NewSnapshot(testDoc()),
		ui:   NewUIRegistry(),
		logs: logs,
	}
}

func (e *env) facade(t *testing.T, track content.Track, owner string) Facade {
	t.Helper()
	f, err := New(track, Deps{Bus: e.bus, Pipeline: e.pipe, Provider: e.snap, UI: e.ui, Logger: logging.New(logging.Config{Level: logging.LevelDebug, Output: e.logs})}, owner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestNewValidation(t *testing.T) {
	bus := event.NewBus()
	if _, err := New(content.TrackTree, Deps{Bus: bus}, ""); !errors.Is(err, ErrMissingOwner) {
		t.Errorf("missing owner error = %v", err)
	}
	if _, err := New(content.TrackTree, Deps{}, "p"); !errors.Is(err, ErrMissingBus) {
		t.Errorf("missing bus error = %v", err)
	}
	if _, err := New(content.TrackTree, Deps{Bus: bus}, "p"); !errors.Is(err, ErrMissingPipeline) {
		t.Errorf("missing pipeline error = %v", err)
	}
	if _, err := New(content.TrackNative, Deps{Bus: bus}, "p"); err != nil {
		t.Errorf("native facade needs no pipeline: %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	e := newEnv(true)
	tree := e.facade(t, content.TrackTree, "a")
	native := e.facade(t, content.TrackNative, "b")

	if tree.Capabilities() != TreeCapabilities {
		t.Errorf("tree capabilities = %+v", tree.Capabilities())
	}
	want := Capabilities{TextSelection: true}
	if native.Capabilities() != want {
		t.Errorf("native capabilities = %+v", native.Capabilities())
	}
	if CapabilitiesFor(content.TrackNative) != NativeCapabilities {
		t.Error("CapabilitiesFor(native) mismatch")
	}
	if tree.Track() != content.TrackTree || native.Track() != content.TrackNative {
		t.Error("Track mismatch")
	}
}

func TestContentAccess(t *testing.T) {
	e := newEnv(true)
	e.snap.SetVisibleUnits([]string{"p1"})
	e.snap.SetLocation(content.Location{ChapterIndex: 0, UnitID: "p1", Progress: 0.5})
	e.snap.SetSelection(content.Selection{Text: "caf"})
	e.snap.SetReaderState(content.ReaderState{Theme: "sepia"})
	f := e.facade(t, content.TrackTree, "p")

	if f.Document().ID != "doc" {
		t.Error("Document mismatch")
	}
	if v := f.VisibleUnits(); len(v) != 1 || v[0] != "p1" {
		t.Errorf("VisibleUnits = %v", v)
	}
	if f.Location().Progress != 0.5 || f.Selection().Text != "caf" || f.ReaderState().Theme != "sepia" {
		t.Error("snapshot values not passed through")
	}

	txt, ok := f.UnitText("p1")
	if !ok || txt != "caf\u00e9" {
		t.Errorf("UnitText = %q, %v, want NFC form", txt, ok)
	}
	if _, ok := f.UnitText("missing"); ok {
		t.Error("missing unit should have no text")
	}
}

func TestNativeUnitText(t *testing.T) {
	e := newEnv(false)
	e.snap.SetUnitText("page-2", "native text")
	f := e.facade(t, content.TrackNative, "p")

	if txt, ok := f.UnitText("page-2"); !ok || txt != "native text" {
		t.Errorf("UnitText = %q, %v", txt, ok)
	}
	if _, ok := f.UnitText("p1"); ok {
		t.Error("native facade must not read the content tree")
	}
}

func TestEventsScopedToOwner(t *testing.T) {
	e := newEnv(true)
	f := e.facade(t, content.TrackTree, "notes")
	ctx := context.Background()

	var sources []string
	if _, err := f.On(events.TopicUnitClick, func(_ context.Context, evt event.Event) error {
		sources = append(sources, evt.Source)
		return nil
	}); err != nil {
		t.Fatalf("On: %v", err)
	}
	onceCalls := 0
	f.Once(events.TopicUnitClick, func(context.Context, event.Event) error {
		onceCalls++
		return nil
	})

	f.Emit(ctx, events.TopicUnitClick, events.UnitPointer{UnitID: "p1"})
	e.bus.Publish(ctx, events.TopicUnitClick, events.UnitPointer{UnitID: "p2"})

	if len(sources) != 2 || sources[0] != "notes" || sources[1] != "" {
		t.Errorf("sources = %v", sources)
	}
	if onceCalls != 1 {
		t.Errorf("once calls = %d", onceCalls)
	}
}

func TestTreeUseMiddleware(t *testing.T) {
	e := newEnv(true)
	f := e.facade(t, content.TrackTree, "upper")

	unsub, err := f.UseMiddleware(pipeline.Contribution{
		Name: "shout",
		Transform: func(_ context.Context, n *content.Node, next pipeline.NextNode) (*content.Node, error) {
			n.Value = strings.ToUpper(n.Value)
			return next(n), nil
		},
	})
	if err != nil {
		t.Fatalf("UseMiddleware: %v", err)
	}
	infos := e.pipe.Contributions()
	if len(infos) != 1 || infos[0].Owner != "upper" {
		t.Fatalf("contributions = %+v, owner should be forced", infos)
	}

	out := e.pipe.RunTransform(context.Background(), &content.Node{Type: content.NodeParagraph, Value: "hi"})
	if out.Value != "HI" {
		t.Errorf("RunTransform = %q", out.Value)
	}
	unsub()
	if e.pipe.Len() != 0 {
		t.Error("unsubscribe should remove the contribution")
	}
}

func TestNativeUseMiddlewareIsInert(t *testing.T) {
	e := newEnv(false)
	f := e.facade(t, content.TrackNative, "upper")

	c := pipeline.Contribution{Name: "shout", Transform: func(_ context.Context, n *content.Node, next pipeline.NextNode) (*content.Node, error) {
		return next(n), nil
	}}
	for i := 0; i < 3; i++ {
		unsub, err := f.UseMiddleware(c)
		if err != nil || unsub == nil {
			t.Fatalf("UseMiddleware = %v, %v", unsub, err)
		}
		unsub()
		unsub()
	}
	if e.pipe.Len() != 0 {
		t.Error("native facade must not register contributions")
	}
	if n := strings.Count(e.logs.String(), `middleware "shout" ignored`); n != 1 {
		t.Errorf("capability warnings = %d, want 1\n%s", n, e.logs.String())
	}
}

func TestTreeMiddlewareWithPipelineDisabled(t *testing.T) {
	e := newEnv(false)
	f := e.facade(t, content.TrackTree, "upper")

	caps := f.Capabilities()
	if caps.Middleware {
		t.Error("disabled pipeline should not report middleware")
	}
	if !caps.BlockPositioning || !caps.TextSelection {
		t.Errorf("capabilities = %+v, want remaining tree capabilities", caps)
	}

	unsub, err := f.UseMiddleware(pipeline.Contribution{Name: "shout", Transform: func(_ context.Context, n *content.Node, next pipeline.NextNode) (*content.Node, error) {
		return next(n), nil
	}})
	if err != nil || unsub == nil {
		t.Fatalf("UseMiddleware = %v, %v", unsub, err)
	}
	unsub()
	if e.pipe.Len() != 0 {
		t.Error("disabled pipeline must not register contributions")
	}
	if !strings.Contains(e.logs.String(), `middleware "shout" ignored: pipeline disabled`) {
		t.Errorf("log = %s", e.logs.String())
	}
}

func TestInjection(t *testing.T) {
	e := newEnv(true)
	f := e.facade(t, content.TrackTree, "notes")
	ctx := context.Background()

	var topics []string
	e.bus.Subscribe("ui:*", func(_ context.Context, evt event.Event) error {
		topics = append(topics, evt.Topic.String())
		return nil
	})

	if _, err := f.RegisterSlot(ctx, "sidebar"); err != nil {
		t.Fatalf("RegisterSlot: %v", err)
	}
	if _, err := f.RegisterSlot(ctx, "sidebar"); !errors.Is(err, ErrSlotExists) {
		t.Errorf("duplicate slot error = %v", err)
	}
	unsub, err := f.InjectAt(ctx, "p1", PositionAfter, "note-icon")
	if err != nil {
		t.Fatalf("InjectAt: %v", err)
	}
	if _, err := f.InjectAt(ctx, "nope", PositionAfter, nil); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("unknown unit error = %v", err)
	}
	if _, err := f.InjectAt(ctx, "p1", Position("sideways"), nil); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("invalid position error = %v", err)
	}
	f.InjectFloating(ctx, "toolbar")

	if got := e.ui.InjectionsFor("p1"); len(got) != 1 || got[0].Component != "note-icon" || got[0].Owner != "notes" {
		t.Errorf("InjectionsFor = %+v", got)
	}
	if len(e.ui.Floating()) != 1 {
		t.Error("floating injection not recorded")
	}

	unsub()
	unsub()
	if len(e.ui.InjectionsFor("p1")) != 0 {
		t.Error("unsubscribe should remove the injection")
	}

	want := []string{"ui:slot-registered", "ui:injected", "ui:injected", "ui:removed"}
	if strings.Join(topics, ",") != strings.Join(want, ",") {
		t.Errorf("ui topics = %v, want %v", topics, want)
	}
}

func TestNativeInjectAtAcceptsAnyUnit(t *testing.T) {
	e := newEnv(false)
	f := e.facade(t, content.TrackNative, "notes")
	if _, err := f.InjectAt(context.Background(), "page-4", PositionInside, nil); err != nil {
		t.Errorf("InjectAt: %v", err)
	}
}

func TestGetStore(t *testing.T) {
	e := newEnv(true)
	a := e.facade(t, content.TrackTree, "a")
	b := e.facade(t, content.TrackTree, "b")

	type notes struct{ Count int }
	sa := GetStore(a, notes{})
	sa.Update(func(n notes) notes { n.Count++; return n })

	if again := GetStore(a, notes{Count: 99}); again != sa || again.Get().Count != 1 {
		t.Error("GetStore should return the same store for the same type")
	}
	if sb := GetStore(b, notes{}); sb == sa || sb.Get().Count != 0 {
		t.Error("stores must be private per plugin")
	}
	if other := GetStore(a, "string state"); other.Get() != "string state" {
		t.Error("a different state type gets its own store")
	}
}

func TestRelease(t *testing.T) {
	e := newEnv(true)
	f := e.facade(t, content.TrackTree, "gone")
	keep := e.facade(t, content.TrackTree, "kept")
	ctx := context.Background()

	calls := 0
	handler := func(context.Context, event.Event) error { calls++; return nil }
	f.On("unit:click", handler)
	f.On("unit:hover", handler)
	keep.On("unit:click", handler)
	f.UseMiddleware(pipeline.Contribution{Name: "m", Inline: func(context.Context, *content.Node) (*content.Element, error) {
		return nil, nil
	}})
	f.InjectAt(ctx, "p2", PositionBefore, nil)
	f.RegisterSlot(ctx, "footer")
	st := GetStore(f, 0)
	listened := 0
	st.Subscribe(func(int, int) { listened++ })

	removed := 0
	e.bus.Subscribe("ui:removed", func(context.Context, event.Event) error { removed++; return nil })

	f.Release(ctx)
	f.Release(ctx)

	e.bus.Publish(ctx, "unit:click", nil)
	e.bus.Publish(ctx, "unit:hover", nil)
	if calls != 1 {
		t.Errorf("handler calls = %d, only the kept plugin should remain", calls)
	}
	if e.pipe.Len() != 0 {
		t.Error("contributions should be removed")
	}
	if len(e.ui.Injections()) != 0 || len(e.ui.Slots()) != 0 {
		t.Error("ui associations should be removed")
	}
	if removed != 1 {
		t.Errorf("ui:removed events = %d, want 1", removed)
	}
	st.Set(5)
	if listened != 0 {
		t.Error("store listeners should be dropped")
	}

	if _, err := f.On("x", handler); !errors.Is(err, ErrReleased) {
		t.Errorf("On after release = %v", err)
	}
	if _, err := f.UseMiddleware(pipeline.Contribution{Name: "late"}); !errors.Is(err, ErrReleased) {
		t.Errorf("UseMiddleware after release = %v", err)
	}
	if err := f.Emit(ctx, "x", nil); !errors.Is(err, ErrReleased) {
		t.Errorf("Emit after release = %v", err)
	}
}
