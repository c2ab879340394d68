package lua

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/event/topic"
	"github.com/dshills/folio/internal/facade"
	"github.com/dshills/folio/internal/pipeline"
)

// ModuleName is the name scripts require and the global setup receives.
const ModuleName = "folio"

// scriptState is the value held by a script plugin's store.
type scriptState struct {
	value any
}

// module binds the folio Lua module to one plugin's facade.
type module struct {
	state  *State
	bridge *Bridge
	f      facade.Facade
}

func newModule(state *State, f facade.Facade) *module {
	return &module{
		state:  state,
		bridge: NewBridge(state.L),
		f:      f,
	}
}

// ctx returns the context of the call currently running on the state.
func (m *module) ctx(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// table builds the module table.
func (m *module) table(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"on":              m.on,
		"once":            m.once,
		"emit":            m.emit,
		"use_middleware":  m.useMiddleware,
		"capabilities":    m.capabilities,
		"track":           m.track,
		"name":            m.name,
		"document":        m.document,
		"unit_text":       m.unitText,
		"visible_units":   m.visibleUnits,
		"location":        m.location,
		"selection":       m.selection,
		"reader_state":    m.readerState,
		"store":           m.store,
		"inject_at":       m.injectAt,
		"inject_floating": m.injectFloating,
		"register_slot":   m.registerSlot,
		"log":             m.log,
		"warn":            m.warn,
	})
}

// loader is the require entry point.
func (m *module) loader(L *lua.LState) int {
	L.Push(m.table(L))
	return 1
}

// unsubscriber exposes an unsubscribe handle as a Lua function.
func (m *module) unsubscriber(L *lua.LState, unsub event.Unsubscribe) *lua.LFunction {
	return L.NewFunction(func(*lua.LState) int {
		unsub()
		return 0
	})
}

func (m *module) raise(L *lua.LState, err error) int {
	L.RaiseError("%s", err.Error())
	return 0
}

func (m *module) on(L *lua.LState) int {
	return m.subscribe(L, m.f.On)
}

func (m *module) once(L *lua.LState) int {
	return m.subscribe(L, m.f.Once)
}

func (m *module) subscribe(L *lua.LState, sub func(topic.Topic, event.Handler) (event.Unsubscribe, error)) int {
	pattern := L.CheckString(1)
	fn := L.CheckFunction(2)

	unsub, err := sub(topic.Topic(pattern), func(ctx context.Context, e event.Event) error {
		_, err := m.state.Call(ctx, fn, m.eventTable(e))
		return err
	})
	if err != nil {
		return m.raise(L, err)
	}
	L.Push(m.unsubscriber(L, unsub))
	return 1
}

func (m *module) eventTable(e event.Event) *lua.LTable {
	t := m.state.L.NewTable()
	t.RawSetString("topic", lua.LString(e.Topic))
	t.RawSetString("payload", m.bridge.ToLuaValue(e.Payload))
	if e.Source != "" {
		t.RawSetString("source", lua.LString(e.Source))
	}
	t.RawSetString("timestamp", lua.LNumber(e.Timestamp.UnixMilli()))
	return t
}

func (m *module) emit(L *lua.LState) int {
	t := L.CheckString(1)
	payload := m.bridge.ToGoValue(L.Get(2))
	if err := m.f.Emit(m.ctx(L), topic.Topic(t), payload); err != nil {
		return m.raise(L, err)
	}
	return 0
}

// useMiddleware takes {name, priority, transform, wrap, inline}.
func (m *module) useMiddleware(L *lua.LState) int {
	def := L.CheckTable(1)
	c := pipeline.Contribution{}
	c.Name, _ = m.bridge.GetTableString(def, "name")
	if prio, ok := m.bridge.GetTableInt(def, "priority"); ok {
		c.Priority = pipeline.Priority(prio)
	}
	if fn, ok := m.bridge.GetTableFunc(def, "transform"); ok {
		c.Transform = m.transform(fn)
	}
	if fn, ok := m.bridge.GetTableFunc(def, "wrap"); ok {
		c.Wrap = m.wrap(fn)
	}
	if fn, ok := m.bridge.GetTableFunc(def, "inline"); ok {
		c.Inline = m.inline(fn)
	}

	unsub, err := m.f.UseMiddleware(c)
	if err != nil {
		return m.raise(L, err)
	}
	L.Push(m.unsubscriber(L, unsub))
	return 1
}

// transform adapts transform(node, next) -> node. next(nil) continues with
// the step's own input.
func (m *module) transform(fn *lua.LFunction) pipeline.TransformFunc {
	return func(ctx context.Context, node *content.Node, next pipeline.NextNode) (*content.Node, error) {
		L := m.state.L
		nextFn := L.NewFunction(func(L *lua.LState) int {
			var in *content.Node
			if arg := L.Get(1); arg != lua.LNil {
				n, err := m.bridge.TableToNode(arg)
				if err != nil {
					return m.raise(L, err)
				}
				in = n
			}
			L.Push(m.bridge.NodeToTable(next(in)))
			return 1
		})

		results, err := m.state.Call(ctx, fn, m.bridge.NodeToTable(node), nextFn)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 || results[0] == lua.LNil {
			return nil, nil
		}
		return m.bridge.TableToNode(results[0])
	}
}

// wrap adapts wrap(element, node, next) -> element.
func (m *module) wrap(fn *lua.LFunction) pipeline.WrapFunc {
	return func(ctx context.Context, el *content.Element, node *content.Node, next pipeline.NextElement) (*content.Element, error) {
		L := m.state.L
		nextFn := L.NewFunction(func(L *lua.LState) int {
			var in *content.Element
			if arg := L.Get(1); arg != lua.LNil {
				e, err := m.bridge.TableToElement(arg)
				if err != nil {
					return m.raise(L, err)
				}
				in = e
			}
			L.Push(m.bridge.ElementToTable(next(in)))
			return 1
		})

		results, err := m.state.Call(ctx, fn, m.bridge.ElementToTable(el), m.bridge.NodeToTable(node), nextFn)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 || results[0] == lua.LNil {
			return nil, nil
		}
		return m.bridge.TableToElement(results[0])
	}
}

// inline adapts inline(node) -> element or nil.
func (m *module) inline(fn *lua.LFunction) pipeline.InlineFunc {
	return func(ctx context.Context, node *content.Node) (*content.Element, error) {
		results, err := m.state.Call(ctx, fn, m.bridge.NodeToTable(node))
		if err != nil {
			return nil, err
		}
		if len(results) == 0 || results[0] == lua.LNil {
			return nil, nil
		}
		return m.bridge.TableToElement(results[0])
	}
}

func (m *module) capabilities(L *lua.LState) int {
	L.Push(m.bridge.ToLuaValue(m.f.Capabilities()))
	return 1
}

func (m *module) track(L *lua.LState) int {
	L.Push(lua.LString(m.f.Track().String()))
	return 1
}

func (m *module) name(L *lua.LState) int {
	L.Push(lua.LString(m.f.Owner()))
	return 1
}

// document returns {id, metadata, units}, or nil before a document is bound.
func (m *module) document(L *lua.LState) int {
	doc := m.f.Document()
	if doc == nil {
		L.Push(lua.LNil)
		return 1
	}
	t := L.NewTable()
	t.RawSetString("id", lua.LString(doc.ID))
	t.RawSetString("metadata", m.bridge.ToLuaValue(doc.Metadata))
	t.RawSetString("units", lua.LNumber(doc.UnitCount()))
	L.Push(t)
	return 1
}

func (m *module) unitText(L *lua.LState) int {
	txt, ok := m.f.UnitText(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(txt))
	return 1
}

func (m *module) visibleUnits(L *lua.LState) int {
	L.Push(m.bridge.ToLuaValue(m.f.VisibleUnits()))
	return 1
}

func (m *module) location(L *lua.LState) int {
	L.Push(m.bridge.ToLuaValue(m.f.Location()))
	return 1
}

func (m *module) selection(L *lua.LState) int {
	sel := m.f.Selection()
	if sel.Empty() {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(m.bridge.ToLuaValue(sel))
	return 1
}

func (m *module) readerState(L *lua.LState) int {
	L.Push(m.bridge.ToLuaValue(m.f.ReaderState()))
	return 1
}

// store returns the plugin's store as {get, set, update, subscribe}. The
// initial value is used on the first call only.
func (m *module) store(L *lua.LState) int {
	st := facade.GetStore(m.f, scriptState{value: m.bridge.ToGoValue(L.Get(1))})

	t := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			L.Push(m.bridge.ToLuaValue(st.Get().value))
			return 1
		},
		"set": func(L *lua.LState) int {
			st.Set(scriptState{value: m.bridge.ToGoValue(L.Get(1))})
			return 0
		},
		"update": func(L *lua.LState) int {
			fn := L.CheckFunction(1)
			results, err := m.state.Call(m.ctx(L), fn, m.bridge.ToLuaValue(st.Get().value))
			if err != nil {
				return m.raise(L, err)
			}
			next := scriptState{}
			if len(results) > 0 {
				next.value = m.bridge.ToGoValue(results[0])
			}
			st.Set(next)
			return 0
		},
		"version": func(L *lua.LState) int {
			L.Push(lua.LNumber(st.Version()))
			return 1
		},
		"subscribe": func(L *lua.LState) int {
			fn := L.CheckFunction(1)
			unsub := st.Subscribe(func(next, prev scriptState) {
				_, err := m.state.Call(m.ctx(m.state.L), fn, m.bridge.ToLuaValue(next.value), m.bridge.ToLuaValue(prev.value))
				if err != nil {
					m.f.Logger().Warn("store listener: %v", err)
				}
			})
			L.Push(m.unsubscriber(L, unsub))
			return 1
		},
	})
	L.Push(t)
	return 1
}

func (m *module) injectAt(L *lua.LState) int {
	unitID := L.CheckString(1)
	pos := facade.Position(L.OptString(2, string(facade.PositionAfter)))
	component := m.bridge.ToGoValue(L.Get(3))

	unsub, err := m.f.InjectAt(m.ctx(L), unitID, pos, component)
	if err != nil {
		return m.raise(L, err)
	}
	L.Push(m.unsubscriber(L, unsub))
	return 1
}

func (m *module) injectFloating(L *lua.LState) int {
	unsub, err := m.f.InjectFloating(m.ctx(L), m.bridge.ToGoValue(L.Get(1)))
	if err != nil {
		return m.raise(L, err)
	}
	L.Push(m.unsubscriber(L, unsub))
	return 1
}

func (m *module) registerSlot(L *lua.LState) int {
	unsub, err := m.f.RegisterSlot(m.ctx(L), L.CheckString(1))
	if err != nil {
		return m.raise(L, err)
	}
	L.Push(m.unsubscriber(L, unsub))
	return 1
}

func (m *module) log(L *lua.LState) int {
	m.f.Logger().Info("%s", L.CheckString(1))
	return 0
}

func (m *module) warn(L *lua.LState) int {
	m.f.Logger().Warn("%s", L.CheckString(1))
	return 0
}
