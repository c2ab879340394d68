package lua

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/folio/internal/content"
)

// Bridge converts values between Go and Lua.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value. Tables with contiguous
// integer keys from 1 become slices, other tables maps. Functions and
// cyclic references become nil.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func (b *Bridge) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = b.toGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(kv), 'f', -1, 64)
		default:
			key = k.String()
		}
		m[key] = b.toGo(v, visited)
	})
	return m
}

// ToLuaValue converts a Go value to a Lua value. Structs become tables
// keyed by their json tag, or the lower camel case field name.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []string:
		t := b.L.CreateTable(len(val), 0)
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case []any:
		t := b.L.CreateTable(len(val), 0)
		for i, e := range val {
			t.RawSetInt(i+1, b.ToLuaValue(e))
		}
		return t
	case map[string]any:
		t := b.L.CreateTable(0, len(val))
		for k, e := range val {
			t.RawSetString(k, b.ToLuaValue(e))
		}
		return t
	case map[string]string:
		t := b.L.CreateTable(0, len(val))
		for k, s := range val {
			t.RawSetString(k, lua.LString(s))
		}
		return t
	case *content.Node:
		return b.NodeToTable(val)
	case *content.Element:
		return b.ElementToTable(val)
	default:
		return b.reflectToLua(reflect.ValueOf(v))
	}
}

func (b *Bridge) reflectToLua(rv reflect.Value) lua.LValue {
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return b.ToLuaValue(rv.Elem().Interface())

	case reflect.String:
		return lua.LString(rv.String())

	case reflect.Bool:
		return lua.LBool(rv.Bool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())

	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())

	case reflect.Slice, reflect.Array:
		t := b.L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.ToLuaValue(rv.Index(i).Interface()))
		}
		return t

	case reflect.Map:
		t := b.L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(b.ToLuaValue(iter.Key().Interface()), b.ToLuaValue(iter.Value().Interface()))
		}
		return t

	case reflect.Struct:
		return b.structToTable(rv)

	default:
		ud := b.L.NewUserData()
		ud.Value = rv.Interface()
		return ud
	}
}

func (b *Bridge) structToTable(rv reflect.Value) *lua.LTable {
	t := b.L.NewTable()
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := lowerCamel(field.Name)
		if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		fv := rv.Field(i)
		if err, ok := fv.Interface().(error); ok && field.Type.Kind() == reflect.Interface {
			t.RawSetString(name, lua.LString(err.Error()))
			continue
		}
		t.RawSetString(name, b.ToLuaValue(fv.Interface()))
	}
	return t
}

// lowerCamel lowers the leading upper case run of an exported Go name:
// "UnitID" -> "unitID", "URLPath" -> "urlPath".
func lowerCamel(name string) string {
	r := []rune(name)
	for i := 0; i < len(r) && unicode.IsUpper(r[i]); i++ {
		if i > 0 && i+1 < len(r) && unicode.IsLower(r[i+1]) {
			break
		}
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

// NodeToTable converts a content node to
// {id, type, value, attrs, children}.
func (b *Bridge) NodeToTable(n *content.Node) lua.LValue {
	if n == nil {
		return lua.LNil
	}
	t := b.L.NewTable()
	if n.ID != "" {
		t.RawSetString("id", lua.LString(n.ID))
	}
	t.RawSetString("type", lua.LString(n.Type))
	if n.Value != "" {
		t.RawSetString("value", lua.LString(n.Value))
	}
	t.RawSetString("attrs", b.ToLuaValue(n.Attrs))
	children := b.L.CreateTable(len(n.Children), 0)
	for i, c := range n.Children {
		children.RawSetInt(i+1, b.NodeToTable(c))
	}
	t.RawSetString("children", children)
	return t
}

// TableToNode converts a table produced by NodeToTable, possibly modified
// by a script, back into a node.
func (b *Bridge) TableToNode(lv lua.LValue) (*content.Node, error) {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: node must be a table, got %s", ErrInvalidNode, lv.Type())
	}
	typ, ok := b.GetTableString(t, "type")
	if !ok || typ == "" {
		return nil, fmt.Errorf("%w: node has no type", ErrInvalidNode)
	}
	n := &content.Node{Type: content.NodeType(typ)}
	n.ID, _ = b.GetTableString(t, "id")
	n.Value, _ = b.GetTableString(t, "value")
	n.Attrs = b.stringMap(t, "attrs")

	if children, ok := b.GetTableTable(t, "children"); ok {
		for i := 1; i <= children.Len(); i++ {
			c, err := b.TableToNode(children.RawGetInt(i))
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, c)
		}
	}
	return n, nil
}

// ElementToTable converts a rendered element to
// {tag, unit, attrs, text, children}.
func (b *Bridge) ElementToTable(e *content.Element) lua.LValue {
	if e == nil {
		return lua.LNil
	}
	t := b.L.NewTable()
	t.RawSetString("tag", lua.LString(e.Tag))
	if e.UnitID != "" {
		t.RawSetString("unit", lua.LString(e.UnitID))
	}
	if e.Text != "" {
		t.RawSetString("text", lua.LString(e.Text))
	}
	t.RawSetString("attrs", b.ToLuaValue(e.Attrs))
	children := b.L.CreateTable(len(e.Children), 0)
	for i, c := range e.Children {
		children.RawSetInt(i+1, b.ElementToTable(c))
	}
	t.RawSetString("children", children)
	return t
}

// TableToElement converts a table back into an element.
func (b *Bridge) TableToElement(lv lua.LValue) (*content.Element, error) {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: element must be a table, got %s", ErrInvalidNode, lv.Type())
	}
	tag, ok := b.GetTableString(t, "tag")
	if !ok || tag == "" {
		return nil, fmt.Errorf("%w: element has no tag", ErrInvalidNode)
	}
	e := &content.Element{Tag: tag}
	e.UnitID, _ = b.GetTableString(t, "unit")
	e.Text, _ = b.GetTableString(t, "text")
	e.Attrs = b.stringMap(t, "attrs")

	if children, ok := b.GetTableTable(t, "children"); ok {
		for i := 1; i <= children.Len(); i++ {
			c, err := b.TableToElement(children.RawGetInt(i))
			if err != nil {
				return nil, err
			}
			e.Children = append(e.Children, c)
		}
	}
	return e, nil
}

// stringMap reads a table of scalar values as a string map.
func (b *Bridge) stringMap(t *lua.LTable, key string) map[string]string {
	tbl, ok := b.GetTableTable(t, key)
	if !ok {
		return nil
	}
	var m map[string]string
	tbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			return
		}
		switch v.(type) {
		case lua.LString, lua.LNumber, lua.LBool:
			if m == nil {
				m = make(map[string]string)
			}
			m[string(ks)] = v.String()
		}
	})
	return m
}

// GetTableString gets a string field from a Lua table.
func (b *Bridge) GetTableString(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// GetTableInt gets an int field from a Lua table.
func (b *Bridge) GetTableInt(t *lua.LTable, key string) (int, bool) {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(n), true
	}
	return 0, false
}

// GetTableFunc gets a function field from a Lua table.
func (b *Bridge) GetTableFunc(t *lua.LTable, key string) (*lua.LFunction, bool) {
	f, ok := t.RawGetString(key).(*lua.LFunction)
	return f, ok
}

// GetTableTable gets a table field from a Lua table.
func (b *Bridge) GetTableTable(t *lua.LTable, key string) (*lua.LTable, bool) {
	tbl, ok := t.RawGetString(key).(*lua.LTable)
	return tbl, ok
}
