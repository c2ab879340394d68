package lua

import (
	"errors"
	"reflect"
	"testing"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/folio/internal/content"
)

func TestBridgeToGoValue(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	arr := L.NewTable()
	arr.Append(glua.LString("a"))
	arr.Append(glua.LString("b"))
	obj := L.NewTable()
	obj.RawSetString("k", glua.LNumber(1))
	obj.RawSetInt(5, glua.LTrue)

	tests := []struct {
		name     string
		input    glua.LValue
		expected any
	}{
		{"nil", glua.LNil, nil},
		{"true", glua.LTrue, true},
		{"integer", glua.LNumber(42), int64(42)},
		{"float", glua.LNumber(3.14), 3.14},
		{"string", glua.LString("hello"), "hello"},
		{"array", arr, []any{"a", "b"}},
		{"map", obj, map[string]any{"k": int64(1), "5": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bridge.ToGoValue(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ToGoValue() = %#v, want %#v", got, tt.expected)
			}
		})
	}
}

func TestBridgeToGoValueCycle(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	tbl := L.NewTable()
	tbl.RawSetString("self", tbl)
	got, ok := bridge.ToGoValue(tbl).(map[string]any)
	if !ok {
		t.Fatalf("ToGoValue() = %T", bridge.ToGoValue(tbl))
	}
	if got["self"] != nil {
		t.Errorf("cyclic reference = %v, want nil", got["self"])
	}
}

func TestBridgeToLuaValueStruct(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	type payload struct {
		UnitID   string
		URLPath  string
		Tagged   int `json:"tagged_value,omitempty"`
		Skipped  int `json:"-"`
		Err      error
		internal int
	}
	lv := bridge.ToLuaValue(payload{UnitID: "u1", URLPath: "/x", Tagged: 3, Err: errors.New("bad"), internal: 1})
	tbl, ok := lv.(*glua.LTable)
	if !ok {
		t.Fatalf("ToLuaValue() = %T", lv)
	}

	want := map[string]glua.LValue{
		"unitID":       glua.LString("u1"),
		"urlPath":      glua.LString("/x"),
		"tagged_value": glua.LNumber(3),
		"err":          glua.LString("bad"),
	}
	for k, v := range want {
		if got := tbl.RawGetString(k); got != v {
			t.Errorf("%s = %v, want %v", k, got, v)
		}
	}
	for _, k := range []string{"Skipped", "skipped", "internal"} {
		if tbl.RawGetString(k) != glua.LNil {
			t.Errorf("%s should not be exported", k)
		}
	}
}

func TestLowerCamel(t *testing.T) {
	tests := map[string]string{
		"UnitID":     "unitID",
		"URLPath":    "urlPath",
		"X":          "x",
		"ID":         "id",
		"DocumentID": "documentID",
	}
	for in, want := range tests {
		if got := lowerCamel(in); got != want {
			t.Errorf("lowerCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBridgeNodeRoundTrip(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	node := &content.Node{
		ID:    "p1",
		Type:  content.NodeParagraph,
		Attrs: map[string]string{"lang": "en"},
		Children: []*content.Node{
			{Type: content.NodeText, Value: "hello "},
			{Type: content.NodeEmphasis, Children: []*content.Node{{Type: content.NodeText, Value: "world"}}},
		},
	}
	got, err := bridge.TableToNode(bridge.NodeToTable(node))
	if err != nil {
		t.Fatalf("TableToNode() error = %v", err)
	}
	if !reflect.DeepEqual(got, node) {
		t.Errorf("round trip = %+v, want %+v", got, node)
	}
}

func TestBridgeElementRoundTrip(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	el := &content.Element{
		Tag:    "p",
		UnitID: "p1",
		Attrs:  map[string]string{"class": "lead"},
		Children: []*content.Element{
			content.NewText("hi"),
		},
	}
	got, err := bridge.TableToElement(bridge.ElementToTable(el))
	if err != nil {
		t.Fatalf("TableToElement() error = %v", err)
	}
	if got.Markup() != el.Markup() {
		t.Errorf("round trip = %s, want %s", got.Markup(), el.Markup())
	}
}

func TestBridgeInvalidContent(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	if _, err := bridge.TableToNode(glua.LString("nope")); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("string node error = %v", err)
	}
	if _, err := bridge.TableToNode(L.NewTable()); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("untyped node error = %v", err)
	}

	el := L.NewTable()
	el.RawSetString("tag", glua.LString("p"))
	children := L.NewTable()
	children.Append(glua.LNumber(1))
	el.RawSetString("children", children)
	if _, err := bridge.TableToElement(el); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("bad child error = %v", err)
	}
}
