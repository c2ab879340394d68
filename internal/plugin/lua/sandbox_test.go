package lua

import (
	"bytes"
	"context"
	"strings"
	"testing"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/folio/internal/logging"
)

func TestSandboxRemovesLoaders(t *testing.T) {
	state := NewState()
	defer state.Close()

	for _, fn := range []string{"dofile", "loadfile", "load", "loadstring"} {
		if v := state.GetGlobal(fn); v != glua.LNil {
			t.Errorf("%s should be removed, got %T", fn, v)
		}
	}
	for _, lib := range []string{"io", "os", "debug"} {
		if v := state.GetGlobal(lib); v != glua.LNil {
			t.Errorf("library %s should not be opened", lib)
		}
	}
}

func TestSandboxRequire(t *testing.T) {
	state := NewState()
	defer state.Close()
	ctx := context.Background()

	if err := state.DoString(ctx, `local s = require("string"); assert(s.upper("a") == "A")`); err != nil {
		t.Errorf("require(string) error = %v", err)
	}
	for _, mod := range []string{"io", "os", "debug", "socket"} {
		err := state.DoString(ctx, `require("`+mod+`")`)
		if err == nil || !strings.Contains(err.Error(), "not available") {
			t.Errorf("require(%s) error = %v", mod, err)
		}
	}

	state.Preload("extra", func(L *glua.LState) int {
		mod := L.NewTable()
		mod.RawSetString("answer", glua.LNumber(42))
		L.Push(mod)
		return 1
	})
	if !state.Sandbox().Allowed("extra") {
		t.Error("Preload should allow the module")
	}
	if err := state.DoString(ctx, `assert(require("extra").answer == 42)`); err != nil {
		t.Errorf("require(extra) error = %v", err)
	}
}

func TestSandboxPrintLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: &buf})
	state := NewState(WithLogger(logger))
	defer state.Close()

	if err := state.DoString(context.Background(), `print("hello", 42)`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if !strings.Contains(buf.String(), "hello\t42") {
		t.Errorf("log output = %q", buf.String())
	}
}
