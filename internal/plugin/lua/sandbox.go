package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/folio/internal/logging"
)

// Sandbox restricts a Lua state to computation and the modules the host
// preloads.
type Sandbox struct {
	L      *lua.LState
	logger *logging.Logger

	allowed map[string]bool
}

// builtinModules can always be required.
var builtinModules = []string{"string", "table", "math", "coroutine"}

// NewSandbox creates a sandbox for the Lua state.
func NewSandbox(L *lua.LState, logger *logging.Logger) *Sandbox {
	s := &Sandbox{
		L:       L,
		logger:  logging.OrNop(logger),
		allowed: make(map[string]bool),
	}
	for _, m := range builtinModules {
		s.allowed[m] = true
	}
	return s
}

// Install removes the loaders that reach the filesystem or compile
// arbitrary chunks, and replaces print and require.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installPrint()
	s.installRequire()
}

// installPrint sends print output to the logger instead of stdout.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.logger.Info("%s", strings.Join(parts, "\t"))
		return 0
	}))
}

// installRequire clears the package search paths so nothing loads from
// disk, and only lets allowed modules through.
func (s *Sandbox) installRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	originalRequire := s.L.GetGlobal("require")
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !s.allowed[name] {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}

// Allow lets require load the named module.
func (s *Sandbox) Allow(name string) {
	s.allowed[name] = true
}

// Allowed reports whether require may load the named module.
func (s *Sandbox) Allowed(name string) bool {
	return s.allowed[name]
}
