package lua

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/folio/internal/logging"
)

// DefaultExecutionTimeout bounds a single top-level call into a script.
const DefaultExecutionTimeout = 2 * time.Second

// State wraps a sandboxed gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe, and a State is not either.
// Calls may nest: a script emitting an event runs its own handlers on the
// same state before the emit returns. The execution timeout applies to the
// outermost call only.
type State struct {
	L *lua.LState

	executionTimeout time.Duration
	logger           *logging.Logger
	sandbox          *Sandbox

	depth  int
	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the timeout for top-level calls. Zero disables
// it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithLogger sets the logger that receives script print output.
func WithLogger(l *logging.Logger) StateOption {
	return func(s *State) {
		s.logger = l
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		executionTimeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)

	s.L = lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	openSafeLibraries(s.L)

	s.sandbox = NewSandbox(s.L, s.logger)
	s.sandbox.Install()
	return s
}

// openSafeLibraries opens only the side-effect free standard libraries.
// io, os, debug and channel stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	lua.OpenCoroutine(L)
}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua chunk.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func() error {
		return s.L.DoString(code)
	})
}

// Call calls fn with args and returns its results. An empty slice is
// returned when fn returns nothing.
func (s *State) Call(ctx context.Context, fn lua.LValue, args ...lua.LValue) ([]lua.LValue, error) {
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w (got %s)", ErrNotFunction, fn.Type())
	}

	var results []lua.LValue
	err := s.run(ctx, func() error {
		stackTop := s.L.GetTop()
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(arg)
		}
		if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}

		// only the values added by the call
		nRet := s.L.GetTop() - stackTop
		results = make([]lua.LValue, 0, max(nRet, 0))
		for i := 1; i <= nRet; i++ {
			results = append(results, s.L.Get(stackTop+i))
		}
		if nRet > 0 {
			s.L.Pop(nRet)
		}
		return nil
	})
	return results, err
}

// CallGlobal calls the global function name. It returns ErrNotFunction if
// the global is missing or not a function.
func (s *State) CallGlobal(ctx context.Context, name string, args ...lua.LValue) ([]lua.LValue, error) {
	if s.closed {
		return nil, ErrStateClosed
	}
	results, err := s.Call(ctx, s.L.GetGlobal(name), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return results, nil
}

// HasFunction reports whether the global name is a function.
func (s *State) HasFunction(name string) bool {
	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// run executes fn with panic recovery. The outermost call installs the
// execution deadline on the LState.
func (s *State) run(ctx context.Context, fn func() error) (err error) {
	if s.closed {
		return ErrStateClosed
	}

	if s.depth == 0 {
		if s.executionTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
			defer cancel()
		}
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}
	s.depth++
	defer func() { s.depth-- }()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// Preload makes a module available to require.
func (s *State) Preload(name string, loader lua.LGFunction) {
	if s.closed {
		return
	}
	s.sandbox.Allow(name)
	s.L.PreloadModule(name, loader)
}

// Sandbox returns the state's sandbox.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	return s.closed
}

// Close releases the Lua state. It is safe to call more than once.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}
