package lua

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/folio/internal/facade"
	"github.com/dshills/folio/internal/plugin"
	"github.com/dshills/folio/internal/plugin/manifest"
)

// Global functions a script may define.
const (
	FuncSetup         = "setup"
	FuncDocumentReady = "on_document_ready"
	FuncDestroy       = "destroy"
)

// script runs one Lua plugin. Each setup gets a fresh state.
type script struct {
	manifest *manifest.Manifest
	opts     []StateOption
	state    *State
}

// NewDescriptor returns the plugin descriptor of a script plugin. The entry
// file is loaded when the registry runs setup, so syntax errors surface as
// setup failures.
func NewDescriptor(m *manifest.Manifest, opts ...StateOption) plugin.Descriptor {
	s := &script{manifest: m.Clone(), opts: opts}
	return plugin.Descriptor{
		Name:            m.Name,
		Version:         m.Version,
		Dependencies:    slices.Clone(m.Dependencies),
		Setup:           s.setup,
		OnDocumentReady: s.documentReady,
		Destroy:         s.destroy,
	}
}

// Descriptors converts discovered plugins into descriptors. Entries that
// failed discovery are skipped and their errors joined.
func Descriptors(entries []*manifest.Entry, opts ...StateOption) ([]plugin.Descriptor, error) {
	var errs []error
	descs := make([]plugin.Descriptor, 0, len(entries))
	for _, e := range entries {
		if e.Err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: %w", e.Name, e.Err))
			continue
		}
		descs = append(descs, NewDescriptor(e.Manifest, opts...))
	}
	return descs, errors.Join(errs...)
}

func (s *script) setup(ctx context.Context, f facade.Facade) (plugin.Cleanup, error) {
	opts := append([]StateOption{WithLogger(f.Logger())}, s.opts...)
	state := NewState(opts...)

	mod := newModule(state, f)
	state.Preload(ModuleName, mod.loader)
	state.SetGlobal(ModuleName, mod.table(state.L))

	if err := state.DoFile(ctx, s.manifest.MainPath()); err != nil {
		state.Close()
		return nil, fmt.Errorf("load %s: %w", s.manifest.Main, err)
	}
	if !state.HasFunction(FuncSetup) {
		state.Close()
		return nil, ErrNoSetup
	}
	if _, err := state.CallGlobal(ctx, FuncSetup, state.GetGlobal(ModuleName)); err != nil {
		state.Close()
		return nil, err
	}

	s.state = state
	return func() {
		state.Close()
		if s.state == state {
			s.state = nil
		}
	}, nil
}

func (s *script) documentReady(ctx context.Context, _ facade.Facade) error {
	return s.callOptional(ctx, FuncDocumentReady)
}

func (s *script) destroy(ctx context.Context, _ facade.Facade) error {
	return s.callOptional(ctx, FuncDestroy)
}

func (s *script) callOptional(ctx context.Context, name string) error {
	state := s.state
	if state == nil || !state.HasFunction(name) {
		return nil
	}
	_, err := state.CallGlobal(ctx, name, state.GetGlobal(ModuleName))
	return err
}

