package plugin

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dshills/folio/internal/facade"
)

// Cleanup releases what a plugin's setup acquired. It may be nil.
type Cleanup func()

// SetupFunc wires a plugin to its facade.
type SetupFunc func(ctx context.Context, f facade.Facade) (Cleanup, error)

// HookFunc is an optional lifecycle hook.
type HookFunc func(ctx context.Context, f facade.Facade) error

// Descriptor declares a plugin.
type Descriptor struct {
	// Name is the unique plugin identifier.
	Name string

	// Version is informational.
	Version string

	// Dependencies name plugins that must be ready before Setup runs.
	Dependencies []string

	Setup           SetupFunc
	OnDocumentReady HookFunc
	Destroy         HookFunc
}

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Validate checks the descriptor's own fields.
func (d Descriptor) Validate() error {
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, d.Name)
	}
	if d.Setup == nil {
		return fmt.Errorf("plugin %q: %w", d.Name, ErrNoSetup)
	}
	return nil
}

// Info is a read-only view of a registration record.
type Info struct {
	Name         string
	Version      string
	Dependencies []string
	State        State
	// Err is the failure that moved the plugin to StateFailed.
	Err error
}

// record is the registry's bookkeeping for one descriptor.
type record struct {
	desc    Descriptor
	state   State
	facade  facade.Facade
	cleanup Cleanup
	err     error
}

func (r *record) info() Info {
	deps := make([]string, len(r.desc.Dependencies))
	copy(deps, r.desc.Dependencies)
	return Info{
		Name:         r.desc.Name,
		Version:      r.desc.Version,
		Dependencies: deps,
		State:        r.state,
		Err:          r.err,
	}
}
