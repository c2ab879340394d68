package plugin

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/event/dispatch"
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/event/topic"
	"github.com/dshills/folio/internal/facade"
	"github.com/dshills/folio/internal/logging"
)

// FacadeFactory creates the facade handed to a plugin's setup.
type FacadeFactory func(owner string) (facade.Facade, error)

// Observer receives lifecycle transitions.
type Observer interface {
	PluginTransition(name, from, to string)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithObserver attaches a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// Registry owns the plugins of one reader session: their descriptors,
// lifecycle state, facades and cleanup handles.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	bus       *event.Bus
	newFacade FacadeFactory
	executor  *dispatch.Executor
	logger    *logging.Logger
	observer  Observer

	records map[string]*record
	// order is registration order; activation is the order plugins reached
	// StateReady and is reversed for teardown.
	order      []string
	activation []string
	activated  bool
}

// NewRegistry creates an empty registry publishing on bus.
func NewRegistry(bus *event.Bus, newFacade FacadeFactory, opts ...Option) *Registry {
	r := &Registry{
		bus:       bus,
		newFacade: newFacade,
		executor:  dispatch.NewExecutor(),
		records:   make(map[string]*record),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger).WithComponent("plugin")
	return r
}

// Register validates and adds one plugin. Name collisions and unresolvable
// or cyclic dependencies are returned and leave the registry unchanged. After
// Activate the plugin is initialized immediately; setup failures are then
// reported as events, not returned.
func (r *Registry) Register(ctx context.Context, desc Descriptor) error {
	errs := r.register(ctx, []Descriptor{desc})
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// RegisterAll adds a batch of plugins. Dependencies may refer to any member
// of the batch regardless of order. Invalid members are rejected
// individually; the rest are registered in dependency order.
func (r *Registry) RegisterAll(ctx context.Context, descs ...Descriptor) error {
	return errors.Join(r.register(ctx, descs)...)
}

func (r *Registry) register(ctx context.Context, descs []Descriptor) []error {
	var errs []error
	batch := make(map[string]Descriptor, len(descs))
	var names []string

	for _, d := range descs {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		_, dup := batch[d.Name]
		if rec, ok := r.records[d.Name]; dup || (ok && rec.state.IsLive()) {
			errs = append(errs, fmt.Errorf("plugin %q: %w", d.Name, ErrAlreadyRegistered))
			continue
		}
		batch[d.Name] = d
		names = append(names, d.Name)
	}

	// Dropping one member can strand another that depended on it.
	for changed := true; changed; {
		changed = false
		for _, name := range names {
			d, ok := batch[name]
			if !ok {
				continue
			}
			if dep, ok := r.unresolved(d, batch); ok {
				errs = append(errs, &Error{
					Code:   events.CodePluginDependencyMissing,
					Plugin: name,
					Err:    fmt.Errorf("%w: %q", ErrDependencyMissing, dep),
				})
				delete(batch, name)
				changed = true
			}
		}
	}

	names = slices.DeleteFunc(names, func(n string) bool {
		_, ok := batch[n]
		return !ok
	})
	sorted, cyclic := topoSort(names, func(n string) []string { return batch[n].Dependencies })
	for _, name := range cyclic {
		errs = append(errs, &Error{
			Code:   events.CodePluginDependencyMissing,
			Plugin: name,
			Err:    fmt.Errorf("%w: %q", ErrCyclicDependency, name),
		})
	}

	added := make([]*record, 0, len(sorted))
	for _, name := range sorted {
		rec := &record{desc: batch[name], state: StateRegistered}
		r.records[name] = rec
		r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
		r.order = append(r.order, name)
		added = append(added, rec)

		r.logger.Info("registered %s", name)
		r.publish(ctx, events.TopicPluginRegistered, rec)
	}

	if r.activated {
		for _, rec := range added {
			r.initialize(ctx, rec)
		}
	}
	return errs
}

// unresolved returns the first dependency of d that is neither live nor in
// the batch.
func (r *Registry) unresolved(d Descriptor, batch map[string]Descriptor) (string, bool) {
	for _, dep := range d.Dependencies {
		if _, ok := batch[dep]; ok {
			continue
		}
		if rec, ok := r.records[dep]; ok && rec.state.IsLive() {
			continue
		}
		return dep, true
	}
	return "", false
}

// topoSort orders names so that every name follows its dependencies within
// the set (Kahn's algorithm). Ties keep input order. Names left on a cycle,
// or depending on one, are returned separately.
func topoSort(names []string, deps func(string) []string) (sorted, cyclic []string) {
	inSet := make(map[string]bool, len(names))
	for _, n := range names {
		inSet[n] = true
	}

	indegree := make(map[string]int, len(names))
	dependents := make(map[string][]string)
	for _, n := range names {
		for _, d := range deps(n) {
			if inSet[d] {
				indegree[n]++
				dependents[d] = append(dependents[d], n)
			}
		}
	}

	var queue []string
	for _, n := range names {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sorted = append(sorted, n)
		for _, m := range dependents[n] {
			indegree[m]--
			if indegree[m] == 0 {
				queue = append(queue, m)
			}
		}
	}

	if len(sorted) < len(names) {
		for _, n := range names {
			if indegree[n] > 0 {
				cyclic = append(cyclic, n)
			}
		}
	}
	return sorted, cyclic
}

// Activate initializes every registered plugin in dependency order. It runs
// once; plugins registered afterwards initialize on registration.
func (r *Registry) Activate(ctx context.Context) error {
	if r.activated {
		return ErrAlreadyActivated
	}
	r.activated = true

	var pending []string
	for _, name := range r.order {
		if r.records[name].state == StateRegistered {
			pending = append(pending, name)
		}
	}
	sorted, _ := topoSort(pending, func(n string) []string { return r.records[n].desc.Dependencies })
	for _, name := range sorted {
		r.initialize(ctx, r.records[name])
	}
	return nil
}

// Activated reports whether Activate has run.
func (r *Registry) Activated() bool {
	return r.activated
}

func (r *Registry) initialize(ctx context.Context, rec *record) {
	name := rec.desc.Name
	for _, dep := range rec.desc.Dependencies {
		if d, ok := r.records[dep]; !ok || d.state != StateReady {
			r.fail(ctx, rec, events.CodePluginDependencyMissing, fmt.Errorf("%w: %q", ErrDependencyNotReady, dep))
			return
		}
	}

	r.transition(rec, StateInitializing)
	f, err := r.newFacade(name)
	if err != nil {
		r.fail(ctx, rec, events.CodePluginSetupFailed, err)
		return
	}

	var cleanup Cleanup
	result := r.executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		cleanup, err = rec.desc.Setup(ctx, f)
		return err
	})
	if err := result.Failure(); err != nil {
		if cleanup != nil {
			r.runHook(ctx, name, "cleanup", func(context.Context) error {
				cleanup()
				return nil
			})
		}
		// drop whatever setup registered before failing
		f.Release(ctx)
		r.fail(ctx, rec, events.CodePluginSetupFailed, err)
		return
	}

	rec.facade = f
	rec.cleanup = cleanup
	r.activation = append(r.activation, name)
	r.transition(rec, StateReady)
	r.publish(ctx, events.TopicPluginReady, rec)

	r.documentReady(ctx, rec)
}

func (r *Registry) fail(ctx context.Context, rec *record, code events.ErrorCode, err error) {
	name := rec.desc.Name
	rec.err = &Error{Code: code, Plugin: name, Err: err}
	r.transition(rec, StateFailed)
	r.publish(ctx, events.TopicPluginFailed, rec)
	r.bus.Report(ctx, events.PluginError{Code: code, Plugin: name, Err: err})
}

// DocumentReady invokes the document-ready hook of every ready plugin in
// activation order. Activate already does this for each plugin reaching
// ready; hosts call it again when a new document is bound to the session.
func (r *Registry) DocumentReady(ctx context.Context) {
	for _, name := range slices.Clone(r.activation) {
		if rec := r.records[name]; rec != nil && rec.state == StateReady {
			r.documentReady(ctx, rec)
		}
	}
}

func (r *Registry) documentReady(ctx context.Context, rec *record) {
	hook := rec.desc.OnDocumentReady
	if hook == nil {
		return
	}
	f := rec.facade
	r.runHook(ctx, rec.desc.Name, "document ready", func(ctx context.Context) error {
		return hook(ctx, f)
	})
}

// runHook runs a plugin callback whose failure does not change the plugin's
// state.
func (r *Registry) runHook(ctx context.Context, name, what string, fn dispatch.Func) {
	result := r.executor.Execute(ctx, fn)
	if err := result.Failure(); err != nil {
		r.bus.Report(ctx, events.PluginError{
			Code:   events.CodePluginHookFailed,
			Plugin: name,
			Err:    fmt.Errorf("%s: %w", what, err),
		})
	}
}

// Destroy tears a plugin down. Plugins depending on it are destroyed first.
// The destroy hook runs, then the cleanup handle runs even if the hook
// failed, then everything the plugin registered through its facade is
// removed.
func (r *Registry) Destroy(ctx context.Context, name string) error {
	rec, ok := r.records[name]
	if !ok {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}
	r.destroy(ctx, rec)
	return nil
}

// DestroyAll tears down every plugin in reverse activation order.
func (r *Registry) DestroyAll(ctx context.Context) {
	activation := slices.Clone(r.activation)
	for i := len(activation) - 1; i >= 0; i-- {
		r.destroy(ctx, r.records[activation[i]])
	}
	order := slices.Clone(r.order)
	for i := len(order) - 1; i >= 0; i-- {
		r.destroy(ctx, r.records[order[i]])
	}
}

func (r *Registry) destroy(ctx context.Context, rec *record) {
	name := rec.desc.Name
	switch rec.state {
	case StateDestroyed, StateDestroying:
		return
	case StateInitializing:
		r.logger.Warn("destroy of %s ignored during its setup", name)
		return
	case StateRegistered, StateFailed:
		r.destroyDependents(ctx, name)
		r.transition(rec, StateDestroyed)
		r.publish(ctx, events.TopicPluginDestroyed, rec)
		return
	}

	r.destroyDependents(ctx, name)
	r.transition(rec, StateDestroying)

	if hook := rec.desc.Destroy; hook != nil {
		f := rec.facade
		r.runHook(ctx, name, "destroy", func(ctx context.Context) error {
			return hook(ctx, f)
		})
	}
	if cleanup := rec.cleanup; cleanup != nil {
		r.runHook(ctx, name, "cleanup", func(context.Context) error {
			cleanup()
			return nil
		})
	}
	rec.facade.Release(ctx)
	rec.facade = nil
	rec.cleanup = nil

	r.activation = slices.DeleteFunc(r.activation, func(n string) bool { return n == name })
	r.transition(rec, StateDestroyed)
	r.logger.Info("destroyed %s", name)
	r.publish(ctx, events.TopicPluginDestroyed, rec)
}

// destroyDependents destroys live plugins that depend on name, most recently
// activated first.
func (r *Registry) destroyDependents(ctx context.Context, name string) {
	var dependents []string
	activation := slices.Clone(r.activation)
	for i := len(activation) - 1; i >= 0; i-- {
		if slices.Contains(r.records[activation[i]].desc.Dependencies, name) {
			dependents = append(dependents, activation[i])
		}
	}
	for i := len(r.order) - 1; i >= 0; i-- {
		rec := r.records[r.order[i]]
		if rec.state == StateRegistered && slices.Contains(rec.desc.Dependencies, name) {
			dependents = append(dependents, rec.desc.Name)
		}
	}
	for _, dep := range dependents {
		r.destroy(ctx, r.records[dep])
	}
}

func (r *Registry) transition(rec *record, to State) {
	from := rec.state
	if !from.CanTransition(to) {
		r.logger.Error("invalid transition of %s: %s -> %s", rec.desc.Name, from, to)
	}
	rec.state = to
	r.logger.Debug("%s: %s -> %s", rec.desc.Name, from, to)
	if r.observer != nil {
		r.observer.PluginTransition(rec.desc.Name, from.String(), to.String())
	}
}

func (r *Registry) publish(ctx context.Context, t topic.Topic, rec *record) {
	info := rec.info()
	_ = r.bus.Publish(ctx, t, events.PluginLifecycle{
		Name:         info.Name,
		State:        info.State.String(),
		Dependencies: info.Dependencies,
	})
}

// Get returns a plugin's record.
func (r *Registry) Get(name string) (Info, bool) {
	rec, ok := r.records[name]
	if !ok {
		return Info{}, false
	}
	return rec.info(), true
}

// Plugins returns every record in registration order.
func (r *Registry) Plugins() []Info {
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.records[name].info())
	}
	return out
}

// ActivationOrder returns the ready plugins in the order they became ready.
func (r *Registry) ActivationOrder() []string {
	return slices.Clone(r.activation)
}

// Len returns the number of live plugins.
func (r *Registry) Len() int {
	n := 0
	for _, rec := range r.records {
		if rec.state.IsLive() {
			n++
		}
	}
	return n
}
