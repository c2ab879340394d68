package pipeline

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/event/dispatch"
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/logging"
)

// Pipeline holds the sorted contributions of one reader session.
type Pipeline struct {
	entries         []*entry
	seq             uint64
	enabled         bool
	defaultPriority int

	executor *dispatch.Executor
	reporter Reporter
	observer Observer
	logger   *logging.Logger
}

// New creates an enabled pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		enabled:         true,
		defaultPriority: DefaultPriority,
		executor:        dispatch.NewExecutor(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrNop(p.logger).WithComponent("pipeline")
	return p
}

// Enabled reports whether folds apply contributions.
func (p *Pipeline) Enabled() bool {
	return p.enabled
}

// Register adds a contribution and re-sorts the chain. The returned
// unsubscribe removes exactly this contribution.
func (p *Pipeline) Register(c Contribution) (event.Unsubscribe, error) {
	if c.Name == "" {
		return nil, ErrUnnamedContribution
	}
	if c.Transform == nil && c.Wrap == nil && c.Inline == nil {
		return nil, ErrEmptyContribution
	}
	priority := p.defaultPriority
	if c.Priority != nil {
		priority = *c.Priority
	}

	p.seq++
	e := &entry{id: uuid.NewString(), seq: p.seq, priority: priority, c: c, active: true}
	p.entries = append(p.entries, e)
	p.sort()

	p.logger.Debug("registered %q owner=%s priority=%d", c.Name, c.Owner, priority)
	return event.NewUnsubscribe(func() { p.remove(e) }), nil
}

func (p *Pipeline) sort() {
	slices.SortStableFunc(p.entries, func(a, b *entry) int {
		if c := cmp.Compare(a.priority, b.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
}

func (p *Pipeline) remove(e *entry) {
	e.active = false
	p.entries = slices.DeleteFunc(p.entries, func(x *entry) bool { return x == e })
}

// RemoveOwner removes every contribution registered by owner.
func (p *Pipeline) RemoveOwner(owner string) int {
	n := 0
	for _, e := range p.entries {
		if e.c.Owner == owner {
			e.active = false
			n++
		}
	}
	if n > 0 {
		p.entries = slices.DeleteFunc(p.entries, func(e *entry) bool { return !e.active })
	}
	return n
}

// Len returns the number of registered contributions.
func (p *Pipeline) Len() int {
	return len(p.entries)
}

// Contributions describes the registered contributions in fold order.
func (p *Pipeline) Contributions() []Info {
	out := make([]Info, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.info()
	}
	return out
}

// chain captures the current entries having the given callback. Entries
// removed during a fold are skipped but the slice itself never changes.
func (p *Pipeline) chain(has func(*entry) bool) []*entry {
	var out []*entry
	for _, e := range p.entries {
		if has(e) {
			out = append(out, e)
		}
	}
	return out
}

// RunTransform folds node through every transform in priority order and
// returns the resulting node. The input node is never modified.
func (p *Pipeline) RunTransform(ctx context.Context, node *content.Node) *content.Node {
	if !p.enabled || node == nil {
		return node
	}
	chain := p.chain(func(e *entry) bool { return e.c.Transform != nil })
	if len(chain) == 0 {
		return node
	}
	defer p.observe(StageTransform, time.Now())
	return p.transformAt(ctx, chain, 0, node)
}

func (p *Pipeline) transformAt(ctx context.Context, chain []*entry, i int, node *content.Node) *content.Node {
	for i < len(chain) && !chain[i].active {
		i++
	}
	if i >= len(chain) {
		return node
	}
	e := chain[i]

	var downstream *content.Node
	called, rewrote := false, false
	next := func(n *content.Node) *content.Node {
		if called {
			return downstream
		}
		called = true
		if n == nil {
			n = node
		} else {
			rewrote = !n.Equal(node)
		}
		downstream = p.transformAt(ctx, chain, i+1, n)
		return downstream
	}

	var out *content.Node
	result := p.executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = e.c.Transform(ctx, node.Clone(), next)
		return err
	})
	if result.Skipped {
		return node
	}
	if err := failure(result, out == nil); err != nil {
		p.fail(ctx, e, StageTransform, err)
		if called && !rewrote {
			return downstream
		}
		// the rewrite reached downstream; fold again from the pre-step node
		return p.transformAt(ctx, chain, i+1, node)
	}
	return out
}

// RunWrap folds an already rendered element through every wrap callback.
func (p *Pipeline) RunWrap(ctx context.Context, el *content.Element, node *content.Node) *content.Element {
	if !p.enabled || el == nil {
		return el
	}
	chain := p.chain(func(e *entry) bool { return e.c.Wrap != nil })
	if len(chain) == 0 {
		return el
	}
	defer p.observe(StageWrap, time.Now())
	return p.wrapAt(ctx, chain, 0, el, node)
}

func (p *Pipeline) wrapAt(ctx context.Context, chain []*entry, i int, el *content.Element, node *content.Node) *content.Element {
	for i < len(chain) && !chain[i].active {
		i++
	}
	if i >= len(chain) {
		return el
	}
	e := chain[i]

	var downstream *content.Element
	called, rewrote := false, false
	next := func(x *content.Element) *content.Element {
		if called {
			return downstream
		}
		called = true
		if x == nil {
			x = el
		} else {
			rewrote = !x.Equal(el)
		}
		downstream = p.wrapAt(ctx, chain, i+1, x, node)
		return downstream
	}

	var out *content.Element
	result := p.executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = e.c.Wrap(ctx, el.Clone(), node, next)
		return err
	})
	if result.Skipped {
		return el
	}
	if err := failure(result, out == nil); err != nil {
		p.fail(ctx, e, StageWrap, err)
		if called && !rewrote {
			return downstream
		}
		return p.wrapAt(ctx, chain, i+1, el, node)
	}
	return out
}

// RunInline asks each inline renderer in priority order and returns the first
// non-nil element, or the default inline rendering.
func (p *Pipeline) RunInline(ctx context.Context, node *content.Node) *content.Element {
	if node == nil {
		return nil
	}
	if !p.enabled {
		return content.DefaultInline(node)
	}
	chain := p.chain(func(e *entry) bool { return e.c.Inline != nil })
	if len(chain) == 0 {
		return content.DefaultInline(node)
	}
	defer p.observe(StageInline, time.Now())

	for _, e := range chain {
		if !e.active {
			continue
		}
		var out *content.Element
		result := p.executor.Execute(ctx, func(ctx context.Context) error {
			var err error
			out, err = e.c.Inline(ctx, node)
			return err
		})
		if result.Skipped {
			break
		}
		if err := result.Failure(); err != nil {
			p.fail(ctx, e, StageInline, err)
			continue
		}
		if out != nil {
			return out
		}
	}
	return content.DefaultInline(node)
}

func failure(result dispatch.Result, nilResult bool) error {
	if err := result.Failure(); err != nil {
		return err
	}
	if nilResult {
		return ErrNilResult
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, e *entry, stage Stage, err error) {
	cerr := &ContributionError{Owner: e.c.Owner, Name: e.c.Name, Stage: stage, Err: err}
	if p.observer != nil {
		p.observer.ContributionFailed(e.c.Owner, e.c.Name)
	}
	if p.reporter == nil {
		p.logger.Warn("%v", cerr)
		return
	}
	p.reporter.Report(ctx, events.PluginError{
		Code:         events.CodePluginMiddlewareError,
		Plugin:       e.c.Owner,
		Contribution: e.c.Name,
		Err:          cerr,
	})
}

func (p *Pipeline) observe(stage Stage, start time.Time) {
	if p.observer != nil {
		p.observer.FoldObserved(string(stage), time.Since(start))
	}
}
