package pipeline

import (
	"context"

	"github.com/dshills/folio/internal/content"
)

// DefaultPriority is used for contributions registered without a priority.
const DefaultPriority = 100

// Priority returns a pointer to n for use as Contribution.Priority.
func Priority(n int) *int {
	return &n
}

// NextNode yields the node produced by the rest of the chain. Passing nil
// continues with the step's own input.
type NextNode func(node *content.Node) *content.Node

// NextElement yields the element produced by the rest of the chain.
type NextElement func(el *content.Element) *content.Element

// TransformFunc rewrites a content node before it is rendered.
type TransformFunc func(ctx context.Context, node *content.Node, next NextNode) (*content.Node, error)

// WrapFunc rewrites an already rendered element.
type WrapFunc func(ctx context.Context, el *content.Element, node *content.Node, next NextElement) (*content.Element, error)

// InlineFunc renders an inline node. Returning nil defers to later
// contributions and finally to the default renderer.
type InlineFunc func(ctx context.Context, node *content.Node) (*content.Element, error)

// Contribution is a named, prioritized unit of transform logic.
type Contribution struct {
	// Owner is the plugin that registered the contribution.
	Owner string

	// Name identifies the contribution in error reports.
	Name string

	// Priority orders contributions; lower runs earlier. Nil means the
	// pipeline's default priority.
	Priority *int

	Transform TransformFunc
	Wrap      WrapFunc
	Inline    InlineFunc
}

// Info describes a registered contribution.
type Info struct {
	ID       string
	Owner    string
	Name     string
	Priority int
	Stages   []Stage
}

type entry struct {
	id       string
	seq      uint64
	priority int
	c        Contribution
	active   bool
}

func (e *entry) info() Info {
	info := Info{ID: e.id, Owner: e.c.Owner, Name: e.c.Name, Priority: e.priority}
	if e.c.Transform != nil {
		info.Stages = append(info.Stages, StageTransform)
	}
	if e.c.Wrap != nil {
		info.Stages = append(info.Stages, StageWrap)
	}
	if e.c.Inline != nil {
		info.Stages = append(info.Stages, StageInline)
	}
	return info
}
