package event

import (
	"slices"

	"github.com/dshills/folio/internal/event/topic"
)

// Registry holds subscriptions in subscription order and indexes their
// patterns in a trie.
type Registry struct {
	subs []*Subscription
	byID map[string]*Subscription
	trie *topic.Trie
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]*Subscription),
		trie: topic.NewTrie(),
	}
}

func (r *Registry) add(sub *Subscription) {
	sub.registry = r
	sub.active = true
	r.subs = append(r.subs, sub)
	r.byID[sub.id] = sub
	r.trie.Insert(sub.pattern)
}

func (r *Registry) remove(sub *Subscription) {
	if _, ok := r.byID[sub.id]; !ok {
		return
	}
	delete(r.byID, sub.id)
	r.trie.Delete(sub.pattern)
	if i := slices.Index(r.subs, sub); i >= 0 {
		r.subs = slices.Delete(r.subs, i, i+1)
	}
}

// Get returns a subscription by ID.
func (r *Registry) Get(id string) (*Subscription, bool) {
	sub, ok := r.byID[id]
	return sub, ok
}

// Match returns a fresh slice of the active subscriptions whose pattern
// matches t, in subscription order.
func (r *Registry) Match(t topic.Topic) []*Subscription {
	patterns := r.trie.Match(t)
	if len(patterns) == 0 {
		return nil
	}
	var out []*Subscription
	for _, sub := range r.subs {
		if _, ok := patterns[sub.pattern]; ok {
			out = append(out, sub)
		}
	}
	return out
}

// ByOwner returns the subscriptions owned by owner.
func (r *Registry) ByOwner(owner string) []*Subscription {
	var out []*Subscription
	for _, sub := range r.subs {
		if sub.owner == owner {
			out = append(out, sub)
		}
	}
	return out
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	return len(r.subs)
}
