package facade

import (
	"slices"

	"github.com/google/uuid"
)

// Position places an injected component relative to a content unit.
type Position string

// Injection positions.
const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
	PositionInside Position = "inside"
)

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	switch p {
	case PositionBefore, PositionAfter, PositionInside:
		return true
	}
	return false
}

// Slot is a named mount point registered by a plugin.
type Slot struct {
	ID    string
	Owner string
	Name  string
}

// Injection associates a plugin component with a location. Floating
// injections have no unit.
type Injection struct {
	ID        string
	Owner     string
	UnitID    string
	Position  Position
	Floating  bool
	Component any
}

// UIRegistry records UI associations for the renderer. Mounting is the
// renderer's job; the registry only remembers what was asked for.
type UIRegistry struct {
	slots      []Slot
	injections []Injection
}

// NewUIRegistry creates an empty registry.
func NewUIRegistry() *UIRegistry {
	return &UIRegistry{}
}

func (r *UIRegistry) addSlot(owner, name string) (Slot, error) {
	if slices.ContainsFunc(r.slots, func(s Slot) bool { return s.Name == name }) {
		return Slot{}, ErrSlotExists
	}
	s := Slot{ID: uuid.NewString(), Owner: owner, Name: name}
	r.slots = append(r.slots, s)
	return s, nil
}

func (r *UIRegistry) addInjection(in Injection) Injection {
	in.ID = uuid.NewString()
	r.injections = append(r.injections, in)
	return in
}

func (r *UIRegistry) removeSlot(id string) bool {
	n := len(r.slots)
	r.slots = slices.DeleteFunc(r.slots, func(s Slot) bool { return s.ID == id })
	return len(r.slots) != n
}

func (r *UIRegistry) removeInjection(id string) (Injection, bool) {
	i := slices.IndexFunc(r.injections, func(in Injection) bool { return in.ID == id })
	if i < 0 {
		return Injection{}, false
	}
	in := r.injections[i]
	r.injections = slices.Delete(r.injections, i, i+1)
	return in, true
}

// removeOwner drops everything owned by owner and returns the removed
// injections.
func (r *UIRegistry) removeOwner(owner string) []Injection {
	r.slots = slices.DeleteFunc(r.slots, func(s Slot) bool { return s.Owner == owner })
	var removed []Injection
	r.injections = slices.DeleteFunc(r.injections, func(in Injection) bool {
		if in.Owner == owner {
			removed = append(removed, in)
			return true
		}
		return false
	})
	return removed
}

// Slots returns the registered slots in registration order.
func (r *UIRegistry) Slots() []Slot {
	return slices.Clone(r.slots)
}

// Injections returns every injection in registration order.
func (r *UIRegistry) Injections() []Injection {
	return slices.Clone(r.injections)
}

// InjectionsFor returns the injections anchored to a unit.
func (r *UIRegistry) InjectionsFor(unitID string) []Injection {
	var out []Injection
	for _, in := range r.injections {
		if !in.Floating && in.UnitID == unitID {
			out = append(out, in)
		}
	}
	return out
}

// Floating returns the floating injections.
func (r *UIRegistry) Floating() []Injection {
	var out []Injection
	for _, in := range r.injections {
		if in.Floating {
			out = append(out, in)
		}
	}
	return out
}
