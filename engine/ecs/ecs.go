// Package ecs is the entity store of the engine. The component kinds are a closed set, each kept in a dense
// array indexed by entity, with one bitmask per entity recording which kinds it carries.
package ecs

import (
	"iter"
	"strings"

	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine/input"
	"github.com/Carmen-Shannon/oxy-planet/engine/planet"
	"github.com/Carmen-Shannon/oxy-planet/engine/scene"
	"github.com/pkg/errors"
)

// Entity is a handle into a Store.
type Entity uint32

// Kind is a bitmask of component kinds.
type Kind uint32

const (
	KindViewer Kind = 1 << iota
	KindParameters
	KindInput
	KindPlanet
)

func (k Kind) String() string {
	var names []string
	for _, n := range []struct {
		kind Kind
		name string
	}{
		{KindViewer, "viewer"},
		{KindParameters, "parameters"},
		{KindInput, "input"},
		{KindPlanet, "planet"},
	} {
		if k&n.kind != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Store holds every entity and its components. It is not safe for concurrent use; the frame loop owns it.
//
// Pointers returned by Get and GetOne stay valid until the next Create.
type Store struct {
	masks   []Kind
	viewers []scene.State
	params  []config.Parameters
	inputs  []*input.State
	planets []planet.State
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Create allocates a new entity with no components.
//
// Returns:
//   - Entity: the new handle
func (s *Store) Create() Entity {
	e := Entity(len(s.masks))
	s.masks = append(s.masks, 0)
	s.viewers = append(s.viewers, scene.State{})
	s.params = append(s.params, config.Parameters{})
	s.inputs = append(s.inputs, nil)
	s.planets = append(s.planets, planet.State{})
	return e
}

// Len returns the number of entities.
func (s *Store) Len() int {
	return len(s.masks)
}

// Mask returns the kinds an entity carries, 0 for an unknown entity.
func (s *Store) Mask(e Entity) Kind {
	if !s.valid(e) {
		return 0
	}
	return s.masks[e]
}

// Has reports whether an entity carries every kind in mask.
func (s *Store) Has(e Entity, mask Kind) bool {
	return s.Mask(e)&mask == mask
}

func (s *Store) valid(e Entity) bool {
	return int(e) < len(s.masks)
}

// SetViewer attaches the viewer record to an entity.
func (s *Store) SetViewer(e Entity, v scene.State) {
	s.viewers[e] = v
	s.masks[e] |= KindViewer
}

// SetParameters attaches the tuning parameters to an entity.
func (s *Store) SetParameters(e Entity, p config.Parameters) {
	s.params[e] = p
	s.masks[e] |= KindParameters
}

// SetInput attaches an input record to an entity. The record is shared with whoever feeds it.
func (s *Store) SetInput(e Entity, in *input.State) {
	s.inputs[e] = in
	s.masks[e] |= KindInput
}

// SetPlanet attaches a planet record to an entity.
func (s *Store) SetPlanet(e Entity, p planet.State) {
	s.planets[e] = p
	s.masks[e] |= KindPlanet
}

// Remove detaches the kinds in mask from an entity.
func (s *Store) Remove(e Entity, mask Kind) {
	if !s.valid(e) {
		return
	}
	s.masks[e] &^= mask
	if mask&KindViewer != 0 {
		s.viewers[e] = scene.State{}
	}
	if mask&KindParameters != 0 {
		s.params[e] = config.Parameters{}
	}
	if mask&KindInput != 0 {
		s.inputs[e] = nil
	}
	if mask&KindPlanet != 0 {
		s.planets[e] = planet.State{}
	}
}

// Iterate yields, in handle order, every entity carrying all kinds in mask.
//
// Parameters:
//   - mask: the kinds to match
//
// Returns:
//   - iter.Seq[Entity]: the matching entities
func (s *Store) Iterate(mask Kind) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for i, m := range s.masks {
			if m&mask == mask && m != 0 {
				if !yield(Entity(i)) {
					return
				}
			}
		}
	}
}

// Column addresses one component kind of a Store. The columns are the closed set declared below; each
// carries its kind bit and a typed accessor into the dense array that holds it.
type Column[T any] struct {
	kind Kind
	at   func(s *Store, e Entity) *T
}

var (
	// Viewers is the viewer record column.
	Viewers = Column[scene.State]{KindViewer, func(s *Store, e Entity) *scene.State { return &s.viewers[e] }}
	// Parameters is the tuning parameters column.
	Parameters = Column[config.Parameters]{KindParameters, func(s *Store, e Entity) *config.Parameters { return &s.params[e] }}
	// Inputs is the input record column.
	Inputs = Column[input.State]{KindInput, func(s *Store, e Entity) *input.State { return s.inputs[e] }}
	// Planets is the planet record column.
	Planets = Column[planet.State]{KindPlanet, func(s *Store, e Entity) *planet.State { return &s.planets[e] }}
)

// Kind returns the kind bit of the column.
func (c Column[T]) Kind() Kind {
	return c.kind
}

// Get returns the component of an entity held in column c.
//
// Parameters:
//   - s: the store
//   - c: the column
//   - e: the entity
//
// Returns:
//   - *T: the component, valid until the next Create
//   - bool: false when the entity does not carry the column's kind
func Get[T any](s *Store, c Column[T], e Entity) (*T, bool) {
	if !s.Has(e, c.kind) {
		return nil, false
	}
	return c.at(s, e), true
}

// GetOne returns the unique component of column c in the store.
//
// Parameters:
//   - s: the store
//   - c: the column
//
// Returns:
//   - *T: the component, valid until the next Create
//   - error: an error unless exactly one entity carries the column's kind
func GetOne[T any](s *Store, c Column[T]) (*T, error) {
	var found *T
	n := 0
	for e := range s.Iterate(c.kind) {
		if n == 0 {
			found = c.at(s, e)
		}
		n++
	}
	switch n {
	case 0:
		return nil, errors.Errorf("no %s record in store", c.kind)
	case 1:
		return found, nil
	}
	return nil, errors.Errorf("%d %s records in store, want one", n, c.kind)
}
