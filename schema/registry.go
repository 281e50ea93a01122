package schema

import (
	"fmt"

	"github.com/syssam/veloxql/schema/edge"
)

// Registry holds a closed set of entities. Navigations between them are
// resolved when the registry is built.
type Registry struct {
	entities []*Entity
	byName   map[string]*Entity
}

// NewRegistry validates the entities, resolves their navigation keys and
// returns a registry holding them.
func NewRegistry(entities ...*Entity) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		if err := e.Err(); err != nil {
			return nil, err
		}
		if r.byName[e.name] != nil {
			return nil, fmt.Errorf("schema: duplicate entity %q", e.name)
		}
		r.entities = append(r.entities, e)
		r.byName[e.name] = e
	}
	for _, e := range r.entities {
		for _, d := range e.edges {
			if err := r.resolve(e, d); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func (r *Registry) resolve(owner *Entity, d *edge.Descriptor) error {
	target, ok := r.byName[d.Target]
	if !ok {
		return fmt.Errorf("schema: edge %s.%s: unknown target entity %q", owner.name, d.Name, d.Target)
	}
	switch {
	case d.ForeignKey != "":
		keys := target.Keys()
		if len(keys) != 1 {
			return fmt.Errorf("schema: edge %s.%s: Field requires %q to have a single key field", owner.name, d.Name, target.name)
		}
		d.Pairs = []edge.Pair{{Source: d.ForeignKey, Target: keys[0].Name}}
		d.ForeignKey = ""
	case d.Reference != "":
		keys := owner.Keys()
		if len(keys) != 1 {
			return fmt.Errorf("schema: edge %s.%s: Ref requires %q to have a single key field", owner.name, d.Name, owner.name)
		}
		d.Pairs = []edge.Pair{{Source: keys[0].Name, Target: d.Reference}}
		d.Reference = ""
	}
	for _, p := range d.Pairs {
		if _, ok := owner.Field(p.Source); !ok {
			return fmt.Errorf("schema: edge %s.%s: unknown field %q on %q", owner.name, d.Name, p.Source, owner.name)
		}
		if _, ok := target.Field(p.Target); !ok {
			return fmt.Errorf("schema: edge %s.%s: unknown field %q on %q", owner.name, d.Name, p.Target, target.name)
		}
	}
	if len(d.Pairs) == 0 {
		return fmt.Errorf("schema: edge %s.%s: no key fields", owner.name, d.Name)
	}
	owner.targets[d.Name] = target
	return nil
}

// Lookup returns the entity with the given name.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.byName[name]
	return e, ok
}

// Entities returns the entities in registration order.
func (r *Registry) Entities() []*Entity {
	if r == nil {
		return nil
	}
	return r.entities
}
