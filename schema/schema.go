package schema

import (
	"fmt"

	"github.com/syssam/veloxql/schema/edge"
	"github.com/syssam/veloxql/schema/field"

	"github.com/go-openapi/inflect"
)

// Entity is the metadata of one mapped type.
type Entity struct {
	name    string
	table   string
	fields  []*field.Descriptor
	edges   []*edge.Descriptor
	byName  map[string]*field.Descriptor
	edgeIdx map[string]*edge.Descriptor
	targets map[string]*Entity // resolved by the registry.
	err     error
}

// New returns a new entity. The table name defaults to the snake-cased
// entity name, e.g. "OrderDetail" maps to "order_detail".
func New(name string) *Entity {
	return &Entity{
		name:    name,
		table:   inflect.Underscore(name),
		byName:  make(map[string]*field.Descriptor),
		edgeIdx: make(map[string]*edge.Descriptor),
		targets: make(map[string]*Entity),
	}
}

// Table sets the table name of the entity.
func (e *Entity) Table(name string) *Entity {
	e.table = name
	return e
}

// Fields appends fields to the entity.
func (e *Entity) Fields(fields ...*field.Builder) *Entity {
	for _, f := range fields {
		e.AddField(f.Descriptor())
	}
	return e
}

// AddField appends a field descriptor to the entity.
func (e *Entity) AddField(d *field.Descriptor) *Entity {
	switch err := d.Err(); {
	case err != nil:
		e.setErr(fmt.Errorf("schema: entity %q: %w", e.name, err))
	case e.byName[d.Name] != nil:
		e.setErr(fmt.Errorf("schema: entity %q: duplicate field %q", e.name, d.Name))
	default:
		e.fields = append(e.fields, d)
		e.byName[d.Name] = d
	}
	return e
}

// Edges appends navigations to the entity.
func (e *Entity) Edges(edges ...*edge.Builder) *Entity {
	for _, b := range edges {
		e.AddEdge(b.Descriptor())
	}
	return e
}

// AddEdge appends an edge descriptor to the entity.
func (e *Entity) AddEdge(d *edge.Descriptor) *Entity {
	switch err := d.Err(); {
	case err != nil:
		e.setErr(fmt.Errorf("schema: entity %q: %w", e.name, err))
	case e.edgeIdx[d.Name] != nil || e.byName[d.Name] != nil:
		e.setErr(fmt.Errorf("schema: entity %q: duplicate member %q", e.name, d.Name))
	default:
		e.edges = append(e.edges, d)
		e.edgeIdx[d.Name] = d
	}
	return e
}

func (e *Entity) setErr(err error) {
	if e.err == nil {
		e.err = err
	}
}

// Err returns the first error recorded while declaring the entity.
func (e *Entity) Err() error {
	if e.err != nil {
		return e.err
	}
	if e.name == "" {
		return fmt.Errorf("schema: entity without name")
	}
	if len(e.fields) == 0 {
		return fmt.Errorf("schema: entity %q has no fields", e.name)
	}
	return nil
}

// Name returns the entity name.
func (e *Entity) Name() string { return e.name }

// TableName returns the table the entity maps to.
func (e *Entity) TableName() string { return e.table }

// FieldList returns the fields in declaration order.
func (e *Entity) FieldList() []*field.Descriptor { return e.fields }

// EdgeList returns the navigations in declaration order.
func (e *Entity) EdgeList() []*edge.Descriptor { return e.edges }

// Field returns the field with the given name.
func (e *Entity) Field(name string) (*field.Descriptor, bool) {
	f, ok := e.byName[name]
	return f, ok
}

// Edge returns the navigation with the given name.
func (e *Entity) Edge(name string) (*edge.Descriptor, bool) {
	d, ok := e.edgeIdx[name]
	return d, ok
}

// Navigate returns the navigation with the given name and its target
// entity. It fails for entities that are not part of a registry.
func (e *Entity) Navigate(name string) (*edge.Descriptor, *Entity, bool) {
	d, ok := e.edgeIdx[name]
	if !ok || e.targets[name] == nil {
		return nil, nil, false
	}
	return d, e.targets[name], true
}

// Keys returns the primary-key fields in declaration order.
func (e *Entity) Keys() []*field.Descriptor {
	var keys []*field.Descriptor
	for _, f := range e.fields {
		if f.Key {
			keys = append(keys, f)
		}
	}
	return keys
}

// String implements fmt.Stringer.
func (e *Entity) String() string {
	return e.name
}
