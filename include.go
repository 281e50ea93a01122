package veloxql

import (
	"fmt"
	"strings"

	"github.com/syssam/veloxql/schema/edge"
)

// IncludeQuery is a query whose last include can be extended with
// ThenInclude and ThenIncludeMany.
type IncludeQuery struct {
	*Query
	last *IncludeSpec
}

// Include eager-loads a single-valued navigation with a LEFT JOIN. Its
// columns are appended to the SELECT list, tagged with the navigation path.
// Dotted paths such as "Order.Buyer" include every step.
func (q *Query) Include(path string) *IncludeQuery {
	return &IncludeQuery{Query: q, last: q.includePath("Include", path, edge.ToOne, nil)}
}

// IncludeMany eager-loads a collection navigation. The collection is
// loaded by a deferred query over the keys of the parent rows, optionally
// narrowed by filter.
func (q *Query) IncludeMany(path string, filter ...func(*Table) Node) *IncludeQuery {
	return &IncludeQuery{Query: q, last: q.includePath("IncludeMany", path, edge.ToMany, filter)}
}

// ThenInclude eager-loads a single-valued navigation of the last include.
func (iq *IncludeQuery) ThenInclude(name string) *IncludeQuery {
	if iq.last == nil || !iq.mutable("ThenInclude") {
		return iq
	}
	return &IncludeQuery{Query: iq.Query, last: iq.include(iq.last, name, edge.ToOne, nil)}
}

// ThenIncludeMany eager-loads a collection navigation of the last include.
func (iq *IncludeQuery) ThenIncludeMany(name string, filter ...func(*Table) Node) *IncludeQuery {
	if iq.last == nil || !iq.mutable("ThenIncludeMany") {
		return iq
	}
	spec := iq.include(iq.last, name, edge.ToMany, nil)
	if spec != nil {
		spec.Filter = filterLambda(spec, filter)
	}
	return &IncludeQuery{Query: iq.Query, last: spec}
}

func filterLambda(spec *IncludeSpec, filter []func(*Table) Node) *Lambda {
	if len(filter) == 0 || filter[0] == nil {
		return spec.Filter
	}
	t := &Table{entity: spec.Target}
	body := filter[0](t)
	if spec.Filter != nil {
		body = And(spec.Filter, body)
	}
	return &Lambda{Params: []*Table{t}, Body: body}
}

func (q *Query) includePath(clause, path string, last edge.Cardinality, filter []func(*Table) Node) *IncludeSpec {
	if !q.mutable(clause) {
		return nil
	}
	var spec *IncludeSpec
	names := strings.Split(path, ".")
	for i, name := range names {
		want := edge.Cardinality(0)
		if i == len(names)-1 {
			want = last
		}
		if spec = q.include(spec, name, want, nil); spec == nil {
			return nil
		}
	}
	if last == edge.ToMany {
		spec.Filter = filterLambda(spec, filter)
	}
	return spec
}

// include resolves one navigation under parent, or under the root source
// when parent is nil. Including the same navigation twice returns the
// existing descriptor. A zero want accepts either cardinality.
func (q *Query) include(parent *IncludeSpec, name string, want edge.Cardinality, filter *Lambda) *IncludeSpec {
	owner, siblings, prefix := q.plan.Tables[0].Entity, &q.plan.Includes, ""
	if parent != nil {
		owner, siblings, prefix = parent.Target, &parent.Children, parent.Path+"."
	}
	if owner == nil {
		q.fail(NewInvalidClauseStateError("Include", "the root source is not an entity"))
		return nil
	}
	d, target, ok := owner.Navigate(name)
	if !ok {
		q.fail(&AliasResolutionError{Table: owner.Name(), Field: name, Path: "Include(" + prefix + name + ")"})
		return nil
	}
	if want != 0 && d.Cardinality != want {
		q.fail(NewInvalidClauseStateError("Include", fmt.Sprintf("%s.%s is a %s navigation", owner.Name(), name, d.Cardinality)))
		return nil
	}
	for _, s := range *siblings {
		if s.Name == name {
			return s
		}
	}
	spec := &IncludeSpec{
		Path:        prefix + name,
		Name:        name,
		Cardinality: d.Cardinality,
		Filter:      filter,
		Target:      target,
		ParentKeys:  d.SourceFields(),
		TargetKeys:  d.TargetFields(),
		edge:        d,
		client:      q.client,
	}
	// Single-valued navigations reachable through joins only are joined now.
	// The others are loaded with the deferred query of their collection.
	if d.Cardinality == edge.ToOne && (parent == nil || parent.source != nil) {
		from := q.plan.Tables[0].handle
		if parent != nil {
			from = parent.source.handle
		}
		t := q.addEntity("Include", RoleJoined, target, nil)
		if t == nil {
			return nil
		}
		var on []Node
		for _, p := range d.Pairs {
			on = append(on, EQ(from.Col(p.Source), t.Col(p.Target)))
		}
		jc := &JoinClause{Kind: LeftJoin, Left: from.src, Right: t.src, On: And(on...)}
		t.src.Join = jc
		q.plan.Joins = append(q.plan.Joins, jc)
		spec.source = t.src
	}
	*siblings = append(*siblings, spec)
	return spec
}

// Query returns the deferred query loading the collection for the given
// parent keys. Each key holds the values of ParentKeys of one parent row.
func (s *IncludeSpec) Query(keys [][]any) *Query {
	q := s.client.From(s.Target)
	if q.err != nil {
		return q
	}
	t := q.tables[0]
	for _, k := range keys {
		if len(k) != len(s.TargetKeys) {
			q.fail(NewInvalidClauseStateError("IncludeMany", fmt.Sprintf("%s: key has %d values, want %d", s.Path, len(k), len(s.TargetKeys))))
			return q
		}
	}
	var match Node
	if len(s.TargetKeys) == 1 {
		values := make([]Node, len(keys))
		for i, k := range keys {
			values[i] = Var(k[0])
		}
		match = In(t.Col(s.TargetKeys[0]), values...)
	} else {
		rows := make([]Node, len(keys))
		for i, k := range keys {
			cols := make([]Node, len(k))
			for j, f := range s.TargetKeys {
				cols[j] = EQ(t.Col(f), Var(k[j]))
			}
			rows[i] = And(cols...)
		}
		if match = Or(rows...); match == nil {
			match = Const(false)
		}
	}
	q.Where(func(Tables) Node { return match })
	if s.Filter != nil {
		q.Where(func(Tables) Node { return s.Filter })
	}
	for _, child := range s.Children {
		q.attach(nil, child)
	}
	return q
}

// Compile compiles the deferred query for the given parent keys.
func (s *IncludeSpec) Compile(keys [][]any) (*CompiledStatement, error) {
	return s.Query(keys).Compile()
}

// Edge returns the navigation the include follows.
func (s *IncludeSpec) Edge() *edge.Descriptor { return s.edge }

// attach re-creates an include of another chain under parent.
func (q *Query) attach(parent, inc *IncludeSpec) {
	spec := q.include(parent, inc.Name, inc.Cardinality, inc.Filter)
	if spec == nil {
		return
	}
	for _, child := range inc.Children {
		q.attach(spec, child)
	}
}
