package veloxql

import "github.com/syssam/veloxql/schema"

// Table is the handle builder callbacks use to reference one table source
// of a chain.
type Table struct {
	src    *TableSource
	query  *Query
	entity *schema.Entity // set on unbound lambda parameters.
}

// Col returns a reference to a field of the table.
func (t *Table) Col(field string) *Column {
	return &Column{Table: t, Field: field}
}

// All returns one projection field per column of the table, in
// declaration order.
func (t *Table) All() []ProjectionField {
	var names []string
	switch {
	case t.src != nil:
		names = t.src.columns()
	case t.entity != nil:
		for _, f := range t.entity.FieldList() {
			names = append(names, f.Name)
		}
	}
	fields := make([]ProjectionField, len(names))
	for i, n := range names {
		fields[i] = ProjectionField{Expr: t.Col(n)}
	}
	return fields
}

// Alias returns the alias of the table in the emitted SQL.
func (t *Table) Alias() string {
	if t.src == nil {
		return ""
	}
	return t.src.Alias
}

// Name returns the entity or CTE name of the table.
func (t *Table) Name() string {
	switch {
	case t.src != nil:
		return t.src.name()
	case t.entity != nil:
		return t.entity.Name()
	}
	return ""
}

// Tables is the positional view over the sources of a chain, in
// declaration order.
type Tables []*Table

// From starts a sub-query correlated with the chain the tables belong to.
// Its aliases never collide with the enclosing ones.
func (ts Tables) From(e *schema.Entity, alias ...string) *Query {
	if len(ts) == 0 || ts[0].query == nil {
		q := &Query{plan: &QueryPlan{}, alloc: newAliasAllocator()}
		q.fail(NewInvalidClauseStateError("From", "sub-query outside of a chain"))
		return q
	}
	return ts[0].query.subquery(e, alias...)
}

// Grouping is the handle of a GROUP BY clause.
type Grouping struct {
	spec *GroupSpec
}

// Key references the whole grouping key. A composite key expands to all
// of its members in projections and ORDER BY.
func (g *Grouping) Key() *GroupKey {
	return &GroupKey{Group: g}
}

// Field references one member of the grouping key by its name.
func (g *Grouping) Field(name string) *GroupKey {
	return &GroupKey{Group: g, Member: name}
}
