package veloxql

// GroupQuery is a grouped SELECT chain. Its callbacks receive the grouping
// handle and the sources of the chain.
type GroupQuery struct {
	q *Query
	g *Grouping
}

// Having adds a predicate over the groups. Repeated calls are joined with
// AND in call order.
func (g *GroupQuery) Having(fn func(*Grouping, Tables) Node) *GroupQuery {
	if g.q.mutable("Having") {
		g.q.plan.Having = And(g.q.plan.Having, fn(g.g, g.q.tables))
	}
	return g
}

// HavingIf adds a predicate over the groups if cond is true.
func (g *GroupQuery) HavingIf(cond bool, fn func(*Grouping, Tables) Node) *GroupQuery {
	if !cond {
		return g
	}
	return g.Having(fn)
}

// OrderBy appends an ascending ORDER BY term. Ordering by a composite key
// orders by each of its members.
func (g *GroupQuery) OrderBy(fn func(*Grouping, Tables) Node) *GroupQuery {
	if g.q.mutable("OrderBy") {
		g.q.plan.Orders = append(g.q.plan.Orders, OrderSpec{Expr: fn(g.g, g.q.tables)})
	}
	return g
}

// OrderByDescending appends a descending ORDER BY term.
func (g *GroupQuery) OrderByDescending(fn func(*Grouping, Tables) Node) *GroupQuery {
	if g.q.mutable("OrderByDescending") {
		g.q.plan.Orders = append(g.q.plan.Orders, OrderSpec{Expr: fn(g.g, g.q.tables), Desc: true})
	}
	return g
}

// Select sets the projection of the groups. Without it, the grouping keys
// are selected.
func (g *GroupQuery) Select(fn func(*Grouping, Tables) *Projection) *GroupQuery {
	if !g.q.mutable("Select") {
		return g
	}
	p := fn(g.g, g.q.tables)
	if p == nil || len(p.Fields) == 0 {
		g.q.fail(NewInvalidClauseStateError("Select", "empty projection"))
		return g
	}
	g.q.plan.Projection = p
	return g
}

// Distinct removes duplicate rows.
func (g *GroupQuery) Distinct() *GroupQuery {
	g.q.Distinct()
	return g
}

// Skip skips the first n groups.
func (g *GroupQuery) Skip(n int) *GroupQuery {
	g.q.Skip(n)
	return g
}

// Take limits the result to n groups.
func (g *GroupQuery) Take(n int) *GroupQuery {
	g.q.Take(n)
	return g
}

// Query returns the underlying chain, to be used as a sub-query, a derived
// table or a union branch.
func (g *GroupQuery) Query() *Query { return g.q }

// Err returns the first error recorded on the chain.
func (g *GroupQuery) Err() error { return g.q.err }

// Compile finalizes and compiles the query.
func (g *GroupQuery) Compile() (*CompiledStatement, error) { return g.q.Compile() }

// ToSQL compiles the query and returns its SQL text and parameters.
func (g *GroupQuery) ToSQL() (string, []Parameter, error) { return g.q.ToSQL() }
