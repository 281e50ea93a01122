package veloxql

import (
	"fmt"

	"github.com/syssam/veloxql/schema"
)

// Query is a fluent SELECT chain. Builder calls append to its plan.
// Errors are recorded on the chain and returned by Compile.
type Query struct {
	client *Client
	plan   *QueryPlan
	alloc  *aliasAllocator
	tables Tables
	err    error
	frozen bool
	outer  *Query // chain whose callbacks built this sub-query.
}

func (c *Client) newQuery(alloc *aliasAllocator) *Query {
	return &Query{client: c, plan: &QueryPlan{}, alloc: alloc}
}

// From starts a query over an entity. An explicit alias replaces the
// generated one.
func (c *Client) From(e *schema.Entity, alias ...string) *Query {
	q := c.newQuery(newAliasAllocator())
	q.addEntity("From", RoleRoot, e, alias)
	return q
}

// FromQuery starts a query over the rows of another query, used as a
// derived table.
func (c *Client) FromQuery(sub *Query) *Query {
	q := c.newQuery(newAliasAllocator())
	if sub == nil {
		q.fail(NewInvalidClauseStateError("FromQuery", "nil sub-query"))
		return q
	}
	if sub.err != nil {
		q.fail(sub.err)
		return q
	}
	// The outer chain continues the sub-query's aliases.
	q.alloc = &aliasAllocator{state: sub.alloc.state}
	sub.frozen = true
	q.addSource(&TableSource{Role: RoleRoot, Derived: sub.plan}, nil)
	return q
}

// FromWith starts a query over a common table expression.
func (c *Client) FromWith(cte *Cte) *Query {
	q := c.newQuery(newAliasAllocator())
	if err := cte.Err(); err != nil {
		q.fail(err)
		return q
	}
	q.addSource(&TableSource{Role: RoleRoot, Cte: cte.def}, nil)
	return q
}

// FromWithRecursive starts a query over a recursive common table
// expression. The member callback receives the expression itself to join
// against.
func (c *Client) FromWithRecursive(name string, anchor *Query, member func(self *Cte) *Query) *Query {
	return c.FromWith(c.CteRecursive(name, anchor, member))
}

// subquery starts a query correlated with q. It shares q's aliases.
func (q *Query) subquery(e *schema.Entity, alias ...string) *Query {
	sub := q.client.newQuery(&aliasAllocator{state: q.alloc.state})
	sub.outer = q
	sub.addEntity("From", RoleRoot, e, alias)
	return sub
}

// addEntity adds an entity source.
func (q *Query) addEntity(clause string, role SourceRole, e *schema.Entity, alias []string) *Table {
	if e == nil {
		q.fail(NewInvalidClauseStateError(clause, "nil entity"))
		return nil
	}
	if err := e.Err(); err != nil {
		q.fail(err)
		return nil
	}
	return q.addSource(&TableSource{Role: role, Entity: e}, alias)
}

// addSource allocates the alias of src and appends it to the plan.
func (q *Query) addSource(src *TableSource, alias []string) *Table {
	switch {
	case len(alias) > 0 && alias[0] != "":
		if !q.alloc.Reserve(alias[0]) {
			q.fail(NewInvalidClauseStateError("From", fmt.Sprintf("alias %q is already in use", alias[0])))
			return nil
		}
		src.Alias, src.explicit = alias[0], true
	case src.Derived != nil:
		src.Alias = q.alloc.NextDerivedAlias("w")
	default:
		src.Alias = q.alloc.NextTableAlias()
	}
	t := &Table{src: src, query: q}
	src.handle = t
	q.plan.Tables = append(q.plan.Tables, src)
	q.tables = append(q.tables, t)
	return t
}

// source adds a join or comma-joined target, which is an entity, a query,
// a grouped query or a CTE.
func (q *Query) source(clause string, role SourceRole, target any, alias []string) *Table {
	switch x := target.(type) {
	case *schema.Entity:
		return q.addEntity(clause, role, x, alias)
	case *Query:
		if x == nil {
			break
		}
		if x.err != nil {
			q.fail(x.err)
			return nil
		}
		x.frozen = true
		return q.addSource(&TableSource{Role: role, Derived: x.plan}, alias)
	case *GroupQuery:
		if x == nil {
			break
		}
		return q.source(clause, role, x.q, alias)
	case *Cte:
		if err := x.Err(); err != nil {
			q.fail(err)
			return nil
		}
		return q.addSource(&TableSource{Role: role, Cte: x.def}, alias)
	}
	q.fail(NewInvalidClauseStateError(clause, fmt.Sprintf("unsupported source %T", target)))
	return nil
}

// fail records the first error of the chain.
func (q *Query) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// mutable reports if a clause can be added. Clauses added after Compile
// fail the chain. Clauses added after a union apply to the union result.
func (q *Query) mutable(clause string) bool {
	if q.frozen {
		q.fail(NewInvalidClauseStateError(clause, "statement is already compiled"))
		return false
	}
	if q.err != nil {
		return false
	}
	if len(q.plan.Unions) > 0 {
		q.wrapUnion()
	}
	return true
}

// wrapUnion moves the current plan, unions included, into a derived table
// that becomes the only source of the chain.
func (q *Query) wrapUnion() {
	inner := q.plan
	q.plan = &QueryPlan{}
	q.tables = nil
	q.addSource(&TableSource{Role: RoleRoot, Derived: inner}, nil)
}

func (q *Query) join(kind JoinKind, target any, on func(Tables) Node) *Query {
	clause := kind.String()
	if !q.mutable(clause) {
		return q
	}
	left := q.plan.Tables[len(q.plan.Tables)-1]
	t := q.source(clause, RoleJoined, target, nil)
	if t == nil {
		return q
	}
	jc := &JoinClause{Kind: kind, Left: left, Right: t.src}
	if on != nil {
		jc.On = on(q.tables)
	}
	if jc.On == nil {
		q.fail(NewInvalidClauseStateError(clause, "missing join condition"))
		return q
	}
	t.src.Join = jc
	q.plan.Joins = append(q.plan.Joins, jc)
	return q
}

// InnerJoin joins target with INNER JOIN. The callback receives every
// source of the chain, the new one last.
func (q *Query) InnerJoin(target any, on func(Tables) Node) *Query {
	return q.join(InnerJoin, target, on)
}

// LeftJoin joins target with LEFT JOIN.
func (q *Query) LeftJoin(target any, on func(Tables) Node) *Query {
	return q.join(LeftJoin, target, on)
}

// RightJoin joins target with RIGHT JOIN.
func (q *Query) RightJoin(target any, on func(Tables) Node) *Query {
	return q.join(RightJoin, target, on)
}

// WithTable adds target as a comma-joined source. Sub-queries are inlined
// as derived tables and their parameters bound at their position.
func (q *Query) WithTable(target any, alias ...string) *Query {
	if q.mutable("WithTable") {
		q.source("WithTable", RoleDerived, target, alias)
	}
	return q
}

// NextWith adds a common table expression to the WITH clause of the
// statement, after the ones it depends on.
func (q *Query) NextWith(cte *Cte) *Query {
	if !q.mutable("NextWith") {
		return q
	}
	if err := cte.Err(); err != nil {
		q.fail(err)
		return q
	}
	q.plan.Ctes = append(q.plan.Ctes, cte.def)
	return q
}

// Where adds a predicate. Predicates of repeated calls are joined with AND
// in call order.
func (q *Query) Where(fn func(Tables) Node) *Query {
	if q.mutable("Where") {
		q.plan.Where = And(q.plan.Where, fn(q.tables))
	}
	return q
}

// WhereIf adds a predicate if cond is true.
func (q *Query) WhereIf(cond bool, fn func(Tables) Node) *Query {
	if !cond {
		return q
	}
	return q.Where(fn)
}

// OrderBy appends an ascending ORDER BY term.
func (q *Query) OrderBy(fn func(Tables) Node) *Query {
	if q.mutable("OrderBy") {
		q.plan.Orders = append(q.plan.Orders, OrderSpec{Expr: fn(q.tables)})
	}
	return q
}

// OrderByDescending appends a descending ORDER BY term.
func (q *Query) OrderByDescending(fn func(Tables) Node) *Query {
	if q.mutable("OrderByDescending") {
		q.plan.Orders = append(q.plan.Orders, OrderSpec{Expr: fn(q.tables), Desc: true})
	}
	return q
}

// Select sets the projection. Without it, the columns of the first source
// are selected.
func (q *Query) Select(fn func(Tables) *Projection) *Query {
	if !q.mutable("Select") {
		return q
	}
	p := fn(q.tables)
	if p == nil || len(p.Fields) == 0 {
		q.fail(NewInvalidClauseStateError("Select", "empty projection"))
		return q
	}
	q.plan.Projection = p
	return q
}

// SelectAggregate sets a projection of aggregates over all rows.
func (q *Query) SelectAggregate(fn func(Tables) *Projection) *Query {
	return q.Select(fn)
}

// Distinct removes duplicate rows.
func (q *Query) Distinct() *Query {
	if q.mutable("Distinct") {
		q.plan.Distinct = true
	}
	return q
}

// Skip skips the first n rows.
func (q *Query) Skip(n int) *Query {
	if !q.mutable("Skip") {
		return q
	}
	if n < 0 {
		q.fail(NewInvalidClauseStateError("Skip", "negative count"))
		return q
	}
	q.plan.Skip = &n
	return q
}

// Take limits the result to n rows.
func (q *Query) Take(n int) *Query {
	if !q.mutable("Take") {
		return q
	}
	if n < 0 {
		q.fail(NewInvalidClauseStateError("Take", "negative count"))
		return q
	}
	q.plan.Take = &n
	return q
}

// Page selects the rows of a 1-based page.
func (q *Query) Page(page, size int) *Query {
	if page < 1 || size < 1 {
		if q.mutable("Page") {
			q.fail(NewInvalidClauseStateError("Page", "page and size must be positive"))
		}
		return q
	}
	return q.Skip((page - 1) * size).Take(size)
}

// Union appends other with UNION.
func (q *Query) Union(other *Query) *Query {
	return q.union("Union", other, false)
}

// UnionAll appends other with UNION ALL.
func (q *Query) UnionAll(other *Query) *Query {
	return q.union("UnionAll", other, true)
}

func (q *Query) union(clause string, other *Query, all bool) *Query {
	// Further unions extend the current list instead of wrapping it.
	if q.frozen {
		q.fail(NewInvalidClauseStateError(clause, "statement is already compiled"))
		return q
	}
	if q.err != nil {
		return q
	}
	if other == nil {
		q.fail(NewInvalidClauseStateError(clause, "nil query"))
		return q
	}
	if other.err != nil {
		q.fail(other.err)
		return q
	}
	other.frozen = true
	if len(q.plan.Unions) == 0 && q.plan.ordered() {
		q.plan.HeadAlias = q.alloc.NextDerivedAlias("u")
	}
	b := UnionBranch{All: all, Plan: other.plan}
	if other.plan.ordered() || len(other.plan.Unions) > 0 {
		b.Alias = q.alloc.NextDerivedAlias("u")
	}
	q.plan.Unions = append(q.plan.Unions, b)
	return q
}

// GroupBy groups the rows by the given keys. A single-field projection is
// a scalar key, more fields form a composite key.
func (q *Query) GroupBy(fn func(Tables) *Projection) *GroupQuery {
	g := &GroupQuery{q: q}
	if !q.mutable("GroupBy") {
		return g
	}
	if q.plan.Group != nil {
		q.fail(NewInvalidClauseStateError("GroupBy", "query is already grouped"))
		return g
	}
	p := fn(q.tables)
	if p == nil || len(p.Fields) == 0 {
		q.fail(NewInvalidClauseStateError("GroupBy", "no grouping keys"))
		return g
	}
	q.plan.Group = &GroupSpec{Keys: p.Fields}
	g.g = &Grouping{spec: q.plan.Group}
	return g
}

// Tables returns the sources of the chain in declaration order.
func (q *Query) Tables() Tables { return q.tables }

// Plan returns the clause model of the query.
func (q *Query) Plan() *QueryPlan { return q.plan }

// Err returns the first error recorded on the chain.
func (q *Query) Err() error { return q.err }

// Compile finalizes the query and compiles it. Later builder calls fail.
func (q *Query) Compile() (*CompiledStatement, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.frozen = true
	stmt, err := q.client.newCompiler().query(q.plan)
	if err != nil {
		return nil, err
	}
	q.client.logCompiled("select", stmt)
	return stmt, nil
}

// ToSQL compiles the query and returns its SQL text and parameters.
func (q *Query) ToSQL() (string, []Parameter, error) {
	stmt, err := q.Compile()
	if err != nil {
		return "", nil, err
	}
	return stmt.SQL, stmt.Parameters, nil
}
