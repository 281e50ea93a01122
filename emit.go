package veloxql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema/edge"
)

// query compiles a SELECT statement with its WITH clause.
func (c *compiler) query(p *QueryPlan) (*CompiledStatement, error) {
	with, err := c.with(p)
	if err != nil {
		return nil, err
	}
	body, spec, err := c.selectSQL(p, nil, false)
	if err != nil {
		return nil, err
	}
	deferred := deferredIncludes(p.Includes)
	for _, inc := range deferred {
		nav := parentNavigation(inc.Path)
		for _, k := range inc.ParentKeys {
			if spec.Index(nav, k) < 0 {
				return nil, NewInvalidClauseStateError("IncludeMany", fmt.Sprintf("%s: key %q of the parent rows is not selected", inc.Path, k))
			}
		}
	}
	return &CompiledStatement{
		SQL:        with + body,
		Parameters: c.binder.params,
		Projection: spec,
		Includes:   deferred,
		Statements: 1,
	}, nil
}

// subselect renders a nested query in the scope of its parent.
func (c *compiler) subselect(sc *scope, q *Query, path string, star bool) (string, error) {
	if q == nil {
		return "", &UnsupportedExpressionError{Kind: KindSubquery, Path: path, Detail: "nil query"}
	}
	if q.err != nil {
		return "", q.err
	}
	q.frozen = true
	s, _, err := c.selectSQL(q.plan, sc, star && q.plan.Group == nil)
	return s, err
}

// selectSQL renders a plan and its union branches. Branches that carry
// ordering or paging are wrapped in a derived table.
func (c *compiler) selectSQL(p *QueryPlan, parent *scope, star bool) (string, *ProjectionSpec, error) {
	if len(p.Unions) == 0 {
		return c.selectCore(p, parent, star)
	}
	head, spec, err := c.selectCore(p, parent, false)
	if err != nil {
		return "", nil, err
	}
	var b strings.Builder
	b.WriteString(wrapDerived(head, p.HeadAlias))
	for _, u := range p.Unions {
		branch, _, err := c.selectSQL(u.Plan, parent, false)
		if err != nil {
			return "", nil, err
		}
		if u.All {
			b.WriteString(" UNION ALL ")
		} else {
			b.WriteString(" UNION ")
		}
		b.WriteString(wrapDerived(branch, u.Alias))
	}
	return b.String(), spec, nil
}

func wrapDerived(s, alias string) string {
	if alias == "" {
		return s
	}
	return "SELECT * FROM (" + s + ") " + alias
}

// selectCore renders one SELECT. Clauses are translated in parameter
// order and assembled in SQL order.
func (c *compiler) selectCore(p *QueryPlan, parent *scope, star bool) (string, *ProjectionSpec, error) {
	if len(p.Tables) == 0 {
		return "", nil, NewInvalidClauseStateError("From", "missing FROM source")
	}
	if parent != nil {
		if err := c.realias(p, parent); err != nil {
			return "", nil, err
		}
	}
	sc := &scope{plan: p, parent: parent, qualify: needsQualify(p, parent)}
	from, err := c.from(sc)
	if err != nil {
		return "", nil, err
	}
	var where, group, having string
	if p.Where != nil {
		if where, err = c.pred(sc, p.Where, "Where"); err != nil {
			return "", nil, err
		}
	}
	if p.Group != nil {
		keys := make([]string, len(p.Group.Keys))
		for i, k := range p.Group.Keys {
			if keys[i], err = c.expr(sc, k.Expr, "GroupBy", nil); err != nil {
				return "", nil, err
			}
		}
		sc.group, sc.keys = p.Group, keys
		group = strings.Join(keys, ",")
	}
	if p.Having != nil {
		if having, err = c.pred(sc, p.Having, "Having"); err != nil {
			return "", nil, err
		}
	}
	list, spec, err := c.selectList(sc, star)
	if err != nil {
		return "", nil, err
	}
	orders, err := c.orderBy(sc)
	if err != nil {
		return "", nil, err
	}
	var top, paging string
	if p.Take != nil && p.Skip == nil && c.dialect.SupportsFeature(dialect.FeatureTop) {
		top = "TOP " + strconv.Itoa(*p.Take) + " "
	} else if paging = c.dialect.PagingClause(p.Skip, p.Take); paging != "" && orders == "" && c.dialect.SupportsFeature(dialect.FeatureOffsetRequiresOrder) {
		orders = "(SELECT NULL)"
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if p.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(top)
	b.WriteString(list)
	b.WriteString(" FROM ")
	b.WriteString(from)
	for _, clause := range [...]struct{ kw, s string }{
		{" WHERE ", where},
		{" GROUP BY ", group},
		{" HAVING ", having},
		{" ORDER BY ", orders},
		{" ", paging},
	} {
		if clause.s != "" {
			b.WriteString(clause.kw)
			b.WriteString(clause.s)
		}
	}
	return b.String(), spec, nil
}

// needsQualify reports if the columns of a plan are rendered with their
// table alias. Plain single-table statements are not.
// aliasOf returns the alias src renders with in the current statement.
func (c *compiler) aliasOf(src *TableSource) string {
	if a, ok := c.aliases[src]; ok {
		return a
	}
	return src.Alias
}

// realias renames the generated aliases of a nested plan that repeat an
// alias of an enclosing scope. A sub-query started with Client.From has an
// allocator of its own, so its sources would otherwise shadow the tables
// its predicates correlate with. Explicit aliases are never renamed.
func (c *compiler) realias(p *QueryPlan, parent *scope) error {
	visible := make(map[string]bool)
	for s := parent; s != nil; s = s.parent {
		if !s.qualify || s.byTable {
			continue
		}
		for _, src := range s.plan.Tables {
			visible[c.aliasOf(src)] = true
		}
	}
	taken := make(map[string]bool, len(p.Tables))
	for _, src := range p.Tables {
		taken[c.aliasOf(src)] = true
	}
	next := 0
	for _, src := range p.Tables {
		alias := c.aliasOf(src)
		if !visible[alias] {
			continue
		}
		if src.explicit {
			return &AliasResolutionError{Table: alias, Path: "From(" + src.name() + ")"}
		}
		candidate := func(n int) string {
			if src.Derived != nil {
				return "p" + strconv.Itoa(n) + "w"
			}
			return letters(n)
		}
		for visible[candidate(next)] || taken[candidate(next)] {
			next++
		}
		fresh := candidate(next)
		if c.aliases == nil {
			c.aliases = make(map[*TableSource]string)
		}
		c.aliases[src] = fresh
		taken[fresh] = true
	}
	return nil
}

func needsQualify(p *QueryPlan, parent *scope) bool {
	if parent != nil || len(p.Tables) > 1 {
		return true
	}
	if src := p.Tables[0]; src.explicit || src.Derived != nil {
		return true
	}
	return planHasSubquery(p)
}

func (c *compiler) from(sc *scope) (string, error) {
	var b strings.Builder
	for i, src := range sc.plan.Tables {
		s, err := c.source(sc, src)
		if err != nil {
			return "", err
		}
		switch {
		case i == 0:
			b.WriteString(s)
		case src.Join != nil:
			on, err := c.pred(sc, src.Join.On, src.Join.Kind.String())
			if err != nil {
				return "", err
			}
			b.WriteString(" " + src.Join.Kind.String() + " " + s + " ON " + on)
		default:
			b.WriteString("," + s)
		}
	}
	return b.String(), nil
}

// source renders one FROM item. Derived tables are compiled in place so
// their parameters are bound at their position.
func (c *compiler) source(sc *scope, src *TableSource) (string, error) {
	var s string
	switch {
	case src.Entity != nil:
		s = c.dialect.QuoteIdentifier(src.Entity.TableName())
	case src.Cte != nil:
		s = c.dialect.QuoteIdentifier(src.Cte.Name)
	case src.Derived != nil:
		inner, _, err := c.selectSQL(src.Derived, sc.parent, false)
		if err != nil {
			return "", err
		}
		return "(" + inner + ") " + c.aliasOf(src), nil
	default:
		return "", NewInvalidClauseStateError("From", "empty table source")
	}
	if sc.qualify {
		s += " " + c.aliasOf(src)
	}
	return s, nil
}

// selectList renders the SELECT list and the shape it materializes to.
func (c *compiler) selectList(sc *scope, star bool) (string, *ProjectionSpec, error) {
	if star {
		return "*", nil, nil
	}
	p := sc.plan
	spec := &ProjectionSpec{}
	var cols []string
	add := func(f ProjectionField, nav, path string) error {
		if gk, ok := f.Expr.(*GroupKey); ok && gk.Member == "" && gk.Group != nil && len(gk.Group.spec.Keys) > 1 {
			for i, k := range gk.Group.spec.Keys {
				member := ProjectionField{Name: k.outputName(), Expr: &GroupKey{Group: gk.Group, index: i + 1}}
				if err := c.project(sc, member, nav, path, spec, &cols); err != nil {
					return err
				}
			}
			return nil
		}
		return c.project(sc, f, nav, path, spec, &cols)
	}
	switch {
	case p.Projection != nil:
		spec.Shape = p.Projection.Shape
		for i, f := range p.Projection.Fields {
			if err := add(f, f.Navigation, "Select/"+strconv.Itoa(i)); err != nil {
				return "", nil, err
			}
		}
	case p.Group != nil:
		g := &Grouping{spec: p.Group}
		for i, k := range p.Group.Keys {
			key := ProjectionField{Name: k.outputName(), Expr: &GroupKey{Group: g, index: i + 1}}
			if err := add(key, "", "Select/"+strconv.Itoa(i)); err != nil {
				return "", nil, err
			}
		}
	default:
		root := p.Tables[0]
		for _, name := range root.columns() {
			if err := add(ProjectionField{Expr: root.handle.Col(name)}, "", "Select"); err != nil {
				return "", nil, err
			}
		}
	}
	for _, inc := range joinedIncludes(p.Includes) {
		for _, f := range inc.Target.FieldList() {
			if err := add(ProjectionField{Expr: inc.source.handle.Col(f.Name)}, inc.Path, "Include("+inc.Path+")"); err != nil {
				return "", nil, err
			}
		}
	}
	return strings.Join(cols, ","), spec, nil
}

// project renders one output column. The column is aliased when its
// output name differs from the name the database reports.
func (c *compiler) project(sc *scope, f ProjectionField, nav, path string, spec *ProjectionSpec, cols *[]string) error {
	s, err := c.expr(sc, f.Expr, path, nil)
	if err != nil {
		return err
	}
	name := f.outputName()
	if name != "" && name != c.columnName(sc, f.Expr) {
		s += " AS " + c.dialect.QuoteIdentifier(name)
	}
	*cols = append(*cols, s)
	spec.Fields = append(spec.Fields, OutputField{Name: name, Navigation: nav})
	return nil
}

// columnName returns the database column name of a column expression, or
// an empty string for computed expressions.
func (c *compiler) columnName(sc *scope, n Node) string {
	switch x := n.(type) {
	case *Column:
		if x.Table == nil {
			return ""
		}
		if src, _ := sc.lookup(x.Table); src != nil {
			name, _, _ := sourceColumn(src, x.Field)
			return name
		}
	case *GroupKey:
		for s := sc; s != nil; s = s.parent {
			if s.group == nil || x.Group == nil || s.group != x.Group.spec {
				continue
			}
			for i, k := range s.group.Keys {
				switch {
				case x.index == i+1,
					x.index == 0 && x.Member == "" && len(s.group.Keys) == 1,
					x.index == 0 && x.Member != "" && k.outputName() == x.Member:
					return c.columnName(s, k.Expr)
				}
			}
		}
	}
	return ""
}

func (c *compiler) orderBy(sc *scope) (string, error) {
	var terms []string
	add := func(n Node, desc bool, path string) error {
		s, err := c.expr(sc, n, path, nil)
		if err != nil {
			return err
		}
		if desc {
			s += " DESC"
		}
		terms = append(terms, s)
		return nil
	}
	for i, o := range sc.plan.Orders {
		path := "OrderBy/" + strconv.Itoa(i)
		if gk, ok := o.Expr.(*GroupKey); ok && gk.Member == "" && gk.Group != nil && len(gk.Group.spec.Keys) > 1 {
			for j := range gk.Group.spec.Keys {
				if err := add(&GroupKey{Group: gk.Group, index: j + 1}, o.Desc, path); err != nil {
					return "", err
				}
			}
			continue
		}
		if err := add(o.Expr, o.Desc, path); err != nil {
			return "", err
		}
	}
	return strings.Join(terms, ","), nil
}

// with renders the WITH clause of every CTE the statement references, in
// dependency order.
func (c *compiler) with(p *QueryPlan) (string, error) {
	defs := collectCtes(p)
	if len(defs) == 0 {
		return "", nil
	}
	if !c.dialect.SupportsFeature(dialect.FeatureCTE) {
		return "", NewInvalidClauseStateError("With", c.dialect.Name()+" does not support common table expressions")
	}
	recursive := false
	parts := make([]string, len(defs))
	for i, d := range defs {
		if d.Recursive {
			if !c.dialect.SupportsFeature(dialect.FeatureRecursiveCTE) {
				return "", NewInvalidClauseStateError("With", c.dialect.Name()+" does not support recursive common table expressions")
			}
			recursive = true
		}
		body, _, err := c.selectSQL(d.Anchor, nil, false)
		if err != nil {
			return "", err
		}
		if d.RecursiveMember != nil {
			member, _, err := c.selectSQL(d.RecursiveMember, nil, false)
			if err != nil {
				return "", err
			}
			body += " UNION ALL " + member
		}
		names := d.columnNames()
		cols := make([]string, len(names))
		for j, n := range names {
			cols[j] = c.dialect.QuoteIdentifier(n)
		}
		parts[i] = c.dialect.QuoteIdentifier(d.Name) + "(" + strings.Join(cols, ",") + ") AS (" + body + ")"
	}
	kw := "WITH "
	if recursive && c.dialect.SupportsFeature(dialect.FeatureRecursiveKeyword) {
		kw = "WITH RECURSIVE "
	}
	return kw + strings.Join(parts, ",") + " ", nil
}

// collectCtes returns the CTEs referenced anywhere in p, each after the
// ones its bodies reference.
func collectCtes(p *QueryPlan) []*CteDefinition {
	var (
		out       []*CteDefinition
		seen      = make(map[*CteDefinition]bool)
		visited   = make(map[*QueryPlan]bool)
		visitPlan func(*QueryPlan)
	)
	visitCte := func(d *CteDefinition) {
		if seen[d] {
			return
		}
		seen[d] = true
		visitPlan(d.Anchor)
		visitPlan(d.RecursiveMember)
		out = append(out, d)
	}
	visitPlan = func(p *QueryPlan) {
		if p == nil || visited[p] {
			return
		}
		visited[p] = true
		for _, src := range p.Tables {
			switch {
			case src.Cte != nil:
				visitCte(src.Cte)
			case src.Derived != nil:
				visitPlan(src.Derived)
			}
		}
		for _, d := range p.Ctes {
			visitCte(d)
		}
		for _, n := range planNodes(p) {
			walk(n, func(n Node) bool {
				if q := nodeQuery(n); q != nil {
					visitPlan(q.plan)
				}
				return true
			})
		}
		for _, u := range p.Unions {
			visitPlan(u.Plan)
		}
	}
	visitPlan(p)
	return out
}

// planNodes returns the expression roots of a plan.
func planNodes(p *QueryPlan) []Node {
	var nodes []Node
	for _, j := range p.Joins {
		nodes = append(nodes, j.On)
	}
	nodes = append(nodes, p.Where)
	if p.Group != nil {
		for _, k := range p.Group.Keys {
			nodes = append(nodes, k.Expr)
		}
	}
	nodes = append(nodes, p.Having)
	if p.Projection != nil {
		for _, f := range p.Projection.Fields {
			nodes = append(nodes, f.Expr)
		}
	}
	for _, o := range p.Orders {
		nodes = append(nodes, o.Expr)
	}
	return nodes
}

// planHasSubquery reports if an expression of p nests a query.
func planHasSubquery(p *QueryPlan) bool {
	found := false
	for _, n := range planNodes(p) {
		walk(n, func(n Node) bool {
			if nodeQuery(n) != nil {
				found = true
			}
			return !found
		})
	}
	return found
}

// nodeQuery returns the query nested by n, if any.
func nodeQuery(n Node) *Query {
	switch x := n.(type) {
	case *InExpr:
		return x.Query
	case *ExistsExpr:
		return x.Query
	case *SubqueryExpr:
		return x.Query
	}
	return nil
}

// walk visits n and its operands depth-first. Operands are skipped when fn
// returns false.
func walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	var children []Node
	switch x := n.(type) {
	case *Binary:
		children = []Node{x.Left, x.Right}
	case *Unary:
		children = []Node{x.X}
	case *Conditional:
		children = []Node{x.Test, x.Then, x.Else}
	case *CallExpr:
		children = callArgs(x)
	case *Aggregate:
		children = []Node{x.Arg}
	case *CoalesceExpr:
		children = []Node{x.Left, x.Right}
	case *InExpr:
		children = append([]Node{x.X}, x.Values...)
	case *Lambda:
		children = []Node{x.Body}
	case *CastExpr:
		children = []Node{x.X}
	}
	for _, child := range children {
		walk(child, fn)
	}
}

// joinedIncludes returns the single-valued includes resolved by joins, in
// declaration order, children after their parent.
func joinedIncludes(incs []*IncludeSpec) []*IncludeSpec {
	var out []*IncludeSpec
	for _, inc := range incs {
		if inc.Cardinality != edge.ToOne {
			continue
		}
		out = append(out, inc)
		out = append(out, joinedIncludes(inc.Children)...)
	}
	return out
}

// deferredIncludes returns the collection includes loaded by separate
// queries after the main one.
func deferredIncludes(incs []*IncludeSpec) []*IncludeSpec {
	var out []*IncludeSpec
	for _, inc := range incs {
		if inc.Cardinality == edge.ToMany {
			out = append(out, inc)
			continue
		}
		out = append(out, deferredIncludes(inc.Children)...)
	}
	return out
}

// parentNavigation returns the navigation path of the rows an include is
// attached to: "" for the root rows.
func parentNavigation(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return ""
}
