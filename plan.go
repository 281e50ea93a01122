package veloxql

import (
	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/schema/edge"
)

// SourceRole is the position a table source was declared in.
type SourceRole uint8

// Source roles.
const (
	RoleRoot    SourceRole = iota + 1 // first source of a FROM clause.
	RoleJoined                        // target of a JOIN.
	RoleDerived                       // comma-joined source added by WithTable.
	RoleCteBody                       // root source of a CTE anchor or member.
)

// JoinKind is the kind of a JOIN clause.
type JoinKind uint8

// Join kinds.
const (
	InnerJoin JoinKind = iota + 1
	LeftJoin
	RightJoin
)

// String returns the SQL keyword of the join.
func (k JoinKind) String() string {
	switch k {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	default:
		return "INNER JOIN"
	}
}

// QueryPlan is the clause model of one SELECT statement. It is appended to
// by the builder calls of one chain and read by the emitter.
type QueryPlan struct {
	Tables     []*TableSource
	Joins      []*JoinClause
	Where      Node
	Group      *GroupSpec
	Having     Node
	Orders     []OrderSpec
	Projection *Projection
	Distinct   bool
	Skip, Take *int
	Unions     []UnionBranch
	Ctes       []*CteDefinition
	Includes   []*IncludeSpec

	// HeadAlias wraps the head of a union when it carries ordering or paging.
	HeadAlias string
}

// TableSource is one table of a FROM clause. Exactly one of Entity, Derived
// and Cte is set.
type TableSource struct {
	Alias   string
	Role    SourceRole
	Entity  *schema.Entity
	Derived *QueryPlan
	Cte     *CteDefinition
	Join    *JoinClause

	explicit bool
	handle   *Table
}

// name returns the entity, CTE or alias name of the source.
func (s *TableSource) name() string {
	switch {
	case s.Entity != nil:
		return s.Entity.Name()
	case s.Cte != nil:
		return s.Cte.Name
	default:
		return s.Alias
	}
}

// columns returns the output field names of the source.
func (s *TableSource) columns() []string {
	switch {
	case s.Entity != nil:
		fields := s.Entity.FieldList()
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		return names
	case s.Derived != nil:
		return s.Derived.columnNames()
	case s.Cte != nil:
		return s.Cte.columnNames()
	}
	return nil
}

// JoinClause joins Right to the sources declared before it.
type JoinClause struct {
	Kind  JoinKind
	Left  *TableSource
	Right *TableSource
	On    Node
}

// OrderSpec is one ORDER BY term.
type OrderSpec struct {
	Expr Node
	Desc bool
}

// GroupSpec holds the grouping keys of a GROUP BY clause.
type GroupSpec struct {
	Keys []ProjectionField
}

// UnionBranch is a statement appended with UNION or UNION ALL. Alias is
// set when the branch is wrapped in a derived table.
type UnionBranch struct {
	All   bool
	Plan  *QueryPlan
	Alias string
}

// CteDefinition is a named WITH body.
type CteDefinition struct {
	Name            string
	Columns         []string
	Anchor          *QueryPlan
	RecursiveMember *QueryPlan
	Recursive       bool
}

func (d *CteDefinition) columnNames() []string {
	if len(d.Columns) > 0 {
		return d.Columns
	}
	if d.Anchor != nil {
		return d.Anchor.columnNames()
	}
	return nil
}

// IncludeSpec is an eager-load request of one navigation.
type IncludeSpec struct {
	Path        string // dotted navigation path from the root, e.g. "Order.Buyer".
	Name        string // navigation name, the last path element.
	Cardinality edge.Cardinality
	Filter      *Lambda
	Children    []*IncludeSpec
	Target      *schema.Entity
	// ParentKeys are the fields of the parent rows and TargetKeys the fields
	// of the target rows that are matched when stitching.
	ParentKeys []string
	TargetKeys []string

	edge   *edge.Descriptor
	source *TableSource // joined source of a One include.
	client *Client
}

// Projection is the shape of a SELECT list.
type Projection struct {
	Shape  string
	Fields []ProjectionField
}

// ProjectionField is one output field. An empty Name takes the field name
// of a column expression.
type ProjectionField struct {
	Name       string
	Expr       Node
	Navigation string
}

// As returns a projection field with the given output name.
func As(name string, x Node) ProjectionField {
	return ProjectionField{Name: name, Expr: x}
}

// Fields returns a projection of the given fields.
func Fields(fields ...ProjectionField) *Projection {
	return &Projection{Fields: fields}
}

// Shape returns a named projection of the given fields.
func Shape(name string, fields ...ProjectionField) *Projection {
	return &Projection{Shape: name, Fields: fields}
}

// Columns returns a projection of the given expressions. Columns keep
// their field names.
func Columns(xs ...Node) *Projection {
	fields := make([]ProjectionField, len(xs))
	for i, x := range xs {
		fields[i] = ProjectionField{Expr: x}
	}
	return &Projection{Fields: fields}
}

// Value returns a projection of a single expression.
func Value(x Node) *Projection {
	return &Projection{Fields: []ProjectionField{{Expr: x}}}
}

// outputName returns the name a projection field is materialized as.
func (f ProjectionField) outputName() string {
	if f.Name != "" {
		return f.Name
	}
	switch x := f.Expr.(type) {
	case *Column:
		return x.Field
	case *GroupKey:
		if x.Member != "" {
			return x.Member
		}
		if x.Group != nil && len(x.Group.spec.Keys) == 1 {
			return x.Group.spec.Keys[0].outputName()
		}
	}
	return ""
}

// columnNames returns the output names of a plan, as seen by a query that
// uses it as a derived table or CTE.
func (p *QueryPlan) columnNames() []string {
	if p.Projection == nil {
		if len(p.Tables) == 0 {
			return nil
		}
		return p.Tables[0].columns()
	}
	var names []string
	for _, f := range p.Projection.Fields {
		if gk, ok := f.Expr.(*GroupKey); ok && gk.Member == "" && gk.Group != nil && len(gk.Group.spec.Keys) > 1 {
			for _, k := range gk.Group.spec.Keys {
				names = append(names, k.outputName())
			}
			continue
		}
		names = append(names, f.outputName())
	}
	return names
}

// ordered reports if the plan carries ordering or paging.
func (p *QueryPlan) ordered() bool {
	return len(p.Orders) > 0 || p.Skip != nil || p.Take != nil
}
