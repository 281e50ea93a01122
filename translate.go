package veloxql

import (
	"reflect"
	"strings"
	"time"

	"github.com/syssam/veloxql/schema/field"
)

// scope is the set of table sources visible while translating one SELECT
// or DML statement. Sub-queries nest their scope inside the enclosing one.
type scope struct {
	plan    *QueryPlan
	parent  *scope
	qualify bool
	// byTable qualifies columns with the table name instead of an alias.
	byTable bool
	params  map[*Table]*TableSource
	group   *GroupSpec
	keys    []string // rendered GROUP BY keys.
}

// lookup finds the source a table handle refers to and the scope that
// declares it.
func (s *scope) lookup(t *Table) (*TableSource, *scope) {
	for sc := s; sc != nil; sc = sc.parent {
		if src, ok := sc.params[t]; ok {
			return src, sc
		}
		if t.src == nil {
			continue
		}
		for _, src := range sc.plan.Tables {
			if src == t.src {
				return src, sc
			}
		}
	}
	return nil, nil
}

// bindParams returns a scope where the lambda parameters refer to the
// sources of the current plan, in order.
func (s *scope) bindParams(l *Lambda) (*scope, bool) {
	if len(l.Params) > len(s.plan.Tables) {
		return nil, false
	}
	bound := *s
	bound.params = make(map[*Table]*TableSource, len(s.params)+len(l.Params))
	for t, src := range s.params {
		bound.params[t] = src
	}
	for i, t := range l.Params {
		bound.params[t] = s.plan.Tables[i]
	}
	return &bound, true
}

func unsupported(n Node, path, detail string) error {
	kind := KindInvalid
	if n != nil {
		kind = n.Kind()
	}
	return &UnsupportedExpressionError{Kind: kind, Path: path, Detail: detail}
}

// expr lowers n in value position. The hint is the field n is compared
// with or assigned to, if known.
func (c *compiler) expr(sc *scope, n Node, path string, hint *field.Descriptor) (string, error) {
	switch x := n.(type) {
	case *Constant:
		if _, ok := elements(x.Value); ok {
			return "", unsupported(x, path, "collection constants are only valid in IN")
		}
		return c.binder.inline(x.Value, hint, path)
	case *ParameterRef:
		if _, ok := elements(x.Value); ok {
			return "", unsupported(x, path, "collection parameters are only valid in IN")
		}
		return c.binder.bind(x.Value, hint, path)
	case *Column:
		s, _, err := c.column(sc, x, path)
		return s, err
	case *Binary:
		return c.binary(sc, x, path)
	case *Unary:
		return c.unary(sc, x, path)
	case *Conditional:
		return c.conditional(sc, x, path, hint)
	case *CallExpr:
		return c.call(sc, x, path+"/Call("+x.Name+")")
	case *Aggregate:
		return c.aggregate(sc, x, path)
	case *CoalesceExpr:
		return c.coalesce(sc, x, path, hint)
	case *InExpr:
		return c.in(sc, x, path)
	case *ExistsExpr:
		sub, err := c.subselect(sc, x.Query, path+"/Exists", true)
		if err != nil {
			return "", err
		}
		if x.Not {
			return "NOT EXISTS(" + sub + ")", nil
		}
		return "EXISTS(" + sub + ")", nil
	case *SubqueryExpr:
		sub, err := c.subselect(sc, x.Query, path+"/Subquery", false)
		if err != nil {
			return "", err
		}
		return "(" + sub + ")", nil
	case *Lambda:
		bound, ok := sc.bindParams(x)
		if !ok {
			return "", unsupported(x, path, "lambda has more parameters than the query has tables")
		}
		return c.pred(bound, x.Body, path+"/Lambda")
	case *GroupKey:
		return c.groupKey(sc, x, path)
	case *CastExpr:
		name, ok := c.dialect.CastTypeName(x.To)
		if !ok {
			return "", unsupported(x, path, "no cast target for "+x.To.String())
		}
		s, err := c.expr(sc, x.X, path+"/Cast", nil)
		if err != nil {
			return "", err
		}
		return "CAST(" + s + " AS " + name + ")", nil
	case nil:
		return "", unsupported(nil, path, "missing expression")
	default:
		return "", unsupported(n, path, "")
	}
}

// pred lowers n in predicate position.
func (c *compiler) pred(sc *scope, n Node, path string) (string, error) {
	switch x := n.(type) {
	case *Column:
		s, desc, err := c.column(sc, x, path)
		if err != nil {
			return "", err
		}
		if desc != nil && desc.Type == field.TypeBool {
			return s + "=" + c.dialect.Literals().True, nil
		}
		return s, nil
	case *Constant:
		if b, ok := x.Value.(bool); ok {
			if b {
				return "1=1", nil
			}
			return "1=0", nil
		}
	case *Unary:
		if x.Op == OpNot {
			return c.not(sc, x.X, path+"/Not")
		}
	case *Lambda:
		bound, ok := sc.bindParams(x)
		if !ok {
			return "", unsupported(x, path, "lambda has more parameters than the query has tables")
		}
		return c.pred(bound, x.Body, path+"/Lambda")
	}
	return c.expr(sc, n, path, nil)
}

// not lowers the negation of x, folding it into the operator when the
// dialect has a negated form.
func (c *compiler) not(sc *scope, x Node, path string) (string, error) {
	switch x := x.(type) {
	case *Lambda:
		bound, ok := sc.bindParams(x)
		if !ok {
			return "", unsupported(x, path, "lambda has more parameters than the query has tables")
		}
		return c.not(bound, x.Body, path+"/Lambda")
	case *InExpr:
		neg := *x
		neg.Not = !x.Not
		return c.in(sc, &neg, path)
	case *ExistsExpr:
		neg := *x
		neg.Not = !x.Not
		return c.expr(sc, &neg, path, nil)
	case *Unary:
		if x.Op == OpNot {
			return c.pred(sc, x.X, path+"/Not")
		}
	case *Column:
		s, desc, err := c.column(sc, x, path)
		if err != nil {
			return "", err
		}
		if desc != nil && desc.Type == field.TypeBool {
			return s + "=" + c.dialect.Literals().False, nil
		}
		return "NOT " + s, nil
	case *CallExpr:
		switch x.Name {
		case "Contains", "StartsWith", "EndsWith":
			return c.like(sc, x, path+"/Call("+x.Name+")", true)
		}
	case *Binary:
		if x.Op.comparison() && (isNullNode(x.Left) || isNullNode(x.Right)) {
			flip := *x
			if x.Op == OpEQ {
				flip.Op = OpNE
			} else {
				flip.Op = OpEQ
			}
			return c.binary(sc, &flip, path)
		}
	}
	s, err := c.pred(sc, x, path)
	if err != nil {
		return "", err
	}
	if c.precedence(x) < OpNot.precedence() || isComparison(x) {
		s = "(" + s + ")"
	}
	return "NOT " + s, nil
}

// lambdaBody returns the expression n renders as, looking through lambdas.
func lambdaBody(n Node) Node {
	for {
		l, ok := n.(*Lambda)
		if !ok {
			return n
		}
		n = l.Body
	}
}

func isComparison(n Node) bool {
	b, ok := lambdaBody(n).(*Binary)
	return ok && b.Op.comparison()
}

// isNullNode reports if n renders as NULL.
func isNullNode(n Node) bool {
	switch x := n.(type) {
	case *Constant:
		return isNil(x.Value)
	case *ParameterRef:
		return isNil(x.Value)
	}
	return false
}

// precedence returns the binding strength of the SQL rendered for n.
// Calls bind like the operators of their dialect template.
func (c *compiler) precedence(n Node) int {
	switch x := n.(type) {
	case *Lambda:
		return c.precedence(x.Body)
	case *Binary:
		return x.Op.precedence()
	case *Unary:
		return x.Op.precedence()
	case *InExpr:
		return OpEQ.precedence()
	case *CallExpr:
		switch x.Name {
		case "Contains", "StartsWith", "EndsWith", "Equals":
			return OpEQ.precedence()
		case "CompareTo", "Compare", "ToString":
			return 8
		}
		if tmpl, ok := c.dialect.MapFunction(x.Name, len(callArgs(x))); ok && topLevelOperator(tmpl) {
			return OpAdd.precedence()
		}
	}
	return 8
}

func (c *compiler) binary(sc *scope, b *Binary, path string) (string, error) {
	switch {
	case b.Op == OpAnd || b.Op == OpOr:
		return c.logical(sc, b, path)
	case b.Op.comparison():
		return c.comparison(sc, b, path)
	case b.Op == OpAdd && (c.typeOf(sc, b.Left) == field.TypeString || c.typeOf(sc, b.Right) == field.TypeString):
		return c.concat(sc, flattenAdd(b, nil), path+"/Concat")
	case b.Op >= OpAdd && b.Op <= OpMod:
		return c.arithmetic(sc, b, path)
	}
	return "", unsupported(b, path, "unknown operator "+b.Op.String())
}

func (c *compiler) logical(sc *scope, b *Binary, path string) (string, error) {
	operand := func(n Node, side string) (string, error) {
		s, err := c.pred(sc, n, path+"/"+side)
		if err != nil {
			return "", err
		}
		if child, ok := lambdaBody(n).(*Binary); ok && (child.Op == OpAnd || child.Op == OpOr) && child.Op != b.Op {
			s = "(" + s + ")"
		}
		return s, nil
	}
	l, err := operand(b.Left, "Left")
	if err != nil {
		return "", err
	}
	r, err := operand(b.Right, "Right")
	if err != nil {
		return "", err
	}
	return l + b.Op.String() + r, nil
}

func (c *compiler) comparison(sc *scope, b *Binary, path string) (string, error) {
	if (b.Op == OpEQ || b.Op == OpNE) && (isNullNode(b.Left) || isNullNode(b.Right)) {
		x := b.Left
		if isNullNode(x) {
			x = b.Right
		}
		s, err := c.operand(sc, x, path, nil, OpEQ.precedence()+1)
		if err != nil {
			return "", err
		}
		if b.Op == OpEQ {
			return s + " IS NULL", nil
		}
		return s + " IS NOT NULL", nil
	}
	// Each side is formatted with the field of the other side, so enum and
	// JSON values follow the codec of the column they are compared with.
	lhint, rhint := c.fieldOf(sc, b.Left), c.fieldOf(sc, b.Right)
	l, err := c.operand(sc, b.Left, path+"/Left", rhint, b.Op.precedence()+1)
	if err != nil {
		return "", err
	}
	r, err := c.operand(sc, b.Right, path+"/Right", lhint, b.Op.precedence()+1)
	if err != nil {
		return "", err
	}
	return l + b.Op.String() + r, nil
}

func (c *compiler) arithmetic(sc *scope, b *Binary, path string) (string, error) {
	prec := b.Op.precedence()
	l, err := c.operand(sc, b.Left, path+"/Left", nil, prec)
	if err != nil {
		return "", err
	}
	// Right operands of the same precedence are grouped explicitly, so
	// a-(b-c) keeps its meaning.
	r, err := c.operand(sc, b.Right, path+"/Right", nil, prec+1)
	if err != nil {
		return "", err
	}
	return l + b.Op.String() + r, nil
}

// operand renders n and parenthesizes it when it binds looser than min.
func (c *compiler) operand(sc *scope, n Node, path string, hint *field.Descriptor, min int) (string, error) {
	s, err := c.expr(sc, n, path, hint)
	if err != nil {
		return "", err
	}
	if c.precedence(n) < min {
		s = "(" + s + ")"
	}
	return s, nil
}

// topLevelOperator reports if a function template has an additive or
// concatenation operator outside of parentheses and string literals.
func topLevelOperator(s string) bool {
	depth, quoted := 0, false
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '\'':
			quoted = !quoted
		case quoted:
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case depth == 0 && (ch == '+' || ch == '-' || ch == '|'):
			return true
		}
	}
	return false
}

func (c *compiler) unary(sc *scope, u *Unary, path string) (string, error) {
	switch u.Op {
	case OpNot:
		return c.not(sc, u.X, path+"/Not")
	case OpNeg:
		s, err := c.operand(sc, u.X, path+"/Neg", nil, OpNeg.precedence())
		if err != nil {
			return "", err
		}
		return "-" + s, nil
	}
	return "", unsupported(u, path, "unknown operator "+u.Op.String())
}

func (c *compiler) conditional(sc *scope, x *Conditional, path string, hint *field.Descriptor) (string, error) {
	var b strings.Builder
	b.WriteString("CASE")
	// Nested conditionals in the else branch become further WHEN arms.
	for {
		test, err := c.pred(sc, x.Test, path+"/Test")
		if err != nil {
			return "", err
		}
		then, err := c.expr(sc, x.Then, path+"/Then", hint)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHEN " + test + " THEN " + then)
		next, ok := x.Else.(*Conditional)
		if !ok {
			break
		}
		x = next
	}
	els, err := c.expr(sc, x.Else, path+"/Else", hint)
	if err != nil {
		return "", err
	}
	b.WriteString(" ELSE " + els + " END")
	return b.String(), nil
}

func (c *compiler) coalesce(sc *scope, x *CoalesceExpr, path string, hint *field.Descriptor) (string, error) {
	if hint == nil {
		hint = c.fieldOf(sc, x.Left)
	}
	args := []Node{x.Left}
	for r := x.Right; ; {
		next, ok := r.(*CoalesceExpr)
		if !ok {
			args = append(args, r)
			break
		}
		args = append(args, next.Left)
		r = next.Right
	}
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := c.expr(sc, a, path+"/Coalesce", hint)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "COALESCE(" + strings.Join(parts, ",") + ")", nil
}

func (c *compiler) in(sc *scope, x *InExpr, path string) (string, error) {
	path += "/In"
	hint := c.fieldOf(sc, x.X)
	lhs, err := c.operand(sc, x.X, path, nil, OpEQ.precedence()+1)
	if err != nil {
		return "", err
	}
	op := " IN "
	if x.Not {
		op = " NOT IN "
	}
	if x.Query != nil {
		sub, err := c.subselect(sc, x.Query, path, false)
		if err != nil {
			return "", err
		}
		return lhs + op + "(" + sub + ")", nil
	}
	var items []string
	add := func(n Node) error {
		s, err := c.expr(sc, n, path, hint)
		if err == nil {
			items = append(items, s)
		}
		return err
	}
	for _, v := range x.Values {
		switch v := v.(type) {
		case *Constant:
			if elems, ok := elements(v.Value); ok {
				for _, e := range elems {
					if err := add(Const(e)); err != nil {
						return "", err
					}
				}
				continue
			}
		case *ParameterRef:
			if elems, ok := elements(v.Value); ok {
				for _, e := range elems {
					if err := add(Var(e)); err != nil {
						return "", err
					}
				}
				continue
			}
		}
		if err := add(v); err != nil {
			return "", err
		}
	}
	if len(items) == 0 {
		// An empty list matches no row.
		if x.Not {
			return "1=1", nil
		}
		return "1=0", nil
	}
	return lhs + op + "(" + strings.Join(items, ",") + ")", nil
}

func (c *compiler) groupKey(sc *scope, x *GroupKey, path string) (string, error) {
	var group *scope
	for s := sc; s != nil; s = s.parent {
		if s.group != nil && x.Group != nil && s.group == x.Group.spec {
			group = s
			break
		}
	}
	if group == nil || len(group.keys) == 0 {
		return "", unsupported(x, path, "grouping key used outside of its GROUP BY")
	}
	if x.index > 0 && x.index <= len(group.keys) {
		return group.keys[x.index-1], nil
	}
	if x.Member == "" {
		if len(group.keys) != 1 {
			return "", unsupported(x, path, "composite grouping key can only be projected or ordered by")
		}
		return group.keys[0], nil
	}
	for i, k := range group.group.Keys {
		if k.outputName() == x.Member {
			return group.keys[i], nil
		}
	}
	return "", &AliasResolutionError{Table: "GroupBy", Field: x.Member, Path: path}
}

// column renders a column reference and returns the schema field behind
// it, if known.
func (c *compiler) column(sc *scope, col *Column, path string) (string, *field.Descriptor, error) {
	path += "/Column(" + col.Field + ")"
	if col.Table == nil {
		return "", nil, &AliasResolutionError{Field: col.Field, Path: path}
	}
	src, owner := sc.lookup(col.Table)
	if src == nil {
		return "", nil, &AliasResolutionError{Table: col.Table.Name(), Field: col.Field, Path: path}
	}
	name, desc, ok := sourceColumn(src, col.Field)
	if !ok {
		return "", nil, &AliasResolutionError{Table: src.name(), Field: col.Field, Path: path}
	}
	quoted := c.dialect.QuoteIdentifier(name)
	switch {
	case !owner.qualify:
		return quoted, desc, nil
	case owner.byTable:
		return c.dialect.QuoteIdentifier(src.Entity.TableName()) + "." + quoted, desc, nil
	default:
		return c.aliasOf(src) + "." + quoted, desc, nil
	}
}

// sourceColumn maps a field name of a source to its column name.
func sourceColumn(src *TableSource, name string) (string, *field.Descriptor, bool) {
	if src.Entity != nil {
		f, ok := src.Entity.Field(name)
		if !ok {
			return "", nil, false
		}
		return f.ColumnName(), f, true
	}
	for _, n := range src.columns() {
		if n == name {
			return n, derivedField(src, name), true
		}
	}
	return "", nil, false
}

// derivedField finds the schema field a derived or CTE column projects,
// if it projects a plain column.
func derivedField(src *TableSource, name string) *field.Descriptor {
	plan := src.Derived
	if src.Cte != nil {
		plan = src.Cte.Anchor
	}
	if plan == nil || len(plan.Tables) == 0 {
		return nil
	}
	if plan.Projection == nil {
		if _, desc, ok := sourceColumn(plan.Tables[0], name); ok {
			return desc
		}
		return nil
	}
	for _, f := range plan.Projection.Fields {
		col, ok := f.Expr.(*Column)
		if !ok || f.outputName() != name || col.Table == nil || col.Table.src == nil {
			continue
		}
		if _, desc, ok := sourceColumn(col.Table.src, col.Field); ok {
			return desc
		}
	}
	return nil
}

// fieldOf returns the schema field of a column expression.
func (c *compiler) fieldOf(sc *scope, n Node) *field.Descriptor {
	switch x := n.(type) {
	case *Column:
		if x.Table == nil {
			return nil
		}
		if src, _ := sc.lookup(x.Table); src != nil {
			_, desc, _ := sourceColumn(src, x.Field)
			return desc
		}
	case *CoalesceExpr:
		return c.fieldOf(sc, x.Left)
	}
	return nil
}

// typeOf infers the type of an expression. It returns TypeInvalid when
// the type is unknown.
func (c *compiler) typeOf(sc *scope, n Node) field.Type {
	switch x := n.(type) {
	case *Constant:
		return valueType(x.Value)
	case *ParameterRef:
		return valueType(x.Value)
	case *Column:
		if desc := c.fieldOf(sc, x); desc != nil {
			return desc.Type
		}
	case *Binary:
		switch {
		case x.Op.comparison(), x.Op == OpAnd, x.Op == OpOr:
			return field.TypeBool
		case x.Op == OpAdd:
			l, r := c.typeOf(sc, x.Left), c.typeOf(sc, x.Right)
			if l == field.TypeString || r == field.TypeString {
				return field.TypeString
			}
			if l != field.TypeInvalid {
				return l
			}
			return r
		default:
			return c.typeOf(sc, x.Left)
		}
	case *CallExpr:
		switch x.Name {
		case "ToUpper", "ToLower", "Trim", "TrimStart", "TrimEnd", "Substring", "Replace", "Concat", "ToString":
			return field.TypeString
		case "Contains", "StartsWith", "EndsWith", "IsNullOrEmpty", "Equals":
			return field.TypeBool
		case "Length", "IndexOf", "CompareTo", "Compare", "Year", "Month", "Day", "Hour", "Minute", "Second", "DayOfWeek", "DayOfYear":
			return field.TypeInt
		}
	case *CoalesceExpr:
		return c.typeOf(sc, x.Left)
	case *Conditional:
		return c.typeOf(sc, x.Then)
	case *CastExpr:
		return x.To
	}
	return field.TypeInvalid
}

func valueType(v any) field.Type {
	if v == nil {
		return field.TypeInvalid
	}
	if _, ok := v.(time.Time); ok {
		return field.TypeTime
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return field.TypeString
	case reflect.Bool:
		return field.TypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return field.TypeInt
	case reflect.Float32, reflect.Float64:
		return field.TypeFloat64
	}
	return field.TypeInvalid
}

// flattenAdd collects the operands of a chain of additions.
func flattenAdd(n Node, acc []Node) []Node {
	if b, ok := n.(*Binary); ok && b.Op == OpAdd {
		acc = flattenAdd(b.Left, acc)
		return flattenAdd(b.Right, acc)
	}
	return append(acc, n)
}
