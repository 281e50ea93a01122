package veloxql

import (
	"fmt"

	"github.com/syssam/veloxql/schema/field"
)

// NodeKind identifies the variant of an expression node.
type NodeKind uint8

// Expression node kinds.
const (
	KindInvalid NodeKind = iota
	KindConstant
	KindParameter
	KindColumn
	KindBinary
	KindUnary
	KindConditional
	KindCall
	KindAggregate
	KindCoalesce
	KindIn
	KindExists
	KindLambda
	KindSubquery
	KindGroupKey
	KindCast
)

var kindNames = [...]string{
	KindInvalid:     "Invalid",
	KindConstant:    "Constant",
	KindParameter:   "Parameter",
	KindColumn:      "Column",
	KindBinary:      "Binary",
	KindUnary:       "Unary",
	KindConditional: "Conditional",
	KindCall:        "Call",
	KindAggregate:   "Aggregate",
	KindCoalesce:    "Coalesce",
	KindIn:          "In",
	KindExists:      "Exists",
	KindLambda:      "Lambda",
	KindSubquery:    "Subquery",
	KindGroupKey:    "GroupKey",
	KindCast:        "Cast",
}

// String returns the node kind name.
func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", k)
}

// Node is an expression tree node. Trees are built with the functions of
// this package and lowered to SQL when the query is compiled.
type Node interface {
	Kind() NodeKind
}

// Op is a unary or binary operator.
type Op uint8

// Operators.
const (
	OpEQ Op = iota + 1
	OpNE
	OpGT
	OpGE
	OpLT
	OpLE
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNot
	OpNeg
)

var opTokens = [...]string{
	OpEQ:  "=",
	OpNE:  "<>",
	OpGT:  ">",
	OpGE:  ">=",
	OpLT:  "<",
	OpLE:  "<=",
	OpAnd: " AND ",
	OpOr:  " OR ",
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpNot: "NOT ",
	OpNeg: "-",
}

// String returns the SQL token of the operator.
func (o Op) String() string {
	if int(o) < len(opTokens) && opTokens[o] != "" {
		return opTokens[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

func (o Op) comparison() bool { return o >= OpEQ && o <= OpLE }

// precedence returns the binding strength of the operator. Higher binds
// tighter.
func (o Op) precedence() int {
	switch o {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	case OpNot:
		return 3
	case OpEQ, OpNE, OpGT, OpGE, OpLT, OpLE:
		return 4
	case OpAdd, OpSub:
		return 5
	case OpMul, OpDiv, OpMod:
		return 6
	case OpNeg:
		return 7
	}
	return 8
}

type (
	// Constant is a value written in the expression itself. It is inlined
	// in the SQL text as a literal.
	Constant struct {
		Value any
	}

	// ParameterRef is a value captured from the caller. It is always bound as
	// a parameter.
	ParameterRef struct {
		Value any
	}

	// Column references a field of a table source.
	Column struct {
		Table *Table
		Field string
	}

	// Binary is a binary operation.
	Binary struct {
		Op          Op
		Left, Right Node
	}

	// Unary is a unary operation.
	Unary struct {
		Op Op
		X  Node
	}

	// Conditional is the ternary test ? then : else.
	Conditional struct {
		Test, Then, Else Node
	}

	// CallExpr is a method or function call. Target is the receiver of method
	// calls and nil for static functions.
	CallExpr struct {
		Target Node
		Name   string
		Args   []Node
	}

	// Aggregate is an aggregate function over a group. A nil Arg means *.
	Aggregate struct {
		Func     AggFunc
		Arg      Node
		Distinct bool
		CastTo   field.Type
	}

	// CoalesceExpr is the null-coalescing left ?? right.
	CoalesceExpr struct {
		Left, Right Node
	}

	// InExpr tests membership of X in a list of values or a sub-query.
	InExpr struct {
		X      Node
		Values []Node
		Query  *Query
		Not    bool
	}

	// ExistsExpr tests if a sub-query returns any row.
	ExistsExpr struct {
		Query *Query
		Not   bool
	}

	// Lambda is a body expression over parameter tables. A lambda used as a
	// predicate binds its parameters to the tables of the enclosing query in
	// order.
	Lambda struct {
		Params []*Table
		Body   Node
	}

	// SubqueryExpr is a scalar sub-query.
	SubqueryExpr struct {
		Query *Query
	}

	// GroupKey references the composite grouping key, or one of its members
	// when Member is set.
	GroupKey struct {
		Group  *Grouping
		Member string

		index int // 1-based member position, set when a composite key is expanded.
	}

	// CastExpr converts X to the given type.
	CastExpr struct {
		X  Node
		To field.Type
	}
)

func (*Constant) Kind() NodeKind     { return KindConstant }
func (*ParameterRef) Kind() NodeKind { return KindParameter }
func (*Column) Kind() NodeKind       { return KindColumn }
func (*Binary) Kind() NodeKind       { return KindBinary }
func (*Unary) Kind() NodeKind        { return KindUnary }
func (*Conditional) Kind() NodeKind  { return KindConditional }
func (*CallExpr) Kind() NodeKind     { return KindCall }
func (*Aggregate) Kind() NodeKind    { return KindAggregate }
func (*CoalesceExpr) Kind() NodeKind { return KindCoalesce }
func (*InExpr) Kind() NodeKind       { return KindIn }
func (*ExistsExpr) Kind() NodeKind   { return KindExists }
func (*Lambda) Kind() NodeKind       { return KindLambda }
func (*SubqueryExpr) Kind() NodeKind { return KindSubquery }
func (*GroupKey) Kind() NodeKind     { return KindGroupKey }
func (*CastExpr) Kind() NodeKind     { return KindCast }

// AggFunc is an aggregate function.
type AggFunc uint8

// Aggregate functions.
const (
	AggCount AggFunc = iota + 1
	AggSum
	AggAvg
	AggMax
	AggMin
)

// String returns the SQL name of the aggregate.
func (f AggFunc) String() string {
	switch f {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMax:
		return "MAX"
	case AggMin:
		return "MIN"
	}
	return fmt.Sprintf("AggFunc(%d)", f)
}

// Comparison helpers on columns.

// EQ returns c = x.
func (c *Column) EQ(x Node) *Binary { return EQ(c, x) }

// NE returns c <> x.
func (c *Column) NE(x Node) *Binary { return NE(c, x) }

// GT returns c > x.
func (c *Column) GT(x Node) *Binary { return GT(c, x) }

// GE returns c >= x.
func (c *Column) GE(x Node) *Binary { return GE(c, x) }

// LT returns c < x.
func (c *Column) LT(x Node) *Binary { return LT(c, x) }

// LE returns c <= x.
func (c *Column) LE(x Node) *Binary { return LE(c, x) }

// In returns c IN (values...).
func (c *Column) In(values ...Node) *InExpr { return In(c, values...) }

// Contains returns a substring match of c against s.
func (c *Column) Contains(s Node) *CallExpr { return Contains(c, s) }

// IsNull returns c IS NULL.
func (c *Column) IsNull() *Binary { return IsNull(c) }

// Comparison helpers on method calls, so a call result compares like a
// column: Length(name).GT(Const(3)).

// EQ returns x = y.
func (x *CallExpr) EQ(y Node) *Binary { return EQ(x, y) }

// NE returns x <> y.
func (x *CallExpr) NE(y Node) *Binary { return NE(x, y) }

// GT returns x > y.
func (x *CallExpr) GT(y Node) *Binary { return GT(x, y) }

// GE returns x >= y.
func (x *CallExpr) GE(y Node) *Binary { return GE(x, y) }

// LT returns x < y.
func (x *CallExpr) LT(y Node) *Binary { return LT(x, y) }

// LE returns x <= y.
func (x *CallExpr) LE(y Node) *Binary { return LE(x, y) }
